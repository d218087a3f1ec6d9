// Package transport binds the frame exchange to raw link-layer sockets.
package transport

import (
	"context"
	"fmt"

	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/log"
	"firestige.xyz/linkprobe/internal/metrics"
)

// Transport moves whole Ethernet frames on one interface.
//
// Receive blocks until a frame arrives or ctx is done, in which case ctx.Err()
// is returned unwrapped. Socket failures are wrapped with core.ErrTransport.
// Each call returns exactly one frame owned by the caller.
type Transport interface {
	Send(ctx context.Context, frame []byte) (int, error)
	Receive(ctx context.Context) ([]byte, error)
	Close() error
}

// Open creates the backend selected by cfg.Backend bound to id's interface.
func Open(cfg config.TransportConfig, id core.Identity) (Transport, error) {
	var (
		t   Transport
		err error
	)
	switch cfg.Backend {
	case config.BackendAFPacket:
		t, err = openAFPacket(cfg, id)
	case config.BackendPacket:
		t, err = openPacket(cfg, id)
	default:
		return nil, fmt.Errorf("%w: unknown transport backend %q", core.ErrConfigInvalid, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.GetLogger().WithFields(map[string]interface{}{
		"backend":    cfg.Backend,
		"interface":  id.Interface,
		"arp_filter": cfg.ARPFilter,
	}).Debug("transport opened")

	return &observed{Transport: t}, nil
}

// observed counts and traces frames passing through a backend.
type observed struct {
	Transport
}

func (o *observed) Send(ctx context.Context, frame []byte) (int, error) {
	n, err := o.Transport.Send(ctx, frame)
	if err == nil {
		if l := log.GetLogger(); l.IsDebugEnabled() {
			l.WithField("frame", Describe(frame)).Debugf("sent %d bytes", n)
		}
	}
	return n, err
}

func (o *observed) Receive(ctx context.Context) ([]byte, error) {
	frame, err := o.Transport.Receive(ctx)
	if err == nil {
		metrics.FramesReceivedTotal.Inc()
		if l := log.GetLogger(); l.IsTraceEnabled() {
			l.WithField("frame", Describe(frame)).Tracef("received %d bytes", len(frame))
		}
	}
	return frame, err
}

func checkFrameSize(frame []byte, max int) error {
	if len(frame) > max {
		return fmt.Errorf("%w: frame of %d bytes exceeds %d", core.ErrTransport, len(frame), max)
	}
	if len(frame) < core.EthernetHeaderLen {
		return fmt.Errorf("%w: frame of %d bytes has no ethernet header", core.ErrTransport, len(frame))
	}
	return nil
}
