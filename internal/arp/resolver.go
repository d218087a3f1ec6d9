package arp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/core/codec"
	"firestige.xyz/linkprobe/internal/log"
	"firestige.xyz/linkprobe/internal/metrics"
	"firestige.xyz/linkprobe/internal/transport"
)

const stageResolver = "resolver"

// ResolverOptions tune a Resolver.
type ResolverOptions struct {
	// Timeout bounds the wait for a reply; zero waits until ctx ends.
	Timeout time.Duration
	// StrictMatch discards replies whose sender IP is not the requested
	// target, and replies that are not IPv4 over Ethernet. Without it the
	// first reply from any sender resolves the request.
	StrictMatch bool
}

// Resolution is the outcome of a successful exchange.
type Resolution struct {
	Target  core.IPv4
	MAC     core.MAC
	Frames  int // frames inspected while waiting, including the reply
	Elapsed time.Duration
}

// Resolver resolves IPv4 addresses to hardware addresses with one on-wire
// ARP exchange per call. It keeps no cache.
type Resolver struct {
	tr     transport.Transport
	id     core.Identity
	opts   ResolverOptions
	logger log.Logger
	state  State
}

// NewResolver returns a resolver sourcing requests from id.
func NewResolver(tr transport.Transport, id core.Identity, opts ResolverOptions) *Resolver {
	return &Resolver{
		tr:     tr,
		id:     id,
		opts:   opts,
		logger: log.GetLogger().WithField("stage", stageResolver),
		state:  StateIdle,
	}
}

// State reports where the last exchange stopped.
func (r *Resolver) State() State {
	return r.state
}

// Resolve broadcasts a request for target and waits for the first acceptable
// reply. The request is sent once and never retransmitted.
func (r *Resolver) Resolve(ctx context.Context, target core.IPv4) (Resolution, error) {
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}
	logger := r.logger.WithField("target", target.String())

	r.state = StateIdle
	req := core.NewARPRequest(r.id.MAC, r.id.IP, target)
	frame := codec.ARPFrame(core.BroadcastMAC, r.id.MAC, req)

	start := time.Now()
	if _, err := r.tr.Send(ctx, frame); err != nil {
		return Resolution{}, r.fail(logger, fmt.Errorf("send arp request: %w", err))
	}
	metrics.FramesSentTotal.WithLabelValues(metrics.KindARPRequest).Inc()
	r.state = StateRequestSent
	logger.Debug("arp request sent")

	reply, frames, err := await(ctx, r.tr, stageResolver, logger, func(msg core.ARPMessage) string {
		return r.accept(msg, target)
	})
	if err != nil {
		return Resolution{}, r.fail(logger.WithField("frames", frames), fmt.Errorf("resolve %s: %w", target, err))
	}

	res := Resolution{
		Target:  target,
		MAC:     reply.SenderMAC,
		Frames:  frames,
		Elapsed: time.Since(start),
	}
	r.state = StateResolved
	metrics.ResolutionsTotal.WithLabelValues(metrics.ResultResolved).Inc()
	metrics.ResolutionSeconds.Observe(res.Elapsed.Seconds())

	logger.WithFields(map[string]interface{}{
		"mac":     res.MAC.String(),
		"sender":  reply.SenderIP.String(),
		"frames":  frames,
		"elapsed": res.Elapsed.String(),
	}).Info("arp reply received")
	return res, nil
}

func (r *Resolver) accept(msg core.ARPMessage, target core.IPv4) string {
	if msg.Operation != core.ARPReply {
		return reasonNotReply
	}
	if r.opts.StrictMatch {
		if !msg.IsEthernetIPv4() {
			return reasonUnsupported
		}
		if msg.SenderIP != target {
			return reasonSenderMismatch
		}
	}
	return ""
}

func (r *Resolver) fail(logger log.Logger, err error) error {
	r.state = StateFailed
	result := metrics.ResultTransport
	if errors.Is(err, core.ErrTimeout) {
		result = metrics.ResultTimeout
	}
	metrics.ResolutionsTotal.WithLabelValues(result).Inc()
	logger.WithError(err).Warn("arp resolution failed")
	return err
}
