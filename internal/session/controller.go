// Package session sequences one initiator or responder run.
package session

import (
	"context"
	"fmt"
	"time"

	"firestige.xyz/linkprobe/internal/arp"
	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/core/codec"
	"firestige.xyz/linkprobe/internal/log"
	"firestige.xyz/linkprobe/internal/metrics"
	"firestige.xyz/linkprobe/internal/transport"
)

// Options carry the per-run settings of a Controller.
type Options struct {
	Resolver     arp.ResolverOptions
	WatchTimeout time.Duration
	NextHop      string

	TTL      uint8
	Protocol core.IPProtocol
	ID       uint16
	TOS      uint8
	MaxFrame int
}

// OptionsFromConfig maps validated configuration onto controller options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Resolver: arp.ResolverOptions{
			Timeout:     cfg.ARP.Timeout,
			StrictMatch: cfg.ARP.StrictMatch,
		},
		WatchTimeout: cfg.ARP.WatchTimeout,
		NextHop:      cfg.Session.NextHop,
		TTL:          uint8(cfg.IPv4.TTL),
		Protocol:     core.IPProtocol(cfg.IPv4.Protocol),
		ID:           uint16(cfg.IPv4.Identification),
		TOS:          uint8(cfg.IPv4.TOS),
		MaxFrame:     cfg.Transport.MaxFrame,
	}
}

// Request is the initiator's input.
type Request struct {
	Destination core.IPv4
	Router      core.IPv4
	Payload     []byte
}

// Report summarizes a finished initiator run.
type Report struct {
	NextHop    core.IPv4
	Resolution arp.Resolution
	BytesSent  int
}

// Controller runs one workflow over a transport for a local identity.
type Controller struct {
	tr     transport.Transport
	id     core.Identity
	opts   Options
	logger log.Logger
}

func NewController(tr transport.Transport, id core.Identity, opts Options) *Controller {
	return &Controller{
		tr:   tr,
		id:   id,
		opts: opts,
		logger: log.GetLogger().WithFields(map[string]interface{}{
			"interface": id.Interface,
			"local_ip":  id.IP.String(),
		}),
	}
}

// RunInitiator resolves the next hop, then sends one IPv4 datagram carrying
// req.Payload to req.Destination through the resolved hardware address.
func (c *Controller) RunInitiator(ctx context.Context, req Request) (Report, error) {
	if limit := c.opts.MaxFrame - core.EthernetHeaderLen - core.IPv4HeaderLen; len(req.Payload) > limit {
		return Report{}, fmt.Errorf("%w: %d bytes, at most %d fit", core.ErrPayloadTooLarge, len(req.Payload), limit)
	}

	hop := NextHop(c.id, req.Destination, req.Router, c.opts.NextHop)
	c.logger.WithFields(map[string]interface{}{
		"destination": req.Destination.String(),
		"next_hop":    hop.String(),
		"policy":      c.opts.NextHop,
	}).Info("resolving next hop")

	res, err := arp.NewResolver(c.tr, c.id, c.opts.Resolver).Resolve(ctx, hop)
	if err != nil {
		return Report{NextHop: hop}, err
	}

	h := core.NewIPv4Header(c.id.IP, req.Destination, c.opts.Protocol, c.opts.TTL, len(req.Payload))
	h.ID = c.opts.ID
	h.TOS = c.opts.TOS
	frame := codec.IPv4Frame(res.MAC, c.id.MAC, h, req.Payload)

	n, err := c.tr.Send(ctx, frame)
	if err != nil {
		return Report{NextHop: hop, Resolution: res}, fmt.Errorf("send ipv4 datagram: %w", err)
	}
	metrics.FramesSentTotal.WithLabelValues(metrics.KindIPv4).Inc()

	c.logger.WithFields(map[string]interface{}{
		"destination": req.Destination.String(),
		"dst_mac":     res.MAC.String(),
		"protocol":    c.opts.Protocol.String(),
		"bytes":       n,
	}).Info("ipv4 datagram sent")

	return Report{NextHop: hop, Resolution: res, BytesSent: n}, nil
}

// RunResponder watches until an ARP request for the local address arrives.
func (c *Controller) RunResponder(ctx context.Context) (arp.Match, error) {
	return arp.NewResponder(c.tr, c.id, c.opts.WatchTimeout).Watch(ctx)
}
