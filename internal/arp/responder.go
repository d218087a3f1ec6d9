package arp

import (
	"context"
	"fmt"
	"time"

	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/log"
	"firestige.xyz/linkprobe/internal/metrics"
	"firestige.xyz/linkprobe/internal/transport"
)

const stageResponder = "responder"

// Match describes the request that targeted the local address.
type Match struct {
	RequesterMAC core.MAC
	RequesterIP  core.IPv4
	Frames       int
}

// Responder watches for ARP requests asking for the local address. It only
// detects them; no reply is sent.
type Responder struct {
	tr      transport.Transport
	id      core.Identity
	timeout time.Duration
	logger  log.Logger
	state   State
}

// NewResponder returns a responder for id. A zero timeout watches until ctx ends.
func NewResponder(tr transport.Transport, id core.Identity, timeout time.Duration) *Responder {
	return &Responder{
		tr:      tr,
		id:      id,
		timeout: timeout,
		logger:  log.GetLogger().WithField("stage", stageResponder),
		state:   StateIdle,
	}
}

func (r *Responder) State() State {
	return r.state
}

// Watch blocks until a request whose target IP equals the local IP arrives.
func (r *Responder) Watch(ctx context.Context) (Match, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	r.state = StateWatching
	r.logger.WithField("local_ip", r.id.IP.String()).Info("watching for arp requests")

	req, frames, err := await(ctx, r.tr, stageResponder, r.logger, r.accept)
	if err != nil {
		r.state = StateFailed
		return Match{}, fmt.Errorf("watch %s: %w", r.id.IP, err)
	}

	r.state = StateMatched
	metrics.ResponderMatchesTotal.Inc()
	m := Match{RequesterMAC: req.SenderMAC, RequesterIP: req.SenderIP, Frames: frames}

	r.logger.WithFields(map[string]interface{}{
		"requester_ip":  m.RequesterIP.String(),
		"requester_mac": m.RequesterMAC.String(),
		"frames":        frames,
	}).Info("arp request targets local address")
	return m, nil
}

func (r *Responder) accept(msg core.ARPMessage) string {
	if msg.Operation != core.ARPRequest {
		return reasonNotRequest
	}
	if msg.TargetIP != r.id.IP {
		if r.logger.IsDebugEnabled() {
			r.logger.WithField("target", msg.TargetIP.String()).Debug("arp request for another host")
		}
		return reasonTargetMismatch
	}
	return ""
}
