// Package arp drives the request/reply exchanges of the initiator and the
// responder roles over a transport.
package arp

import (
	"context"
	"errors"
	"fmt"

	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/core/codec"
	"firestige.xyz/linkprobe/internal/log"
	"firestige.xyz/linkprobe/internal/metrics"
	"firestige.xyz/linkprobe/internal/transport"
)

// State is the position of a resolver or responder in its exchange.
type State int

const (
	StateIdle State = iota
	StateRequestSent
	StateResolved
	StateWatching
	StateMatched
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestSent:
		return "request-sent"
	case StateResolved:
		return "resolved"
	case StateWatching:
		return "watching"
	case StateMatched:
		return "matched"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Discard reasons, also used as metric labels.
const (
	reasonNotARP         = "not_arp"
	reasonTruncated      = "truncated"
	reasonUnsupported    = "unsupported_format"
	reasonNotReply       = "not_reply"
	reasonNotRequest     = "not_request"
	reasonSenderMismatch = "sender_mismatch"
	reasonTargetMismatch = "target_mismatch"
)

// acceptFunc returns "" to accept msg or the reason it was discarded.
type acceptFunc func(msg core.ARPMessage) string

// await reads frames until accept takes an ARP message. It returns the
// message and the number of frames inspected, including the accepted one.
func await(ctx context.Context, tr transport.Transport, stage string, logger log.Logger, accept acceptFunc) (core.ARPMessage, int, error) {
	frames := 0
	for {
		raw, err := tr.Receive(ctx)
		if err != nil {
			return core.ARPMessage{}, frames, waitError(err)
		}
		frames++

		msg, reason := inspect(raw, accept)
		if reason == "" {
			return msg, frames, nil
		}

		metrics.FramesDiscardedTotal.WithLabelValues(stage, reason).Inc()
		if logger.IsDebugEnabled() {
			logger.WithFields(map[string]interface{}{
				"reason": reason,
				"frame":  frames,
			}).Debug("frame discarded")
		}
	}
}

func inspect(raw []byte, accept acceptFunc) (core.ARPMessage, string) {
	eth, payload, err := codec.Split(raw)
	if err != nil {
		return core.ARPMessage{}, reasonTruncated
	}
	if eth.EtherType != core.EtherTypeARP {
		return core.ARPMessage{}, reasonNotARP
	}
	msg, err := codec.DecodeARP(payload)
	if err != nil {
		return core.ARPMessage{}, reasonTruncated
	}
	return msg, accept(msg)
}

// waitError maps a receive failure onto the exchange error kinds. A passed
// deadline becomes core.ErrTimeout; cancellation is returned as is.
func waitError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	case errors.Is(err, context.Canceled), errors.Is(err, core.ErrTransport):
		return err
	default:
		return fmt.Errorf("%w: %v", core.ErrTransport, err)
	}
}
