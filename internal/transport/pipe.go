package transport

import (
	"context"
	"fmt"
	"sync"

	"firestige.xyz/linkprobe/internal/core"
)

// Pipe returns two connected in-memory endpoints. Frames sent on one are
// received on the other in order. Used by tests and the selftest command.
func Pipe() (Transport, Transport) {
	ab := make(chan []byte, 64)
	ba := make(chan []byte, 64)
	done := make(chan struct{})
	once := &sync.Once{}
	return &pipeEnd{in: ba, out: ab, done: done, once: once},
		&pipeEnd{in: ab, out: ba, done: done, once: once}
}

type pipeEnd struct {
	in   <-chan []byte
	out  chan<- []byte
	done chan struct{}
	once *sync.Once
}

func (p *pipeEnd) Send(ctx context.Context, frame []byte) (int, error) {
	cp := make([]byte, len(frame))
	copy(cp, frame)
	select {
	case <-p.done:
		return 0, fmt.Errorf("%w: pipe closed", core.ErrTransport)
	default:
	}
	select {
	case p.out <- cp:
		return len(cp), nil
	case <-p.done:
		return 0, fmt.Errorf("%w: pipe closed", core.ErrTransport)
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Receive drains frames already queued before reporting a closed pipe.
func (p *pipeEnd) Receive(ctx context.Context) ([]byte, error) {
	select {
	case frame := <-p.in:
		return frame, nil
	default:
	}
	select {
	case frame := <-p.in:
		return frame, nil
	case <-p.done:
		return nil, fmt.Errorf("%w: pipe closed", core.ErrTransport)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close closes both ends.
func (p *pipeEnd) Close() error {
	p.once.Do(func() { close(p.done) })
	return nil
}
