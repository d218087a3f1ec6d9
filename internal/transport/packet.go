package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/mdlayher/packet"
	"golang.org/x/sys/unix"

	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/core"
)

// packetTransport uses a plain AF_PACKET SOCK_RAW socket via mdlayher/packet.
type packetTransport struct {
	conn        *packet.Conn
	maxFrame    int
	pollTimeout time.Duration
	buf         []byte
}

func openPacket(cfg config.TransportConfig, id core.Identity) (*packetTransport, error) {
	ifi := &net.Interface{
		Index:        id.Index,
		Name:         id.Interface,
		HardwareAddr: id.MAC.HardwareAddr(),
	}

	conn, err := packet.Listen(ifi, packet.Raw, unix.ETH_P_ALL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to listen on %s: %v", core.ErrTransport, id.Interface, err)
	}

	if cfg.ARPFilter {
		if err := conn.SetBPF(ARPFilter()); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%w: failed to set BPF: %v", core.ErrTransport, err)
		}
	}

	return &packetTransport{
		conn:        conn,
		maxFrame:    cfg.MaxFrame,
		pollTimeout: cfg.PollTimeout,
		buf:         make([]byte, cfg.MaxFrame),
	}, nil
}

func (t *packetTransport) Send(ctx context.Context, frame []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkFrameSize(frame, t.maxFrame); err != nil {
		return 0, err
	}

	// the kernel takes the frame as-is; the address only selects the link
	dst := &packet.Addr{HardwareAddr: net.HardwareAddr(frame[0:6])}
	n, err := t.conn.WriteTo(frame, dst)
	if err != nil {
		return n, fmt.Errorf("%w: send: %v", core.ErrTransport, err)
	}
	return n, nil
}

// Receive reads with short deadlines so ctx cancellation is observed between
// reads, mirroring the poll loop of the afpacket backend.
func (t *packetTransport) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		deadline := time.Now().Add(t.pollTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, fmt.Errorf("%w: set read deadline: %v", core.ErrTransport, err)
		}

		n, _, err := t.conn.ReadFrom(t.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: receive: %v", core.ErrTransport, err)
		}

		frame := make([]byte, n)
		copy(frame, t.buf[:n])
		return frame, nil
	}
}

func (t *packetTransport) Close() error {
	return t.conn.Close()
}
