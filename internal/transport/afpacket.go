package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/gopacket/afpacket"

	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/core"
)

// afpacketFrameSize is the TPACKET frame slot; a multiple of 16 holding a
// full 1514 byte frame plus the ring header.
const (
	afpacketFrameSize = 2048
	afpacketBlockSize = 2048 * 64
	afpacketNumBlocks = 8
)

// afPacketTransport uses a TPACKET_V3 ring via gopacket/afpacket.
type afPacketTransport struct {
	handle   *afpacket.TPacket
	maxFrame int
}

func openAFPacket(cfg config.TransportConfig, id core.Identity) (*afPacketTransport, error) {
	handle, err := afpacket.NewTPacket(
		afpacket.OptInterface(id.Interface),
		afpacket.OptFrameSize(afpacketFrameSize),
		afpacket.OptBlockSize(afpacketBlockSize),
		afpacket.OptNumBlocks(afpacketNumBlocks),
		afpacket.OptPollTimeout(cfg.PollTimeout),
		afpacket.OptTPacketVersion(afpacket.TPacketVersion3),
		afpacket.SocketRaw,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create TPacket handle on %s: %v", core.ErrTransport, id.Interface, err)
	}

	if cfg.ARPFilter {
		if err := handle.SetBPF(ARPFilter()); err != nil {
			handle.Close()
			return nil, fmt.Errorf("%w: failed to set BPF: %v", core.ErrTransport, err)
		}
	}

	return &afPacketTransport{handle: handle, maxFrame: cfg.MaxFrame}, nil
}

func (t *afPacketTransport) Send(ctx context.Context, frame []byte) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := checkFrameSize(frame, t.maxFrame); err != nil {
		return 0, err
	}
	if err := t.handle.WritePacketData(frame); err != nil {
		return 0, fmt.Errorf("%w: send: %v", core.ErrTransport, err)
	}
	return len(frame), nil
}

// Receive polls the ring with the configured poll timeout and checks ctx
// between polls, so a cancelled context is noticed within one poll interval.
func (t *afPacketTransport) Receive(ctx context.Context) ([]byte, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, _, err := t.handle.ReadPacketData()
		if err != nil {
			if errors.Is(err, afpacket.ErrTimeout) || errors.Is(err, afpacket.ErrPoll) {
				continue
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: receive: %v", core.ErrTransport, err)
		}
		return data, nil
	}
}

func (t *afPacketTransport) Close() error {
	t.handle.Close()
	return nil
}
