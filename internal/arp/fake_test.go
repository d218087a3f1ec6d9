package arp

import (
	"context"
	"errors"
	"sync"

	"firestige.xyz/linkprobe/internal/core"
	"firestige.xyz/linkprobe/internal/core/codec"
)

// scriptedTransport delivers queued frames in order, then blocks until ctx ends.
type scriptedTransport struct {
	mu       sync.Mutex
	inbound  [][]byte
	sent     [][]byte
	sendErr  error
	recvErr  error
	received int
}

func newScripted(frames ...[]byte) *scriptedTransport {
	return &scriptedTransport{inbound: frames}
}

func (s *scriptedTransport) Send(ctx context.Context, frame []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return 0, s.sendErr
	}
	s.sent = append(s.sent, append([]byte{}, frame...))
	return len(frame), nil
}

func (s *scriptedTransport) Receive(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	if s.recvErr != nil {
		s.mu.Unlock()
		return nil, s.recvErr
	}
	if len(s.inbound) > 0 {
		f := s.inbound[0]
		s.inbound = s.inbound[1:]
		s.received++
		s.mu.Unlock()
		return f, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *scriptedTransport) Close() error { return nil }

var errLinkDown = errors.New("link down")

var (
	localMAC = core.MAC{0x02, 0, 0, 0, 0, 0x01}
	peerMAC  = core.MAC{0x02, 0, 0, 0, 0, 0x02}
	otherMAC = core.MAC{0x02, 0, 0, 0, 0, 0x09}
	localIP  = core.IPv4{10, 0, 0, 1}
	peerIP   = core.IPv4{10, 0, 0, 2}
	otherIP  = core.IPv4{10, 0, 0, 9}

	localID = core.Identity{Interface: "test0", Index: 1, MAC: localMAC, IP: localIP, Netmask: core.IPv4{255, 255, 255, 0}}
)

func replyFrame(senderMAC core.MAC, senderIP core.IPv4) []byte {
	m := core.NewARPRequest(senderMAC, senderIP, localIP)
	m.Operation = core.ARPReply
	m.TargetMAC = localMAC
	return codec.ARPFrame(localMAC, senderMAC, m)
}

func requestFrame(senderMAC core.MAC, senderIP, target core.IPv4) []byte {
	return codec.ARPFrame(core.BroadcastMAC, senderMAC, core.NewARPRequest(senderMAC, senderIP, target))
}

func ipv4Frame() []byte {
	h := core.NewIPv4Header(otherIP, localIP, core.ProtocolUDP, 64, 3)
	return codec.IPv4Frame(localMAC, otherMAC, h, []byte("abc"))
}
