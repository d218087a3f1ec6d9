package codec

import (
	"fmt"

	"firestige.xyz/linkprobe/internal/core"
)

// Frame is a link-layer frame: an Ethernet header followed by its payload.
type Frame []byte

// Assemble allocates a frame sized exactly for eth and payload.
func Assemble(eth core.EthernetHeader, payload []byte) Frame {
	f := make(Frame, core.EthernetHeaderLen+len(payload))
	putEthernet(f, eth)
	copy(f[core.EthernetHeaderLen:], payload)
	return f
}

// Split separates a received frame into its header and payload. The payload
// aliases f.
func Split(f []byte) (core.EthernetHeader, []byte, error) {
	eth, err := DecodeEthernet(f)
	if err != nil {
		return core.EthernetHeader{}, nil, fmt.Errorf("split frame: %w", err)
	}
	return eth, f[core.EthernetHeaderLen:], nil
}

// ARPFrame assembles a frame carrying m.
func ARPFrame(dst, src core.MAC, m core.ARPMessage) Frame {
	return Assemble(core.EthernetHeader{
		Destination: dst,
		Source:      src,
		EtherType:   core.EtherTypeARP,
	}, EncodeARP(m))
}

// IPv4Frame assembles a frame carrying h followed by payload.
func IPv4Frame(dst, src core.MAC, h core.IPv4Header, payload []byte) Frame {
	eth := core.EthernetHeader{
		Destination: dst,
		Source:      src,
		EtherType:   core.EtherTypeIPv4,
	}
	f := make(Frame, core.EthernetHeaderLen+core.IPv4HeaderLen+len(payload))
	putEthernet(f, eth)
	copy(f[core.EthernetHeaderLen:], EncodeIPv4(h))
	copy(f[core.EthernetHeaderLen+core.IPv4HeaderLen:], payload)
	return f
}
