package codec

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/linkprobe/internal/core"
)

// EncodeEthernet returns the 14-byte wire form of h.
func EncodeEthernet(h core.EthernetHeader) []byte {
	b := make([]byte, core.EthernetHeaderLen)
	putEthernet(b, h)
	return b
}

func putEthernet(b []byte, h core.EthernetHeader) {
	copy(b[0:6], h.Destination[:])
	copy(b[6:12], h.Source[:])
	binary.BigEndian.PutUint16(b[12:14], uint16(h.EtherType))
}

// DecodeEthernet parses the first 14 bytes of b.
func DecodeEthernet(b []byte) (core.EthernetHeader, error) {
	if len(b) < core.EthernetHeaderLen {
		return core.EthernetHeader{}, fmt.Errorf("ethernet header: %d bytes: %w", len(b), core.ErrTruncatedInput)
	}

	var h core.EthernetHeader
	copy(h.Destination[:], b[0:6])
	copy(h.Source[:], b[6:12])
	h.EtherType = core.EtherType(binary.BigEndian.Uint16(b[12:14]))
	return h, nil
}
