package codec

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/linkprobe/internal/core"
)

const ipv4OffChecksum = 10

// EncodeIPv4 returns the 20-byte wire form of h. The checksum field of h is
// ignored; the encoded header carries the checksum computed over its own bytes.
func EncodeIPv4(h core.IPv4Header) []byte {
	b := make([]byte, core.IPv4HeaderLen)
	b[0] = h.Version<<4 | h.IHL&0x0f
	b[1] = h.TOS
	binary.BigEndian.PutUint16(b[2:4], h.TotalLength)
	binary.BigEndian.PutUint16(b[4:6], h.ID)
	binary.BigEndian.PutUint16(b[6:8], h.FlagsFragOffset)
	b[8] = h.TTL
	b[9] = uint8(h.Protocol)
	// bytes 10..11 stay zero while summing
	copy(b[12:16], h.Source[:])
	copy(b[16:20], h.Destination[:])

	binary.BigEndian.PutUint16(b[ipv4OffChecksum:], Checksum(b))
	return b
}

// DecodeIPv4 parses the first 20 bytes of b. The returned Checksum is taken
// from the wire and is unchecked; use VerifyIPv4 before trusting it.
func DecodeIPv4(b []byte) (core.IPv4Header, error) {
	if len(b) < core.IPv4HeaderLen {
		return core.IPv4Header{}, fmt.Errorf("ipv4 header: %d bytes: %w", len(b), core.ErrTruncatedInput)
	}

	h := core.IPv4Header{
		Version:         b[0] >> 4,
		IHL:             b[0] & 0x0f,
		TOS:             b[1],
		TotalLength:     binary.BigEndian.Uint16(b[2:4]),
		ID:              binary.BigEndian.Uint16(b[4:6]),
		FlagsFragOffset: binary.BigEndian.Uint16(b[6:8]),
		TTL:             b[8],
		Protocol:        core.IPProtocol(b[9]),
		Checksum:        binary.BigEndian.Uint16(b[ipv4OffChecksum:]),
	}
	copy(h.Source[:], b[12:16])
	copy(h.Destination[:], b[16:20])
	return h, nil
}

// VerifyIPv4 checks the checksum of the 20-byte header at the start of b.
func VerifyIPv4(b []byte) error {
	if len(b) < core.IPv4HeaderLen {
		return fmt.Errorf("ipv4 header: %d bytes: %w", len(b), core.ErrTruncatedInput)
	}
	if !ChecksumFolds(b[:core.IPv4HeaderLen]) {
		return fmt.Errorf("ipv4 header checksum 0x%04x: %w",
			binary.BigEndian.Uint16(b[ipv4OffChecksum:]), core.ErrBadChecksum)
	}
	return nil
}
