package codec

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/linkprobe/internal/core"
)

// ARP field offsets.
const (
	arpOffHardwareType = 0
	arpOffProtocolType = 2
	arpOffHardwareLen  = 4
	arpOffProtocolLen  = 5
	arpOffOperation    = 6
	arpOffSenderMAC    = 8
	arpOffSenderIP     = 14
	arpOffTargetMAC    = 18
	arpOffTargetIP     = 24
)

// EncodeARP returns the 28-byte wire form of m.
func EncodeARP(m core.ARPMessage) []byte {
	b := make([]byte, core.ARPMessageLen)
	binary.BigEndian.PutUint16(b[arpOffHardwareType:], m.HardwareType)
	binary.BigEndian.PutUint16(b[arpOffProtocolType:], uint16(m.ProtocolType))
	b[arpOffHardwareLen] = m.HardwareLen
	b[arpOffProtocolLen] = m.ProtocolLen
	binary.BigEndian.PutUint16(b[arpOffOperation:], uint16(m.Operation))
	copy(b[arpOffSenderMAC:arpOffSenderIP], m.SenderMAC[:])
	copy(b[arpOffSenderIP:arpOffTargetMAC], m.SenderIP[:])
	copy(b[arpOffTargetMAC:arpOffTargetIP], m.TargetMAC[:])
	copy(b[arpOffTargetIP:core.ARPMessageLen], m.TargetIP[:])
	return b
}

// DecodeARP parses the first 28 bytes of b. Field values are not validated;
// see core.ARPMessage.IsEthernetIPv4.
func DecodeARP(b []byte) (core.ARPMessage, error) {
	if len(b) < core.ARPMessageLen {
		return core.ARPMessage{}, fmt.Errorf("arp message: %d bytes: %w", len(b), core.ErrTruncatedInput)
	}

	m := core.ARPMessage{
		HardwareType: binary.BigEndian.Uint16(b[arpOffHardwareType:]),
		ProtocolType: core.EtherType(binary.BigEndian.Uint16(b[arpOffProtocolType:])),
		HardwareLen:  b[arpOffHardwareLen],
		ProtocolLen:  b[arpOffProtocolLen],
		Operation:    core.ARPOperation(binary.BigEndian.Uint16(b[arpOffOperation:])),
	}
	copy(m.SenderMAC[:], b[arpOffSenderMAC:arpOffSenderIP])
	copy(m.SenderIP[:], b[arpOffSenderIP:arpOffTargetMAC])
	copy(m.TargetMAC[:], b[arpOffTargetMAC:arpOffTargetIP])
	copy(m.TargetIP[:], b[arpOffTargetIP:core.ARPMessageLen])
	return m, nil
}
