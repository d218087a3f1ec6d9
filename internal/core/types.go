// Package core defines the frame-level data model with zero external dependencies.
package core

import (
	"fmt"
	"net"
	"net/netip"
)

// EtherType identifies the payload carried by an Ethernet frame.
type EtherType uint16

const (
	EtherTypeIPv4 EtherType = 0x0800
	EtherTypeARP  EtherType = 0x0806
)

func (t EtherType) String() string {
	switch t {
	case EtherTypeIPv4:
		return "IPv4"
	case EtherTypeARP:
		return "ARP"
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

// ARPOperation is the ARP opcode.
type ARPOperation uint16

const (
	ARPRequest ARPOperation = 1
	ARPReply   ARPOperation = 2
)

func (op ARPOperation) String() string {
	switch op {
	case ARPRequest:
		return "request"
	case ARPReply:
		return "reply"
	default:
		return fmt.Sprintf("op(%d)", uint16(op))
	}
}

// ARP fixed field values for IPv4 over Ethernet.
const (
	ARPHardwareEthernet uint16 = 1
	ARPHardwareLen      uint8  = 6
	ARPProtocolLen      uint8  = 4
)

// IPProtocol is the IPv4 protocol number of the transport carried in a datagram.
type IPProtocol uint8

const (
	ProtocolICMP IPProtocol = 1
	ProtocolTCP  IPProtocol = 6
	ProtocolUDP  IPProtocol = 17
)

func (p IPProtocol) String() string {
	switch p {
	case ProtocolICMP:
		return "ICMP"
	case ProtocolTCP:
		return "TCP"
	case ProtocolUDP:
		return "UDP"
	default:
		return fmt.Sprintf("proto(%d)", uint8(p))
	}
}

// Fixed encoded sizes.
const (
	EthernetHeaderLen = 14
	ARPMessageLen     = 28
	IPv4HeaderLen     = 20

	ipv4Version = 4
	ipv4IHL     = 5
)

// MAC is a 48-bit hardware address.
type MAC [6]byte

var (
	BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
	ZeroMAC      = MAC{}
)

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// HardwareAddr returns m as a net.HardwareAddr backed by a fresh slice.
func (m MAC) HardwareAddr() net.HardwareAddr {
	hw := make(net.HardwareAddr, len(m))
	copy(hw, m[:])
	return hw
}

// ParseMAC parses an EUI-48 address in any form accepted by net.ParseMAC.
func ParseMAC(s string) (MAC, error) {
	hw, err := net.ParseMAC(s)
	if err != nil {
		return MAC{}, err
	}
	return MACFromSlice(hw)
}

// MACFromSlice converts a 6 byte slice into a MAC.
func MACFromSlice(b []byte) (MAC, error) {
	var m MAC
	if len(b) != len(m) {
		return m, fmt.Errorf("hardware address %x is not 6 bytes", b)
	}
	copy(m[:], b)
	return m, nil
}

// IPv4 is a 4-byte address in network order.
type IPv4 [4]byte

func (ip IPv4) String() string {
	return netip.AddrFrom4(ip).String()
}

// Addr converts ip to a netip.Addr.
func (ip IPv4) Addr() netip.Addr {
	return netip.AddrFrom4(ip)
}

// ParseIPv4 parses a dotted-quad address.
func ParseIPv4(s string) (IPv4, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return IPv4{}, err
	}
	if !addr.Is4() {
		return IPv4{}, fmt.Errorf("%q is not an IPv4 address", s)
	}
	return addr.As4(), nil
}

// InSubnet reports whether ip and other share the network prefix given by mask.
func (ip IPv4) InSubnet(other, mask IPv4) bool {
	for i := range ip {
		if ip[i]&mask[i] != other[i]&mask[i] {
			return false
		}
	}
	return true
}

// EthernetHeader is the 14-byte link-layer header. EtherType selects how the
// payload that follows is interpreted.
type EthernetHeader struct {
	Destination MAC
	Source      MAC
	EtherType   EtherType
}

// ARPMessage is an ARP packet for IPv4 over Ethernet.
type ARPMessage struct {
	HardwareType uint16
	ProtocolType EtherType
	HardwareLen  uint8
	ProtocolLen  uint8
	Operation    ARPOperation
	SenderMAC    MAC
	SenderIP     IPv4
	TargetMAC    MAC
	TargetIP     IPv4
}

// NewARPRequest builds a request asking who owns target. The target hardware
// address is left zero.
func NewARPRequest(senderMAC MAC, senderIP, target IPv4) ARPMessage {
	return ARPMessage{
		HardwareType: ARPHardwareEthernet,
		ProtocolType: EtherTypeIPv4,
		HardwareLen:  ARPHardwareLen,
		ProtocolLen:  ARPProtocolLen,
		Operation:    ARPRequest,
		SenderMAC:    senderMAC,
		SenderIP:     senderIP,
		TargetIP:     target,
	}
}

// IsEthernetIPv4 reports whether the fixed fields describe IPv4 over Ethernet.
// Decoding never enforces this; callers wanting strict conformance check it.
func (m ARPMessage) IsEthernetIPv4() bool {
	return m.HardwareType == ARPHardwareEthernet &&
		m.ProtocolType == EtherTypeIPv4 &&
		m.HardwareLen == ARPHardwareLen &&
		m.ProtocolLen == ARPProtocolLen
}

// IPv4Header is an option-less IPv4 header.
type IPv4Header struct {
	Version         uint8 // 4 bits
	IHL             uint8 // 4 bits, header length in 32-bit words
	TOS             uint8
	TotalLength     uint16
	ID              uint16
	FlagsFragOffset uint16
	TTL             uint8
	Protocol        IPProtocol
	Checksum        uint16 // unchecked until verified against the raw bytes
	Source          IPv4
	Destination     IPv4
}

// NewIPv4Header returns a header for a payload of payloadLen bytes with the
// version, header length and total length filled in.
func NewIPv4Header(src, dst IPv4, proto IPProtocol, ttl uint8, payloadLen int) IPv4Header {
	return IPv4Header{
		Version:     ipv4Version,
		IHL:         ipv4IHL,
		TotalLength: uint16(IPv4HeaderLen + payloadLen),
		TTL:         ttl,
		Protocol:    proto,
		Source:      src,
		Destination: dst,
	}
}

// Identity is the local link identity used to source frames.
type Identity struct {
	Interface string
	Index     int
	MAC       MAC
	IP        IPv4
	Netmask   IPv4
}
