package transport

import (
	"golang.org/x/net/bpf"
	"golang.org/x/sys/unix"
)

// arpFilterProgram accepts Ethernet frames whose EtherType is ARP.
var arpFilterProgram = []bpf.Instruction{
	bpf.LoadAbsolute{Off: 12, Size: 2},
	bpf.JumpIf{Cond: bpf.JumpEqual, Val: unix.ETH_P_ARP, SkipFalse: 1},
	bpf.RetConstant{Val: 0x40000},
	bpf.RetConstant{Val: 0},
}

// ARPFilter returns the assembled classic BPF program attached to sockets
// when transport.arp_filter is set.
func ARPFilter() []bpf.RawInstruction {
	raw, err := bpf.Assemble(arpFilterProgram)
	if err != nil {
		panic(err) // static program
	}
	return raw
}
