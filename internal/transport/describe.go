package transport

import (
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Describe renders a one-line summary of an Ethernet frame for debug logs.
// It decodes with gopacket independently of the codec used on the wire path.
func Describe(frame []byte) string {
	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return fmt.Sprintf("malformed frame len=%d", len(frame))
	}
	eth := ethLayer.(*layers.Ethernet)

	if l := pkt.Layer(layers.LayerTypeARP); l != nil {
		arp := l.(*layers.ARP)
		switch arp.Operation {
		case layers.ARPRequest:
			return fmt.Sprintf("%s > %s ARP who-has %s tell %s",
				eth.SrcMAC, eth.DstMAC, net.IP(arp.DstProtAddress), net.IP(arp.SourceProtAddress))
		case layers.ARPReply:
			return fmt.Sprintf("%s > %s ARP %s is-at %s",
				eth.SrcMAC, eth.DstMAC, net.IP(arp.SourceProtAddress), net.HardwareAddr(arp.SourceHwAddress))
		default:
			return fmt.Sprintf("%s > %s ARP op=%d", eth.SrcMAC, eth.DstMAC, arp.Operation)
		}
	}

	if l := pkt.Layer(layers.LayerTypeIPv4); l != nil {
		ip := l.(*layers.IPv4)
		return fmt.Sprintf("%s > %s IPv4 %s > %s %s ttl=%d len=%d",
			eth.SrcMAC, eth.DstMAC, ip.SrcIP, ip.DstIP, ip.Protocol, ip.TTL, ip.Length)
	}

	return fmt.Sprintf("%s > %s %s len=%d", eth.SrcMAC, eth.DstMAC, eth.EthernetType, len(frame))
}
