package transport

import (
	"fmt"
	"net"

	"firestige.xyz/linkprobe/internal/core"
)

// LookupIdentity returns the index, hardware address and first IPv4 address
// (with netmask) of the named interface.
func LookupIdentity(name string) (core.Identity, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return core.Identity{}, fmt.Errorf("lookup interface %s: %w", name, err)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return core.Identity{}, fmt.Errorf("list addresses of %s: %w", name, err)
	}
	return identityFrom(ifi, addrs)
}

func identityFrom(ifi *net.Interface, addrs []net.Addr) (core.Identity, error) {
	mac, err := core.MACFromSlice(ifi.HardwareAddr)
	if err != nil {
		return core.Identity{}, fmt.Errorf("interface %s: %w", ifi.Name, err)
	}

	id := core.Identity{
		Interface: ifi.Name,
		Index:     ifi.Index,
		MAC:       mac,
	}

	for _, addr := range addrs {
		ipNet, ok := addr.(*net.IPNet)
		if !ok {
			continue
		}
		ip4 := ipNet.IP.To4()
		if ip4 == nil {
			continue
		}
		copy(id.IP[:], ip4)
		if len(ipNet.Mask) == net.IPv4len {
			copy(id.Netmask[:], ipNet.Mask)
		} else if len(ipNet.Mask) == net.IPv6len {
			copy(id.Netmask[:], ipNet.Mask[12:])
		}
		return id, nil
	}

	return core.Identity{}, fmt.Errorf("interface %s: %w", ifi.Name, core.ErrNoIPv4Address)
}
