package session

import (
	"firestige.xyz/linkprobe/internal/config"
	"firestige.xyz/linkprobe/internal/core"
)

// NextHop picks the address to resolve on the local link. With the router
// policy the router is always used. With the auto policy a destination inside
// the local subnet is resolved directly and anything else goes via the router.
func NextHop(id core.Identity, destination, router core.IPv4, policy string) core.IPv4 {
	if policy == config.NextHopAuto && id.IP.InSubnet(destination, id.Netmask) {
		return destination
	}
	return router
}
