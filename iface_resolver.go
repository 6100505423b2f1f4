package apexsync

import (
	"context"
	"fmt"
	"net"
	"net/netip"
)

// InterfaceResolver constructs a resolver that returns the first usable
// address reported by the named network interface.
// It is only meaningful on machines whose interface carries the public
// address directly, with no NAT in between.
func InterfaceResolver(iface string) Resolver {
	return interfaceResolver{iface: iface}
}

type interfaceResolver struct {
	iface string
}

func (r interfaceResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	iface, err := net.InterfaceByName(r.iface)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error getting interface %s by name: %w", r.iface, err)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error looking up addresses for interface %s: %w", r.iface, err)
	}
	for _, addr := range addrs {
		prefix, err := netip.ParsePrefix(addr.String())
		if err != nil {
			continue
		}
		ip := prefix.Addr()
		// the apex record is an A record, so only IPv4 counts
		if ip.IsLoopback() || ip.IsLinkLocalUnicast() || !ip.Is4() {
			continue
		}
		return ip, nil
	}
	return netip.Addr{}, fmt.Errorf("interface %s has no usable IPv4 address", r.iface)
}
