// Package ipfilter implements the source-address allow-list.
package ipfilter

import "net/netip"

// Filter holds the parsed allow-list. An empty filter allows everything;
// restriction is opt-in per deployment.
type Filter struct {
	addrs    map[netip.Addr]struct{}
	prefixes []netip.Prefix
	literals map[string]struct{}
}

// New parses entries into a Filter. Entries may be single addresses, CIDR
// ranges, or bare hostnames such as "localhost"; unparseable entries are kept
// as literal string matches rather than dropped.
func New(entries []string) *Filter {
	f := &Filter{
		addrs:    make(map[netip.Addr]struct{}),
		literals: make(map[string]struct{}),
	}
	for _, e := range entries {
		if pfx, err := netip.ParsePrefix(e); err == nil {
			f.prefixes = append(f.prefixes, pfx)
			continue
		}
		if addr, err := netip.ParseAddr(e); err == nil {
			f.addrs[addr.Unmap()] = struct{}{}
			continue
		}
		f.literals[e] = struct{}{}
	}
	return f
}

// Empty reports whether no entries are configured.
func (f *Filter) Empty() bool {
	return len(f.addrs) == 0 && len(f.prefixes) == 0 && len(f.literals) == 0
}

// Allowed reports whether client may pass. An empty allow-list is default-open.
// A client key that does not parse as an address can only match literally.
func (f *Filter) Allowed(client string) bool {
	if f.Empty() {
		return true
	}
	if _, ok := f.literals[client]; ok {
		return true
	}

	addr, err := netip.ParseAddr(client)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	if _, ok := f.addrs[addr]; ok {
		return true
	}
	for _, pfx := range f.prefixes {
		if pfx.Contains(addr) {
			return true
		}
	}
	return false
}
