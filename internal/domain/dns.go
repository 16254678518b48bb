package domain

import (
	"net/netip"

	"github.com/go-playground/validator/v10"
	"github.com/miekg/dns"
)

// validateDNSAddr backs the "dnsaddr" validator tag: a Location.DNS entry
// must be either a bare resolver IP or a fully-qualified domain name a
// gateway could plausibly be configured to query, per spec.md §3's
// Location invariants. miekg/dns.IsDomainName does the FQDN-shape check
// rather than a hand-rolled regex, the same library the rest of the pack
// reaches for whenever DNS name syntax needs validating.
func validateDNSAddr(fl validator.FieldLevel) bool {
	val := fl.Field().String()
	if val == "" {
		return false
	}
	if _, err := netip.ParseAddr(val); err == nil {
		return true
	}
	_, ok := dns.IsDomainName(val)
	return ok
}

// ipWithinAny reports whether ip lies within any of cidrs.
func ipWithinAny(ip string, cidrs []string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	for _, c := range cidrs {
		prefix, err := netip.ParsePrefix(c)
		if err != nil {
			continue
		}
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
