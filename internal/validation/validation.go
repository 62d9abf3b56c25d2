// Package validation parses and validates user supplied IP set names and
// addresses before any call is made to WAF.
package validation

import (
	"fmt"
	"net/netip"
	"strings"
)

const maxIPSetNameLength = 128

// isAlpha returns true if the byte is an ASCII letter.
func isAlpha(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// isNum returns true if the byte is an ASCII digit.
func isNum(b byte) bool {
	return b >= '0' && b <= '9'
}

// ValidateIPSetName validates an IP set name per WAFv2 naming rules:
// 1 to 128 characters of letters, digits, hyphens or underscores.
func ValidateIPSetName(name string) error {
	if name == "" {
		return fmt.Errorf("IP set name must not be empty")
	}
	if len(name) > maxIPSetNameLength {
		return fmt.Errorf("IP set name must be at most %d characters", maxIPSetNameLength)
	}
	for _, b := range []byte(name) {
		if !isAlpha(b) && !isNum(b) && b != '-' && b != '_' {
			return fmt.Errorf("IP set names can only contain letters, numbers, hyphens, or underscores")
		}
	}
	return nil
}

// ParseAddress parses an IPv4 or IPv6 address with an optional prefix length
// and returns its canonical network prefix. A bare address becomes a host
// prefix (/32 or /128) and host bits are masked off, so 10.0.0.5/24 becomes
// 10.0.0.0/24.
func ParseAddress(raw string) (netip.Prefix, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return netip.Prefix{}, fmt.Errorf("address must not be empty")
	}
	if strings.Contains(s, "%") {
		return netip.Prefix{}, fmt.Errorf("zoned addresses are not supported")
	}

	if !strings.Contains(s, "/") {
		addr, err := netip.ParseAddr(s)
		if err != nil {
			return netip.Prefix{}, fmt.Errorf("must be a valid IP address or CIDR")
		}
		addr = addr.Unmap()
		return netip.PrefixFrom(addr, addr.BitLen()), nil
	}

	prefix, err := netip.ParsePrefix(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("must be a valid IP address or CIDR")
	}
	return prefix.Masked(), nil
}

// ParseAddresses parses every raw input. All failures are collected and
// returned together as ValidationErrors; on error no prefixes are returned.
func ParseAddresses(raws []string) ([]netip.Prefix, error) {
	if len(raws) == 0 {
		return nil, ValidationErrors{NewValidationError("addresses", "", "at least one address is required")}
	}

	var errs ValidationErrors
	prefixes := make([]netip.Prefix, 0, len(raws))
	for i, raw := range raws {
		p, err := ParseAddress(raw)
		if err != nil {
			errs.Add(fmt.Sprintf("addresses[%d]", i), raw, err.Error())
			continue
		}
		prefixes = append(prefixes, p)
	}
	if errs.HasErrors() {
		return nil, errs
	}
	return prefixes, nil
}

// SplitAddressList splits a comma separated address list, dropping empty
// items and surrounding whitespace.
func SplitAddressList(lists ...string) []string {
	var out []string
	for _, list := range lists {
		for _, item := range strings.Split(list, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

// CanonicalAddress returns the canonical form of an address already stored in
// an IP set. Entries that do not parse are compared verbatim.
func CanonicalAddress(stored string) string {
	p, err := ParseAddress(stored)
	if err != nil {
		return strings.TrimSpace(stored)
	}
	return p.String()
}
