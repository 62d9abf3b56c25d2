// Package ipset applies add and remove operations to an IP set snapshot.
//
// Operations never modify the snapshot they are given. They validate the
// whole batch against it first and then return a new snapshot, so a rejected
// batch leaves nothing half applied.
package ipset

import (
	"net/netip"
	"slices"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/validation"
)

// Add returns a copy of s with every prefix appended in input order.
// It fails with *domain.DuplicateAddressError if any prefix is already in s,
// or appears twice in prefixes.
func Add(s domain.IPSetSnapshot, prefixes []netip.Prefix) (domain.IPSetSnapshot, error) {
	present := make(map[string]struct{}, len(s.Addresses)+len(prefixes))
	for _, addr := range s.Addresses {
		present[validation.CanonicalAddress(addr)] = struct{}{}
	}

	added := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if err := checkFamily(s, p); err != nil {
			return domain.IPSetSnapshot{}, err
		}
		addr := p.Masked().String()
		if _, ok := present[addr]; ok {
			return domain.IPSetSnapshot{}, &domain.DuplicateAddressError{Address: addr}
		}
		present[addr] = struct{}{}
		added = append(added, addr)
	}

	out := s.Clone()
	out.Addresses = append(out.Addresses, added...)
	return out, nil
}

// Remove returns a copy of s without the given prefixes. Every prefix must be
// present in s, otherwise it fails with *domain.AddressNotFoundError and
// nothing is removed.
func Remove(s domain.IPSetSnapshot, prefixes []netip.Prefix) (domain.IPSetSnapshot, error) {
	index := make(map[string]int, len(s.Addresses))
	for i, addr := range s.Addresses {
		c := validation.CanonicalAddress(addr)
		if _, ok := index[c]; !ok {
			index[c] = i
		}
	}

	drop := make(map[int]struct{}, len(prefixes))
	for _, p := range prefixes {
		addr := p.Masked().String()
		i, ok := index[addr]
		if !ok {
			return domain.IPSetSnapshot{}, &domain.AddressNotFoundError{Address: addr}
		}
		drop[i] = struct{}{}
	}

	out := s.Clone()
	out.Addresses = make([]string, 0, len(s.Addresses)-len(drop))
	for i, addr := range s.Addresses {
		if _, ok := drop[i]; !ok {
			out.Addresses = append(out.Addresses, addr)
		}
	}
	return out, nil
}

// Contains reports whether the canonical form of p is in s.
func Contains(s domain.IPSetSnapshot, p netip.Prefix) bool {
	addr := p.Masked().String()
	return slices.ContainsFunc(s.Addresses, func(stored string) bool {
		return validation.CanonicalAddress(stored) == addr
	})
}

// ToSubmission projects s onto the fields the update call requires.
func ToSubmission(s domain.IPSetSnapshot) domain.SubmissionRequest {
	return domain.SubmissionRequest{
		Name:        s.Name,
		Scope:       s.Scope,
		ID:          s.ID,
		Description: s.Description,
		Addresses:   slices.Clone(s.Addresses),
		LockToken:   s.LockToken,
	}
}

// checkFamily rejects prefixes that cannot live in a set of s's version. An
// unknown version is left for the remote to judge.
func checkFamily(s domain.IPSetSnapshot, p netip.Prefix) error {
	switch {
	case s.IPAddressVersion == domain.IPv4 && !p.Addr().Is4():
	case s.IPAddressVersion == domain.IPv6 && !p.Addr().Is6():
	default:
		return nil
	}
	return &domain.AddressFamilyError{Address: p.String(), Version: s.IPAddressVersion}
}
