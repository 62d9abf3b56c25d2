package ipset_test

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/waf-ipset-manager/internal/domain"
	"github.com/bcnelson/waf-ipset-manager/internal/ipset"
)

func snapshot(addresses ...string) domain.IPSetSnapshot {
	return domain.IPSetSnapshot{
		Name:             "testipset",
		ID:               "xxxx",
		ARN:              "arn:aws:wafv2:ap-northeast-1:123456890:regional/ipset/testipset/xxxx",
		Description:      "description",
		Addresses:        addresses,
		IPAddressVersion: domain.IPv4,
		LockToken:        "xxx",
		Scope:            domain.ScopeRegional,
	}
}

func prefixes(t *testing.T, raws ...string) []netip.Prefix {
	t.Helper()
	out := make([]netip.Prefix, 0, len(raws))
	for _, raw := range raws {
		p, err := netip.ParsePrefix(raw)
		if err != nil {
			addr := netip.MustParseAddr(raw)
			p = netip.PrefixFrom(addr, addr.BitLen())
		}
		out = append(out, p)
	}
	return out
}

func TestAdd_OneNewAddress(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	got, err := ipset.Add(s, prefixes(t, "10.0.0.2/32"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1/32", "10.0.0.2/32"}, got.Addresses)
}

func TestAdd_TwoNewAddresses(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	got, err := ipset.Add(s, prefixes(t, "10.0.0.2/32", "10.0.0.3/32"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1/32", "10.0.0.2/32", "10.0.0.3/32"}, got.Addresses)
}

func TestAdd_ExistingAddress(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	_, err := ipset.Add(s, prefixes(t, "10.0.0.1/32"))

	var dup *domain.DuplicateAddressError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "10.0.0.1/32", dup.Address)
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))
	assert.Equal(t, []string{"10.0.0.1/32"}, s.Addresses)
}

func TestAdd_WithoutNetmask(t *testing.T) {
	s := snapshot()

	got, err := ipset.Add(s, prefixes(t, "10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1/32"}, got.Addresses)
}

func TestAdd_MasksHostBits(t *testing.T) {
	s := snapshot()

	got, err := ipset.Add(s, prefixes(t, "10.0.0.5/24"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.0/24"}, got.Addresses)
}

func TestAdd_OneInvalidEntryMutatesNothing(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	got, err := ipset.Add(s, prefixes(t, "10.0.0.2/32", "10.0.0.1/32", "10.0.0.3/32"))
	require.Error(t, err)
	assert.Empty(t, got.Addresses)
	assert.Equal(t, []string{"10.0.0.1/32"}, s.Addresses)
}

func TestAdd_DuplicateWithinBatch(t *testing.T) {
	s := snapshot()

	_, err := ipset.Add(s, prefixes(t, "10.0.0.2/32", "10.0.0.2"))

	var dup *domain.DuplicateAddressError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "10.0.0.2/32", dup.Address)
}

func TestAdd_SecondCallDetectsDuplicate(t *testing.T) {
	s := snapshot("10.0.0.1/32")
	batch := prefixes(t, "10.0.0.2/32", "10.0.0.3/32")

	once, err := ipset.Add(s, batch)
	require.NoError(t, err)

	_, err = ipset.Add(once, batch)
	var dup *domain.DuplicateAddressError
	assert.ErrorAs(t, err, &dup)
}

func TestAdd_StoredEntriesCompareCanonically(t *testing.T) {
	s := snapshot("10.0.0.1")

	_, err := ipset.Add(s, prefixes(t, "10.0.0.1/32"))
	var dup *domain.DuplicateAddressError
	assert.ErrorAs(t, err, &dup)
}

func TestAdd_WrongFamily(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	_, err := ipset.Add(s, prefixes(t, "2001:db8::1"))

	var famErr *domain.AddressFamilyError
	require.ErrorAs(t, err, &famErr)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	v6 := snapshot()
	v6.IPAddressVersion = domain.IPv6
	got, err := ipset.Add(v6, prefixes(t, "2001:db8::1"))
	require.NoError(t, err)
	assert.Equal(t, []string{"2001:db8::1/128"}, got.Addresses)
}

func TestAdd_DoesNotAliasInput(t *testing.T) {
	backing := make([]string, 1, 8)
	backing[0] = "10.0.0.1/32"
	s := snapshot(backing...)
	s.Addresses = backing

	first, err := ipset.Add(s, prefixes(t, "10.0.0.2/32"))
	require.NoError(t, err)
	second, err := ipset.Add(s, prefixes(t, "10.0.0.3/32"))
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1/32", "10.0.0.2/32"}, first.Addresses)
	assert.Equal(t, []string{"10.0.0.1/32", "10.0.0.3/32"}, second.Addresses)
}

func TestRemove_OneAddress(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	got, err := ipset.Remove(s, prefixes(t, "10.0.0.1/32"))
	require.NoError(t, err)
	assert.Empty(t, got.Addresses)
	assert.NotNil(t, got.Addresses)
}

func TestRemove_TwoAddresses(t *testing.T) {
	s := snapshot("10.0.0.1/32", "10.0.0.2/32", "10.0.0.3/32")

	got, err := ipset.Remove(s, prefixes(t, "10.0.0.1/32", "10.0.0.2/32"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.3/32"}, got.Addresses)
}

func TestRemove_NonexistentAddress(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	_, err := ipset.Remove(s, prefixes(t, "10.0.0.2/32"))

	var nf *domain.AddressNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "10.0.0.2/32", nf.Address)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, []string{"10.0.0.1/32"}, s.Addresses)
}

func TestRemove_OneInvalidEntryMutatesNothing(t *testing.T) {
	s := snapshot("10.0.0.1/32", "10.0.0.2/32")

	_, err := ipset.Remove(s, prefixes(t, "10.0.0.1/32", "10.0.0.9/32"))
	require.Error(t, err)
	assert.Equal(t, []string{"10.0.0.1/32", "10.0.0.2/32"}, s.Addresses)
}

func TestRemove_SecondCallFails(t *testing.T) {
	s := snapshot("10.0.0.1/32", "10.0.0.2/32", "10.0.0.3/32")
	batch := prefixes(t, "10.0.0.1/32", "10.0.0.2/32")

	once, err := ipset.Remove(s, batch)
	require.NoError(t, err)

	_, err = ipset.Remove(once, batch)
	var nf *domain.AddressNotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRemove_BareAddressMatchesHostPrefix(t *testing.T) {
	s := snapshot("10.0.0.1/32", "10.0.0.2/32")

	got, err := ipset.Remove(s, prefixes(t, "10.0.0.2"))
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1/32"}, got.Addresses)
}

func TestContains(t *testing.T) {
	s := snapshot("10.0.0.1/32", "192.168.0.0/16")

	assert.True(t, ipset.Contains(s, prefixes(t, "10.0.0.1")[0]))
	assert.True(t, ipset.Contains(s, prefixes(t, "192.168.1.1/16")[0]))
	assert.False(t, ipset.Contains(s, prefixes(t, "10.0.0.2")[0]))
}

func TestToSubmission(t *testing.T) {
	s := snapshot("10.0.0.1/32")

	assert.Equal(t, domain.SubmissionRequest{
		Name:        "testipset",
		Scope:       domain.ScopeRegional,
		ID:          "xxxx",
		Description: "description",
		Addresses:   []string{"10.0.0.1/32"},
		LockToken:   "xxx",
	}, ipset.ToSubmission(s))
}
