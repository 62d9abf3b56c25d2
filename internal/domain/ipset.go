package domain

import "slices"

// Scope is the deployment context of a WAF resource.
type Scope string

const (
	ScopeCloudFront Scope = "CLOUDFRONT"
	ScopeRegional   Scope = "REGIONAL"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeCloudFront || s == ScopeRegional
}

// IPAddressVersion is the address family of an IP set.
type IPAddressVersion string

const (
	IPv4 IPAddressVersion = "IPV4"
	IPv6 IPAddressVersion = "IPV6"
)

// IPSetSummary is one entry of the remote IP set listing.
type IPSetSummary struct {
	Name        string `json:"name"`
	ID          string `json:"id"`
	ARN         string `json:"arn"`
	Description string `json:"description,omitempty"`
	LockToken   string `json:"-"`
}

// IPSetPage is one page of the remote IP set listing. NextMarker is empty on
// the last page.
type IPSetPage struct {
	IPSets     []IPSetSummary
	NextMarker string
}

// IPSetSnapshot is a point-in-time view of one remote IP set.
// A snapshot belongs to the call that fetched it; its LockToken is stale as
// soon as anyone else updates the set.
type IPSetSnapshot struct {
	Name             string           `json:"name" yaml:"name"`
	ID               string           `json:"id" yaml:"id"`
	ARN              string           `json:"arn" yaml:"arn"`
	Description      string           `json:"description" yaml:"description"`
	Addresses        []string         `json:"addresses" yaml:"addresses"`
	IPAddressVersion IPAddressVersion `json:"ipAddressVersion" yaml:"ipAddressVersion"`
	LockToken        string           `json:"-" yaml:"-"`
	Scope            Scope            `json:"scope" yaml:"scope"`
}

// Clone returns a deep copy of the snapshot.
func (s IPSetSnapshot) Clone() IPSetSnapshot {
	s.Addresses = slices.Clone(s.Addresses)
	return s
}

// SubmissionRequest carries exactly the fields the remote update call needs.
type SubmissionRequest struct {
	Name        string
	Scope       Scope
	ID          string
	Description string
	Addresses   []string
	LockToken   string
}

// AddressesRequest is the request body for adding or removing addresses.
type AddressesRequest struct {
	Addresses []string `json:"addresses"`
}

// ContainsResponse is returned by the membership check endpoint.
type ContainsResponse struct {
	IPSet    string `json:"ipset"`
	Address  string `json:"address"`
	Contains bool   `json:"contains"`
}
