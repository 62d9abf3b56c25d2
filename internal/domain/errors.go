package domain

import (
	"errors"
	"fmt"
)

// Common errors used throughout the application.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrConflict      = errors.New("conflict")
)

// Error codes for standardized API error responses.
const (
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeValidationError  = "VALIDATION_ERROR"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeRemoteRejected   = "REMOTE_REJECTED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
)

// StandardError represents a standardized error response from the API.
type StandardError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Field   string         `json:"field,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// StandardErrorResponse wraps a StandardError for JSON responses.
type StandardErrorResponse struct {
	Error StandardError `json:"error"`
}

// IPSetNotFoundError is returned when no IP set with the given name exists
// in any page of the remote listing.
type IPSetNotFoundError struct {
	Name string
}

func (e *IPSetNotFoundError) Error() string {
	return fmt.Sprintf("ip set %q not found", e.Name)
}

// Is reports ErrNotFound equivalence.
func (e *IPSetNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DuplicateAddressError is returned when an address to add is already
// registered in the IP set.
type DuplicateAddressError struct {
	Address string
}

func (e *DuplicateAddressError) Error() string {
	return fmt.Sprintf("%s is already registered", e.Address)
}

// Is reports ErrAlreadyExists equivalence.
func (e *DuplicateAddressError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// AddressNotFoundError is returned when an address to remove is not
// registered in the IP set.
type AddressNotFoundError struct {
	Address string
}

func (e *AddressNotFoundError) Error() string {
	return fmt.Sprintf("%s is not registered", e.Address)
}

// Is reports ErrNotFound equivalence.
func (e *AddressNotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AddressFamilyError is returned when an address does not match the IP
// address version of the set.
type AddressFamilyError struct {
	Address string
	Version IPAddressVersion
}

func (e *AddressFamilyError) Error() string {
	return fmt.Sprintf("%s cannot be stored in an %s ip set", e.Address, e.Version)
}

// Is reports ErrInvalidInput equivalence.
func (e *AddressFamilyError) Is(target error) bool {
	return target == ErrInvalidInput
}
