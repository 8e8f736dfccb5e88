package request

import (
	"errors"
	"strings"
)

// Validation errors, one per required field. Validate returns the first
// one that applies; field order is URN, URI, username, password.
var (
	ErrInvalidURN  = errors.New("invalid URN: must be one of Maevex1, SV2, SV2Dec")
	ErrMissingURI  = errors.New("invalid URI: device host must be provided")
	ErrMissingUser = errors.New("invalid username: must be provided")
	ErrMissingPass = errors.New("invalid password: must be provided")
)

// Validate checks that all four required fields are present.
//
// Checks run in a fixed order and stop at the first missing field, so a
// request missing both URN and URI reports only the URN error. Whitespace
// only values count as missing.
func (r *Request) Validate() error {
	if r.URN == URNUnknown {
		return ErrInvalidURN
	}
	if strings.TrimSpace(r.URI) == "" {
		return ErrMissingURI
	}
	if strings.TrimSpace(r.Username) == "" {
		return ErrMissingUser
	}
	if strings.TrimSpace(r.Password) == "" {
		return ErrMissingPass
	}
	return nil
}
