package kernel

import (
	"fmt"
	"strings"
)

// Policy decides what happens when a pattern fails to compile or a compiled
// pattern fails while matching.
//
// Negative group indices are never covered by the policy; they always abort
// the invocation.
type Policy int

const (
	// PolicyError aborts the whole invocation on the first failure.
	// No partial output is returned.
	PolicyError Policy = iota

	// PolicyEmptyString absorbs the failure and emits "" for the affected
	// rows only.
	PolicyEmptyString
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case PolicyError:
		return "error"
	case PolicyEmptyString:
		return "empty_string"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Valid reports whether p is a known policy.
func (p Policy) Valid() bool {
	return p == PolicyError || p == PolicyEmptyString
}

// ParsePolicy parses a policy name. Both the configuration names and the
// enum spellings ("Error", "EmptyString") are accepted.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error", "":
		return PolicyError, nil
	case "empty_string", "emptystring", "empty":
		return PolicyEmptyString, nil
	default:
		return 0, fmt.Errorf("regexp_extract: unknown invalid pattern policy %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("regexp_extract: unknown invalid pattern policy %d", int(p))
	}
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// absorbs reports whether a pattern or match failure becomes an empty cell.
func (p Policy) absorbs() bool {
	return p == PolicyEmptyString
}
