// Package engine adapts concrete regex backends to the uniform compile/match
// contract used by the extraction kernel.
//
// Two backends are available:
//   - Linear: coregex, guaranteed O(m*n) matching. No back-references and no
//     look-around; unsupported constructs are rejected at compile time and a
//     compiled pattern never fails at match time.
//   - Expressive: regexp2, a backtracking engine with back-references and
//     look-around. Matching can fail at run time (for example when
//     MatchTimeout elapses on a catastrophic pattern).
//
// The backend is chosen once, when the Engine is constructed, and is
// transparent to callers: both return the same Regex and Captures shapes and
// callers must handle match errors regardless of the backend in use.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/coregx/coregex/meta"
)

// Kind identifies a regex backend.
type Kind int

const (
	// Linear is the coregex backend (default).
	Linear Kind = iota
	// Expressive is the regexp2 backend.
	Expressive
)

// String returns the configuration name of the backend.
func (k Kind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Expressive:
		return "expressive"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a backend name as produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "":
		return Linear, nil
	case "expressive":
		return Expressive, nil
	default:
		return 0, fmt.Errorf("regexp_extract: unknown backend %q", s)
	}
}

// Engine compiles patterns for one backend.
// Implementations are stateless and safe for concurrent use.
type Engine interface {
	// Kind reports which backend this engine drives.
	Kind() Kind

	// Compile compiles pattern. Failures are returned as *CompileError.
	Compile(pattern string) (Regex, error)
}

// Regex is a compiled, immutable pattern.
type Regex interface {
	// String returns the source pattern.
	String() string

	// NumSubexp returns the number of parenthesized groups.
	NumSubexp() int

	// FindCaptures reports the leftmost match in text.
	// ok is false (with a nil error) when the pattern does not match.
	// A non-nil error is a *MatchError and is only produced by backends
	// that can fail at match time.
	FindCaptures(text string) (caps Captures, ok bool, err error)
}

// Captures is the result of one successful match.
//
// Group 0 is the whole match. A group that did not participate in the match
// is reported as absent, not as an error. Captures reference the matched text
// and must not be kept past the row that produced them; copy the needed
// group out first.
type Captures interface {
	// Len returns the number of groups including group 0.
	Len() int

	// Group returns the text of group i and whether it participated.
	// Out of range indices report false.
	Group(i int) (string, bool)
}

// Options configures backend construction.
type Options struct {
	// Linear is passed to coregex.CompileWithConfig.
	Linear meta.Config

	// MatchTimeout bounds a single expressive match. Zero means no limit.
	MatchTimeout time.Duration
}

// DefaultOptions returns the options used when none are supplied.
func DefaultOptions() Options {
	return Options{
		Linear: meta.DefaultConfig(),
	}
}

// New returns the engine for kind.
func New(kind Kind, opts Options) (Engine, error) {
	switch kind {
	case Linear:
		if err := opts.Linear.Validate(); err != nil {
			return nil, err
		}
		return &linearEngine{config: opts.Linear}, nil
	case Expressive:
		if opts.MatchTimeout < 0 {
			return nil, fmt.Errorf("regexp_extract: negative match timeout %s", opts.MatchTimeout)
		}
		return &expressiveEngine{timeout: opts.MatchTimeout}, nil
	default:
		return nil, fmt.Errorf("regexp_extract: unknown backend %s", kind)
	}
}

// CompileError reports a pattern the backend rejected.
type CompileError struct {
	Backend Kind
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *CompileError) Error() string {
	return fmt.Sprintf("%s backend: compile %q: %v", e.Backend, e.Pattern, e.Err)
}

// Unwrap returns the backend error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// MatchError reports a failure raised while matching.
type MatchError struct {
	Backend Kind
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *MatchError) Error() string {
	return fmt.Sprintf("%s backend: match %q: %v", e.Backend, e.Pattern, e.Err)
}

// Unwrap returns the backend error.
func (e *MatchError) Unwrap() error {
	return e.Err
}
