package kernel

import "fmt"

// ScalarRow is the Row reported for failures of a scalar pattern, which is
// compiled once before any row is processed.
const ScalarRow = -1

// NegativeIndexError reports idx < 0. It is fatal under every policy.
type NegativeIndexError struct {
	Row   int
	Index int64
}

// Error implements the error interface.
func (e *NegativeIndexError) Error() string {
	return fmt.Sprintf("regexp_extract: idx must be >= 0, got %d at row %d", e.Index, e.Row)
}

// InvalidPatternError reports a pattern that failed to compile under
// PolicyError.
type InvalidPatternError struct {
	Row     int
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	if e.Row == ScalarRow {
		return fmt.Sprintf("regexp_extract: invalid regex pattern: %v", e.Err)
	}
	return fmt.Sprintf("regexp_extract: invalid regex pattern at row %d: %v", e.Row, e.Err)
}

// Unwrap returns the engine error.
func (e *InvalidPatternError) Unwrap() error {
	return e.Err
}

// MatchError reports a match-time failure under PolicyError.
type MatchError struct {
	Row     int
	Pattern string
	Err     error
}

// Error implements the error interface.
func (e *MatchError) Error() string {
	return fmt.Sprintf("regexp_extract: match error at row %d: %v", e.Row, e.Err)
}

// Unwrap returns the engine error.
func (e *MatchError) Unwrap() error {
	return e.Err
}
