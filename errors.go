package regextract

import (
	"context"
	"errors"
	"fmt"

	"github.com/coregx/regextract/column"
	"github.com/coregx/regextract/kernel"
)

// Invocation errors. Use errors.As to inspect them.
type (
	// NegativeIndexError reports idx < 0; fatal under every policy.
	NegativeIndexError = kernel.NegativeIndexError

	// InvalidPatternError reports a pattern that failed to compile under
	// PolicyError.
	InvalidPatternError = kernel.InvalidPatternError

	// MatchError reports a match-time failure under PolicyError.
	MatchError = kernel.MatchError

	// ShapeError reports a pattern or index argument whose length is
	// neither 1 nor the row count.
	ShapeError = column.ShapeError

	// TypeError reports an argument of an unsupported arrow type.
	TypeError = column.TypeError
)

// ArgCountError reports a call with the wrong number of arguments.
type ArgCountError struct {
	Got int
}

// Error implements the error interface.
func (e *ArgCountError) Error() string {
	return fmt.Sprintf("regexp_extract expects 3 arguments, got %d", e.Got)
}

// ConfigError represents an invalid configuration field.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "regexp_extract: invalid config: " + e.Field + ": " + e.Message
}

func isCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
