package engine

import (
	"github.com/coregx/coregex"
	"github.com/coregx/coregex/meta"
)

type linearEngine struct {
	config meta.Config
}

func (e *linearEngine) Kind() Kind { return Linear }

func (e *linearEngine) Compile(pattern string) (Regex, error) {
	re, err := coregex.CompileWithConfig(pattern, e.config)
	if err != nil {
		return nil, &CompileError{Backend: Linear, Pattern: pattern, Err: err}
	}
	return &linearRegex{re: re}, nil
}

type linearRegex struct {
	re *coregex.Regex
}

func (r *linearRegex) String() string { return r.re.String() }

func (r *linearRegex) NumSubexp() int { return r.re.NumSubexp() }

// FindCaptures never fails: coregex validates everything at compile time.
func (r *linearRegex) FindCaptures(text string) (Captures, bool, error) {
	loc := r.re.FindStringSubmatchIndex(text)
	if loc == nil {
		return nil, false, nil
	}
	return linearCaptures{text: text, loc: loc}, true, nil
}

// linearCaptures holds byte offset pairs; -1 marks a group that did not
// participate.
type linearCaptures struct {
	text string
	loc  []int
}

func (c linearCaptures) Len() int { return len(c.loc) / 2 }

func (c linearCaptures) Group(i int) (string, bool) {
	if i < 0 || 2*i+1 >= len(c.loc) {
		return "", false
	}
	start, end := c.loc[2*i], c.loc[2*i+1]
	if start < 0 || end < 0 {
		return "", false
	}
	return c.text[start:end], true
}
