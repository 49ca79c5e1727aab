package engine

import (
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

// expressiveSyntax accepts Go-style (?P<name>...) groups and RE2 class
// semantics. Group numbering still follows regexp2 (named groups after
// unnamed ones) and is remapped by groupSlots.
const expressiveSyntax = regexp2.RE2

type expressiveEngine struct {
	timeout time.Duration
}

func (e *expressiveEngine) Kind() Kind { return Expressive }

func (e *expressiveEngine) Compile(pattern string) (Regex, error) {
	re, err := regexp2.Compile(pattern, expressiveSyntax)
	if err != nil {
		return nil, &CompileError{Backend: Expressive, Pattern: pattern, Err: err}
	}
	if e.timeout > 0 {
		re.MatchTimeout = e.timeout
	}
	slots := groupSlots(re, pattern)
	return &expressiveRegex{re: re, groups: len(slots) - 1, slots: slots}, nil
}

type expressiveRegex struct {
	re     *regexp2.Regexp
	groups int

	// slots[i] is the regexp2 group number of the i-th group counted by
	// opening parenthesis from the left.
	slots []int
}

func (r *expressiveRegex) String() string { return r.re.String() }

func (r *expressiveRegex) NumSubexp() int { return r.groups }

func (r *expressiveRegex) FindCaptures(text string) (Captures, bool, error) {
	m, err := r.re.FindStringMatch(text)
	if err != nil {
		return nil, false, &MatchError{Backend: Expressive, Pattern: r.re.String(), Err: err}
	}
	if m == nil {
		return nil, false, nil
	}
	return expressiveCaptures{m: m, slots: r.slots}, true, nil
}

type expressiveCaptures struct {
	m     *regexp2.Match
	slots []int
}

func (c expressiveCaptures) Len() int { return len(c.slots) }

func (c expressiveCaptures) Group(i int) (string, bool) {
	if i < 0 || i >= len(c.slots) {
		return "", false
	}
	g := c.m.GroupByNumber(c.slots[i])
	if g == nil || len(g.Captures) == 0 {
		return "", false
	}
	return g.String(), true
}

// groupSlots maps left-to-right group order onto regexp2 group numbers.
// When the pattern uses constructs that captureNames cannot order
// unambiguously (duplicate or balancing names), regexp2's own order is kept.
func groupSlots(re *regexp2.Regexp, pattern string) []int {
	n := len(re.GetGroupNumbers())
	native := make([]int, n)
	for i := range native {
		native[i] = i
	}

	names := captureNames(pattern)
	if len(names) != n-1 {
		return native
	}

	slots := make([]int, n)
	unnamed := 0
	for i, name := range names {
		if name == "" {
			unnamed++
			slots[i+1] = unnamed
			continue
		}
		num := re.GroupNumberFromName(name)
		if num < 0 {
			return native
		}
		slots[i+1] = num
	}
	return slots
}

// captureNames lists the capturing groups of pattern in order of their
// opening parenthesis: the group name, or "" for an unnamed group.
// Escapes and character classes are skipped; (?...) constructs other than
// named groups do not capture.
func captureNames(pattern string) []string {
	var names []string
	inClass := false
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch {
		case c == '\\':
			i++
		case inClass:
			if c == '[' && i+1 < len(pattern) && pattern[i+1] == ':' {
				if end := strings.Index(pattern[i+2:], ":]"); end >= 0 {
					i += end + 3
				}
			} else if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
			// A leading ] (after an optional ^) is a literal.
			if i+1 < len(pattern) && pattern[i+1] == '^' {
				i++
			}
			if i+1 < len(pattern) && pattern[i+1] == ']' {
				i++
			}
		case c == '(':
			rest := pattern[i+1:]
			if !strings.HasPrefix(rest, "?") {
				names = append(names, "")
				continue
			}
			if name, ok := groupName(rest[1:]); ok {
				names = append(names, name)
			}
		}
	}
	return names
}

// groupName parses the name of a (?P<name>, (?<name> or (?'name' group.
// Look-behind assertions such as (?<=...) are not names.
func groupName(s string) (string, bool) {
	s = strings.TrimPrefix(s, "P")
	if len(s) < 2 {
		return "", false
	}
	var closer byte
	switch s[0] {
	case '<':
		closer = '>'
	case '\'':
		closer = '\''
	default:
		return "", false
	}
	if s[1] == '=' || s[1] == '!' {
		return "", false
	}
	end := strings.IndexByte(s[1:], closer)
	if end <= 0 {
		return "", false
	}
	return s[1 : 1+end], true
}
