package reference

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrUnresolvedElection indicates no election could be determined or found.
	ErrUnresolvedElection = errors.New("no election found")

	// ErrUnknownCounty indicates at least one county name did not match the county feed.
	ErrUnknownCounty = errors.New("unknown county")

	// ErrUnknownContestType indicates at least one contest-type code is not in the office feed.
	ErrUnknownContestType = errors.New("unknown contest type")
)

// UnknownValuesError reports every user-supplied value that failed to
// resolve, together with the accepted values.
type UnknownValuesError struct {
	Kind   error
	Values []string
	Valid  []string
}

func (e *UnknownValuesError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, strings.Join(e.Values, ", "))
	if hints := e.Suggestions(); len(hints) > 0 {
		parts := make([]string, 0, len(hints))
		for _, v := range e.Values {
			if s, ok := hints[v]; ok {
				parts = append(parts, fmt.Sprintf("%s -> %s", v, s))
			}
		}
		fmt.Fprintf(&b, " (did you mean: %s)", strings.Join(parts, ", "))
	}
	if errors.Is(e.Kind, ErrUnknownContestType) && len(e.Valid) > 0 {
		fmt.Fprintf(&b, "; valid codes are: %s", strings.Join(e.Valid, ", "))
	}
	return b.String()
}

func (e *UnknownValuesError) Unwrap() error { return e.Kind }

// Suggestions maps each unknown value to its closest valid value, when
// one is near enough to be a plausible typo.
func (e *UnknownValuesError) Suggestions() map[string]string {
	out := map[string]string{}
	for _, v := range e.Values {
		if s, ok := closest(v, e.Valid); ok {
			out[v] = s
		}
	}
	return out
}

func closest(value string, candidates []string) (string, bool) {
	upper := strings.ToUpper(value)
	best, bestDist := "", -1
	for _, c := range candidates {
		d := levenshtein.ComputeDistance(upper, strings.ToUpper(c))
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	// Allow roughly one edit per four characters.
	if bestDist < 0 || bestDist > len([]rune(upper))/4+1 {
		return "", false
	}
	return best, true
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
