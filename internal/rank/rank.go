// Package rank computes contest margins and orders contests by closeness.
package rank

import (
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AriannaStory/CloseNCElections/internal/contest"
)

// Method selects which margin contests are filtered and ordered by.
type Method string

const (
	Percentage Method = "percentage"
	Votes      Method = "votes"
)

func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(s))); m {
	case Percentage, Votes:
		return m, nil
	default:
		return "", fmt.Errorf("unknown margin method %q (valid: percentage, votes)", s)
	}
}

var validate = validator.New()

// Options controls filtering and truncation. A nil Margin disables the
// margin filter; a zero Limit keeps every contest.
type Options struct {
	Margin *float64 `validate:"omitempty,gte=0"`
	Method Method   `validate:"required,oneof=percentage votes"`
	Limit  int      `validate:"gte=0"`
}

func (o Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("invalid ranking options: %w", err)
	}
	return nil
}

// Namer resolves a jurisdiction id to its display name.
type Namer interface {
	DisplayName(jurisdictionID string) string
}

// Contest is a ranked, read-only view of one contest group.
type Contest struct {
	Name        string
	DisplayName string
	TypeCode    string
	Candidates  []contest.CandidateResult // by votes, descending
	Top         contest.CandidateResult
	Second      *contest.CandidateResult // nil when uncontested
	VoteMargin  int
	PctMargin   *float64 // nil when uncontested
	TotalVotes  int

	// Records are the merged feed lines in arrival order.
	Records []contest.CandidateResult
}

func (c Contest) Uncontested() bool { return c.Second == nil }

// Margin returns the margin used by m, and false when it is undefined.
// The vote margin is always defined: an uncontested contest's vote
// margin is its sole candidate's vote count.
func (c Contest) Margin(m Method) (float64, bool) {
	if m == Votes {
		return float64(c.VoteMargin), true
	}
	if c.PctMargin == nil {
		return 0, false
	}
	return *c.PctMargin, true
}

// Evaluate computes margins for one non-empty group.
func Evaluate(g contest.Group, namer Namer) Contest {
	sorted := append([]contest.CandidateResult(nil), g.Candidates...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Votes > sorted[j].Votes
	})

	total := 0
	for _, c := range sorted {
		total += c.Votes
	}

	jurisdiction := jurisdictionName(namer, g.Key.JurisdictionID)
	out := Contest{
		Name:        g.Key.Name,
		DisplayName: fmt.Sprintf("%s (%s)", g.Key.Name, jurisdiction),
		TypeCode:    g.TypeCode(),
		Candidates:  sorted,
		Top:         sorted[0],
		TotalVotes:  total,
		Records:     append([]contest.CandidateResult(nil), g.Candidates...),
	}

	if len(sorted) == 1 {
		out.VoteMargin = sorted[0].Votes
		return out
	}

	second := sorted[1]
	pct := sorted[0].Pct - second.Pct
	out.Second = &second
	out.VoteMargin = sorted[0].Votes - second.Votes
	out.PctMargin = &pct
	return out
}

func jurisdictionName(namer Namer, id string) string {
	if namer == nil {
		return "Statewide"
	}
	return namer.DisplayName(id)
}

// Keep reports whether c passes the margin filter. Uncontested contests
// never pass an active filter since they have no margin to compare.
func Keep(c Contest, opts Options) bool {
	if opts.Margin == nil {
		return true
	}
	if c.Uncontested() {
		return false
	}
	threshold := *opts.Margin
	if opts.Method == Votes {
		return float64(c.VoteMargin) <= threshold
	}
	return *c.PctMargin*100 <= threshold
}

// Rank evaluates every group, drops those failing the margin filter,
// orders the rest by ascending margin (undefined margins last, ties in
// group order) and keeps the first opts.Limit.
func Rank(groups []contest.Group, opts Options, namer Namer) []Contest {
	out := make([]Contest, 0, len(groups))
	for _, g := range groups {
		if len(g.Candidates) == 0 {
			continue
		}
		c := Evaluate(g, namer)
		if !Keep(c, opts) {
			continue
		}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		mi, oki := out[i].Margin(opts.Method)
		mj, okj := out[j].Margin(opts.Method)
		if oki != okj {
			return oki
		}
		return oki && mi < mj
	})

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out
}
