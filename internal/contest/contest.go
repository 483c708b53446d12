// Package contest merges per-jurisdiction candidate lines into contest groups.
package contest

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/AriannaStory/CloseNCElections/internal/feed"
)

// CandidateResult is one candidate's line in one contest, after numeric coercion.
type CandidateResult struct {
	Name           string
	Party          string
	ContestName    string
	TypeCode       string
	JurisdictionID string
	Votes          int
	Pct            float64

	Raw json.RawMessage
}

// FromRecords converts a results shard as published into candidate results.
func FromRecords(records []feed.ResultRecord) []CandidateResult {
	out := make([]CandidateResult, 0, len(records))
	for _, r := range records {
		out = append(out, CandidateResult{
			Name:           r.Candidate,
			Party:          r.Party,
			ContestName:    r.ContestName,
			TypeCode:       r.TypeCode,
			JurisdictionID: string(r.JurisdictionID),
			Votes:          int(r.Votes),
			Pct:            float64(r.Pct),
			Raw:            r.Raw,
		})
	}
	return out
}

// Key identifies a contest: its normalized name within one jurisdiction.
type Key struct {
	Name           string
	JurisdictionID string
}

// Group holds every candidate line sharing a Key, in arrival order.
type Group struct {
	Key        Key
	Candidates []CandidateResult
}

// TypeCode is the first member's contest-type code.
func (g Group) TypeCode() string {
	if len(g.Candidates) == 0 {
		return ""
	}
	return g.Candidates[0].TypeCode
}

// TypeFilter is a set of upper-case contest-type codes. A nil filter admits everything.
type TypeFilter map[string]struct{}

func NewTypeFilter(codes []string) TypeFilter {
	if len(codes) == 0 {
		return nil
	}
	f := make(TypeFilter, len(codes))
	for _, c := range codes {
		f[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
	}
	return f
}

func (f TypeFilter) Allows(code string) bool {
	if f == nil {
		return true
	}
	_, ok := f[strings.ToUpper(code)]
	return ok
}

var voteForSuffix = regexp.MustCompile(`(?i)\s*\(VOTE FOR \d+\)\s*$`)

// NormalizeName strips a trailing "(VOTE FOR n)" qualifier.
func NormalizeName(name string) string {
	return voteForSuffix.ReplaceAllString(name, "")
}

// Accumulator builds contest groups across many shards.
type Accumulator struct {
	filter TypeFilter
	index  map[Key]int
	groups []Group
}

func NewAccumulator(filter TypeFilter) *Accumulator {
	return &Accumulator{
		filter: filter,
		index:  make(map[Key]int),
	}
}

// Add merges one shard. Entries without their own jurisdiction id are
// attributed to requestedID, the jurisdiction the shard was fetched for.
func (a *Accumulator) Add(requestedID string, shard []CandidateResult) {
	for _, c := range shard {
		c.TypeCode = strings.ToUpper(c.TypeCode)
		if !a.filter.Allows(c.TypeCode) {
			continue
		}

		jurisdiction := c.JurisdictionID
		if jurisdiction == "" {
			jurisdiction = requestedID
			c.JurisdictionID = requestedID
		}
		key := Key{Name: NormalizeName(c.ContestName), JurisdictionID: jurisdiction}

		i, ok := a.index[key]
		if !ok {
			i = len(a.groups)
			a.index[key] = i
			a.groups = append(a.groups, Group{Key: key})
		}
		a.groups[i].Candidates = append(a.groups[i].Candidates, c)
	}
}

func (a *Accumulator) Len() int { return len(a.groups) }

// Groups returns the groups in first-seen order.
func (a *Accumulator) Groups() []Group {
	out := make([]Group, len(a.groups))
	for i, g := range a.groups {
		out[i] = Group{
			Key:        g.Key,
			Candidates: append([]CandidateResult(nil), g.Candidates...),
		}
	}
	return out
}
