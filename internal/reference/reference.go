// Package reference resolves the election date and the county and
// contest-type lookups every report run depends on.
package reference

import (
	"strings"

	"github.com/AriannaStory/CloseNCElections/internal/contest"
	"github.com/AriannaStory/CloseNCElections/internal/feed"
)

const (
	// StatewideID is the jurisdiction id of the statewide results shard.
	StatewideID = "0"
	// Statewide is the display name for the statewide jurisdiction and
	// for any jurisdiction id the county feed does not know.
	Statewide = "Statewide"
)

type CountyRef struct {
	ID   string
	Name string
}

type ContestTypeRef struct {
	Code  string
	Label string
}

// Counties is the county feed indexed by upper-case name and by id.
type Counties struct {
	list   []CountyRef
	byName map[string]CountyRef
	byID   map[string]CountyRef
}

func NewCounties(refs []CountyRef) *Counties {
	c := &Counties{
		list:   append([]CountyRef(nil), refs...),
		byName: make(map[string]CountyRef, len(refs)),
		byID:   make(map[string]CountyRef, len(refs)),
	}
	for _, r := range refs {
		c.byName[strings.ToUpper(strings.TrimSpace(r.Name))] = r
		if _, dup := c.byID[r.ID]; !dup {
			c.byID[r.ID] = r
		}
	}
	return c
}

func countiesFromRecords(records []feed.CountyRecord) *Counties {
	refs := make([]CountyRef, 0, len(records))
	for _, r := range records {
		refs = append(refs, CountyRef{ID: string(r.ID), Name: r.Name})
	}
	return NewCounties(refs)
}

func (c *Counties) All() []CountyRef {
	return append([]CountyRef(nil), c.list...)
}

// Resolve looks up each name exactly, ignoring case and surrounding
// space. Every unmatched name is reported in a single error.
func (c *Counties) Resolve(names []string) ([]CountyRef, error) {
	var (
		found    []CountyRef
		notFound []string
	)
	for _, name := range names {
		key := strings.ToUpper(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		ref, ok := c.byName[key]
		if !ok {
			notFound = append(notFound, contest.Title(key))
			continue
		}
		found = append(found, ref)
	}
	if len(notFound) > 0 {
		valid := make([]string, 0, len(c.list))
		for _, r := range c.list {
			valid = append(valid, contest.Title(r.Name))
		}
		return nil, &UnknownValuesError{Kind: ErrUnknownCounty, Values: notFound, Valid: sortedCopy(valid)}
	}
	return found, nil
}

// DisplayName returns the title-cased county name for id, or Statewide.
func (c *Counties) DisplayName(id string) string {
	if id == StatewideID {
		return Statewide
	}
	if ref, ok := c.byID[id]; ok {
		return contest.Title(ref.Name)
	}
	return Statewide
}

// ContestTypes is the office feed indexed by upper-case code.
type ContestTypes struct {
	list   []ContestTypeRef
	byCode map[string]ContestTypeRef
}

func NewContestTypes(refs []ContestTypeRef) *ContestTypes {
	t := &ContestTypes{byCode: make(map[string]ContestTypeRef, len(refs))}
	for _, r := range refs {
		r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
		t.list = append(t.list, r)
		t.byCode[r.Code] = r
	}
	return t
}

func contestTypesFromRecords(records []feed.OfficeRecord) *ContestTypes {
	refs := make([]ContestTypeRef, 0, len(records))
	for _, r := range records {
		refs = append(refs, ContestTypeRef{Code: r.Code, Label: contest.Title(r.Description)})
	}
	return NewContestTypes(refs)
}

func (t *ContestTypes) All() []ContestTypeRef {
	return append([]ContestTypeRef(nil), t.list...)
}

// Codes returns every known code, sorted.
func (t *ContestTypes) Codes() []string {
	codes := make([]string, 0, len(t.byCode))
	for code := range t.byCode {
		codes = append(codes, code)
	}
	return sortedCopy(codes)
}

// Resolve upper-cases and validates codes. Every invalid code is
// reported in a single error.
func (t *ContestTypes) Resolve(codes []string) ([]ContestTypeRef, error) {
	var (
		found   []ContestTypeRef
		invalid []string
	)
	for _, code := range codes {
		key := strings.ToUpper(strings.TrimSpace(code))
		if key == "" {
			continue
		}
		ref, ok := t.byCode[key]
		if !ok {
			invalid = append(invalid, key)
			continue
		}
		found = append(found, ref)
	}
	if len(invalid) > 0 {
		return nil, &UnknownValuesError{Kind: ErrUnknownContestType, Values: invalid, Valid: t.Codes()}
	}
	return found, nil
}

// Label returns the display label for code, or the code itself when unknown.
func (t *ContestTypes) Label(code string) string {
	if ref, ok := t.byCode[strings.ToUpper(code)]; ok && ref.Label != "" {
		return ref.Label
	}
	return code
}

// Data is the reference data for one election.
type Data struct {
	Election     string
	Counties     *Counties
	ContestTypes *ContestTypes
}
