package reference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AriannaStory/CloseNCElections/internal/cache"
	"github.com/AriannaStory/CloseNCElections/internal/feed"
)

// LatestKey is the cache namespace of the elections index.
const LatestKey = "latest"

const (
	electionLayout = "20060102"
	feedDateLayout = "01/02/2006"
)

// Source serves cached upstream datasets; cache.Store and cache.Tracker implement it.
type Source interface {
	Fetch(ctx context.Context, electionKey, name, url string, force bool, v any) (time.Time, error)
}

type Loader struct {
	src       Source
	endpoints feed.Endpoints
	force     bool
	log       *zap.Logger
}

func NewLoader(src Source, endpoints feed.Endpoints, force bool, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{src: src, endpoints: endpoints, force: force, log: log}
}

// ParseElection validates an election identifier (YYYYMMDD).
func ParseElection(s string) (time.Time, error) {
	t, err := time.ParseInLocation(electionLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a YYYYMMDD date", ErrUnresolvedElection, s)
	}
	return t, nil
}

// ResolveElection returns explicit when set, otherwise the most recent
// election listed in the upstream elections index.
func (l *Loader) ResolveElection(ctx context.Context, explicit string) (string, error) {
	if explicit != "" {
		if _, err := ParseElection(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}

	var elections []feed.ElectionRecord
	if _, err := l.src.Fetch(ctx, LatestKey, feed.ElectionsFile, l.endpoints.Elections(), l.force, &elections); err != nil {
		return "", fmt.Errorf("loading elections index: %w", err)
	}
	if len(elections) == 0 {
		return "", ErrUnresolvedElection
	}

	d, err := time.Parse(feedDateLayout, elections[0].Date)
	if err != nil {
		return "", fmt.Errorf("%w: bad election date %q: %v", ErrUnresolvedElection, elections[0].Date, err)
	}
	election := d.Format(electionLayout)
	l.log.Debug("resolved latest election", zap.String("election", election))
	return election, nil
}

// Load fetches the county and office feeds for election. explicit
// reports whether the user named the election; a missing county feed
// then means there was no election on that date.
func (l *Loader) Load(ctx context.Context, election string, explicit bool) (*Data, error) {
	var counties []feed.CountyRecord
	if _, err := l.src.Fetch(ctx, election, feed.CountyFile, l.endpoints.Counties(election), l.force, &counties); err != nil {
		if explicit && errors.Is(err, cache.ErrFetch) {
			return nil, fmt.Errorf("%w on %s: %w", ErrUnresolvedElection, election, err)
		}
		return nil, fmt.Errorf("loading county data: %w", err)
	}

	var offices []feed.OfficeRecord
	if _, err := l.src.Fetch(ctx, election, feed.OfficeFile, l.endpoints.Offices(election), l.force, &offices); err != nil {
		return nil, fmt.Errorf("loading office data: %w", err)
	}

	l.log.Debug("loaded reference data",
		zap.String("election", election),
		zap.Int("counties", len(counties)),
		zap.Int("contest_types", len(offices)))

	return &Data{
		Election:     election,
		Counties:     countiesFromRecords(counties),
		ContestTypes: contestTypesFromRecords(offices),
	}, nil
}
