// Package pipeline runs one report: reference data, result shards,
// aggregation and ranking, in that order.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AriannaStory/CloseNCElections/internal/cache"
	"github.com/AriannaStory/CloseNCElections/internal/contest"
	"github.com/AriannaStory/CloseNCElections/internal/feed"
	"github.com/AriannaStory/CloseNCElections/internal/rank"
	"github.com/AriannaStory/CloseNCElections/internal/reference"
	"github.com/AriannaStory/CloseNCElections/internal/report"
)

// Options are the user's selections for one run.
type Options struct {
	// Election is a YYYYMMDD date; empty selects the latest election.
	Election     string
	Counties     []string
	ContestTypes []string
	Rank         rank.Options
	// Refresh forces every dataset to be downloaded again.
	Refresh bool
}

// Report is everything a renderer needs.
type Report struct {
	Election      string
	ElectionDate  time.Time
	DataTimestamp time.Time
	Contests      []rank.Contest
	Summary       []rank.TypeCount
	Filters       []string
}

// Metadata adapts r for report.Render.
func (r *Report) Metadata(method rank.Method, debug bool) report.Metadata {
	return report.Metadata{
		Election:      r.ElectionDate,
		DataTimestamp: r.DataTimestamp,
		Filters:       r.Filters,
		Method:        method,
		Debug:         debug,
		Summary:       r.Summary,
	}
}

type Generator struct {
	store     *cache.Store
	endpoints feed.Endpoints
	log       *zap.Logger
}

func NewGenerator(store *cache.Store, endpoints feed.Endpoints, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{store: store, endpoints: endpoints, log: log}
}

// Generate fetches what the run needs and returns the ranked contests.
// Shards are fetched one jurisdiction at a time.
func (g *Generator) Generate(ctx context.Context, opts Options) (*Report, error) {
	if err := opts.Rank.Validate(); err != nil {
		return nil, err
	}

	tracker := g.store.Track()
	loader := reference.NewLoader(tracker, g.endpoints, opts.Refresh, g.log)

	election, err := loader.ResolveElection(ctx, opts.Election)
	if err != nil {
		return nil, err
	}
	electionDate, err := reference.ParseElection(election)
	if err != nil {
		return nil, err
	}

	data, err := loader.Load(ctx, election, opts.Election != "")
	if err != nil {
		return nil, err
	}

	counties, err := data.Counties.Resolve(opts.Counties)
	if err != nil {
		return nil, err
	}
	types, err := data.ContestTypes.Resolve(opts.ContestTypes)
	if err != nil {
		return nil, err
	}

	jurisdictions := []string{reference.StatewideID}
	if len(counties) > 0 {
		jurisdictions = jurisdictions[:0]
		for _, c := range counties {
			jurisdictions = append(jurisdictions, c.ID)
		}
	}

	codes := make([]string, 0, len(types))
	for _, t := range types {
		codes = append(codes, t.Code)
	}
	acc := contest.NewAccumulator(contest.NewTypeFilter(codes))

	for _, id := range jurisdictions {
		var records []feed.ResultRecord
		_, err := tracker.Fetch(ctx, election, feed.ResultsFile(id), g.endpoints.Results(election, id), opts.Refresh, &records)
		if err != nil {
			return nil, fmt.Errorf("loading results for %s: %w", data.Counties.DisplayName(id), err)
		}
		acc.Add(id, contest.FromRecords(records))
		g.log.Debug("merged results shard",
			zap.String("jurisdiction", id),
			zap.Int("records", len(records)),
			zap.Int("contests", acc.Len()))
	}

	contests := rank.Rank(acc.Groups(), opts.Rank, data.Counties)
	g.log.Info("ranked contests",
		zap.String("election", election),
		zap.Int("contests", acc.Len()),
		zap.Int("reported", len(contests)))

	return &Report{
		Election:      election,
		ElectionDate:  electionDate,
		DataTimestamp: tracker.DataTimestamp(),
		Contests:      contests,
		Summary:       rank.Summarize(contests, data.ContestTypes),
		Filters:       report.DescribeFilters(filterSet(counties, types, opts.Rank)),
	}, nil
}

func filterSet(counties []reference.CountyRef, types []reference.ContestTypeRef, opts rank.Options) report.FilterSet {
	fs := report.FilterSet{
		Margin: opts.Margin,
		Method: opts.Method,
		Limit:  opts.Limit,
	}
	for _, c := range counties {
		fs.Counties = append(fs.Counties, contest.Title(c.Name))
	}
	for _, t := range types {
		fs.ContestTypes = append(fs.ContestTypes, t.Label)
	}
	return fs
}
