package cmd

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/AriannaStory/CloseNCElections/internal/cache"
	"github.com/AriannaStory/CloseNCElections/internal/config"
	"github.com/AriannaStory/CloseNCElections/internal/feed"
	"github.com/AriannaStory/CloseNCElections/internal/pipeline"
	"github.com/AriannaStory/CloseNCElections/internal/rank"
	"github.com/AriannaStory/CloseNCElections/internal/report"
	"github.com/AriannaStory/CloseNCElections/internal/ui"
)

const timestampLayout = "2006-01-02 15:04:05"

// reportFlags are the root command's report selections as typed.
type reportFlags struct {
	output   string
	election string
	contests []string
	counties []string
	margin   float64
	method   string
	limit    int
	format   string
	update   bool
}

func (rf *reportFlags) register(f *pflag.FlagSet) {
	f.StringVarP(&rf.output, "output", "o", "", "output file name; the format's extension is appended when missing (default from config: results)")
	f.StringVarP(&rf.election, "election", "e", "", "election date as YYYYMMDD (default: most recent election)")
	f.StringSliceVar(&rf.contests, "contests", nil, "only include these contest type codes (e.g. FED,CTY)")
	f.StringSliceVarP(&rf.counties, "counties", "c", nil, "only include these counties (default: statewide results)")
	f.Float64Var(&rf.margin, "margin", 0, "only include contests whose margin is at most this (percentage points, or votes with --method votes)")
	f.StringVar(&rf.method, "method", "", "margin used to rank contests: percentage or votes (default from config: percentage)")
	f.IntVarP(&rf.limit, "limit", "l", 100, "maximum number of contests to report; 0 for no limit")
	f.StringVar(&rf.format, "format", "", "report format: html or csv (default from config: html)")
	f.BoolVar(&rf.update, "update", false, "force a fresh download of every feed")
}

type reportSettings struct {
	output string
	format report.Format
	run    pipeline.Options
}

// settings merges the flags with the config defaults. Flags the user did
// not set fall back to cfg; the margin filter is only active when given.
func (rf *reportFlags) settings(f *pflag.FlagSet, cfg *config.Config) (reportSettings, error) {
	formatName := cfg.Defaults.Format
	if f.Changed("format") {
		formatName = rf.format
	}
	format, err := report.ParseFormat(formatName)
	if err != nil {
		return reportSettings{}, err
	}

	methodName := cfg.Defaults.Method
	if f.Changed("method") {
		methodName = rf.method
	}
	method, err := rank.ParseMethod(methodName)
	if err != nil {
		return reportSettings{}, err
	}

	limit := cfg.Defaults.Limit
	if f.Changed("limit") {
		limit = rf.limit
	}

	var margin *float64
	if f.Changed("margin") {
		m := rf.margin
		margin = &m
	}

	output := cfg.Defaults.Output
	if f.Changed("output") {
		output = rf.output
	}
	if output == "" {
		return reportSettings{}, fmt.Errorf("output file name is empty")
	}

	return reportSettings{
		output: report.EnsureExtension(output, format),
		format: format,
		run: pipeline.Options{
			Election:     rf.election,
			Counties:     rf.counties,
			ContestTypes: rf.contests,
			Rank: rank.Options{
				Margin: margin,
				Method: method,
				Limit:  limit,
			},
			Refresh: rf.update,
		},
	}, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := reportOpts.settings(cmd.Flags(), cfg)
	if err != nil {
		return err
	}

	fetcher := feed.NewHTTPFetcher(feed.Options{
		Timeout:           cfg.RequestTimeoutDuration(),
		RequestsPerSecond: cfg.RequestsPerSecond,
		UserAgent:         cfg.UserAgent,
		Logger:            logger,
	})
	store, err := cache.Open(cfg.CachePath(), cfg.RefreshDuration(), fetcher, cache.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("opening cache: %w", err)
	}

	gen := pipeline.NewGenerator(store, feed.Endpoints{BaseURL: cfg.BaseURL}, logger)
	rep, err := gen.Generate(cmd.Context(), s.run)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ui.Field(out, "Using data that was last updated on", rep.DataTimestamp.Format(timestampLayout))
	if len(rep.Contests) == 0 {
		fmt.Fprintln(out, ui.Warn("No contests matched the given filters."))
	}

	var buf bytes.Buffer
	if err := report.Render(&buf, rep.Contests, rep.Metadata(s.run.Rank.Method, flagDebug), s.format); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if err := report.WriteFile(s.output, buf.Bytes()); err != nil {
		return err
	}
	logger.Debug("report written",
		zap.String("path", s.output),
		zap.Int("bytes", buf.Len()),
		zap.Int("contests", len(rep.Contests)))

	fmt.Fprintf(out, "%s %s\n", ui.Success(strings.ToUpper(string(s.format))+" report generated:"), s.output)
	return nil
}
