package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AriannaStory/CloseNCElections/internal/cache"
	"github.com/AriannaStory/CloseNCElections/internal/config"
	"github.com/AriannaStory/CloseNCElections/internal/ui"
)

const defaultPruneAge = 7 * 24 * time.Hour

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clean the local feed cache",
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove old feed files from the local cache",
	Long: `Delete cached feed files that have not been refreshed recently and
reclaim disk space. Election directories left empty are removed too.

Defaults to files older than 7d unless overridden with --older-than.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}

		age := defaultPruneAge
		if flagOlderThan != "" {
			d, err := parseAge(flagOlderThan)
			if err != nil {
				return fmt.Errorf("invalid --older-than value: %w", err)
			}
			age = d
		}

		deleted, err := store.Prune(age)
		if err != nil {
			return fmt.Errorf("pruning: %w", err)
		}

		out := cmd.OutOrStdout()
		if deleted == 0 {
			fmt.Fprintln(out, "Nothing to prune.")
		} else {
			fmt.Fprintf(out, "Pruned %d file(s) older than %s.\n", deleted, formatDuration(age))
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openCache()
		if err != nil {
			return err
		}

		st, err := store.Stats()
		if err != nil {
			return fmt.Errorf("reading stats: %w", err)
		}

		out := cmd.OutOrStdout()
		ui.Field(out, "Cache", store.Dir())
		ui.Field(out, "Elections", strconv.Itoa(st.Elections))
		ui.Field(out, "Files", strconv.Itoa(st.Files))
		ui.Field(out, "Size", formatBytes(st.Bytes))
		return nil
	},
}

// openCache opens the configured cache for maintenance; nothing is fetched.
func openCache() (*cache.Store, error) {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	store, err := cache.Open(cfg.CachePath(), cfg.RefreshDuration(), nil, cache.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	return store, nil
}

// parseAge accepts Go durations plus a whole-day "Nd" form.
func parseAge(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		return fmt.Sprintf("%dd", days)
	}
	if d >= time.Hour {
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return d.String()
}

func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
