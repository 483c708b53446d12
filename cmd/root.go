package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/AriannaStory/CloseNCElections/internal/ui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagDebug     bool
	flagConfig    string
	flagOlderThan string
	reportOpts    reportFlags

	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "closencelections",
	Short: "Report the closest contests in an election",
	Long: `closencelections downloads the county result feeds published by the
state board of elections, computes the margin between the top two
candidates of every contest and writes the closest contests to an HTML
or CSV report.

Downloaded feeds are cached for the configured refresh interval
(default 1h); use --update to fetch fresh data regardless.`,
	Example: `  closencelections -c Wake -c Durham --margin 5
  closencelections -e 20241105 --contests FED --format csv -o close
  closencelections --method votes --margin 100 --limit 0`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		config.Encoding = "console"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if flagDebug {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
	RunE: runReport,
}

func init() {
	reportOpts.register(rootCmd.Flags())
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "verbose logging and raw feed data in HTML reports")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file")

	pruneCmd.Flags().StringVar(&flagOlderThan, "older-than", "", "delete files not refreshed within this age (e.g., 30d, 720h; default 7d)")

	cacheCmd.AddCommand(statsCmd)
	cacheCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "closencelections %s (commit: %s, built: %s)\n", version, commit, date)
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Error("Error:"), err)
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
