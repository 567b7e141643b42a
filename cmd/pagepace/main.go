// Package main provides the CLI entrypoint for pagepace.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/pagepace/internal/clock"
	"github.com/verte-zerg/pagepace/internal/config"
	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/pattern"
	"github.com/verte-zerg/pagepace/internal/stats"
	"github.com/verte-zerg/pagepace/internal/store"
)

const dateFlagLayout = "2006-01-02"

var (
	dbPath     string
	configPath string
)

func main() {
	if err := config.LoadEnv(); err != nil {
		logErrf("failed to load .env: %v\n", err)
	}
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pagepace",
		Short:         "PDF reading tracker with pace estimates",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", config.DefaultDBPath(), "SQLite database path")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "TOML config path")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newDocCmd())
	rootCmd.AddCommand(newReadCmd())
	rootCmd.AddCommand(newSessionCmd())
	rootCmd.AddCommand(newEstimateCmd())
	rootCmd.AddCommand(newPredictCmd())
	rootCmd.AddCommand(newGoalCmd())
	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newExportCmd())

	return rootCmd
}

// app holds the store and the engine components built for one command.
type app struct {
	store     *store.Store
	cfg       config.FileConfig
	tuning    model.Tuning
	log       *slog.Logger
	clock     clock.Clock
	predictor *estimate.Predictor
	goals     *estimate.GoalEvaluator
	agg       *stats.Aggregator
	patterns  *pattern.Analyzer
}

func openApp(cmd *cobra.Command) (*app, error) {
	fileCfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	tuning, err := fileCfg.Tuning()
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger, err := newLogger(cmd.ErrOrStderr(), fileCfg.Log)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	path := dbPath
	if os.Getenv(config.EnvDB) == "" {
		applyStringConfig(cmd, "db", &path, fileCfg.DB)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	logger.Debug("db opened", "path", path)

	clk := clock.System{}
	predictor := estimate.NewPredictor(st, tuning, clk, logger)
	return &app{
		store:     st,
		cfg:       fileCfg,
		tuning:    tuning,
		log:       logger,
		clock:     clk,
		predictor: predictor,
		goals:     estimate.NewGoalEvaluator(predictor),
		agg:       stats.NewAggregator(st, predictor, tuning, clk, logger),
		patterns:  pattern.NewAnalyzer(st, tuning, clk, logger),
	}, nil
}

func (a *app) close() {
	if cerr := a.store.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

func newLogger(w io.Writer, cfg config.LogConfig) (*slog.Logger, error) {
	level := slog.LevelWarn
	if cfg.Level != nil {
		if err := level.UnmarshalText([]byte(*cfg.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", *cfg.Level, err)
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	format := "text"
	if cfg.Format != nil {
		format = strings.ToLower(strings.TrimSpace(*cfg.Format))
	}
	switch format {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("log format must be text or json, got %q", format)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := configPath
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// printResult renders an OK result, prints a notice for an empty one and
// turns a failed one into an error.
func printResult[T any](cmd *cobra.Command, what string, r model.Result[T], render func(io.Writer, T) error) error {
	switch r.Status {
	case model.StatusFailed:
		return fmt.Errorf("failed to compute %s: %w", what, r.Err)
	case model.StatusEmpty:
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "insufficient data for %s\n", what)
		return err
	}
	return render(cmd.OutOrStdout(), r.Value)
}

func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	parsed, err := time.ParseInLocation(dateFlagLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return parsed, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	t := model.DefaultTuning()
	tr := model.DefaultTrackerConfig()
	return fmt.Sprintf(`# pagepace configuration
# Uncomment a value to enable it. CLI flags override config values.

# db = %q

[estimation]
# document-sample = %d             # Recent sessions used for a document's pace
# global-sample = %d               # Recent sessions used for the global pace
# min-sample-pages = %d            # Pages needed before a sample is trusted
# default-seconds-per-page = %.1f  # Pace without any history
# daily-average-days = %d          # Window of the daily reading average
# default-daily-minutes = %.1f     # Daily average without any history
# stretch-factor = %.1f            # Allowed stretch over the average for goals
# high-confidence-sessions = %d    # Sessions needed for high confidence
# medium-confidence-sessions = %d  # Sessions needed for medium confidence
# workers = %d                     # Concurrent document estimates

[analytics]
# trend-days = %d                  # Default trend window
# trend-epsilon = %.1f             # Minutes/day change treated as stable
# pattern-window = %d              # Sessions analyzed for patterns
# recent-days = %d                 # Window of the recent speed
# history-days = %d                # Start of the historical speed window
# min-sessions = %d                # Sessions before consistency advice
# spread-ratio = %.1f              # Unique-day ratio that counts as clustered

[tracker]
# pomodoro = %d                    # Pomodoro length in minutes
# sprint = %d                      # Sprint length in minutes
# custom = %d                      # Default custom timer in minutes
# min-dwell = %d                   # Seconds on a page before it counts as read
# daily-goal = %d                  # Daily reading goal in minutes
# show-estimate = %t               # Show time to finish in the footer

[log]
# level = "warn"                   # debug, info, warn or error
# format = "text"                  # text or json
`,
		config.DefaultDBPath(),
		t.DocumentSampleSessions,
		t.GlobalSampleSessions,
		t.MinSamplePages,
		t.DefaultSecondsPerPage,
		t.DailyAverageDays,
		t.DefaultDailyMinutes,
		t.GoalStretchFactor,
		t.HighConfidenceSessions,
		t.MedConfidenceSessions,
		t.PortfolioWorkers,
		t.TrendDays,
		t.TrendEpsilon,
		t.PatternWindowSessions,
		t.PatternRecentDays,
		t.PatternHistoryDays,
		t.PatternMinSessions,
		t.PatternSpreadRatio,
		tr.PomodoroMinutes,
		tr.SprintMinutes,
		tr.CustomMinutes,
		tr.MinDwellSeconds,
		tr.DailyGoalMinutes,
		tr.ShowEstimate,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
