package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/pagepace/internal/config"
	"github.com/verte-zerg/pagepace/internal/export"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/stats"
	"github.com/verte-zerg/pagepace/internal/statsui"
)

var (
	reportDate      string
	reportWeekStart string
	reportDays      int
	reportColor     bool

	statsWeekStart string
	statsTrendDays int

	exportWeekStart string
	exportOut       string
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print reading reports",
	}

	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Reading of one day",
		Args:  cobra.NoArgs,
		RunE:  runReportDailyCmd,
	}
	dailyCmd.Flags().StringVar(&reportDate, "date", "", "day (YYYY-MM-DD, default: today)")

	weeklyCmd := &cobra.Command{
		Use:   "weekly",
		Short: "Reading of one week",
		Args:  cobra.NoArgs,
		RunE:  runReportWeeklyCmd,
	}
	weeklyCmd.Flags().StringVar(&reportWeekStart, "week-start", "", "first day (YYYY-MM-DD, default: this Monday)")

	trendsCmd := &cobra.Command{
		Use:   "trends",
		Short: "Daily reading trend with a chart",
		Args:  cobra.NoArgs,
		RunE:  runReportTrendsCmd,
	}
	trendsCmd.Flags().IntVar(&reportDays, "days", 0, "trend window in days (default: config trend-days)")
	trendsCmd.Flags().BoolVar(&reportColor, "color", false, "force colored chart output")

	cmd.AddCommand(dailyCmd)
	cmd.AddCommand(weeklyCmd)
	cmd.AddCommand(trendsCmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "streaks",
		Short: "Current and longest reading streaks",
		Args:  cobra.NoArgs,
		RunE:  runReportStreaksCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "modes",
		Short: "Compare timer modes",
		Args:  cobra.NoArgs,
		RunE:  runReportModesCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "patterns",
		Short: "Reading habits and speed trend",
		Args:  cobra.NoArgs,
		RunE:  runReportPatternsCmd,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "doc <id>",
		Short: "Lifetime analytics of one document",
		Args:  cobra.ExactArgs(1),
		RunE:  runReportDocCmd,
	})
	return cmd
}

// runReport opens the app and hands it to fn.
func runReport(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd.Context(), a)
}

func runReportDailyCmd(cmd *cobra.Command, _ []string) error {
	day, err := parseDateFlag("date", reportDate)
	if err != nil {
		return err
	}
	return runReport(cmd, func(ctx context.Context, a *app) error {
		return printResult(cmd, "this day", a.agg.DailyStats(ctx, day), stats.RenderDaily)
	})
}

func runReportWeeklyCmd(cmd *cobra.Command, _ []string) error {
	start, err := parseDateFlag("week-start", reportWeekStart)
	if err != nil {
		return err
	}
	return runReport(cmd, func(ctx context.Context, a *app) error {
		return printResult(cmd, "this week", a.agg.WeeklyStats(ctx, start), stats.RenderWeekly)
	})
}

func runReportTrendsCmd(cmd *cobra.Command, _ []string) error {
	if reportDays < 0 {
		return fmt.Errorf("--days must be > 0")
	}
	return runReport(cmd, func(ctx context.Context, a *app) error {
		days := reportDays
		if days == 0 {
			days = a.tuning.TrendDays
		}
		return printResult(cmd, "trends", a.agg.ReadingTrends(ctx, days), func(w io.Writer, r model.TrendReport) error {
			return stats.RenderTrends(w, r, 0, reportColor)
		})
	})
}

func runReportStreaksCmd(cmd *cobra.Command, _ []string) error {
	return runReport(cmd, func(ctx context.Context, a *app) error {
		return printResult(cmd, "streaks", a.agg.Streaks(ctx), stats.RenderStreaks)
	})
}

func runReportModesCmd(cmd *cobra.Command, _ []string) error {
	return runReport(cmd, func(ctx context.Context, a *app) error {
		return printResult(cmd, "timer modes", a.agg.TimerModeEffectiveness(ctx), stats.RenderModes)
	})
}

func runReportPatternsCmd(cmd *cobra.Command, _ []string) error {
	return runReport(cmd, func(ctx context.Context, a *app) error {
		return printResult(cmd, "reading patterns", a.patterns.Analyze(ctx), stats.RenderPatterns)
	})
}

func runReportDocCmd(cmd *cobra.Command, args []string) error {
	return runReport(cmd, func(ctx context.Context, a *app) error {
		id, err := a.store.ResolveDocumentID(ctx, args[0])
		if err != nil {
			return err
		}
		return printResult(cmd, "this document", a.agg.DocumentAnalytics(ctx, id), stats.RenderDocument)
	})
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Open the stats dashboard",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsWeekStart, "week-start", "", "first day of the week tab (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsTrendDays, "trend-days", 0, "trend window in days (default: config trend-days)")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	weekStart, err := parseDateFlag("week-start", statsWeekStart)
	if err != nil {
		return err
	}
	if statsTrendDays < 0 {
		return fmt.Errorf("--trend-days must be > 0")
	}
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	applyIntConfig(cmd, "trend-days", &statsTrendDays, a.cfg.Analytics.TrendDays)
	if statsTrendDays == 0 {
		statsTrendDays = a.tuning.TrendDays
	}
	load := func(ctx context.Context, cfg stats.DashboardConfig) (stats.Dashboard, error) {
		return stats.BuildDashboard(ctx, a.agg, a.predictor, a.patterns, cfg)
	}
	dashboard := statsui.NewModel(load, stats.DashboardConfig{WeekStart: weekStart, TrendDays: statsTrendDays})
	program := tea.NewProgram(dashboard, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write reports as Markdown notes",
	}
	weeklyCmd := &cobra.Command{
		Use:   "weekly",
		Short: "Write a weekly reading note",
		Args:  cobra.NoArgs,
		RunE:  runExportWeeklyCmd,
	}
	weeklyCmd.Flags().StringVar(&exportWeekStart, "week-start", "", "first day (YYYY-MM-DD, default: this Monday)")
	weeklyCmd.Flags().StringVar(&exportOut, "out", "", "output file, - for stdout (default: data dir reports/)")
	cmd.AddCommand(weeklyCmd)
	return cmd
}

func runExportWeeklyCmd(cmd *cobra.Command, _ []string) error {
	start, err := parseDateFlag("week-start", exportWeekStart)
	if err != nil {
		return err
	}
	return runReport(cmd, func(ctx context.Context, a *app) error {
		note, err := buildWeeklyNote(ctx, a, start)
		if err != nil {
			return err
		}
		if exportOut == "" {
			path, err := export.WriteWeekly(config.DefaultExportDir(), note)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return err
		}
		content, err := export.RenderWeekly(note)
		if err != nil {
			return err
		}
		if exportOut == "-" {
			_, err = io.WriteString(cmd.OutOrStdout(), content)
			return err
		}
		if err := os.WriteFile(exportOut, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", exportOut, err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", exportOut)
		return err
	})
}

func buildWeeklyNote(ctx context.Context, a *app, start time.Time) (export.Weekly, error) {
	week := a.agg.WeeklyStats(ctx, start)
	if week.Status == model.StatusFailed {
		return export.Weekly{}, fmt.Errorf("failed to compute this week: %w", week.Err)
	}
	docs := a.agg.AllDocumentAnalytics(ctx)
	if docs.Status == model.StatusFailed {
		return export.Weekly{}, fmt.Errorf("failed to compute documents: %w", docs.Err)
	}
	return export.Weekly{
		Week:      week.Value,
		Streaks:   a.agg.Streaks(ctx),
		Modes:     a.agg.TimerModeEffectiveness(ctx),
		Trend:     a.agg.ReadingTrends(ctx, a.tuning.TrendDays),
		Documents: docs.Value,
		Generated: a.clock.Now(),
	}, nil
}
