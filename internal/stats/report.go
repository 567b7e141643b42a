package stats

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
)

// PatternSource produces a reading-pattern report.
type PatternSource interface {
	Analyze(ctx context.Context) model.Result[model.PatternReport]
}

// DashboardConfig selects the windows shown on the dashboard.
type DashboardConfig struct {
	WeekStart time.Time
	TrendDays int
}

// Dashboard contains every report shown by the stats views.
type Dashboard struct {
	Today     model.Result[model.DailyStat]
	Week      model.Result[model.WeeklyStat]
	Trends    model.Result[model.TrendReport]
	Streaks   model.Result[model.StreakReport]
	Modes     model.Result[model.ModeComparison]
	Documents model.Result[[]model.DocStat]
	Portfolio model.Result[model.PortfolioEstimate]
	Patterns  model.Result[model.PatternReport]
}

// BuildDashboard runs the independent read-only reports concurrently. The
// returned error is the first store failure; the dashboard still holds every
// report that succeeded.
func BuildDashboard(ctx context.Context, agg *Aggregator, predictor *estimate.Predictor, patterns PatternSource, cfg DashboardConfig) (Dashboard, error) {
	var d Dashboard
	var g errgroup.Group
	g.Go(func() error {
		d.Today = agg.DailyStats(ctx, time.Time{})
		return d.Today.Err
	})
	g.Go(func() error {
		d.Week = agg.WeeklyStats(ctx, cfg.WeekStart)
		return d.Week.Err
	})
	g.Go(func() error {
		d.Trends = agg.ReadingTrends(ctx, cfg.TrendDays)
		return d.Trends.Err
	})
	g.Go(func() error {
		d.Streaks = agg.Streaks(ctx)
		return d.Streaks.Err
	})
	g.Go(func() error {
		d.Modes = agg.TimerModeEffectiveness(ctx)
		return d.Modes.Err
	})
	g.Go(func() error {
		d.Documents = agg.AllDocumentAnalytics(ctx)
		return d.Documents.Err
	})
	if predictor != nil {
		g.Go(func() error {
			d.Portfolio = predictor.EstimateAll(ctx)
			return d.Portfolio.Err
		})
	}
	if patterns != nil {
		g.Go(func() error {
			d.Patterns = patterns.Analyze(ctx)
			return d.Patterns.Err
		})
	}
	err := g.Wait()
	return d, err
}
