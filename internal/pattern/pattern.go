// Package pattern inspects recent sessions for reading habits.
package pattern

import (
	"context"
	"log/slog"
	"time"

	"github.com/verte-zerg/pagepace/internal/clock"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/stats"
)

// Store is the read side of the session store used by the analyzer.
type Store interface {
	RecentSessions(ctx context.Context, limit int) ([]model.ReadingSession, error)
	SessionsInRange(ctx context.Context, start, end time.Time) ([]model.ReadingSession, error)
}

const (
	recMoreData  = "Build more reading data for better predictions"
	recSpreadOut = "Try spreading reading across more days for better retention"
)

// Analyzer derives a PatternReport from the newest sessions.
type Analyzer struct {
	store  Store
	clock  clock.Clock
	tuning model.Tuning
	log    *slog.Logger
}

// NewAnalyzer builds an Analyzer.
func NewAnalyzer(st Store, tuning model.Tuning, clk clock.Clock, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Analyzer{
		store:  st,
		clock:  clk,
		tuning: tuning,
		log:    logger.With("component", "patterns"),
	}
}

// Analyze reports session length, peak hour, speed trend and day spread
// over the most recent sessions. It is Empty when nothing was recorded.
func (a *Analyzer) Analyze(ctx context.Context) model.Result[model.PatternReport] {
	sessions, err := a.store.RecentSessions(ctx, a.tuning.PatternWindowSessions)
	if err != nil {
		a.log.Warn("load recent sessions", "err", err)
		return model.Failed[model.PatternReport](err)
	}
	if len(sessions) == 0 {
		return model.Empty[model.PatternReport]()
	}

	now := a.clock.Now()
	recentFrom := now.AddDate(0, 0, -a.tuning.PatternRecentDays)
	historyFrom := now.AddDate(0, 0, -a.tuning.PatternHistoryDays)
	recent, err := a.speedBetween(ctx, recentFrom, now)
	if err != nil {
		return model.Failed[model.PatternReport](err)
	}
	historical, err := a.speedBetween(ctx, historyFrom, recentFrom)
	if err != nil {
		return model.Failed[model.PatternReport](err)
	}

	report := Fold(sessions, now.Location())
	report.RecentSpeed = recent
	report.HistoricalSpeed = historical
	report.SpeedTrend = model.TrendDeclining
	if recent > historical {
		report.SpeedTrend = model.TrendImproving
	}
	report.Recommendations = a.recommendations(report)
	return model.Ok(report)
}

// Fold computes the per-session parts of a report. Hours and days are
// taken in loc.
func Fold(sessions []model.ReadingSession, loc *time.Location) model.PatternReport {
	report := model.PatternReport{SessionsAnalyzed: len(sessions)}
	var lengths, pages []float64
	hourCounts := map[int]int{}
	var hourOrder []int
	days := map[string]struct{}{}
	for _, s := range sessions {
		if m := s.Minutes(); m > 0 {
			lengths = append(lengths, m)
		}
		if s.PagesRead > 0 {
			pages = append(pages, float64(s.PagesRead))
		}
		started := s.StartedAt.In(loc)
		hour := started.Hour()
		if hourCounts[hour] == 0 {
			hourOrder = append(hourOrder, hour)
		}
		hourCounts[hour]++
		days[started.Format(time.DateOnly)] = struct{}{}
	}
	report.AvgSessionMinutes = stats.Mean(lengths)
	report.AvgPagesPerSession = stats.Mean(pages)
	report.ConsistencyScore = stats.ConsistencyScore(lengths)
	report.UniqueDays = len(days)

	if len(hourOrder) > 0 {
		best := hourOrder[0]
		for _, h := range hourOrder[1:] {
			if hourCounts[h] > hourCounts[best] {
				best = h
			}
		}
		report.MostProductiveHour = &best
	}
	return report
}

func (a *Analyzer) speedBetween(ctx context.Context, start, end time.Time) (float64, error) {
	sessions, err := a.store.SessionsInRange(ctx, start, end)
	if err != nil {
		a.log.Warn("load speed window", "start", start, "end", end, "err", err)
		return 0, err
	}
	var minutes float64
	var pages int
	for _, s := range sessions {
		minutes += s.Minutes()
		pages += s.PagesRead
	}
	return stats.PagesPerMinute(pages, minutes), nil
}

func (a *Analyzer) recommendations(r model.PatternReport) []string {
	var recs []string
	if r.SessionsAnalyzed < a.tuning.PatternMinSessions {
		recs = append(recs, recMoreData)
	}
	if float64(r.UniqueDays) < float64(r.SessionsAnalyzed)*a.tuning.PatternSpreadRatio {
		recs = append(recs, recSpreadOut)
	}
	return recs
}
