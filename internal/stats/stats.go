// Package stats contains reading analytics and text reporting.
package stats

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/pagepace/internal/clock"
	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
)

const sparkChars = " .:-=+*#%@"

// Store is the read side of the session store used by the aggregator.
type Store interface {
	GetDocument(ctx context.Context, id string) (model.Document, error)
	AllDocuments(ctx context.Context) ([]model.Document, error)
	SessionsForDocument(ctx context.Context, documentID string, limit int) ([]model.ReadingSession, error)
	SessionsInRange(ctx context.Context, start, end time.Time) ([]model.ReadingSession, error)
	SessionsByType(ctx context.Context, kind model.SessionType) ([]model.ReadingSession, error)
}

// Aggregator computes daily, weekly, trend, document and mode statistics.
type Aggregator struct {
	store     Store
	predictor *estimate.Predictor
	clock     clock.Clock
	tuning    model.Tuning
	log       *slog.Logger
}

// NewAggregator builds an Aggregator. The predictor supplies completion
// estimates for document analytics.
func NewAggregator(st Store, predictor *estimate.Predictor, tuning model.Tuning, clk clock.Clock, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Aggregator{
		store:     st,
		predictor: predictor,
		clock:     clk,
		tuning:    tuning,
		log:       logger.With("component", "analytics"),
	}
}

// today returns local midnight of the current day.
func (a *Aggregator) today() time.Time {
	return clock.StartOfDay(a.clock.Now())
}

// localDay normalizes t to midnight in the aggregator's time zone.
func (a *Aggregator) localDay(t time.Time) time.Time {
	return clock.StartOfDay(t.In(a.clock.Now().Location()))
}

// ConsistencyScore rewards low relative variance: 100 minus the
// coefficient of variation (population standard deviation over mean) in
// percent, clamped to [0, 100]. Fewer than two values or a zero mean
// score 0.
func ConsistencyScore(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	if mean <= 0 {
		return 0
	}
	var variance float64
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	score := 100 - math.Sqrt(variance)/mean*100
	return math.Max(0, math.Min(100, score))
}

// Mean returns the arithmetic mean, or 0 for no values.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// PagesPerMinute returns pages/minutes, or 0 when no time was spent.
func PagesPerMinute(pages int, minutes float64) float64 {
	if minutes <= 0 {
		return 0
	}
	return float64(pages) / minutes
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		n := i + 1
		if i >= window {
			sum -= values[i-window]
			n = window
		}
		out[i] = sum / float64(n)
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal-minVal < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(last)))
		b.WriteByte(sparkChars[max(0, min(last, idx))])
	}
	return b.String()
}
