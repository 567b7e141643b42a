// Package estimate turns reading sessions into speed figures, completion
// forecasts and goal feasibility checks.
package estimate

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/verte-zerg/pagepace/internal/model"
)

// Store is the read side of the session store used by the estimators.
type Store interface {
	GetDocument(ctx context.Context, id string) (model.Document, error)
	AllDocuments(ctx context.Context) ([]model.Document, error)
	// SpeedSamples returns recent closed sessions with pages read; an
	// empty documentID spans all documents.
	SpeedSamples(ctx context.Context, documentID string, limit int) ([]model.ReadingSession, error)
	CountSessions(ctx context.Context, documentID string) (int, error)
	SessionsInRange(ctx context.Context, start, end time.Time) ([]model.ReadingSession, error)
}

// SpeedEstimator derives seconds-per-page figures.
type SpeedEstimator struct {
	store  Store
	tuning model.Tuning
	log    *slog.Logger
}

// NewSpeedEstimator builds a SpeedEstimator. A nil logger uses slog.Default.
func NewSpeedEstimator(st Store, tuning model.Tuning, logger *slog.Logger) *SpeedEstimator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpeedEstimator{store: st, tuning: tuning, log: logger.With("component", "speed")}
}

// TimePerPage returns seconds per page for a document. It falls back to
// the global figure when the document has too few pages on record, and
// never fails.
func (e *SpeedEstimator) TimePerPage(ctx context.Context, documentID string) float64 {
	samples, err := e.store.SpeedSamples(ctx, documentID, e.tuning.DocumentSampleSessions)
	if err != nil {
		e.log.Warn("load document speed samples", "document_id", documentID, "err", err)
	} else if rate, ok := e.rate(samples); ok {
		return rate
	}
	return e.GlobalTimePerPage(ctx)
}

// GlobalTimePerPage returns seconds per page across all documents, or the
// configured default when there is not enough data.
func (e *SpeedEstimator) GlobalTimePerPage(ctx context.Context) float64 {
	samples, err := e.store.SpeedSamples(ctx, "", e.tuning.GlobalSampleSessions)
	if err != nil {
		e.log.Warn("load global speed samples", "err", err)
		return e.fallback()
	}
	if rate, ok := e.rate(samples); ok {
		return rate
	}
	return e.fallback()
}

func (e *SpeedEstimator) rate(samples []model.ReadingSession) (float64, bool) {
	seconds, pages := FoldSpeed(samples)
	if pages == 0 || pages < e.tuning.MinSamplePages {
		return 0, false
	}
	rate := seconds / float64(pages)
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, false
	}
	return rate, true
}

func (e *SpeedEstimator) fallback() float64 {
	if e.tuning.DefaultSecondsPerPage > 0 {
		return e.tuning.DefaultSecondsPerPage
	}
	return model.DefaultTuning().DefaultSecondsPerPage
}

// FoldSpeed sums dwell seconds and pages over sessions that read at least
// one page and have a duration.
func FoldSpeed(sessions []model.ReadingSession) (seconds float64, pages int) {
	for _, s := range sessions {
		if s.DurationMin == nil || s.PagesRead <= 0 {
			continue
		}
		seconds += *s.DurationMin * 60
		pages += s.PagesRead
	}
	return seconds, pages
}
