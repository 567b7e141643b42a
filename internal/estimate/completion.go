package estimate

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/verte-zerg/pagepace/internal/clock"
	"github.com/verte-zerg/pagepace/internal/model"
)

// Predictor forecasts how long documents will take to finish.
type Predictor struct {
	store  Store
	speed  *SpeedEstimator
	clock  clock.Clock
	tuning model.Tuning
	log    *slog.Logger
}

// NewPredictor builds a Predictor and its SpeedEstimator over the same store.
func NewPredictor(st Store, tuning model.Tuning, clk clock.Clock, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	if clk == nil {
		clk = clock.System{}
	}
	return &Predictor{
		store:  st,
		speed:  NewSpeedEstimator(st, tuning, logger),
		clock:  clk,
		tuning: tuning,
		log:    logger.With("component", "predictor"),
	}
}

// Speed exposes the underlying SpeedEstimator.
func (p *Predictor) Speed() *SpeedEstimator {
	return p.speed
}

// EstimateCompletion forecasts the remaining reading time of one document.
// A missing document yields an Empty result.
func (p *Predictor) EstimateCompletion(ctx context.Context, documentID string) model.Result[model.DerivedEstimate] {
	doc, err := p.store.GetDocument(ctx, documentID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Empty[model.DerivedEstimate]()
	}
	if err != nil {
		p.log.Warn("load document", "document_id", documentID, "err", err)
		return model.Failed[model.DerivedEstimate](err)
	}
	daily, err := p.DailyAverageMinutes(ctx)
	if err != nil {
		p.log.Warn("load daily average", "err", err)
		return model.Failed[model.DerivedEstimate](err)
	}
	return model.Ok(p.estimate(ctx, doc, daily))
}

// EstimateAll forecasts every document and sums the result.
func (p *Predictor) EstimateAll(ctx context.Context) model.Result[model.PortfolioEstimate] {
	docs, err := p.store.AllDocuments(ctx)
	if err != nil {
		p.log.Warn("load documents", "err", err)
		return model.Failed[model.PortfolioEstimate](err)
	}
	if len(docs) == 0 {
		return model.Empty[model.PortfolioEstimate]()
	}
	daily, err := p.DailyAverageMinutes(ctx)
	if err != nil {
		p.log.Warn("load daily average", "err", err)
		return model.Failed[model.PortfolioEstimate](err)
	}

	estimates := make([]model.DerivedEstimate, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	if p.tuning.PortfolioWorkers > 0 {
		g.SetLimit(p.tuning.PortfolioWorkers)
	}
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			estimates[i] = p.estimate(gctx, doc, daily)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.Failed[model.PortfolioEstimate](err)
	}

	sort.SliceStable(estimates, func(i, j int) bool {
		return estimates[i].EstimatedMinutes > estimates[j].EstimatedMinutes
	})

	portfolio := model.PortfolioEstimate{
		TotalDocuments: len(docs),
		DailyAverage:   daily,
		Documents:      estimates,
	}
	for _, est := range estimates {
		portfolio.TotalMinutes += est.EstimatedMinutes
		if est.RemainingPages == 0 {
			portfolio.CompletedDocuments++
		}
	}
	portfolio.RemainingDocuments = portfolio.TotalDocuments - portfolio.CompletedDocuments
	portfolio.CompletionPercent = float64(portfolio.CompletedDocuments) / float64(portfolio.TotalDocuments) * 100
	portfolio.Formatted = FormatMinutes(portfolio.TotalMinutes)
	if daily > 0 {
		days := portfolio.TotalMinutes / daily
		portfolio.DaysToComplete = &days
	}
	portfolio.Recommendation = portfolioRecommendation(portfolio.TotalMinutes, portfolio.DaysToComplete)
	return model.Ok(portfolio)
}

// DailyAverageMinutes is the mean session length over the configured
// lookback window, or the configured default when the window is empty.
func (p *Predictor) DailyAverageMinutes(ctx context.Context) (float64, error) {
	now := p.clock.Now()
	start := now.AddDate(0, 0, -p.tuning.DailyAverageDays)
	sessions, err := p.store.SessionsInRange(ctx, start, now)
	if err != nil {
		return 0, err
	}
	var total float64
	var n int
	for _, s := range sessions {
		if s.DurationMin == nil {
			continue
		}
		total += *s.DurationMin
		n++
	}
	if n == 0 {
		return p.tuning.DefaultDailyMinutes, nil
	}
	return total / float64(n), nil
}

// Confidence grades a document's estimate by how many sessions back it.
func (p *Predictor) Confidence(ctx context.Context, documentID string) model.Confidence {
	n, err := p.store.CountSessions(ctx, documentID)
	if err != nil {
		p.log.Warn("count sessions", "document_id", documentID, "err", err)
		return model.ConfidenceUnknown
	}
	return p.confidenceFor(n)
}

func (p *Predictor) confidenceFor(sessions int) model.Confidence {
	switch {
	case sessions >= p.tuning.HighConfidenceSessions:
		return model.ConfidenceHigh
	case sessions >= p.tuning.MedConfidenceSessions:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

func (p *Predictor) estimate(ctx context.Context, doc model.Document, daily float64) model.DerivedEstimate {
	current := doc.Page()
	remaining := doc.TotalPages - current
	if remaining < 0 {
		remaining = 0
	}
	var progress float64
	if doc.TotalPages > 0 {
		progress = float64(current) / float64(doc.TotalPages) * 100
	}
	perPage := p.speed.TimePerPage(ctx, doc.ID)
	minutes := float64(remaining) * perPage / 60

	est := model.DerivedEstimate{
		DocumentID:       doc.ID,
		Title:            doc.Title,
		TotalPages:       doc.TotalPages,
		CurrentPage:      current,
		RemainingPages:   remaining,
		ProgressPercent:  progress,
		SecondsPerPage:   perPage,
		EstimatedMinutes: minutes,
		Formatted:        FormatMinutes(minutes),
		DailyAverage:     daily,
		Confidence:       p.Confidence(ctx, doc.ID),
	}
	if daily > 0 {
		days := minutes / daily
		done := p.clock.Now().Add(time.Duration(days * 24 * float64(time.Hour)))
		est.DaysToComplete = &days
		est.CompletionDate = &done
	}
	est.Recommendation = documentRecommendation(minutes, est.DaysToComplete)
	return est
}
