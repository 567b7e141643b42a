package estimate

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/verte-zerg/pagepace/internal/model"
)

// ReasonDeadlinePassed is reported for deadlines that leave no full day.
const ReasonDeadlinePassed = "deadline in past or today"

// GoalEvaluator checks deadlines against the reader's historical pace.
type GoalEvaluator struct {
	predictor *Predictor
}

// NewGoalEvaluator builds a GoalEvaluator on top of a Predictor.
func NewGoalEvaluator(p *Predictor) *GoalEvaluator {
	return &GoalEvaluator{predictor: p}
}

// Evaluate decides whether the given documents (all documents when none are
// given) can be finished by target. Unknown document IDs are skipped.
func (g *GoalEvaluator) Evaluate(ctx context.Context, target time.Time, documentIDs []string) model.Result[model.FeasibilityResult] {
	p := g.predictor
	now := p.clock.Now()
	result := model.FeasibilityResult{
		TargetDate:    target,
		DocumentIDs:   documentIDs,
		DaysAvailable: DaysUntil(now, target),
	}
	if result.DaysAvailable <= 0 {
		result.Reason = ReasonDeadlinePassed
		result.Recommendation = "Pick a target date after today"
		return model.Ok(result)
	}

	docs, err := g.documents(ctx, documentIDs)
	if err != nil {
		p.log.Warn("load goal documents", "err", err)
		return model.Failed[model.FeasibilityResult](err)
	}
	daily, err := p.DailyAverageMinutes(ctx)
	if err != nil {
		p.log.Warn("load daily average", "err", err)
		return model.Failed[model.FeasibilityResult](err)
	}

	for _, doc := range docs {
		result.TotalMinutes += p.estimate(ctx, doc, daily).EstimatedMinutes
	}
	result.DailyAverage = daily
	result.RequiredDaily = result.TotalMinutes / float64(result.DaysAvailable)
	if daily > 0 {
		ratio := result.RequiredDaily / daily
		result.DifficultyRatio = &ratio
	}
	stretch := p.tuning.GoalStretchFactor
	result.Feasible = result.RequiredDaily <= daily*stretch
	if !result.Feasible {
		result.Reason = fmt.Sprintf("needs %s a day, above %.1fx the current average", FormatMinutes(result.RequiredDaily), stretch)
	}
	result.Recommendation = goalRecommendation(result.Feasible, result.RequiredDaily, daily)
	return model.Ok(result)
}

func (g *GoalEvaluator) documents(ctx context.Context, ids []string) ([]model.Document, error) {
	st := g.predictor.store
	if len(ids) == 0 {
		return st.AllDocuments(ctx)
	}
	docs := make([]model.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := st.GetDocument(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			g.predictor.log.Debug("goal document missing", "document_id", id)
			continue
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// DaysUntil counts whole days from now to target, rounding down. A target
// less than 24 hours away counts as zero.
func DaysUntil(now, target time.Time) int {
	return int(math.Floor(target.Sub(now).Hours() / 24))
}
