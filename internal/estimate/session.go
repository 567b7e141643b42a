package estimate

import (
	"context"
	"errors"

	"github.com/verte-zerg/pagepace/internal/model"
)

const sessionSpread = 0.2

// PredictSession forecasts how long the next pages of a document will take
// to read, with a timer mode and break advice.
func (p *Predictor) PredictSession(ctx context.Context, documentID string, pages int) model.Result[model.SessionPrediction] {
	if pages <= 0 {
		return model.Empty[model.SessionPrediction]()
	}
	if _, err := p.store.GetDocument(ctx, documentID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Empty[model.SessionPrediction]()
		}
		p.log.Warn("load document", "document_id", documentID, "err", err)
		return model.Failed[model.SessionPrediction](err)
	}

	perPage := p.speed.TimePerPage(ctx, documentID)
	minutes := float64(pages) * perPage / 60
	return model.Ok(model.SessionPrediction{
		DocumentID:     documentID,
		TargetPages:    pages,
		SecondsPerPage: perPage,
		Minutes:        minutes,
		MinMinutes:     minutes * (1 - sessionSpread),
		MaxMinutes:     minutes * (1 + sessionSpread),
		Formatted:      FormatMinutes(minutes),
		TimerMode:      timerMode(minutes),
		Breaks:         breakAdvice(minutes),
	})
}
