package stats

import (
	"context"
	"errors"
	"sort"

	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
)

// DocumentAnalytics summarizes the lifetime reading of one document.
func (a *Aggregator) DocumentAnalytics(ctx context.Context, documentID string) model.Result[model.DocStat] {
	doc, err := a.store.GetDocument(ctx, documentID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Empty[model.DocStat]()
	}
	if err != nil {
		a.log.Warn("load document", "document_id", documentID, "err", err)
		return model.Failed[model.DocStat](err)
	}
	sessions, err := a.store.SessionsForDocument(ctx, documentID, 0)
	if err != nil {
		a.log.Warn("load document sessions", "document_id", documentID, "err", err)
		return model.Failed[model.DocStat](err)
	}

	stat := FoldDocument(doc, sessions)
	if a.predictor != nil {
		res := a.predictor.EstimateCompletion(ctx, documentID)
		if res.Status == model.StatusFailed {
			return model.Failed[model.DocStat](res.Err)
		}
		stat.EstimatedMinutes = res.Value.EstimatedMinutes
		stat.Formatted = res.Value.Formatted
	}
	return model.Ok(stat)
}

// AllDocumentAnalytics summarizes every document.
func (a *Aggregator) AllDocumentAnalytics(ctx context.Context) model.Result[[]model.DocStat] {
	docs, err := a.store.AllDocuments(ctx)
	if err != nil {
		a.log.Warn("load documents", "err", err)
		return model.Failed[[]model.DocStat](err)
	}
	if len(docs) == 0 {
		return model.Empty[[]model.DocStat]()
	}
	out := make([]model.DocStat, 0, len(docs))
	for _, doc := range docs {
		res := a.DocumentAnalytics(ctx, doc.ID)
		if res.Status == model.StatusFailed {
			return model.Failed[[]model.DocStat](res.Err)
		}
		if res.OK() {
			out = append(out, res.Value)
		}
	}
	return model.Ok(out)
}

// FoldDocument computes lifetime totals from a document and its sessions
// in any order.
func FoldDocument(doc model.Document, sessions []model.ReadingSession) model.DocStat {
	current := doc.Page()
	stat := model.DocStat{
		DocumentID:   doc.ID,
		Title:        doc.Title,
		TotalPages:   doc.TotalPages,
		CurrentPage:  current,
		SessionCount: len(sessions),
	}
	if doc.TotalPages > 0 {
		stat.ProgressPercent = float64(current) / float64(doc.TotalPages) * 100
	}
	if doc.ReadingSpeed != nil {
		stat.ReadingSpeed = *doc.ReadingSpeed
	}
	for _, s := range sessions {
		stat.TotalMinutes += s.Minutes()
		stat.PagesRead += s.PagesRead
		started := s.StartedAt
		if stat.FirstSession == nil || started.Before(*stat.FirstSession) {
			stat.FirstSession = &started
		}
		if stat.LastSession == nil || started.After(*stat.LastSession) {
			stat.LastSession = &started
		}
	}
	if len(sessions) > 0 {
		stat.AvgSessionMinutes = stat.TotalMinutes / float64(len(sessions))
	}
	if stat.ReadingSpeed > 0 {
		stat.EstimatedMinutes = float64(max(0, doc.TotalPages-current)) / stat.ReadingSpeed
		stat.Formatted = estimate.FormatMinutes(stat.EstimatedMinutes)
	}
	return stat
}

// TopDocumentsByTime returns up to n documents with the most reading time.
func TopDocumentsByTime(docs []model.DocStat, n int) []model.DocStat {
	if n <= 0 || len(docs) == 0 {
		return nil
	}
	sorted := make([]model.DocStat, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].TotalMinutes == sorted[j].TotalMinutes {
			return sorted[i].Title < sorted[j].Title
		}
		return sorted[i].TotalMinutes > sorted[j].TotalMinutes
	})
	return sorted[:min(n, len(sorted))]
}
