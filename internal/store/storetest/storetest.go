// Package storetest provides SQLite fixtures for tests.
package storetest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/store"
)

// Open creates a fresh store in a temporary directory.
func Open(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "pagepace.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})
	return st
}

// AddDocument stores a document with the given page counts.
func AddDocument(t *testing.T, st *store.Store, title string, total, current int) model.Document {
	t.Helper()
	doc, err := st.AddDocument(context.Background(), model.Document{
		Title:       title,
		Path:        title + ".pdf",
		TotalPages:  total,
		CurrentPage: current,
	})
	if err != nil {
		t.Fatalf("add document: %v", err)
	}
	return doc
}

// AddSession stores a closed session that started at start and lasted minutes.
// The document's current page is left unchanged.
func AddSession(t *testing.T, st *store.Store, documentID string, start time.Time, minutes float64, pages int, kind model.SessionType) int64 {
	t.Helper()
	end := start.Add(time.Duration(minutes * float64(time.Minute)))
	id, err := st.InsertSession(context.Background(), model.ReadingSession{
		DocumentID:  documentID,
		StartedAt:   start,
		EndedAt:     &end,
		DurationMin: &minutes,
		PagesRead:   pages,
		Type:        kind,
	})
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	return id
}
