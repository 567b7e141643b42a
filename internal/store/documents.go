package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/verte-zerg/pagepace/internal/model"
)

const documentColumns = `id, title, path, total_pages, current_page, reading_speed, total_minutes, created_at, updated_at`

// AddDocument stores a new document. An empty ID is filled with a UUID and
// an unset current page starts at 1.
func (s *Store) AddDocument(ctx context.Context, doc model.Document) (model.Document, error) {
	if doc.TotalPages < 0 {
		return model.Document{}, fmt.Errorf("total pages %d: %w", doc.TotalPages, model.ErrInvalidPage)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CurrentPage < 1 {
		doc.CurrentPage = 1
	}
	if doc.TotalPages > 0 && doc.CurrentPage > doc.TotalPages {
		return model.Document{}, fmt.Errorf("page %d of %d: %w", doc.CurrentPage, doc.TotalPages, model.ErrInvalidPage)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = nowUTC()
	}
	doc.UpdatedAt = doc.CreatedAt

	var speed any
	if doc.ReadingSpeed != nil {
		speed = *doc.ReadingSpeed
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, path, total_pages, current_page, reading_speed, total_minutes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID,
		doc.Title,
		doc.Path,
		doc.TotalPages,
		doc.CurrentPage,
		speed,
		doc.TotalMinutes,
		formatTime(doc.CreatedAt),
		formatTime(doc.UpdatedAt),
	)
	if err != nil {
		return model.Document{}, err
	}
	return doc, nil
}

// GetDocument loads one document or returns model.ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (model.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Document{}, fmt.Errorf("document %s: %w", id, model.ErrNotFound)
	}
	return doc, err
}

// AllDocuments lists every document, oldest first.
func (s *Store) AllDocuments(ctx context.Context) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var docs []model.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

// ResolveDocumentID expands a unique ID prefix to the full document ID.
func (s *Store) ResolveDocumentID(ctx context.Context, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return "", fmt.Errorf("empty document id: %w", model.ErrNotFound)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM documents WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`, prefix, prefix+"%")
	if err != nil {
		return "", err
	}
	defer closeRows(rows)

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", err
		}
		if id == prefix {
			return id, nil
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	switch len(ids) {
	case 0:
		return "", fmt.Errorf("document %s: %w", prefix, model.ErrNotFound)
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("document id %q is ambiguous", prefix)
	}
}

// UpdateProgress moves the current page of a document.
func (s *Store) UpdateProgress(ctx context.Context, id string, page int) error {
	doc, err := s.GetDocument(ctx, id)
	if err != nil {
		return err
	}
	if page < 1 || (doc.TotalPages > 0 && page > doc.TotalPages) {
		return fmt.Errorf("page %d of %d: %w", page, doc.TotalPages, model.ErrInvalidPage)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE documents SET current_page = ?, updated_at = ? WHERE id = ?`,
		page, formatTime(nowUTC()), id)
	return err
}

// DeleteDocument removes a document with all of its sessions.
func (s *Store) DeleteDocument(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, model.ErrNotFound)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM reading_sessions WHERE document_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// refreshDocument recomputes the cumulative reading fields of a document
// from its closed sessions and optionally moves its current page.
func refreshDocument(ctx context.Context, tx *sql.Tx, id string, endPage int) error {
	var minutes float64
	var pages int
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_min), 0), COALESCE(SUM(pages_read), 0)
		 FROM reading_sessions
		 WHERE document_id = ? AND ended_at IS NOT NULL`, id).Scan(&minutes, &pages)
	if err != nil {
		return err
	}
	var speed any
	if minutes > 0 {
		speed = float64(pages) / minutes
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE documents SET
			total_minutes = ?,
			reading_speed = ?,
			current_page = CASE
				WHEN ? < 1 THEN current_page
				WHEN total_pages > 0 AND ? > total_pages THEN total_pages
				ELSE ?
			END,
			updated_at = ?
		 WHERE id = ?`,
		minutes, speed, endPage, endPage, endPage, formatTime(nowUTC()), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, model.ErrNotFound)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (model.Document, error) {
	var doc model.Document
	var speed sql.NullFloat64
	var createdAt, updatedAt string
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Path, &doc.TotalPages, &doc.CurrentPage, &speed, &doc.TotalMinutes, &createdAt, &updatedAt); err != nil {
		return model.Document{}, err
	}
	if speed.Valid {
		v := speed.Float64
		doc.ReadingSpeed = &v
	}
	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Document{}, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}
