package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/pagepace/internal/model"
)

const sessionColumns = `id, document_id, started_at, ended_at, duration_min, pages_read, start_page, end_page, session_type`

// StartSession opens a reading session for a document and returns its ID.
// Open sessions are invisible to every read query until closed.
func (s *Store) StartSession(ctx context.Context, documentID string, kind model.SessionType, startPage int, startedAt time.Time) (int64, error) {
	if _, err := s.GetDocument(ctx, documentID); err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reading_sessions (document_id, started_at, start_page, end_page, session_type)
		 VALUES (?, ?, ?, ?, ?)`,
		documentID,
		formatTime(startedAt),
		startPage,
		startPage,
		string(model.NormalizeSessionType(kind)),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// CloseSession ends an open session, derives its duration and refreshes
// the document's progress and cumulative speed.
func (s *Store) CloseSession(ctx context.Context, id int64, endedAt time.Time, pagesRead, endPage int) (err error) {
	if pagesRead < 0 {
		return fmt.Errorf("negative pages read %d", pagesRead)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	var documentID, startedRaw string
	var endedRaw sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT document_id, started_at, ended_at FROM reading_sessions WHERE id = ?`, id).
		Scan(&documentID, &startedRaw, &endedRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("session %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if endedRaw.Valid {
		return fmt.Errorf("session %d: %w", id, model.ErrSessionClosed)
	}
	startedAt, err := parseTime(startedRaw)
	if err != nil {
		return err
	}
	duration := endedAt.Sub(startedAt).Minutes()
	if duration < 0 {
		duration = 0
	}
	if _, err = tx.ExecContext(ctx,
		`UPDATE reading_sessions SET ended_at = ?, duration_min = ?, pages_read = ?, end_page = ? WHERE id = ?`,
		formatTime(endedAt), duration, pagesRead, endPage, id); err != nil {
		return err
	}
	if err = refreshDocument(ctx, tx, documentID, endPage); err != nil {
		return err
	}
	return tx.Commit()
}

// InsertSession stores an already closed session, deriving the duration
// from the timestamps when it is not set.
func (s *Store) InsertSession(ctx context.Context, session model.ReadingSession) (id int64, err error) {
	if session.EndedAt == nil {
		return 0, errors.New("insert session: end time is required")
	}
	duration := session.EndedAt.Sub(session.StartedAt).Minutes()
	if session.DurationMin != nil {
		duration = *session.DurationMin
	}
	if duration < 0 || session.PagesRead < 0 {
		return 0, fmt.Errorf("insert session: negative duration %.2f or pages %d", duration, session.PagesRead)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			rollback(tx)
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reading_sessions (document_id, started_at, ended_at, duration_min, pages_read, start_page, end_page, session_type)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.DocumentID,
		formatTime(session.StartedAt),
		formatTime(*session.EndedAt),
		duration,
		session.PagesRead,
		session.StartPage,
		session.EndPage,
		string(model.NormalizeSessionType(session.Type)),
	)
	if err != nil {
		return 0, err
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}
	if err = refreshDocument(ctx, tx, session.DocumentID, session.EndPage); err != nil {
		return 0, err
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// SessionsForDocument returns closed sessions of a document, newest first.
// A limit <= 0 returns all of them.
func (s *Store) SessionsForDocument(ctx context.Context, documentID string, limit int) ([]model.ReadingSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		 WHERE document_id = ? AND ended_at IS NOT NULL
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`, documentID, sqlLimit(limit))
}

// SpeedSamples returns the most recent closed sessions with a duration and
// at least one page read. An empty documentID spans every document.
func (s *Store) SpeedSamples(ctx context.Context, documentID string, limit int) ([]model.ReadingSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		 WHERE (? = '' OR document_id = ?)
			AND ended_at IS NOT NULL
			AND duration_min IS NOT NULL
			AND pages_read > 0
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`, documentID, documentID, sqlLimit(limit))
}

// RecentSessions returns the most recent closed sessions across all documents.
func (s *Store) RecentSessions(ctx context.Context, limit int) ([]model.ReadingSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		 WHERE ended_at IS NOT NULL
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`, sqlLimit(limit))
}

// SessionsInRange returns closed sessions started in [start, end), oldest first.
func (s *Store) SessionsInRange(ctx context.Context, start, end time.Time) ([]model.ReadingSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		 WHERE started_at >= ? AND started_at < ? AND ended_at IS NOT NULL
		 ORDER BY started_at ASC, id ASC`, formatTime(start), formatTime(end))
}

// SessionsByType returns every closed session with the given type.
func (s *Store) SessionsByType(ctx context.Context, kind model.SessionType) ([]model.ReadingSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		 WHERE session_type = ? AND ended_at IS NOT NULL
		 ORDER BY started_at ASC, id ASC`, string(model.NormalizeSessionType(kind)))
}

// OpenSessions returns sessions that have not been closed yet.
func (s *Store) OpenSessions(ctx context.Context) ([]model.ReadingSession, error) {
	return s.querySessions(ctx,
		`SELECT `+sessionColumns+` FROM reading_sessions
		 WHERE ended_at IS NULL
		 ORDER BY started_at ASC, id ASC`)
}

// CountSessions counts closed sessions of a document.
func (s *Store) CountSessions(ctx context.Context, documentID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reading_sessions WHERE document_id = ? AND ended_at IS NOT NULL`,
		documentID).Scan(&n)
	return n, err
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]model.ReadingSession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows)

	var sessions []model.ReadingSession
	for rows.Next() {
		var session model.ReadingSession
		var startedAt, kind string
		var endedAt sql.NullString
		var duration sql.NullFloat64
		if err := rows.Scan(&session.ID, &session.DocumentID, &startedAt, &endedAt, &duration,
			&session.PagesRead, &session.StartPage, &session.EndPage, &kind); err != nil {
			return nil, err
		}
		parsed, err := parseTime(startedAt)
		if err != nil {
			return nil, err
		}
		session.StartedAt = parsed
		if endedAt.Valid {
			ended, err := parseTime(endedAt.String)
			if err != nil {
				return nil, err
			}
			session.EndedAt = &ended
		}
		if duration.Valid {
			d := duration.Float64
			session.DurationMin = &d
		}
		session.Type = model.SessionType(kind)
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// sqlLimit maps a non-positive limit to SQLite's "no limit".
func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
