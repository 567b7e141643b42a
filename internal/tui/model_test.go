package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/pagepace/internal/model"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time {
	return c.now
}

func (c *stepClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type closeCall struct {
	id        int64
	endedAt   time.Time
	pagesRead int
	endPage   int
}

type recordingStore struct {
	startKind model.SessionType
	startPage int
	closed    []closeCall
	closeErr  error
}

func (s *recordingStore) StartSession(_ context.Context, _ string, kind model.SessionType, startPage int, _ time.Time) (int64, error) {
	s.startKind = kind
	s.startPage = startPage
	return 7, nil
}

func (s *recordingStore) CloseSession(_ context.Context, id int64, endedAt time.Time, pagesRead, endPage int) error {
	s.closed = append(s.closed, closeCall{id: id, endedAt: endedAt, pagesRead: pagesRead, endPage: endPage})
	return s.closeErr
}

type fixedPace float64

func (p fixedPace) TimePerPage(context.Context, string) float64 {
	return float64(p)
}

func newTracker(t *testing.T, st *recordingStore, clk *stepClock, mode model.SessionType) *Model {
	t.Helper()
	m := NewModel(st, Options{
		Document: model.Document{ID: "doc", Title: "Notes", TotalPages: 3, CurrentPage: 1},
		Mode:     mode,
		Config:   model.DefaultTrackerConfig(),
		Pace:     fixedPace(90),
		Clock:    clk,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	return m
}

func press(m *Model, k tea.KeyType) tea.Cmd {
	_, cmd := m.Update(tea.KeyMsg{Type: k})
	return cmd
}

func TestTrackerCountsDwellPages(t *testing.T) {
	st := &recordingStore{}
	clk := &stepClock{now: time.Date(2026, 3, 16, 20, 0, 0, 0, time.UTC)}
	start := clk.now
	m := newTracker(t, st, clk, "")

	if st.startKind != model.SessionRegular || st.startPage != 1 {
		t.Fatalf("unexpected start: %+v", st)
	}
	if m.secPerPage != 90 {
		t.Fatalf("expected pace to be loaded, got %v", m.secPerPage)
	}

	clk.advance(5 * time.Second)
	press(m, tea.KeyRight)
	clk.advance(time.Second)
	press(m, tea.KeyRight)
	clk.advance(3 * time.Second)
	press(m, tea.KeyRight) // past the last page
	press(m, tea.KeyLeft)
	clk.advance(500 * time.Millisecond)
	if cmd := press(m, tea.KeyCtrlC); cmd == nil {
		t.Fatalf("expected quit command")
	}

	if len(st.closed) != 1 {
		t.Fatalf("expected one close, got %d", len(st.closed))
	}
	got := st.closed[0]
	if got.id != 7 || got.pagesRead != 2 || got.endPage != 2 {
		t.Fatalf("unexpected close: %+v", got)
	}
	if !got.endedAt.Equal(start.Add(9500 * time.Millisecond)) {
		t.Fatalf("unexpected end time %v", got.endedAt)
	}
	if pages := m.DwellPages(); len(pages) != 3 {
		t.Fatalf("expected dwell on three pages, got %v", pages)
	}
	s := m.Summary()
	if s.Err != nil || s.TimerDone || s.StartPage != 1 || s.EndPage != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	press(m, tea.KeyCtrlC)
	if len(st.closed) != 1 {
		t.Fatalf("expected the session to be closed once")
	}
}

func TestTrackerTimerExpires(t *testing.T) {
	st := &recordingStore{}
	clk := &stepClock{now: time.Date(2026, 3, 16, 20, 0, 0, 0, time.UTC)}
	m := newTracker(t, st, clk, model.SessionSprint)

	clk.advance(4 * time.Minute)
	m.Update(tickMsg(clk.now))
	if len(st.closed) != 0 {
		t.Fatalf("timer closed the session early")
	}
	clk.advance(time.Minute)
	m.Update(tickMsg(clk.now))
	if len(st.closed) != 1 || !m.Summary().TimerDone {
		t.Fatalf("expected the sprint to finish, got %+v", m.Summary())
	}
	if m.Summary().Minutes != 5 {
		t.Fatalf("expected 5 minutes, got %v", m.Summary().Minutes)
	}
}

func TestTrackerCloseError(t *testing.T) {
	st := &recordingStore{closeErr: errors.New("busy")}
	clk := &stepClock{now: time.Date(2026, 3, 16, 20, 0, 0, 0, time.UTC)}
	m := newTracker(t, st, clk, model.SessionPomodoro)
	press(m, tea.KeyCtrlC)
	if m.Summary().Err == nil {
		t.Fatalf("expected close error in summary")
	}
}

func TestTrackerFinishClosesUnfinishedSession(t *testing.T) {
	st := &recordingStore{}
	clk := &stepClock{now: time.Date(2026, 3, 16, 20, 0, 0, 0, time.UTC)}
	m := newTracker(t, st, clk, model.SessionPomodoro)

	clk.advance(3 * time.Second)
	press(m, tea.KeyRight)
	clk.advance(time.Minute)
	s := m.Finish()
	if len(st.closed) != 1 || st.closed[0].id != 7 || st.closed[0].endPage != 2 {
		t.Fatalf("expected the open session to be closed, got %+v", st.closed)
	}
	if s.Err != nil || s.TimerDone || s.PagesRead != 2 {
		t.Fatalf("unexpected summary: %+v", s)
	}

	if again := m.Finish(); again != s || len(st.closed) != 1 {
		t.Fatalf("expected a second finish to be a no-op, got %+v after %d closes", again, len(st.closed))
	}
	press(m, tea.KeyCtrlC)
	if len(st.closed) != 1 {
		t.Fatalf("expected quit after finish to skip the store")
	}
}

func TestTimerLength(t *testing.T) {
	cfg := model.DefaultTrackerConfig()
	cases := []struct {
		mode    model.SessionType
		minutes int
		want    time.Duration
	}{
		{model.SessionPomodoro, 0, 25 * time.Minute},
		{model.SessionSprint, 0, 5 * time.Minute},
		{SessionCustom, 45, 45 * time.Minute},
		{SessionCustom, 0, 60 * time.Minute},
		{model.SessionRegular, 30, 0},
	}
	for _, tc := range cases {
		if got := TimerLength(tc.mode, tc.minutes, cfg); got != tc.want {
			t.Fatalf("TimerLength(%s, %d) = %v, want %v", tc.mode, tc.minutes, got, tc.want)
		}
	}
}

func TestFormatClock(t *testing.T) {
	if got := formatClock(83 * time.Second); got != "01:23" {
		t.Fatalf("unexpected clock %q", got)
	}
	if got := formatClock(time.Hour + 2*time.Minute + 3*time.Second); got != "1:02:03" {
		t.Fatalf("unexpected clock %q", got)
	}
}
