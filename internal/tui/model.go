// Package tui provides the Bubble Tea reading-session tracker.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/pagepace/internal/clock"
	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
)

// SessionCustom is the session type of a timer with a user-chosen length.
const SessionCustom model.SessionType = "custom"

// SessionWriter opens and closes sessions in the store.
type SessionWriter interface {
	StartSession(ctx context.Context, documentID string, kind model.SessionType, startPage int, startedAt time.Time) (int64, error)
	CloseSession(ctx context.Context, id int64, endedAt time.Time, pagesRead, endPage int) error
}

// PaceSource returns the expected seconds per page of a document.
type PaceSource interface {
	TimePerPage(ctx context.Context, documentID string) float64
}

// Options configures a tracker run.
type Options struct {
	Document     model.Document
	Mode         model.SessionType
	Minutes      int
	Config       model.TrackerConfig
	TodayMinutes float64
	Pace         PaceSource
	Clock        clock.Clock
	Logger       *slog.Logger
}

// Summary describes a finished session.
type Summary struct {
	SessionID int64
	Mode      model.SessionType
	Minutes   float64
	PagesRead int
	StartPage int
	EndPage   int
	TimerDone bool
	Err       error
}

type tickMsg time.Time

type keyMap struct {
	Next key.Binding
	Prev key.Binding
	Help key.Binding
	Quit key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Next: key.NewBinding(key.WithKeys("right", "l", "j", "pgdown", " "), key.WithHelp("→/space", "next page")),
		Prev: key.NewBinding(key.WithKeys("left", "h", "k", "pgup"), key.WithHelp("←", "previous page")),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("ctrl+c", "q", "esc"), key.WithHelp("q", "finish")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.Quit, k.Help}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Prev}, {k.Help, k.Quit}}
}

// Model implements the Bubble Tea reading tracker.
type Model struct {
	store  SessionWriter
	pace   PaceSource
	clock  clock.Clock
	log    *slog.Logger
	config model.TrackerConfig
	keys   keyMap
	help   help.Model

	doc       model.Document
	mode      model.SessionType
	limit     time.Duration
	sessionID int64
	startedAt time.Time
	startPage int

	page          int
	pageEnteredAt time.Time
	dwell         map[int]time.Duration
	secPerPage    float64
	todayMinutes  float64

	width  int
	height int

	done    bool
	summary Summary
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F0F0F0"))
	pageStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	barStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3FA7D6"))
	trackStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#3A3A3A"))
	noticeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// NewModel constructs a tracker for one document.
func NewModel(st SessionWriter, opts Options) *Model {
	clk := opts.Clock
	if clk == nil {
		clk = clock.System{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mode := model.NormalizeSessionType(opts.Mode)
	m := &Model{
		store:        st,
		pace:         opts.Pace,
		clock:        clk,
		log:          logger.With("component", "tracker"),
		config:       opts.Config,
		keys:         defaultKeys(),
		help:         help.New(),
		doc:          opts.Document,
		mode:         mode,
		limit:        TimerLength(mode, opts.Minutes, opts.Config),
		page:         opts.Document.Page(),
		dwell:        map[int]time.Duration{},
		todayMinutes: opts.TodayMinutes,
	}
	m.startPage = m.page
	return m
}

// TimerLength returns the countdown of a mode, or 0 for an open-ended
// regular session.
func TimerLength(mode model.SessionType, minutes int, cfg model.TrackerConfig) time.Duration {
	switch mode {
	case model.SessionPomodoro:
		return time.Duration(cfg.PomodoroMinutes) * time.Minute
	case model.SessionSprint:
		return time.Duration(cfg.SprintMinutes) * time.Minute
	case SessionCustom:
		if minutes <= 0 {
			minutes = cfg.CustomMinutes
		}
		return time.Duration(minutes) * time.Minute
	default:
		return 0
	}
}

// Start opens the session in the store. It must be called before the
// program runs.
func (m *Model) Start(ctx context.Context) error {
	now := m.clock.Now()
	id, err := m.store.StartSession(ctx, m.doc.ID, m.mode, m.page, now)
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	m.sessionID = id
	m.startedAt = now
	m.pageEnteredAt = now
	if m.pace != nil && m.config.ShowEstimate {
		m.secPerPage = m.pace.TimePerPage(ctx, m.doc.ID)
	}
	m.log.Debug("session started", "session_id", id, "document_id", m.doc.ID, "mode", m.mode)
	return nil
}

// Summary returns the outcome after the program exits.
func (m *Model) Summary() Summary {
	return m.summary
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done {
		return m, tea.Quit
	}
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil
	case tickMsg:
		if m.limit > 0 && m.elapsed() >= m.limit {
			m.finish(true)
			return m, tea.Quit
		}
		return m, tick()
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.finish(false)
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			m.turnTo(m.page + 1)
		case key.Matches(msg, m.keys.Prev):
			m.turnTo(m.page - 1)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.done {
		return ""
	}
	lines := []string{
		titleStyle.Render(m.doc.Title),
		pageStyle.Render(m.pageLine()),
		m.timerLine(),
	}
	content := strings.Join(lines, "\n\n")
	footer := m.renderFooter()
	helpView := m.help.View(m.keys)
	if m.width == 0 || m.height == 0 {
		return content + "\n\n" + footer + "\n" + helpView
	}
	if m.height < 4 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	bottom := lipgloss.JoinVertical(lipgloss.Center, footer, helpView)
	bodyHeight := m.height - lipgloss.Height(bottom)
	body := lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center, content)
	return body + "\n" + lipgloss.PlaceHorizontal(m.width, lipgloss.Center, bottom)
}

func (m *Model) pageLine() string {
	if m.doc.TotalPages > 0 {
		return fmt.Sprintf("Page %d of %d", m.page, m.doc.TotalPages)
	}
	return fmt.Sprintf("Page %d", m.page)
}

func (m *Model) timerLine() string {
	elapsed := m.elapsed()
	if m.limit <= 0 {
		return fmt.Sprintf("%s  %s", m.mode, formatClock(elapsed))
	}
	remaining := max(0, m.limit-elapsed)
	ratio := float64(elapsed) / float64(m.limit)
	return fmt.Sprintf("%s  %s  %s left", m.mode, renderBar(ratio, 30), formatClock(remaining))
}

func (m *Model) renderFooter() string {
	segments := []string{fmt.Sprintf("%d pages read", m.pagesRead())}
	if m.secPerPage > 0 && m.doc.TotalPages > 0 {
		left := float64(max(0, m.doc.TotalPages-m.page)) * m.secPerPage / 60
		segments = append(segments, fmt.Sprintf("%s to finish", estimate.FormatMinutes(left)))
	}
	if m.config.DailyGoalMinutes > 0 {
		today := m.todayMinutes + m.elapsed().Minutes()
		segments = append(segments, fmt.Sprintf("Today %.0f/%d min", today, m.config.DailyGoalMinutes))
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func (m *Model) elapsed() time.Duration {
	if m.startedAt.IsZero() {
		return 0
	}
	return m.clock.Now().Sub(m.startedAt)
}

// turnTo records the dwell on the current page and moves to page.
func (m *Model) turnTo(page int) {
	if page < 1 || (m.doc.TotalPages > 0 && page > m.doc.TotalPages) {
		return
	}
	now := m.clock.Now()
	m.recordDwell(now)
	m.page = page
	m.pageEnteredAt = now
}

func (m *Model) recordDwell(now time.Time) {
	if m.pageEnteredAt.IsZero() {
		return
	}
	m.dwell[m.page] += now.Sub(m.pageEnteredAt)
	m.pageEnteredAt = now
}

// pagesRead counts distinct pages that were shown for at least the
// minimum dwell time.
func (m *Model) pagesRead() int {
	minDwell := time.Duration(m.config.MinDwellSeconds) * time.Second
	n := 0
	for _, d := range m.dwell {
		if d >= minDwell {
			n++
		}
	}
	return n
}

// DwellPages returns the pages with recorded dwell in ascending order.
func (m *Model) DwellPages() []int {
	pages := make([]int, 0, len(m.dwell))
	for p := range m.dwell {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}

// Finish closes the session if the program stopped before a quit key or
// the timer did, and returns the summary. Later calls are no-ops.
func (m *Model) Finish() Summary {
	m.finish(false)
	return m.summary
}

func (m *Model) finish(timerDone bool) {
	if m.done {
		return
	}
	m.done = true
	now := m.clock.Now()
	m.recordDwell(now)
	m.summary = Summary{
		SessionID: m.sessionID,
		Mode:      m.mode,
		Minutes:   now.Sub(m.startedAt).Minutes(),
		PagesRead: m.pagesRead(),
		StartPage: m.startPage,
		EndPage:   m.page,
		TimerDone: timerDone,
	}
	if m.sessionID == 0 {
		m.summary.Err = fmt.Errorf("session was not started")
		return
	}
	if err := m.store.CloseSession(context.Background(), m.sessionID, now, m.summary.PagesRead, m.page); err != nil {
		m.log.Warn("close session", "session_id", m.sessionID, "err", err)
		m.summary.Err = fmt.Errorf("close session: %w", err)
	}
}

func renderBar(ratio float64, width int) string {
	ratio = max(0, min(1, ratio))
	filled := int(ratio * float64(width))
	return barStyle.Render(strings.Repeat("█", filled)) + trackStyle.Render(strings.Repeat("░", width-filled))
}

func formatClock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	mnt := int(d%time.Hour) / int(time.Minute)
	s := int(d%time.Minute) / int(time.Second)
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, mnt, s)
	}
	return fmt.Sprintf("%02d:%02d", mnt, s)
}

// RenderSummary formats the result line printed after the tracker exits.
func RenderSummary(s Summary) string {
	if s.Err != nil {
		return noticeStyle.Render(s.Err.Error())
	}
	status := "Session saved"
	if s.TimerDone {
		status = "Timer finished, session saved"
	}
	return fmt.Sprintf("%s: %s, %d pages read, now on page %d", status, estimate.FormatMinutes(s.Minutes), s.PagesRead, s.EndPage)
}
