// Package statsui provides the Bubble Tea reading dashboard.
package statsui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/stats"
)

const (
	tabWeek = iota
	tabTrends
	tabDocuments
	tabModes
	tabPatterns
)

const (
	trendDaysStep  = 7
	maxTrendDays   = 365
	noDataMessage  = "Not enough reading data yet."
	loadErrMessage = "Failed to load stats."
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Loader builds the dashboard for the given windows.
type Loader func(ctx context.Context, cfg stats.DashboardConfig) (stats.Dashboard, error)

// Model implements the Bubble Tea dashboard.
type Model struct {
	load Loader
	cfg  stats.DashboardConfig

	dash   stats.Dashboard
	errMsg string

	tabs      []string
	activeTab int
	viewports []viewport.Model
	docTable  table.Model
	docLayout tableLayout

	width  int
	height int

	filterMode   bool
	filterInputs []textinput.Model
	filterIndex  int
	filterError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a dashboard and loads the first report.
func NewModel(load Loader, cfg stats.DashboardConfig) *Model {
	m := &Model{
		load: load,
		cfg:  cfg,
		tabs: []string{"Week", "Trends", "Documents", "Modes", "Patterns"},
	}
	m.initInputs()
	m.docTable = buildDocTable(nil, 0, 1)
	m.initViewports()
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || (!m.filterMode && msg.String() == "q") {
			return m, tea.Quit
		}
		if m.activeTab == tabDocuments {
			m.docTable.Focus()
		} else {
			m.docTable.Blur()
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "=":
			m.cfg.TrendDays = nextTrendDays(m.trendDays())
			m.refresh()
			return m, nil
		case "-":
			m.cfg.TrendDays = prevTrendDays(m.trendDays())
			m.refresh()
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabDocuments {
				m.docTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabDocuments {
				m.docTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabDocuments {
				var cmd tea.Cmd
				m.docTable, cmd = m.docTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.filterInputs = []textinput.Model{
		newFilterInput("Week start (YYYY-MM-DD): "),
		newFilterInput("Trend days: "),
	}
	m.setInputsFromConfig()
}

func newFilterInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	if len(m.filterInputs) == 0 {
		return
	}
	if m.cfg.WeekStart.IsZero() {
		m.filterInputs[0].SetValue("")
	} else {
		m.filterInputs[0].SetValue(m.cfg.WeekStart.Format(time.DateOnly))
	}
	m.filterInputs[1].SetValue(strconv.Itoa(m.trendDays()))
}

func (m *Model) trendDays() int {
	if m.cfg.TrendDays > 0 {
		return m.cfg.TrendDays
	}
	if m.dash.Trends.OK() {
		return m.dash.Trends.Value.Days
	}
	return model.DefaultTuning().TrendDays
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setDocTableSize(m.width, vpHeight)
	for i := range m.filterInputs {
		promptWidth := lipgloss.Width(m.filterInputs[i].Prompt)
		m.filterInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabDocuments {
		m.docTable.Focus()
	} else {
		m.docTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	filters := padLines(m.renderFilterSummary(), m.width)
	return tabs + "\n" + filters
}

func (m *Model) renderFilterSummary() string {
	week := "this week"
	if !m.cfg.WeekStart.IsZero() {
		week = m.cfg.WeekStart.Format(time.DateOnly)
	}
	summary := fmt.Sprintf("Settings: week=%s  trend days=%d", week, m.trendDays())
	if m.dash.Portfolio.OK() {
		p := m.dash.Portfolio.Value
		summary += fmt.Sprintf("  library: %d/%d done, %s left", p.CompletedDocuments, p.TotalDocuments, p.Formatted)
	}
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Trend days: -/=  Settings: /  Reload: r  Quit: q")
}

func (m *Model) renderFilterHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
}

func (m *Model) renderFooter() string {
	if m.filterMode {
		return m.renderFilterHelp()
	}
	if m.errMsg != "" {
		return m.renderHelp() + "\n" + errorStyle.Render(m.errMsg)
	}
	return m.renderHelp()
}

func (m *Model) renderFilterForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.filterInputs {
		lines = append(lines, input.View())
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabDocuments {
		switch m.dash.Documents.Status {
		case model.StatusFailed:
			return fitLines(loadErrMessage, m.width, height)
		case model.StatusEmpty:
			return fitLines("No documents yet. Add one with `pagepace doc add`.", m.width, height)
		default:
			view := tableMutedStyle.Render(m.docTable.View())
			return fitLines(view, m.width, height)
		}
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refresh() {
	dash, err := m.load(context.Background(), m.cfg)
	m.dash = dash
	m.errMsg = ""
	if err != nil {
		m.errMsg = err.Error()
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyDocTable(width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabWeek].SetContent(renderWeek(m.dash, width))
	m.viewports[tabTrends].SetContent(section(m.dash.Trends, func(w io.Writer, r model.TrendReport) error {
		return stats.RenderTrends(w, r, stats.PlotWidthFor(width)-4, true)
	}))
	m.viewports[tabModes].SetContent(section(m.dash.Modes, stats.RenderModes))
	m.viewports[tabPatterns].SetContent(section(m.dash.Patterns, stats.RenderPatterns))
}

// section renders a report, or a notice when it is empty or failed.
func section[T any](r model.Result[T], render func(io.Writer, T) error) string {
	switch r.Status {
	case model.StatusFailed:
		return loadErrMessage
	case model.StatusEmpty:
		return noDataMessage
	}
	var buf bytes.Buffer
	if err := render(&buf, r.Value); err != nil {
		return fmt.Sprintf("Failed to render: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderWeek(d stats.Dashboard, width int) string {
	if d.Week.Status == model.StatusFailed {
		return loadErrMessage
	}
	cards := summaryCards(d)
	var row string
	if width < 80 {
		row = strings.Join(cards, "\n")
	} else {
		row = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	week := section(d.Week, stats.RenderWeekly)
	return strings.TrimRight(row+"\n\n"+week, "\n")
}

func summaryCards(d stats.Dashboard) []string {
	today, week, streak, best := "-", "-", "-", "-"
	if d.Today.OK() {
		today = estimate.FormatMinutes(d.Today.Value.TotalMinutes)
	}
	if d.Week.OK() {
		week = estimate.FormatMinutes(d.Week.Value.TotalMinutes)
	}
	if d.Streaks.OK() {
		streak = fmt.Sprintf("%d days", d.Streaks.Value.Current)
		best = fmt.Sprintf("%d days", d.Streaks.Value.Longest)
	}
	return []string{
		metricCard("Today", today),
		metricCard("This week", week),
		metricCard("Streak", streak),
		metricCard("Best streak", best),
	}
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func docColumns() []table.Column {
	return []table.Column{
		{Title: "Title", Width: 32},
		{Title: "Page", Width: 9},
		{Title: "Progress", Width: 8},
		{Title: "Read", Width: 8},
		{Title: "Sessions", Width: 8},
		{Title: "Pages/min", Width: 9},
		{Title: "Left", Width: 8},
	}
}

func docRows(docs []model.DocStat) []table.Row {
	rows := make([]table.Row, 0, len(docs))
	for _, d := range stats.TopDocumentsByTime(docs, len(docs)) {
		rows = append(rows, table.Row{
			d.Title,
			fmt.Sprintf("%d/%d", d.CurrentPage, d.TotalPages),
			fmt.Sprintf("%.1f%%", d.ProgressPercent),
			estimate.FormatMinutes(d.TotalMinutes),
			fmt.Sprintf("%d", d.SessionCount),
			fmt.Sprintf("%.2f", d.ReadingSpeed),
			nonEmpty(d.Formatted, "-"),
		})
	}
	return rows
}

func buildDocTable(docs []model.DocStat, width, height int) table.Model {
	t := table.New(
		table.WithColumns(docColumns()),
		table.WithRows(docRows(docs)),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(docTableStyles())
	return t
}

func (m *Model) applyDocTable(width, height int) {
	var docs []model.DocStat
	if m.dash.Documents.OK() {
		docs = m.dash.Documents.Value
	}
	rows := docRows(docs)
	m.docTable.SetRows(rows)
	m.docLayout.rowCount = len(rows)
	m.docLayout.width = 0
	m.setDocTableSize(width, height)
}

func (m *Model) setDocTableSize(width, height int) {
	viewportHeight := maxInt(1, height-1)
	if m.docLayout.width == width && m.docLayout.height == viewportHeight {
		return
	}
	m.docLayout.width = width
	m.docLayout.height = viewportHeight
	m.docTable.SetWidth(width)
	m.docTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustDocTableHeight(height)
	if m.docLayout.height != viewportHeight {
		m.docLayout.height = viewportHeight
		m.docTable.SetHeight(viewportHeight)
	}
}

func docTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

// adjustDocTableHeight corrects the table height so its rendered view,
// header included, fills the body.
func (m *Model) adjustDocTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.docTable.Height()
	for range 2 {
		viewHeight := lipgloss.Height(m.docTable.View())
		if viewHeight == target {
			return height
		}
		height = maxInt(1, height+target-viewHeight)
		m.docTable.SetHeight(height)
	}
	return height
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	m.filterMode = true
	m.filterError = ""
	m.setInputsFromConfig()
	return m, m.setFilterIndex(0)
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filterMode = false
		m.filterError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.filterMode = false
		m.filterError = ""
		m.refresh()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setFilterIndex(m.filterIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setFilterIndex(m.filterIndex - 1)
	}
	var cmd tea.Cmd
	m.filterInputs[m.filterIndex], cmd = m.filterInputs[m.filterIndex].Update(msg)
	return m, cmd
}

func (m *Model) setFilterIndex(idx int) tea.Cmd {
	count := len(m.filterInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.filterIndex = idx
	var cmd tea.Cmd
	for i := range m.filterInputs {
		if i == m.filterIndex {
			cmd = m.filterInputs[i].Focus()
		} else {
			m.filterInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applyFilter() error {
	weekInput := strings.TrimSpace(m.filterInputs[0].Value())
	var weekStart time.Time
	if weekInput != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, weekInput, time.Local)
		if err != nil {
			return fmt.Errorf("invalid week start (expected YYYY-MM-DD)")
		}
		weekStart = parsed
	}

	daysInput := strings.TrimSpace(m.filterInputs[1].Value())
	days := 0
	if daysInput != "" {
		parsed, err := strconv.Atoi(daysInput)
		if err != nil || parsed < 1 || parsed > maxTrendDays {
			return fmt.Errorf("invalid trend days (use 1-%d)", maxTrendDays)
		}
		days = parsed
	}

	m.cfg = stats.DashboardConfig{WeekStart: weekStart, TrendDays: days}
	return nil
}

func nextTrendDays(n int) int {
	if n < trendDaysStep {
		return trendDaysStep
	}
	next := (n/trendDaysStep + 1) * trendDaysStep
	return minInt(next, maxTrendDays)
}

func prevTrendDays(n int) int {
	if n <= trendDaysStep {
		return trendDaysStep
	}
	if n%trendDaysStep == 0 {
		return n - trendDaysStep
	}
	return (n / trendDaysStep) * trendDaysStep
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func nonEmpty(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
