package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
)

// printer keeps the first write error so renderers can print line by line.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) line(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format+"\n", args...)
}

func (p *printer) table(headers []string, rows [][]string, rightAlign map[int]bool) {
	if p.err != nil {
		return
	}
	p.err = writeTable(p.w, headers, rows, rightAlign)
}

const dateLayout = "Mon 2006-01-02"

// RenderDaily prints one day of reading.
func RenderDaily(w io.Writer, d model.DailyStat) error {
	p := &printer{w: w}
	p.line("Day %s", d.Date.Format(dateLayout))
	if d.SessionCount == 0 {
		p.line("No sessions recorded.")
		p.line("")
		return p.err
	}
	p.line("Reading time:    %s", estimate.FormatMinutes(d.TotalMinutes))
	p.line("Pages read:      %d", d.TotalPages)
	p.line("Sessions:        %d (%s)", d.SessionCount, formatTypes(d.SessionTypes))
	p.line("Speed:           %.2f pages/min", d.AvgSpeed)
	p.line("Longest session: %.1f min", d.LongestSession)
	p.line("")
	return p.err
}

// RenderWeekly prints a week with one row per day.
func RenderWeekly(w io.Writer, week model.WeeklyStat) error {
	p := &printer{w: w}
	p.line("Week %s - %s", week.WeekStart.Format(time.DateOnly), week.WeekEnd.Format(time.DateOnly))
	rows := make([][]string, 0, len(week.Days))
	minutes := make([]float64, 0, len(week.Days))
	for _, d := range week.Days {
		rows = append(rows, []string{
			d.Date.Format("Mon 01-02"),
			fmt.Sprintf("%.1f", d.TotalMinutes),
			fmt.Sprintf("%d", d.TotalPages),
			fmt.Sprintf("%d", d.SessionCount),
			fmt.Sprintf("%.2f", d.AvgSpeed),
		})
		minutes = append(minutes, d.TotalMinutes)
	}
	p.table([]string{"Day", "Minutes", "Pages", "Sessions", "Pages/min"}, rows, map[int]bool{1: true, 2: true, 3: true, 4: true})
	p.line("Total:             %s, %d pages, %d sessions", estimate.FormatMinutes(week.TotalMinutes), week.TotalPages, week.TotalSessions)
	p.line("Daily average:     %.1f min, %.1f pages", week.AvgDailyMinutes, week.AvgDailyPages)
	if week.TotalSessions > 0 {
		p.line("Most productive:   %s", week.MostProductiveDay.Format("Monday"))
	}
	p.line("Streak at week end: %d days", week.StreakDays)
	p.line("Minutes:           [%s]", Sparkline(minutes))
	p.line("")
	return p.err
}

// RenderTrends prints a trend summary with a bar chart of daily minutes.
func RenderTrends(w io.Writer, report model.TrendReport, width int, forceColor bool) error {
	p := &printer{w: w}
	p.line("Trends over %d days (%s - %s)", report.Days, report.Start.Format(time.DateOnly), report.End.Format(time.DateOnly))
	p.line("Total:        %s, %d pages", estimate.FormatMinutes(report.TotalMinutes), report.TotalPages)
	p.line("Daily avg:    %.1f min", report.AvgDailyMinutes)
	p.line("Last 7 days:  %.1f min/day (previous %.1f) - %s", report.Recent7DayAvg, report.Previous7DayAvg, report.Direction)
	p.line("Best day:     %s (%.1f min)", report.BestDay.Date.Format(time.DateOnly), report.BestDay.Minutes)
	p.line("Worst day:    %s (%.1f min)", report.WorstDay.Date.Format(time.DateOnly), report.WorstDay.Minutes)
	p.line("Consistency:  %.1f/100", report.ConsistencyScore)
	p.line("")
	if p.err != nil {
		return p.err
	}
	daily, smoothed := TrendSeries(report)
	return PlotChart(w, Chart{
		Title:       "Minutes per day",
		Unit:        "m",
		Bars:        daily,
		Overlay:     smoothed,
		BarName:     "minutes",
		OverlayName: "7-day average",
		StartLabel:  trendLabel(report.Start),
		EndLabel:    trendLabel(report.End),
	}, width, 0, forceColor)
}

// RenderStreaks prints current and longest streaks.
func RenderStreaks(w io.Writer, s model.StreakReport) error {
	p := &printer{w: w}
	p.line("Current streak: %d days", s.Current)
	p.line("Longest streak: %d days (ended %s)", s.Longest, s.LongestEnd.Format(time.DateOnly))
	p.line("Active days:    %d", s.ActiveDays)
	p.line("")
	return p.err
}

// RenderModes prints the timer mode comparison.
func RenderModes(w io.Writer, cmp model.ModeComparison) error {
	p := &printer{w: w}
	p.line("Timer modes")
	rows := make([][]string, 0, len(cmp.Modes))
	for _, m := range cmp.Modes {
		rows = append(rows, []string{
			string(m.Mode),
			fmt.Sprintf("%d", m.Sessions),
			fmt.Sprintf("%.1f", m.TotalMinutes),
			fmt.Sprintf("%d", m.TotalPages),
			fmt.Sprintf("%.2f", m.AvgSpeed),
			fmt.Sprintf("%.1f", m.AvgDuration),
			fmt.Sprintf("%.1f", m.PagesPerSession),
		})
	}
	p.table([]string{"Mode", "Sessions", "Minutes", "Pages", "Pages/min", "Avg min", "Pages/session"}, rows,
		map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true})
	p.line("Most effective: %s", cmp.MostEffective)
	p.line("%s", cmp.Recommendation)
	p.line("")
	return p.err
}

// RenderDocument prints lifetime analytics for one document.
func RenderDocument(w io.Writer, d model.DocStat) error {
	p := &printer{w: w}
	p.line("%s", d.Title)
	p.line("Progress:      page %d of %d (%.1f%%)", d.CurrentPage, d.TotalPages, d.ProgressPercent)
	p.line("Reading time:  %s over %d sessions (avg %.1f min)", estimate.FormatMinutes(d.TotalMinutes), d.SessionCount, d.AvgSessionMinutes)
	p.line("Pages read:    %d", d.PagesRead)
	if d.ReadingSpeed > 0 {
		p.line("Speed:         %.2f pages/min", d.ReadingSpeed)
	}
	if d.Formatted != "" {
		p.line("Time left:     %s", d.Formatted)
	}
	if d.FirstSession != nil && d.LastSession != nil {
		p.line("First session: %s", d.FirstSession.Local().Format(time.DateTime))
		p.line("Last session:  %s", d.LastSession.Local().Format(time.DateTime))
	}
	p.line("")
	return p.err
}

// RenderDocuments prints one row per document.
func RenderDocuments(w io.Writer, docs []model.DocStat) error {
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{
			shortID(d.DocumentID),
			d.Title,
			fmt.Sprintf("%d/%d", d.CurrentPage, d.TotalPages),
			fmt.Sprintf("%.1f%%", d.ProgressPercent),
			estimate.FormatMinutes(d.TotalMinutes),
			fmt.Sprintf("%d", d.SessionCount),
			nonEmpty(d.Formatted, "-"),
		})
	}
	return writeTable(w, []string{"ID", "Title", "Page", "Progress", "Read", "Sessions", "Left"}, rows,
		map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true})
}

// RenderEstimate prints a completion forecast.
func RenderEstimate(w io.Writer, e model.DerivedEstimate) error {
	p := &printer{w: w}
	p.line("%s", e.Title)
	p.line("Progress:       page %d of %d (%.1f%%)", e.CurrentPage, e.TotalPages, e.ProgressPercent)
	p.line("Pace:           %.1f s/page", e.SecondsPerPage)
	p.line("Remaining:      %d pages, about %s", e.RemainingPages, e.Formatted)
	if e.CompletionDate != nil {
		p.line("Finish by:      %s (at %.1f min/day)", e.CompletionDate.Local().Format(time.DateOnly), e.DailyAverage)
	}
	p.line("Confidence:     %s", e.Confidence)
	p.line("%s", e.Recommendation)
	p.line("")
	return p.err
}

// RenderPortfolio prints the forecast over every document.
func RenderPortfolio(w io.Writer, pf model.PortfolioEstimate) error {
	p := &printer{w: w}
	rows := make([][]string, 0, len(pf.Documents))
	for _, e := range pf.Documents {
		rows = append(rows, []string{
			shortID(e.DocumentID),
			e.Title,
			fmt.Sprintf("%d", e.RemainingPages),
			e.Formatted,
			string(e.Confidence),
		})
	}
	p.table([]string{"ID", "Title", "Pages left", "Time left", "Confidence"}, rows, map[int]bool{2: true, 3: true})
	p.line("Documents:  %d total, %d completed (%.1f%%)", pf.TotalDocuments, pf.CompletedDocuments, pf.CompletionPercent)
	p.line("Time left:  %s at %.1f min/day", pf.Formatted, pf.DailyAverage)
	if pf.DaysToComplete != nil {
		p.line("Days left:  %.1f", *pf.DaysToComplete)
	}
	p.line("%s", pf.Recommendation)
	p.line("")
	return p.err
}

// RenderFeasibility prints a goal check.
func RenderFeasibility(w io.Writer, f model.FeasibilityResult) error {
	p := &printer{w: w}
	verdict := "not feasible"
	if f.Feasible {
		verdict = "feasible"
	}
	p.line("Goal by %s: %s", f.TargetDate.Format(time.DateOnly), verdict)
	if f.Reason != "" {
		p.line("Reason:          %s", f.Reason)
	}
	if f.DaysAvailable > 0 {
		p.line("Days available:  %d", f.DaysAvailable)
		p.line("Reading left:    %s", estimate.FormatMinutes(f.TotalMinutes))
		p.line("Required pace:   %.1f min/day (current %.1f)", f.RequiredDaily, f.DailyAverage)
		if f.DifficultyRatio != nil {
			p.line("Difficulty:      %.1fx", *f.DifficultyRatio)
		}
	}
	if f.Recommendation != "" {
		p.line("%s", f.Recommendation)
	}
	p.line("")
	return p.err
}

// RenderPrediction prints a single-session forecast.
func RenderPrediction(w io.Writer, s model.SessionPrediction) error {
	p := &printer{w: w}
	p.line("%d pages: about %s (%.1f-%.1f min)", s.TargetPages, s.Formatted, s.MinMinutes, s.MaxMinutes)
	p.line("Timer: %s", s.TimerMode)
	for _, b := range s.Breaks {
		p.line("- %s", b)
	}
	p.line("")
	return p.err
}

// RenderPatterns prints a reading-pattern report.
func RenderPatterns(w io.Writer, r model.PatternReport) error {
	p := &printer{w: w}
	p.line("Patterns over the last %d sessions", r.SessionsAnalyzed)
	p.line("Avg session:   %.1f min, %.1f pages", r.AvgSessionMinutes, r.AvgPagesPerSession)
	if r.MostProductiveHour != nil {
		p.line("Peak hour:     %02d:00", *r.MostProductiveHour)
	}
	p.line("Speed trend:   %s (%.2f vs %.2f pages/min)", r.SpeedTrend, r.RecentSpeed, r.HistoricalSpeed)
	p.line("Consistency:   %.1f/100 across %d days", r.ConsistencyScore, r.UniqueDays)
	for _, rec := range r.Recommendations {
		p.line("- %s", rec)
	}
	p.line("")
	return p.err
}

// RenderSessions prints sessions newest first. Titles maps document IDs to
// titles; unknown IDs print as a short ID.
func RenderSessions(w io.Writer, sessions []model.ReadingSession, titles map[string]string) error {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		minutes := "open"
		if s.Closed() {
			minutes = fmt.Sprintf("%.1f", s.Minutes())
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", s.ID),
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			nonEmpty(titles[s.DocumentID], shortID(s.DocumentID)),
			string(s.Type),
			minutes,
			fmt.Sprintf("%d", s.PagesRead),
			fmt.Sprintf("%d-%d", s.StartPage, s.EndPage),
		})
	}
	p := &printer{w: w}
	p.table([]string{"ID", "Started", "Document", "Type", "Min", "Pages", "Range"}, rows, map[int]bool{0: true, 4: true, 5: true})
	return p.err
}

// RenderGoal prints a saved goal and its evaluation.
func RenderGoal(w io.Writer, g model.Goal, f model.FeasibilityResult) error {
	p := &printer{w: w}
	p.line("%s  %s", g.ID, nonEmpty(g.Label, "(no label)"))
	if p.err != nil {
		return p.err
	}
	return RenderFeasibility(w, f)
}

func formatTypes(types map[model.SessionType]int) string {
	keys := make([]string, 0, len(types))
	for k := range types {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, types[model.SessionType(k)]))
	}
	return strings.Join(parts, ", ")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
