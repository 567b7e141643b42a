// Package export writes reading reports as Markdown notes with YAML
// frontmatter.
package export

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/stats"
)

const (
	separator    = "---\n"
	topDocuments = 5
)

// Weekly bundles the reports that make up a weekly note.
type Weekly struct {
	Week      model.WeeklyStat
	Streaks   model.Result[model.StreakReport]
	Modes     model.Result[model.ModeComparison]
	Trend     model.Result[model.TrendReport]
	Documents []model.DocStat
	Generated time.Time
}

type weeklyMeta struct {
	Type          string   `yaml:"type"`
	WeekStart     string   `yaml:"week_start"`
	WeekEnd       string   `yaml:"week_end"`
	TotalMinutes  float64  `yaml:"total_minutes"`
	TotalPages    int      `yaml:"total_pages"`
	Sessions      int      `yaml:"sessions"`
	StreakDays    int      `yaml:"streak_days"`
	CurrentStreak *int     `yaml:"current_streak,omitempty"`
	Trend         string   `yaml:"trend,omitempty"`
	Generated     string   `yaml:"generated"`
	Tags          []string `yaml:"tags"`
}

// RenderWeekly builds the Markdown note for a week.
func RenderWeekly(r Weekly) (string, error) {
	meta := weeklyMeta{
		Type:         "reading-week",
		WeekStart:    r.Week.WeekStart.Format(time.DateOnly),
		WeekEnd:      r.Week.WeekEnd.Format(time.DateOnly),
		TotalMinutes: round1(r.Week.TotalMinutes),
		TotalPages:   r.Week.TotalPages,
		Sessions:     r.Week.TotalSessions,
		StreakDays:   r.Week.StreakDays,
		Generated:    r.Generated.Format(time.RFC3339),
		Tags:         []string{"reading", "pagepace"},
	}
	if r.Streaks.OK() {
		current := r.Streaks.Value.Current
		meta.CurrentStreak = &current
	}
	if r.Trend.OK() {
		meta.Trend = r.Trend.Value.Direction
	}
	return renderFrontmatter(meta, weeklyBody(r))
}

// WriteWeekly renders the note and stores it in dir as week-<start>.md.
func WriteWeekly(dir string, r Weekly) (string, error) {
	content, err := RenderWeekly(r)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, "week-"+r.Week.WeekStart.Format(time.DateOnly)+".md")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write weekly note: %w", err)
	}
	return path, nil
}

func renderFrontmatter(meta any, body string) (string, error) {
	raw, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshal frontmatter: %w", err)
	}
	buf := bytes.Buffer{}
	buf.WriteString(separator)
	buf.Write(raw)
	buf.WriteString(separator)
	if !strings.HasPrefix(body, "\n") {
		buf.WriteString("\n")
	}
	buf.WriteString(body)
	return buf.String(), nil
}

func weeklyBody(r Weekly) string {
	var b strings.Builder
	w := r.Week
	fmt.Fprintf(&b, "# Reading week of %s\n\n", w.WeekStart.Format("January 2, 2006"))
	fmt.Fprintf(&b, "Read for %s across %d sessions, %d pages in total.\n\n",
		estimate.FormatMinutes(w.TotalMinutes), w.TotalSessions, w.TotalPages)

	b.WriteString("| Day | Minutes | Pages | Sessions |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, d := range w.Days {
		fmt.Fprintf(&b, "| %s | %.1f | %d | %d |\n", d.Date.Format("Mon 01-02"), d.TotalMinutes, d.TotalPages, d.SessionCount)
	}
	b.WriteString("\n")
	if w.TotalSessions > 0 {
		fmt.Fprintf(&b, "Most productive day: %s.\n\n", w.MostProductiveDay.Format("Monday"))
	}

	if r.Streaks.OK() {
		s := r.Streaks.Value
		fmt.Fprintf(&b, "Current streak: %d days. Longest: %d days.\n\n", s.Current, s.Longest)
	}

	if top := stats.TopDocumentsByTime(r.Documents, topDocuments); len(top) > 0 {
		b.WriteString("## Documents\n\n")
		for _, d := range top {
			fmt.Fprintf(&b, "- %s: page %d of %d, %s read", escape(d.Title), d.CurrentPage, d.TotalPages, estimate.FormatMinutes(d.TotalMinutes))
			if d.Formatted != "" {
				fmt.Fprintf(&b, ", %s left", d.Formatted)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if r.Modes.OK() {
		b.WriteString("## Timer modes\n\n")
		for _, m := range r.Modes.Value.Modes {
			fmt.Fprintf(&b, "- %s: %d sessions, %.2f pages/min\n", m.Mode, m.Sessions, m.AvgSpeed)
		}
		fmt.Fprintf(&b, "\n%s\n", r.Modes.Value.Recommendation)
	}
	return b.String()
}

func escape(s string) string {
	return strings.NewReplacer("|", `\|`, "*", `\*`, "_", `\_`).Replace(s)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
