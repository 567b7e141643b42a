package stats

import (
	"context"
	"time"

	"github.com/verte-zerg/pagepace/internal/model"
)

// DailyStats folds the sessions started on date. A zero date means today.
func (a *Aggregator) DailyStats(ctx context.Context, date time.Time) model.Result[model.DailyStat] {
	day := a.today()
	if !date.IsZero() {
		day = a.localDay(date)
	}
	days, err := a.foldDays(ctx, day, 1)
	if err != nil {
		a.log.Warn("load daily sessions", "date", day.Format(time.DateOnly), "err", err)
		return model.Failed[model.DailyStat](err)
	}
	return model.Ok(days[0])
}

// WeeklyStats folds seven days starting at weekStart, or at this week's
// Monday when weekStart is zero.
func (a *Aggregator) WeeklyStats(ctx context.Context, weekStart time.Time) model.Result[model.WeeklyStat] {
	start := MondayOf(a.today())
	if !weekStart.IsZero() {
		start = a.localDay(weekStart)
	}
	days, err := a.foldDays(ctx, start, 7)
	if err != nil {
		a.log.Warn("load weekly sessions", "week_start", start.Format(time.DateOnly), "err", err)
		return model.Failed[model.WeeklyStat](err)
	}

	week := model.WeeklyStat{
		WeekStart:         start,
		WeekEnd:           start.AddDate(0, 0, 6),
		Days:              days,
		MostProductiveDay: days[0].Date,
	}
	best := days[0].TotalMinutes
	for _, d := range days {
		week.TotalMinutes += d.TotalMinutes
		week.TotalPages += d.TotalPages
		week.TotalSessions += d.SessionCount
		if d.TotalMinutes > best {
			best = d.TotalMinutes
			week.MostProductiveDay = d.Date
		}
	}
	week.AvgDailyMinutes = week.TotalMinutes / 7
	week.AvgDailyPages = float64(week.TotalPages) / 7
	week.StreakDays = trailingStreak(days)
	return model.Ok(week)
}

// Streaks reports the current run of reading days and the longest run on
// record. The current streak still counts when only today is missing.
func (a *Aggregator) Streaks(ctx context.Context) model.Result[model.StreakReport] {
	today := a.today()
	sessions, err := a.store.SessionsInRange(ctx, time.Time{}, today.AddDate(0, 0, 1))
	if err != nil {
		a.log.Warn("load streak sessions", "err", err)
		return model.Failed[model.StreakReport](err)
	}
	if len(sessions) == 0 {
		return model.Empty[model.StreakReport]()
	}

	active := map[string]bool{}
	var first time.Time
	for _, s := range sessions {
		day := a.localDay(s.StartedAt)
		active[dayKey(day)] = true
		if first.IsZero() || day.Before(first) {
			first = day
		}
	}

	report := model.StreakReport{ActiveDays: len(active)}
	run := 0
	for day := first; !day.After(today); day = day.AddDate(0, 0, 1) {
		if !active[dayKey(day)] {
			run = 0
			continue
		}
		run++
		report.LastReadDay = day
		if run > report.Longest {
			report.Longest = run
			report.LongestEnd = day
		}
	}

	anchor := today
	if !active[dayKey(anchor)] {
		anchor = today.AddDate(0, 0, -1)
	}
	for day := anchor; active[dayKey(day)]; day = day.AddDate(0, 0, -1) {
		report.Current++
	}
	return model.Ok(report)
}

// foldDays loads n days starting at start with one range query and folds
// each day separately.
func (a *Aggregator) foldDays(ctx context.Context, start time.Time, n int) ([]model.DailyStat, error) {
	end := start.AddDate(0, 0, n)
	sessions, err := a.store.SessionsInRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int, n)
	buckets := make([][]model.ReadingSession, n)
	for i := 0; i < n; i++ {
		index[dayKey(start.AddDate(0, 0, i))] = i
	}
	for _, s := range sessions {
		if i, ok := index[dayKey(a.localDay(s.StartedAt))]; ok {
			buckets[i] = append(buckets[i], s)
		}
	}
	days := make([]model.DailyStat, n)
	for i := range days {
		days[i] = FoldDay(start.AddDate(0, 0, i), buckets[i])
	}
	return days, nil
}

// FoldDay summarizes the sessions of one day.
func FoldDay(day time.Time, sessions []model.ReadingSession) model.DailyStat {
	stat := model.DailyStat{
		Date:         day,
		SessionCount: len(sessions),
		SessionTypes: map[model.SessionType]int{},
	}
	for _, s := range sessions {
		minutes := s.Minutes()
		stat.TotalMinutes += minutes
		stat.TotalPages += s.PagesRead
		stat.SessionTypes[model.NormalizeSessionType(s.Type)]++
		if minutes > stat.LongestSession {
			stat.LongestSession = minutes
		}
	}
	stat.AvgSpeed = PagesPerMinute(stat.TotalPages, stat.TotalMinutes)
	return stat
}

func dayKey(day time.Time) string {
	return day.Format(time.DateOnly)
}

// MondayOf returns the Monday on or before day.
func MondayOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// trailingStreak counts consecutive active days walking back from the last day.
func trailingStreak(days []model.DailyStat) int {
	streak := 0
	for i := len(days) - 1; i >= 0 && days[i].SessionCount > 0; i-- {
		streak++
	}
	return streak
}
