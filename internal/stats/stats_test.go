package stats

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/verte-zerg/pagepace/internal/clock"
	"github.com/verte-zerg/pagepace/internal/estimate"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/store"
	"github.com/verte-zerg/pagepace/internal/store/storetest"
)

// monday is the start of the week used by most tests.
var monday = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAggregator(st *store.Store, now time.Time) *Aggregator {
	tuning := model.DefaultTuning()
	predictor := estimate.NewPredictor(st, tuning, clock.Fixed(now), quietLogger())
	return NewAggregator(st, predictor, tuning, clock.Fixed(now), quietLogger())
}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestConsistencyScore(t *testing.T) {
	cases := []struct {
		values []float64
		want   float64
	}{
		{nil, 0},
		{[]float64{5}, 0},
		{[]float64{0, 0}, 0},
		{[]float64{30, 30, 30}, 100},
		{[]float64{10, 30}, 50},
		{[]float64{0, 0, 0, 100}, 0},
	}
	for _, tc := range cases {
		got := ConsistencyScore(tc.values)
		if !near(got, tc.want) {
			t.Fatalf("ConsistencyScore(%v) = %v, want %v", tc.values, got, tc.want)
		}
		if got < 0 || got > 100 {
			t.Fatalf("score out of range: %v", got)
		}
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if !near(got[i], want[i]) {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestSparkline(t *testing.T) {
	if got := Sparkline([]float64{0, 10}); got != " @" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := Sparkline([]float64{3, 3, 3}); got != "+++" {
		t.Fatalf("unexpected flat sparkline %q", got)
	}
}

func TestDailyStats(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	doc := storetest.AddDocument(t, st, "daily", 300, 1)

	storetest.AddSession(t, st, doc.ID, monday.Add(9*time.Hour), 30, 10, model.SessionPomodoro)
	storetest.AddSession(t, st, doc.ID, monday.Add(14*time.Hour), 45, 15, model.SessionRegular)
	storetest.AddSession(t, st, doc.ID, monday.Add(20*time.Hour), 15, 5, "")
	storetest.AddSession(t, st, doc.ID, monday.Add(-time.Hour), 60, 40, model.SessionSprint)

	agg := newAggregator(st, monday.Add(22*time.Hour))
	res := agg.DailyStats(ctx, time.Time{})
	if !res.OK() {
		t.Fatalf("expected daily stats, got %v: %v", res.Status, res.Err)
	}
	day := res.Value
	if !day.Date.Equal(monday) {
		t.Fatalf("expected date %v, got %v", monday, day.Date)
	}
	if day.SessionCount != 3 || day.TotalPages != 30 || !near(day.TotalMinutes, 90) {
		t.Fatalf("unexpected totals: %+v", day)
	}
	if day.SessionTypes[model.SessionPomodoro] != 1 || day.SessionTypes[model.SessionRegular] != 2 {
		t.Fatalf("unexpected session types: %v", day.SessionTypes)
	}
	if !near(day.LongestSession, 45) || !near(day.AvgSpeed, 30.0/90.0) {
		t.Fatalf("unexpected longest/speed: %+v", day)
	}

	empty := agg.DailyStats(ctx, monday.AddDate(0, 0, 3))
	if !empty.OK() || empty.Value.SessionCount != 0 || empty.Value.AvgSpeed != 0 {
		t.Fatalf("expected zero stats for an idle day, got %+v", empty)
	}
}

func TestWeeklyStatsStreakAtWeekEnd(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	doc := storetest.AddDocument(t, st, "weekly", 300, 1)

	for i, minutes := range []float64{20, 50, 30} {
		storetest.AddSession(t, st, doc.ID, monday.AddDate(0, 0, i).Add(8*time.Hour), minutes, 10, model.SessionRegular)
	}
	agg := newAggregator(st, monday.AddDate(0, 0, 6).Add(12*time.Hour))

	res := agg.WeeklyStats(ctx, time.Time{})
	if !res.OK() {
		t.Fatalf("weekly stats: %v", res.Err)
	}
	week := res.Value
	if !week.WeekStart.Equal(monday) || !week.WeekEnd.Equal(monday.AddDate(0, 0, 6)) {
		t.Fatalf("unexpected week bounds %v - %v", week.WeekStart, week.WeekEnd)
	}
	if week.TotalSessions != 3 || week.TotalPages != 30 || !near(week.TotalMinutes, 100) {
		t.Fatalf("unexpected totals: %+v", week)
	}
	if !near(week.AvgDailyMinutes, 100.0/7) {
		t.Fatalf("expected average over seven days, got %v", week.AvgDailyMinutes)
	}
	if !week.MostProductiveDay.Equal(monday.AddDate(0, 0, 1)) {
		t.Fatalf("expected Tuesday most productive, got %v", week.MostProductiveDay)
	}
	if week.StreakDays != 0 {
		t.Fatalf("expected no streak at week end, got %d", week.StreakDays)
	}

	for i := 4; i < 7; i++ {
		storetest.AddSession(t, st, doc.ID, monday.AddDate(0, 0, i).Add(8*time.Hour), 10, 2, model.SessionSprint)
	}
	res = agg.WeeklyStats(ctx, monday.Add(5*time.Hour))
	if !res.OK() || res.Value.StreakDays != 3 {
		t.Fatalf("expected streak of 3, got %+v", res)
	}
}

func TestStreaks(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	doc := storetest.AddDocument(t, st, "streaks", 300, 1)
	agg := newAggregator(st, monday.Add(12*time.Hour))

	if res := agg.Streaks(ctx); res.Status != model.StatusEmpty {
		t.Fatalf("expected empty streaks, got %v", res.Status)
	}

	for _, offset := range []int{-6, -5, -4, -2, -1} {
		storetest.AddSession(t, st, doc.ID, monday.AddDate(0, 0, offset).Add(9*time.Hour), 10, 3, model.SessionRegular)
	}
	storetest.AddSession(t, st, doc.ID, monday.AddDate(0, 0, -4).Add(19*time.Hour), 10, 3, model.SessionRegular)

	res := agg.Streaks(ctx)
	if !res.OK() {
		t.Fatalf("streaks: %v", res.Err)
	}
	s := res.Value
	if s.Current != 2 || s.Longest != 3 || s.ActiveDays != 5 {
		t.Fatalf("unexpected streaks: %+v", s)
	}
	if !s.LongestEnd.Equal(monday.AddDate(0, 0, -4)) || !s.LastReadDay.Equal(monday.AddDate(0, 0, -1)) {
		t.Fatalf("unexpected streak days: %+v", s)
	}
}

func TestReadingTrendsImproving(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	doc := storetest.AddDocument(t, st, "trends", 500, 1)

	start := monday.AddDate(0, 0, -13)
	for i := 0; i < 14; i++ {
		minutes := 30.0
		if i >= 7 {
			minutes = 45
		}
		storetest.AddSession(t, st, doc.ID, start.AddDate(0, 0, i).Add(10*time.Hour), minutes, 10, model.SessionRegular)
	}

	res := newAggregator(st, monday.Add(18*time.Hour)).ReadingTrends(ctx, 14)
	if !res.OK() {
		t.Fatalf("trends: %v", res.Err)
	}
	r := res.Value
	if len(r.Points) != 14 || !r.Start.Equal(start) || !r.End.Equal(monday) {
		t.Fatalf("unexpected window: %d points %v - %v", len(r.Points), r.Start, r.End)
	}
	if r.Direction != model.TrendImproving {
		t.Fatalf("expected improving, got %s", r.Direction)
	}
	if !near(r.Recent7DayAvg, 45) || !near(r.Previous7DayAvg, 30) {
		t.Fatalf("unexpected averages %v/%v", r.Recent7DayAvg, r.Previous7DayAvg)
	}
	if r.BestDay.Minutes != 45 || r.WorstDay.Minutes != 30 {
		t.Fatalf("unexpected best/worst: %+v %+v", r.BestDay, r.WorstDay)
	}
	if !near(r.TotalMinutes, 525) || r.TotalPages != 140 {
		t.Fatalf("unexpected totals: %v min %d pages", r.TotalMinutes, r.TotalPages)
	}
}

func TestBuildTrendShortWindow(t *testing.T) {
	daily := make([]model.DailyStat, 3)
	for i := range daily {
		daily[i] = model.DailyStat{Date: monday.AddDate(0, 0, i), TotalMinutes: 14}
	}
	r := BuildTrend(daily, 0.1)
	if !near(r.Recent7DayAvg, 6) || r.Previous7DayAvg != 0 {
		t.Fatalf("expected averages over seven days, got %v/%v", r.Recent7DayAvg, r.Previous7DayAvg)
	}
	if r.Direction != model.TrendImproving {
		t.Fatalf("expected improving, got %s", r.Direction)
	}
	if got := Direction(1.05, 1, 0.1); got != model.TrendStable {
		t.Fatalf("expected stable within epsilon, got %s", got)
	}
	if got := Direction(1, 2, 0.1); got != model.TrendDeclining {
		t.Fatalf("expected declining, got %s", got)
	}
}

func TestTimerModeEffectiveness(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	agg := newAggregator(st, monday.Add(12*time.Hour))

	if res := agg.TimerModeEffectiveness(ctx); res.Status != model.StatusEmpty {
		t.Fatalf("expected empty comparison, got %v", res.Status)
	}

	doc := storetest.AddDocument(t, st, "modes", 500, 1)
	storetest.AddSession(t, st, doc.ID, monday.Add(time.Hour), 25, 20, model.SessionPomodoro)
	storetest.AddSession(t, st, doc.ID, monday.Add(2*time.Hour), 5, 2, model.SessionSprint)
	storetest.AddSession(t, st, doc.ID, monday.Add(3*time.Hour), 60, 30, model.SessionRegular)

	res := agg.TimerModeEffectiveness(ctx)
	if !res.OK() {
		t.Fatalf("modes: %v", res.Err)
	}
	cmp := res.Value
	if len(cmp.Modes) != 3 || cmp.MostEffective != model.SessionPomodoro {
		t.Fatalf("unexpected comparison: %+v", cmp)
	}
	if cmp.Recommendation != "Try more Pomodoro sessions for better focus and speed" {
		t.Fatalf("unexpected recommendation %q", cmp.Recommendation)
	}
	if got := cmp.Modes[1]; got.Sessions != 1 || !near(got.AvgSpeed, 0.4) || !near(got.PagesPerSession, 2) {
		t.Fatalf("unexpected sprint stats: %+v", got)
	}

	none := modeRecommendation(model.ModeStat{}, model.ModeStat{AvgSpeed: 1}, model.ModeStat{AvgSpeed: 0.5})
	if none != "Sprint sessions work well for you - consider more quick reading bursts" {
		t.Fatalf("unexpected sprint recommendation %q", none)
	}
}

func TestDocumentAnalytics(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	agg := newAggregator(st, monday.Add(12*time.Hour))

	if res := agg.DocumentAnalytics(ctx, "missing"); res.Status != model.StatusEmpty {
		t.Fatalf("expected empty for missing document, got %v", res.Status)
	}
	if res := agg.AllDocumentAnalytics(ctx); res.Status != model.StatusEmpty {
		t.Fatalf("expected empty without documents, got %v", res.Status)
	}

	doc := storetest.AddDocument(t, st, "analytics", 100, 50)
	first := monday.AddDate(0, 0, -3).Add(9 * time.Hour)
	last := monday.AddDate(0, 0, -1).Add(9 * time.Hour)
	storetest.AddSession(t, st, doc.ID, last, 20, 10, model.SessionRegular)
	storetest.AddSession(t, st, doc.ID, first, 40, 20, model.SessionRegular)

	res := agg.DocumentAnalytics(ctx, doc.ID)
	if !res.OK() {
		t.Fatalf("document analytics: %v", res.Err)
	}
	stat := res.Value
	if stat.SessionCount != 2 || stat.PagesRead != 30 || !near(stat.TotalMinutes, 60) || !near(stat.AvgSessionMinutes, 30) {
		t.Fatalf("unexpected totals: %+v", stat)
	}
	if !near(stat.ProgressPercent, 50) {
		t.Fatalf("expected 50%% progress, got %v", stat.ProgressPercent)
	}
	if stat.FirstSession == nil || !stat.FirstSession.Equal(first) || !stat.LastSession.Equal(last) {
		t.Fatalf("unexpected session bounds: %v %v", stat.FirstSession, stat.LastSession)
	}
	if !near(stat.ReadingSpeed, 0.5) {
		t.Fatalf("expected 0.5 pages/min, got %v", stat.ReadingSpeed)
	}
	if !near(stat.EstimatedMinutes, 100) || stat.Formatted != "1h 40m" {
		t.Fatalf("unexpected estimate: %v %q", stat.EstimatedMinutes, stat.Formatted)
	}

	all := agg.AllDocumentAnalytics(ctx)
	if !all.OK() || len(all.Value) != 1 {
		t.Fatalf("expected one document, got %+v", all)
	}
}

type brokenStore struct{}

var errBroken = errors.New("disk on fire")

func (brokenStore) GetDocument(context.Context, string) (model.Document, error) {
	return model.Document{}, errBroken
}

func (brokenStore) AllDocuments(context.Context) ([]model.Document, error) {
	return nil, errBroken
}

func (brokenStore) SessionsForDocument(context.Context, string, int) ([]model.ReadingSession, error) {
	return nil, errBroken
}

func (brokenStore) SessionsInRange(context.Context, time.Time, time.Time) ([]model.ReadingSession, error) {
	return nil, errBroken
}

func (brokenStore) SessionsByType(context.Context, model.SessionType) ([]model.ReadingSession, error) {
	return nil, errBroken
}

func TestAggregatorStoreFailure(t *testing.T) {
	ctx := context.Background()
	agg := NewAggregator(brokenStore{}, nil, model.DefaultTuning(), clock.Fixed(monday), quietLogger())

	if res := agg.DailyStats(ctx, time.Time{}); res.Status != model.StatusFailed || !errors.Is(res.Err, errBroken) {
		t.Fatalf("expected failed daily stats, got %+v", res)
	}
	if res := agg.WeeklyStats(ctx, time.Time{}); res.Status != model.StatusFailed {
		t.Fatalf("expected failed weekly stats, got %v", res.Status)
	}
	if res := agg.ReadingTrends(ctx, 0); res.Status != model.StatusFailed {
		t.Fatalf("expected failed trends, got %v", res.Status)
	}
	if res := agg.TimerModeEffectiveness(ctx); res.Status != model.StatusFailed {
		t.Fatalf("expected failed modes, got %v", res.Status)
	}
	if res := agg.DocumentAnalytics(ctx, "x"); res.Status != model.StatusFailed {
		t.Fatalf("expected failed document analytics, got %v", res.Status)
	}

	d, err := BuildDashboard(ctx, agg, nil, nil, DashboardConfig{})
	if !errors.Is(err, errBroken) {
		t.Fatalf("expected dashboard error, got %v", err)
	}
	if d.Streaks.Status != model.StatusFailed || d.Portfolio.Status != model.StatusEmpty {
		t.Fatalf("unexpected dashboard: %+v", d)
	}
}

type stubPatterns struct{}

func (stubPatterns) Analyze(context.Context) model.Result[model.PatternReport] {
	return model.Ok(model.PatternReport{SessionsAnalyzed: 1})
}

func TestBuildDashboard(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	now := monday.Add(12 * time.Hour)
	doc := storetest.AddDocument(t, st, "dashboard", 100, 10)
	storetest.AddSession(t, st, doc.ID, monday.Add(8*time.Hour), 30, 15, model.SessionPomodoro)

	tuning := model.DefaultTuning()
	predictor := estimate.NewPredictor(st, tuning, clock.Fixed(now), quietLogger())
	agg := NewAggregator(st, predictor, tuning, clock.Fixed(now), quietLogger())

	d, err := BuildDashboard(ctx, agg, predictor, stubPatterns{}, DashboardConfig{TrendDays: 7})
	if err != nil {
		t.Fatalf("build dashboard: %v", err)
	}
	if !d.Today.OK() || d.Today.Value.SessionCount != 1 {
		t.Fatalf("unexpected today: %+v", d.Today)
	}
	if !d.Trends.OK() || len(d.Trends.Value.Points) != 7 {
		t.Fatalf("unexpected trends: %+v", d.Trends)
	}
	if !d.Streaks.OK() || d.Streaks.Value.Current != 1 {
		t.Fatalf("unexpected streaks: %+v", d.Streaks)
	}
	if !d.Portfolio.OK() || d.Portfolio.Value.TotalDocuments != 1 {
		t.Fatalf("unexpected portfolio: %+v", d.Portfolio)
	}
	if !d.Patterns.OK() || d.Patterns.Value.SessionsAnalyzed != 1 {
		t.Fatalf("unexpected patterns: %+v", d.Patterns)
	}
	if !d.Modes.OK() || !d.Documents.OK() || !d.Week.OK() {
		t.Fatalf("expected modes, documents and week: %+v", d)
	}
}

func TestTopDocumentsByTime(t *testing.T) {
	docs := []model.DocStat{
		{Title: "b", TotalMinutes: 10},
		{Title: "a", TotalMinutes: 10},
		{Title: "c", TotalMinutes: 30},
	}
	top := TopDocumentsByTime(docs, 2)
	if len(top) != 2 || top[0].Title != "c" || top[1].Title != "a" {
		t.Fatalf("unexpected order: %+v", top)
	}
	if docs[0].Title != "b" {
		t.Fatalf("input was reordered")
	}
	if TopDocumentsByTime(docs, 0) != nil {
		t.Fatalf("expected nil for n=0")
	}
}
