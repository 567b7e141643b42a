package estimate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/verte-zerg/pagepace/internal/clock"
	"github.com/verte-zerg/pagepace/internal/model"
	"github.com/verte-zerg/pagepace/internal/store"
	"github.com/verte-zerg/pagepace/internal/store/storetest"
)

var testNow = time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newPredictor(st Store) *Predictor {
	return NewPredictor(st, model.DefaultTuning(), clock.Fixed(testNow), quietLogger())
}

// seedScenario stores a half-read 100 page document with five sessions of
// ten pages in twenty minutes each.
func seedScenario(t *testing.T, st *store.Store) model.Document {
	t.Helper()
	doc := storetest.AddDocument(t, st, "scenario", 100, 50)
	for i := 1; i <= 5; i++ {
		storetest.AddSession(t, st, doc.ID, testNow.AddDate(0, 0, -i), 20, 10, model.SessionRegular)
	}
	return doc
}

type failingStore struct {
	err error
}

func (f failingStore) GetDocument(context.Context, string) (model.Document, error) {
	return model.Document{}, f.err
}

func (f failingStore) AllDocuments(context.Context) ([]model.Document, error) {
	return nil, f.err
}

func (f failingStore) SpeedSamples(context.Context, string, int) ([]model.ReadingSession, error) {
	return nil, f.err
}

func (f failingStore) CountSessions(context.Context, string) (int, error) {
	return 0, f.err
}

func (f failingStore) SessionsInRange(context.Context, time.Time, time.Time) ([]model.ReadingSession, error) {
	return nil, f.err
}

func TestTimePerPageScenario(t *testing.T) {
	st := storetest.Open(t)
	doc := seedScenario(t, st)

	got := newPredictor(st).Speed().TimePerPage(context.Background(), doc.ID)
	if got != 120 {
		t.Fatalf("expected 120 s/page, got %v", got)
	}
}

func TestTimePerPageFallbackChain(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	speed := newPredictor(st).Speed()

	fresh := storetest.AddDocument(t, st, "fresh", 10, 1)
	if got := speed.TimePerPage(ctx, fresh.ID); got != 120 {
		t.Fatalf("expected default 120 with no sessions, got %v", got)
	}

	read := storetest.AddDocument(t, st, "read", 10, 1)
	for i := 0; i < 3; i++ {
		storetest.AddSession(t, st, read.ID, testNow.Add(-time.Duration(i+1)*time.Hour), 10, 10, model.SessionRegular)
	}
	global := speed.GlobalTimePerPage(ctx)
	if global != 60 {
		t.Fatalf("expected global 60 s/page, got %v", global)
	}
	if got := speed.TimePerPage(ctx, fresh.ID); got != global {
		t.Fatalf("document without sessions should use global %v, got %v", global, got)
	}
}

func TestTimePerPageMinimumSample(t *testing.T) {
	st := storetest.Open(t)
	doc := storetest.AddDocument(t, st, "thin", 10, 1)
	storetest.AddSession(t, st, doc.ID, testNow.Add(-time.Hour), 10, 2, model.SessionRegular)

	got := newPredictor(st).Speed().TimePerPage(context.Background(), doc.ID)
	if got != 120 {
		t.Fatalf("two pages are below the sample threshold, expected 120, got %v", got)
	}
}

func TestTimePerPageIgnoresZeroPageSessions(t *testing.T) {
	st := storetest.Open(t)
	doc := storetest.AddDocument(t, st, "idle", 50, 1)
	storetest.AddSession(t, st, doc.ID, testNow.Add(-2*time.Hour), 60, 0, model.SessionRegular)
	storetest.AddSession(t, st, doc.ID, testNow.Add(-time.Hour), 10, 5, model.SessionRegular)

	got := newPredictor(st).Speed().TimePerPage(context.Background(), doc.ID)
	if got != 120 {
		t.Fatalf("expected 600s/5 pages = 120, got %v", got)
	}
}

func TestTimePerPageStoreFailure(t *testing.T) {
	p := newPredictor(failingStore{err: errors.New("disk gone")})
	if got := p.Speed().TimePerPage(context.Background(), "x"); got != 120 {
		t.Fatalf("store failure should degrade to default, got %v", got)
	}
}

func TestFoldSpeed(t *testing.T) {
	ten := 10.0
	sessions := []model.ReadingSession{
		{DurationMin: &ten, PagesRead: 4},
		{DurationMin: &ten, PagesRead: 0},
		{DurationMin: nil, PagesRead: 3},
	}
	seconds, pages := FoldSpeed(sessions)
	if seconds != 600 || pages != 4 {
		t.Fatalf("unexpected fold: %v seconds, %d pages", seconds, pages)
	}
}

func TestEstimateCompletionScenario(t *testing.T) {
	st := storetest.Open(t)
	doc := seedScenario(t, st)

	res := newPredictor(st).EstimateCompletion(context.Background(), doc.ID)
	if !res.OK() {
		t.Fatalf("expected ok result, got %v (%v)", res.Status, res.Err)
	}
	est := res.Value
	if est.SecondsPerPage != 120 || est.RemainingPages != 50 || est.EstimatedMinutes != 100 {
		t.Fatalf("unexpected estimate: %+v", est)
	}
	if est.ProgressPercent != 50 {
		t.Fatalf("expected 50%% progress, got %v", est.ProgressPercent)
	}
	if est.Confidence != model.ConfidenceHigh {
		t.Fatalf("expected High confidence, got %s", est.Confidence)
	}
	if est.DailyAverage != 20 {
		t.Fatalf("expected daily average 20, got %v", est.DailyAverage)
	}
	if est.DaysToComplete == nil || *est.DaysToComplete != 5 {
		t.Fatalf("expected 5 days to complete, got %v", est.DaysToComplete)
	}
	if est.CompletionDate == nil || !est.CompletionDate.Equal(testNow.AddDate(0, 0, 5)) {
		t.Fatalf("unexpected completion date %v", est.CompletionDate)
	}
	if est.Formatted != "1h 40m" {
		t.Fatalf("unexpected formatted time %q", est.Formatted)
	}
	if est.Recommendation != "Medium read - plan 2-3 focused sessions" {
		t.Fatalf("unexpected recommendation %q", est.Recommendation)
	}
}

func TestEstimateCompletionNoHistory(t *testing.T) {
	st := storetest.Open(t)
	doc := storetest.AddDocument(t, st, "new", 200, 1)

	res := newPredictor(st).EstimateCompletion(context.Background(), doc.ID)
	if !res.OK() {
		t.Fatalf("expected ok result, got %v", res.Status)
	}
	est := res.Value
	if est.SecondsPerPage != 120 || est.RemainingPages != 199 || est.EstimatedMinutes != 398 {
		t.Fatalf("unexpected estimate: %+v", est)
	}
	if est.Confidence != model.ConfidenceLow {
		t.Fatalf("expected Low confidence, got %s", est.Confidence)
	}
	if est.DailyAverage != 30 {
		t.Fatalf("expected default daily average 30, got %v", est.DailyAverage)
	}
}

func TestEstimateCompletionMonotonic(t *testing.T) {
	st := storetest.Open(t)
	doc := seedScenario(t, st)
	ctx := context.Background()
	p := newPredictor(st)

	prevPages, prevMinutes := 1<<30, 1e18
	for page := 10; page <= 100; page += 15 {
		if err := st.UpdateProgress(ctx, doc.ID, page); err != nil {
			t.Fatalf("update progress: %v", err)
		}
		est := p.EstimateCompletion(ctx, doc.ID).Value
		if est.RemainingPages >= prevPages || est.EstimatedMinutes >= prevMinutes {
			t.Fatalf("page %d: remaining %d / %v minutes did not decrease", page, est.RemainingPages, est.EstimatedMinutes)
		}
		prevPages, prevMinutes = est.RemainingPages, est.EstimatedMinutes
	}
}

func TestEstimateCompletionZeroPages(t *testing.T) {
	st := storetest.Open(t)
	doc := storetest.AddDocument(t, st, "blank", 0, 1)

	est := newPredictor(st).EstimateCompletion(context.Background(), doc.ID).Value
	if est.ProgressPercent != 0 || est.RemainingPages != 0 || est.EstimatedMinutes != 0 {
		t.Fatalf("unexpected estimate for empty document: %+v", est)
	}
}

func TestEstimateCompletionMissingAndFailing(t *testing.T) {
	st := storetest.Open(t)
	res := newPredictor(st).EstimateCompletion(context.Background(), "missing")
	if res.Status != model.StatusEmpty {
		t.Fatalf("expected empty result, got %v", res.Status)
	}

	failing := newPredictor(failingStore{err: errors.New("locked")})
	res = failing.EstimateCompletion(context.Background(), "x")
	if res.Status != model.StatusFailed || res.Err == nil {
		t.Fatalf("expected failed result, got %v", res.Status)
	}
	if got := failing.Confidence(context.Background(), "x"); got != model.ConfidenceUnknown {
		t.Fatalf("expected Unknown confidence, got %s", got)
	}
}

func TestConfidenceTiers(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	p := newPredictor(st)
	doc := storetest.AddDocument(t, st, "tiers", 100, 1)

	want := []model.Confidence{
		model.ConfidenceLow,
		model.ConfidenceLow,
		model.ConfidenceMedium,
		model.ConfidenceMedium,
		model.ConfidenceMedium,
		model.ConfidenceHigh,
		model.ConfidenceHigh,
	}
	for n, expected := range want {
		if got := p.Confidence(ctx, doc.ID); got != expected {
			t.Fatalf("%d sessions: expected %s, got %s", n, expected, got)
		}
		storetest.AddSession(t, st, doc.ID, testNow.Add(-time.Duration(n+1)*time.Hour), 5, 1, model.SessionSprint)
	}
}

func TestEstimateAll(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	p := newPredictor(st)

	if res := p.EstimateAll(ctx); res.Status != model.StatusEmpty {
		t.Fatalf("expected empty portfolio, got %v", res.Status)
	}

	storetest.AddDocument(t, st, "done", 20, 20)
	storetest.AddDocument(t, st, "open", 200, 1)
	storetest.AddDocument(t, st, "short", 11, 1)

	res := p.EstimateAll(ctx)
	if !res.OK() {
		t.Fatalf("expected ok portfolio, got %v (%v)", res.Status, res.Err)
	}
	pf := res.Value
	if pf.TotalDocuments != 3 || pf.CompletedDocuments != 1 || pf.RemainingDocuments != 2 {
		t.Fatalf("unexpected counts: %+v", pf)
	}
	if pf.TotalMinutes != 418 {
		t.Fatalf("expected 418 minutes, got %v", pf.TotalMinutes)
	}
	if len(pf.Documents) != 3 || pf.Documents[0].Title != "open" {
		t.Fatalf("expected estimates sorted by minutes, got %+v", pf.Documents)
	}
	if pf.Recommendation != "Heavy reading load - consider intensive study schedule" {
		t.Fatalf("unexpected recommendation %q", pf.Recommendation)
	}
}

func TestEvaluateGoal(t *testing.T) {
	st := storetest.Open(t)
	ctx := context.Background()
	doc := storetest.AddDocument(t, st, "thesis", 200, 1)
	goals := NewGoalEvaluator(newPredictor(st))

	cases := []struct {
		name      string
		target    time.Time
		feasible  bool
		reason    string
		recommend string
	}{
		{"yesterday", testNow.AddDate(0, 0, -1), false, ReasonDeadlinePassed, ""},
		{"today", testNow.Add(6 * time.Hour), false, ReasonDeadlinePassed, ""},
		{"next midnight", time.Date(2026, 3, 17, 0, 0, 0, 0, time.UTC), false, ReasonDeadlinePassed, ""},
		{"relaxed", testNow.AddDate(0, 0, 20), true, "", "Goal is easily achievable at your current pace"},
		{"stretch", testNow.AddDate(0, 0, 10), true, "", "Goal is achievable with 33% increase in daily reading"},
		{"tight", testNow.AddDate(0, 0, 5), false, "", "Goal requires significant increase in reading time - consider extending deadline"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := goals.Evaluate(ctx, tc.target, []string{doc.ID, "unknown"})
			if !res.OK() {
				t.Fatalf("expected ok result, got %v", res.Status)
			}
			got := res.Value
			if got.Feasible != tc.feasible {
				t.Fatalf("expected feasible=%v, got %+v", tc.feasible, got)
			}
			if tc.reason != "" && got.Reason != tc.reason {
				t.Fatalf("expected reason %q, got %q", tc.reason, got.Reason)
			}
			if tc.recommend != "" && got.Recommendation != tc.recommend {
				t.Fatalf("expected recommendation %q, got %q", tc.recommend, got.Recommendation)
			}
		})
	}

	res := goals.Evaluate(ctx, testNow.AddDate(0, 0, 10), nil)
	if res.Value.TotalMinutes != 398 || res.Value.DifficultyRatio == nil {
		t.Fatalf("expected all documents to be summed, got %+v", res.Value)
	}

	res = goals.Evaluate(ctx, time.Date(2026, 3, 26, 0, 0, 0, 0, time.UTC), nil)
	if res.Value.DaysAvailable != 9 {
		t.Fatalf("expected 9 whole days before a midnight deadline, got %d", res.Value.DaysAvailable)
	}
	if want := res.Value.TotalMinutes / 9; res.Value.RequiredDaily != want {
		t.Fatalf("expected required daily %v, got %v", want, res.Value.RequiredDaily)
	}
}

func TestEvaluateGoalPastIgnoresStore(t *testing.T) {
	goals := NewGoalEvaluator(newPredictor(failingStore{err: errors.New("down")}))
	res := goals.Evaluate(context.Background(), testNow.AddDate(0, 0, -3), nil)
	if !res.OK() || res.Value.Feasible || res.Value.Reason != ReasonDeadlinePassed {
		t.Fatalf("past deadline must short-circuit, got %+v", res)
	}
}

func TestDaysUntil(t *testing.T) {
	cases := []struct {
		target time.Time
		want   int
	}{
		{testNow, 0},
		{testNow.Add(11 * time.Hour), 0},
		{testNow.Add(13 * time.Hour), 0},
		{testNow.Add(36 * time.Hour), 1},
		{testNow.AddDate(0, 0, 7), 7},
		{testNow.Add(-time.Hour), -1},
		{testNow.AddDate(0, 0, -2), -2},
	}
	for _, tc := range cases {
		if got := DaysUntil(testNow, tc.target); got != tc.want {
			t.Fatalf("DaysUntil(%v) = %d, want %d", tc.target, got, tc.want)
		}
	}
}

func TestPredictSession(t *testing.T) {
	st := storetest.Open(t)
	doc := storetest.AddDocument(t, st, "notes", 80, 1)
	p := newPredictor(st)

	res := p.PredictSession(context.Background(), doc.ID, 10)
	if !res.OK() {
		t.Fatalf("expected ok prediction, got %v", res.Status)
	}
	pred := res.Value
	if pred.Minutes != 20 || pred.MinMinutes != 16 || pred.MaxMinutes != 24 {
		t.Fatalf("unexpected prediction: %+v", pred)
	}
	if pred.TimerMode != "Pomodoro (25 min)" {
		t.Fatalf("unexpected timer mode %q", pred.TimerMode)
	}
	if len(pred.Breaks) != 1 || pred.Breaks[0] != "No breaks needed for short session" {
		t.Fatalf("unexpected break advice %v", pred.Breaks)
	}

	long := p.PredictSession(context.Background(), doc.ID, 70).Value
	if long.TimerMode != "Multiple Pomodoro sessions" || len(long.Breaks) != 3 {
		t.Fatalf("unexpected long prediction: %+v", long)
	}
	if res := p.PredictSession(context.Background(), "missing", 5); res.Status != model.StatusEmpty {
		t.Fatalf("expected empty prediction for missing document, got %v", res.Status)
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := map[float64]string{
		0:     "0m",
		59.9:  "59m",
		60:    "1h",
		125.5: "2h 5m",
		-4:    "0m",
	}
	for in, want := range cases {
		if got := FormatMinutes(in); got != want {
			t.Fatalf("FormatMinutes(%v) = %q, want %q", in, got, want)
		}
	}
}
