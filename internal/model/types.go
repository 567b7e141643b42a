// Package model defines shared data structures.
package model

import "time"

// SessionType tags how a reading session was run.
type SessionType string

// Known session types. Any other non-empty label is kept as-is.
const (
	SessionPomodoro SessionType = "pomodoro"
	SessionSprint   SessionType = "sprint"
	SessionRegular  SessionType = "regular"
)

// NormalizeSessionType maps an empty label to SessionRegular.
func NormalizeSessionType(t SessionType) SessionType {
	if t == "" {
		return SessionRegular
	}
	return t
}

// Document is a tracked PDF.
type Document struct {
	ID           string
	Title        string
	Path         string
	TotalPages   int
	CurrentPage  int
	ReadingSpeed *float64 // pages per minute
	TotalMinutes float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Page returns the current page, treating an unset page as 1.
func (d Document) Page() int {
	if d.CurrentPage < 1 {
		return 1
	}
	return d.CurrentPage
}

// ReadingSession is one bounded interval of reading.
type ReadingSession struct {
	ID          int64
	DocumentID  string
	StartedAt   time.Time
	EndedAt     *time.Time
	DurationMin *float64
	PagesRead   int
	StartPage   int
	EndPage     int
	Type        SessionType
}

// Closed reports whether the session has ended.
func (s ReadingSession) Closed() bool {
	return s.EndedAt != nil && s.DurationMin != nil
}

// Minutes returns the session duration, or 0 while the session is open.
func (s ReadingSession) Minutes() float64 {
	if s.DurationMin == nil {
		return 0
	}
	return *s.DurationMin
}

// Goal is a saved reading deadline over a set of documents.
type Goal struct {
	ID          string
	Label       string
	TargetDate  time.Time
	DocumentIDs []string
	CreatedAt   time.Time
}

// Tuning holds every window size and threshold used by the estimators.
type Tuning struct {
	DocumentSampleSessions int
	GlobalSampleSessions   int
	MinSamplePages         int
	DefaultSecondsPerPage  float64
	DailyAverageDays       int
	DefaultDailyMinutes    float64
	GoalStretchFactor      float64
	HighConfidenceSessions int
	MedConfidenceSessions  int
	PortfolioWorkers       int

	TrendDays             int
	TrendEpsilon          float64
	PatternWindowSessions int
	PatternRecentDays     int
	PatternHistoryDays    int
	PatternMinSessions    int
	PatternSpreadRatio    float64
}

// DefaultTuning returns the stock thresholds.
func DefaultTuning() Tuning {
	return Tuning{
		DocumentSampleSessions: 10,
		GlobalSampleSessions:   50,
		MinSamplePages:         3,
		DefaultSecondsPerPage:  120,
		DailyAverageDays:       30,
		DefaultDailyMinutes:    30,
		GoalStretchFactor:      1.5,
		HighConfidenceSessions: 5,
		MedConfidenceSessions:  2,
		PortfolioWorkers:       4,

		TrendDays:             30,
		TrendEpsilon:          0.1,
		PatternWindowSessions: 100,
		PatternRecentDays:     7,
		PatternHistoryDays:    30,
		PatternMinSessions:    10,
		PatternSpreadRatio:    0.7,
	}
}

// TrackerConfig defines reading-session timer settings.
type TrackerConfig struct {
	PomodoroMinutes  int
	SprintMinutes    int
	CustomMinutes    int
	MinDwellSeconds  int
	DailyGoalMinutes int
	ShowEstimate     bool
}

// DefaultTrackerConfig returns the stock timer settings.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		PomodoroMinutes:  25,
		SprintMinutes:    5,
		CustomMinutes:    60,
		MinDwellSeconds:  2,
		DailyGoalMinutes: 30,
		ShowEstimate:     true,
	}
}
