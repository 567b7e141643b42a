package model

import "time"

// Confidence labels the sample size behind an estimate.
type Confidence string

// Confidence levels.
const (
	ConfidenceLow     Confidence = "Low"
	ConfidenceMedium  Confidence = "Medium"
	ConfidenceHigh    Confidence = "High"
	ConfidenceUnknown Confidence = "Unknown"
)

// DerivedEstimate is a completion forecast for one document.
type DerivedEstimate struct {
	DocumentID       string
	Title            string
	TotalPages       int
	CurrentPage      int
	RemainingPages   int
	ProgressPercent  float64
	SecondsPerPage   float64
	EstimatedMinutes float64
	Formatted        string
	DailyAverage     float64
	DaysToComplete   *float64
	CompletionDate   *time.Time
	Confidence       Confidence
	Recommendation   string
}

// PortfolioEstimate aggregates estimates over every document.
type PortfolioEstimate struct {
	TotalDocuments     int
	CompletedDocuments int
	RemainingDocuments int
	CompletionPercent  float64
	TotalMinutes       float64
	Formatted          string
	DailyAverage       float64
	DaysToComplete     *float64
	Documents          []DerivedEstimate
	Recommendation     string
}

// FeasibilityResult judges whether a deadline is reachable.
type FeasibilityResult struct {
	TargetDate      time.Time
	DocumentIDs     []string
	Feasible        bool
	Reason          string
	DaysAvailable   int
	TotalMinutes    float64
	RequiredDaily   float64
	DailyAverage    float64
	DifficultyRatio *float64
	Recommendation  string
}

// SessionPrediction forecasts a single upcoming session.
type SessionPrediction struct {
	DocumentID     string
	TargetPages    int
	SecondsPerPage float64
	Minutes        float64
	MinMinutes     float64
	MaxMinutes     float64
	Formatted      string
	TimerMode      string
	Breaks         []string
}

// DailyStat folds the sessions started on one local date.
type DailyStat struct {
	Date           time.Time
	TotalMinutes   float64
	TotalPages     int
	SessionCount   int
	AvgSpeed       float64 // pages per minute
	SessionTypes   map[SessionType]int
	LongestSession float64
}

// WeeklyStat folds seven consecutive days starting on Monday.
type WeeklyStat struct {
	WeekStart         time.Time
	WeekEnd           time.Time
	Days              []DailyStat
	TotalMinutes      float64
	TotalPages        int
	TotalSessions     int
	AvgDailyMinutes   float64
	AvgDailyPages     float64
	MostProductiveDay time.Time
	StreakDays        int
}

// TrendPoint is one day in a trend window.
type TrendPoint struct {
	Date     time.Time
	Minutes  float64
	Pages    int
	Sessions int
}

// Trend directions.
const (
	TrendImproving = "improving"
	TrendDeclining = "declining"
	TrendStable    = "stable"
)

// TrendReport summarizes daily reading over a window.
type TrendReport struct {
	Days             int
	Start            time.Time
	End              time.Time
	Points           []TrendPoint
	TotalMinutes     float64
	TotalPages       int
	AvgDailyMinutes  float64
	Direction        string
	Recent7DayAvg    float64
	Previous7DayAvg  float64
	BestDay          TrendPoint
	WorstDay         TrendPoint
	ConsistencyScore float64
}

// DocStat is the lifetime summary of one document.
type DocStat struct {
	DocumentID        string
	Title             string
	TotalPages        int
	CurrentPage       int
	ProgressPercent   float64
	TotalMinutes      float64
	PagesRead         int
	SessionCount      int
	AvgSessionMinutes float64
	ReadingSpeed      float64
	EstimatedMinutes  float64
	Formatted         string
	FirstSession      *time.Time
	LastSession       *time.Time
}

// ModeStat summarizes one session type.
type ModeStat struct {
	Mode            SessionType
	Sessions        int
	TotalMinutes    float64
	TotalPages      int
	AvgSpeed        float64
	AvgDuration     float64
	PagesPerSession float64
}

// ModeComparison compares the timer modes.
type ModeComparison struct {
	Modes          []ModeStat
	MostEffective  SessionType
	Recommendation string
}

// StreakReport holds the current and longest reading streaks.
type StreakReport struct {
	Current     int
	Longest     int
	LongestEnd  time.Time
	LastReadDay time.Time
	ActiveDays  int
}

// PatternReport describes recent reading habits.
type PatternReport struct {
	SessionsAnalyzed   int
	AvgSessionMinutes  float64
	AvgPagesPerSession float64
	MostProductiveHour *int
	RecentSpeed        float64
	HistoricalSpeed    float64
	SpeedTrend         string
	ConsistencyScore   float64
	UniqueDays         int
	Recommendations    []string
}
