// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/verte-zerg/pagepace/internal/model"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	DB         *string          `toml:"db"`
	Estimation EstimationConfig `toml:"estimation"`
	Analytics  AnalyticsConfig  `toml:"analytics"`
	Tracker    TrackerConfig    `toml:"tracker"`
	Log        LogConfig        `toml:"log"`
}

// EstimationConfig maps speed and forecast settings.
type EstimationConfig struct {
	DocumentSample    *int     `toml:"document-sample"`
	GlobalSample      *int     `toml:"global-sample"`
	MinSamplePages    *int     `toml:"min-sample-pages"`
	DefaultSecPerPage *float64 `toml:"default-seconds-per-page"`
	DailyAverageDays  *int     `toml:"daily-average-days"`
	DefaultDailyMin   *float64 `toml:"default-daily-minutes"`
	StretchFactor     *float64 `toml:"stretch-factor"`
	HighConfidence    *int     `toml:"high-confidence-sessions"`
	MediumConfidence  *int     `toml:"medium-confidence-sessions"`
	Workers           *int     `toml:"workers"`
}

// AnalyticsConfig maps trend and pattern settings.
type AnalyticsConfig struct {
	TrendDays     *int     `toml:"trend-days"`
	TrendEpsilon  *float64 `toml:"trend-epsilon"`
	PatternWindow *int     `toml:"pattern-window"`
	RecentDays    *int     `toml:"recent-days"`
	HistoryDays   *int     `toml:"history-days"`
	MinSessions   *int     `toml:"min-sessions"`
	SpreadRatio   *float64 `toml:"spread-ratio"`
}

// TrackerConfig maps reading tracker settings.
type TrackerConfig struct {
	PomodoroMinutes  *int  `toml:"pomodoro"`
	SprintMinutes    *int  `toml:"sprint"`
	CustomMinutes    *int  `toml:"custom"`
	MinDwellSeconds  *int  `toml:"min-dwell"`
	DailyGoalMinutes *int  `toml:"daily-goal"`
	ShowEstimate     *bool `toml:"show-estimate"`
}

// LogConfig maps logging settings.
type LogConfig struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return FileConfig{}, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Tuning overlays the estimation and analytics sections on the defaults.
func (c FileConfig) Tuning() (model.Tuning, error) {
	t := model.DefaultTuning()
	e, a := c.Estimation, c.Analytics
	setInt(&t.DocumentSampleSessions, e.DocumentSample)
	setInt(&t.GlobalSampleSessions, e.GlobalSample)
	setInt(&t.MinSamplePages, e.MinSamplePages)
	setFloat(&t.DefaultSecondsPerPage, e.DefaultSecPerPage)
	setInt(&t.DailyAverageDays, e.DailyAverageDays)
	setFloat(&t.DefaultDailyMinutes, e.DefaultDailyMin)
	setFloat(&t.GoalStretchFactor, e.StretchFactor)
	setInt(&t.HighConfidenceSessions, e.HighConfidence)
	setInt(&t.MedConfidenceSessions, e.MediumConfidence)
	setInt(&t.PortfolioWorkers, e.Workers)
	setInt(&t.TrendDays, a.TrendDays)
	setFloat(&t.TrendEpsilon, a.TrendEpsilon)
	setInt(&t.PatternWindowSessions, a.PatternWindow)
	setInt(&t.PatternRecentDays, a.RecentDays)
	setInt(&t.PatternHistoryDays, a.HistoryDays)
	setInt(&t.PatternMinSessions, a.MinSessions)
	setFloat(&t.PatternSpreadRatio, a.SpreadRatio)
	return t, ValidateTuning(t)
}

// TrackerSettings overlays the tracker section on the defaults.
func (c FileConfig) TrackerSettings() (model.TrackerConfig, error) {
	t := model.DefaultTrackerConfig()
	setInt(&t.PomodoroMinutes, c.Tracker.PomodoroMinutes)
	setInt(&t.SprintMinutes, c.Tracker.SprintMinutes)
	setInt(&t.CustomMinutes, c.Tracker.CustomMinutes)
	setInt(&t.MinDwellSeconds, c.Tracker.MinDwellSeconds)
	setInt(&t.DailyGoalMinutes, c.Tracker.DailyGoalMinutes)
	if c.Tracker.ShowEstimate != nil {
		t.ShowEstimate = *c.Tracker.ShowEstimate
	}
	if t.PomodoroMinutes <= 0 || t.SprintMinutes <= 0 || t.CustomMinutes <= 0 {
		return t, fmt.Errorf("tracker timer minutes must be positive")
	}
	if t.MinDwellSeconds < 0 || t.DailyGoalMinutes < 0 {
		return t, fmt.Errorf("tracker min-dwell and daily-goal must be >= 0")
	}
	return t, nil
}

// ValidateTuning rejects settings the estimators cannot work with.
func ValidateTuning(t model.Tuning) error {
	positive := map[string]int{
		"document-sample":            t.DocumentSampleSessions,
		"global-sample":              t.GlobalSampleSessions,
		"min-sample-pages":           t.MinSamplePages,
		"daily-average-days":         t.DailyAverageDays,
		"workers":                    t.PortfolioWorkers,
		"trend-days":                 t.TrendDays,
		"pattern-window":             t.PatternWindowSessions,
		"recent-days":                t.PatternRecentDays,
		"medium-confidence-sessions": t.MedConfidenceSessions,
	}
	for name, v := range positive {
		if v <= 0 {
			return fmt.Errorf("%s must be > 0", name)
		}
	}
	switch {
	case t.DefaultSecondsPerPage <= 0:
		return fmt.Errorf("default-seconds-per-page must be > 0")
	case t.DefaultDailyMinutes <= 0:
		return fmt.Errorf("default-daily-minutes must be > 0")
	case t.GoalStretchFactor < 1:
		return fmt.Errorf("stretch-factor must be >= 1")
	case t.HighConfidenceSessions < t.MedConfidenceSessions:
		return fmt.Errorf("high-confidence-sessions must be >= medium-confidence-sessions")
	case t.PatternHistoryDays <= t.PatternRecentDays:
		return fmt.Errorf("history-days must be greater than recent-days")
	case t.TrendEpsilon < 0:
		return fmt.Errorf("trend-epsilon must be >= 0")
	case t.PatternSpreadRatio < 0 || t.PatternSpreadRatio > 1:
		return fmt.Errorf("spread-ratio must be between 0 and 1")
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
