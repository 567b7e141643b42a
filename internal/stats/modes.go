package stats

import (
	"context"

	"github.com/verte-zerg/pagepace/internal/model"
)

var comparedModes = []model.SessionType{
	model.SessionPomodoro,
	model.SessionSprint,
	model.SessionRegular,
}

// TimerModeEffectiveness compares pomodoro, sprint and regular sessions.
func (a *Aggregator) TimerModeEffectiveness(ctx context.Context) model.Result[model.ModeComparison] {
	cmp := model.ModeComparison{Modes: make([]model.ModeStat, 0, len(comparedModes))}
	total := 0
	for _, mode := range comparedModes {
		sessions, err := a.store.SessionsByType(ctx, mode)
		if err != nil {
			a.log.Warn("load sessions by type", "mode", mode, "err", err)
			return model.Failed[model.ModeComparison](err)
		}
		stat := FoldMode(mode, sessions)
		total += stat.Sessions
		cmp.Modes = append(cmp.Modes, stat)
	}
	if total == 0 {
		return model.Empty[model.ModeComparison]()
	}

	best := cmp.Modes[0]
	for _, m := range cmp.Modes[1:] {
		if m.AvgSpeed > best.AvgSpeed {
			best = m
		}
	}
	cmp.MostEffective = best.Mode
	cmp.Recommendation = modeRecommendation(cmp.Modes[0], cmp.Modes[1], cmp.Modes[2])
	return model.Ok(cmp)
}

// FoldMode summarizes the sessions of one timer mode.
func FoldMode(mode model.SessionType, sessions []model.ReadingSession) model.ModeStat {
	stat := model.ModeStat{Mode: mode, Sessions: len(sessions)}
	if len(sessions) == 0 {
		return stat
	}
	for _, s := range sessions {
		stat.TotalMinutes += s.Minutes()
		stat.TotalPages += s.PagesRead
	}
	n := float64(len(sessions))
	stat.AvgSpeed = PagesPerMinute(stat.TotalPages, stat.TotalMinutes)
	stat.AvgDuration = stat.TotalMinutes / n
	stat.PagesPerSession = float64(stat.TotalPages) / n
	return stat
}

func modeRecommendation(pomodoro, sprint, regular model.ModeStat) string {
	switch {
	case pomodoro.AvgSpeed > sprint.AvgSpeed && pomodoro.AvgSpeed > regular.AvgSpeed:
		return "Try more Pomodoro sessions for better focus and speed"
	case sprint.AvgSpeed > regular.AvgSpeed:
		return "Sprint sessions work well for you - consider more quick reading bursts"
	default:
		return "Regular reading sessions suit your style - maintain your current approach"
	}
}
