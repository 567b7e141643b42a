package estimate

import (
	"fmt"
	"math"
)

// FormatMinutes renders a duration as "45m", "2h" or "2h 5m".
func FormatMinutes(minutes float64) string {
	if minutes < 0 || math.IsNaN(minutes) {
		minutes = 0
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", int(minutes))
	}
	hours := int(minutes / 60)
	rest := int(math.Mod(minutes, 60))
	if rest == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rest)
}

func documentRecommendation(minutes float64, days *float64) string {
	switch {
	case minutes < 30:
		return "Quick read - can finish in one session"
	case minutes < 120:
		return "Medium read - plan 2-3 focused sessions"
	case days != nil && *days > 0 && *days < 7:
		return "Intensive reading needed - consider daily sessions"
	default:
		return "Long-term reading - pace yourself with regular sessions"
	}
}

func portfolioRecommendation(minutes float64, days *float64) string {
	switch {
	case minutes < 60:
		return "Light reading load - easily manageable"
	case minutes < 300:
		return "Moderate reading load - plan regular sessions"
	case days != nil && *days > 0 && *days < 14:
		return "Heavy reading load - consider intensive study schedule"
	default:
		return "Substantial reading ahead - create structured study plan"
	}
}

func goalRecommendation(feasible bool, required, average float64) string {
	if feasible {
		if required <= average {
			return "Goal is easily achievable at your current pace"
		}
		return fmt.Sprintf("Goal is achievable with %.0f%% increase in daily reading", (required/average-1)*100)
	}
	if required > average*2 {
		return "Goal requires significant increase in reading time - consider extending deadline"
	}
	return "Goal is challenging but possible with focused effort"
}

func timerMode(minutes float64) string {
	switch {
	case minutes <= 7:
		return "Sprint (5 min)"
	case minutes <= 30:
		return "Pomodoro (25 min)"
	case minutes <= 60:
		return "Custom (60 min)"
	default:
		return "Multiple Pomodoro sessions"
	}
}

func breakAdvice(minutes float64) []string {
	var advice []string
	if minutes > 25 {
		advice = append(advice, "Take 5-minute breaks every 25 minutes")
	}
	if minutes > 60 {
		advice = append(advice, "Consider a longer 15-minute break halfway through")
	}
	if minutes > 120 {
		advice = append(advice, "Split into multiple sessions across different times")
	}
	if len(advice) == 0 {
		advice = []string{"No breaks needed for short session"}
	}
	return advice
}
