package stats

import (
	"context"
	"math"
	"time"

	"github.com/verte-zerg/pagepace/internal/model"
)

const trendWindow = 7

// ReadingTrends builds one point per day for the last days days, ending
// today. A non-positive days uses the configured default.
func (a *Aggregator) ReadingTrends(ctx context.Context, days int) model.Result[model.TrendReport] {
	if days <= 0 {
		days = a.tuning.TrendDays
	}
	end := a.today()
	start := end.AddDate(0, 0, -(days - 1))
	daily, err := a.foldDays(ctx, start, days)
	if err != nil {
		a.log.Warn("load trend sessions", "days", days, "err", err)
		return model.Failed[model.TrendReport](err)
	}
	return model.Ok(BuildTrend(daily, a.tuning.TrendEpsilon))
}

// BuildTrend summarizes consecutive daily stats. Direction compares the
// mean minutes of the last seven days with the seven days before them.
func BuildTrend(daily []model.DailyStat, epsilon float64) model.TrendReport {
	report := model.TrendReport{Days: len(daily)}
	if len(daily) == 0 {
		return report
	}
	report.Start = daily[0].Date
	report.End = daily[len(daily)-1].Date

	minutes := make([]float64, len(daily))
	report.Points = make([]model.TrendPoint, len(daily))
	for i, d := range daily {
		p := model.TrendPoint{
			Date:     d.Date,
			Minutes:  d.TotalMinutes,
			Pages:    d.TotalPages,
			Sessions: d.SessionCount,
		}
		report.Points[i] = p
		minutes[i] = p.Minutes
		report.TotalMinutes += p.Minutes
		report.TotalPages += p.Pages
		if i == 0 || p.Minutes > report.BestDay.Minutes {
			report.BestDay = p
		}
		if i == 0 || p.Minutes < report.WorstDay.Minutes {
			report.WorstDay = p
		}
	}
	report.AvgDailyMinutes = report.TotalMinutes / float64(len(daily))

	n := len(minutes)
	recentFrom := max(0, n-trendWindow)
	previousFrom := max(0, n-2*trendWindow)
	report.Recent7DayAvg = sum(minutes[recentFrom:]) / trendWindow
	report.Previous7DayAvg = sum(minutes[previousFrom:recentFrom]) / trendWindow
	report.Direction = Direction(report.Recent7DayAvg, report.Previous7DayAvg, epsilon)
	report.ConsistencyScore = ConsistencyScore(minutes)
	return report
}

// Direction labels recent against previous, treating differences below
// epsilon as stable.
func Direction(recent, previous, epsilon float64) string {
	switch {
	case math.Abs(recent-previous) < epsilon:
		return model.TrendStable
	case recent > previous:
		return model.TrendImproving
	default:
		return model.TrendDeclining
	}
}

// TrendSeries returns the daily minutes of a report and their moving average.
func TrendSeries(report model.TrendReport) (daily, smoothed []float64) {
	daily = make([]float64, len(report.Points))
	for i, p := range report.Points {
		daily[i] = p.Minutes
	}
	return daily, MovingAverage(daily, trendWindow)
}

func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// trendLabel formats the x-axis labels of a trend chart.
func trendLabel(t time.Time) string {
	return t.Format("Jan 2")
}
