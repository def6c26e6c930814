package screening

import "time"

const trendDays = 7

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// weekStart is midnight six days before now, so the window covers today and
// the six days before it.
func weekStart(now time.Time) time.Time {
	return startOfDay(now).AddDate(0, 0, -(trendDays - 1))
}

func buildDashboard(now time.Time, t *Totals) DashboardStats {
	stats := DashboardStats{
		WeeklyTrend: WeeklyTrend{
			Dates:  make([]string, 0, trendDays),
			Counts: make([]int, 0, trendDays),
		},
	}

	today := startOfDay(now)
	stats.TodayCases = t.Daily[today.Format("2006-01-02")]
	if t.Total > 0 {
		stats.PositiveRate = float64(t.Positives) / float64(t.Total)
	}

	for i := trendDays - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		stats.WeeklyTrend.Dates = append(stats.WeeklyTrend.Dates, day.Format("Mon"))
		stats.WeeklyTrend.Counts = append(stats.WeeklyTrend.Counts, t.Daily[day.Format("2006-01-02")])
	}
	return stats
}
