package services

import (
	"time"

	"github.com/bayni/apiserver/types"
)

// MonthGrid returns the calendar cells shown for a month: whole weeks
// starting on Sunday, with days of the neighbouring months marked as
// outside the current month.
func MonthGrid(year int, month time.Month) []types.CalendarDay {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -int(first.Weekday()))
	end := last.AddDate(0, 0, int(time.Saturday-last.Weekday()))

	days := make([]types.CalendarDay, 0, 42)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, types.CalendarDay{
			Date:         d.Format(types.DateLayout),
			CurrentMonth: d.Month() == month,
		})
	}
	return days
}
