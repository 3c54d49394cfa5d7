package booking

import (
	"time"

	"github.com/appflows/booking-flow/internal/schedule"
)

// DayGrid builds the fixed 24-slot availability grid for a provider's day.
// An hour is available when nothing is booked at that hour and the hour has
// not already passed. Hours are local wall clock.
func DayGrid(now time.Time, year, month, day int, appointments []Appointment) []schedule.Slot {
	booked := make(map[int]bool, len(appointments))
	for _, a := range appointments {
		booked[a.StartsAt.Hour()] = true
	}

	grid := make([]schedule.Slot, 0, schedule.HoursPerDay)
	for hour := 0; hour < schedule.HoursPerDay; hour++ {
		slotTime := time.Date(year, time.Month(month), day, hour, 0, 0, 0, time.Local)
		grid = append(grid, schedule.Slot{
			Hour:      hour,
			Available: !booked[hour] && slotTime.After(now),
		})
	}

	return grid
}

// dayBounds returns the half-open local-time interval covering the day.
func dayBounds(year, month, day int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	return start, start.AddDate(0, 0, 1)
}
