// Package schedule holds the pure day-grid transforms shared by the
// booking client and the api-server.
package schedule

import (
	"fmt"
	"sort"
)

// HoursPerDay is the size of a full day grid.
const HoursPerDay = 24

// Slot is one hour-of-day entry in a provider's day grid.
type Slot struct {
	Hour      int  `json:"hour"`
	Available bool `json:"available"`
}

// DisplaySlot is a Slot with its display label attached.
type DisplaySlot struct {
	Hour      int
	Available bool
	Label     string
}

// Partition splits a day grid into a morning bucket (hour < 12) and an
// afternoon bucket (hour >= 12), each ordered by hour ascending. It only
// filters and formats what it receives: duplicate hours stay duplicated and
// missing hours stay missing.
func Partition(slots []Slot) (morning, afternoon []DisplaySlot) {
	for _, s := range slots {
		ds := DisplaySlot{
			Hour:      s.Hour,
			Available: s.Available,
			Label:     FormatHour(s.Hour),
		}
		if s.Hour < 12 {
			morning = append(morning, ds)
		} else {
			afternoon = append(afternoon, ds)
		}
	}

	sort.SliceStable(morning, func(i, j int) bool { return morning[i].Hour < morning[j].Hour })
	sort.SliceStable(afternoon, func(i, j int) bool { return afternoon[i].Hour < afternoon[j].Hour })

	return morning, afternoon
}

// FormatHour renders an hour of day as a zero padded 24h clock label,
// minutes fixed at :00.
func FormatHour(hour int) string {
	return fmt.Sprintf("%02d:00", hour)
}

// AvailableAt reports whether the grid marks the given hour available.
// An hour missing from the grid counts as unavailable.
func AvailableAt(slots []Slot, hour int) bool {
	for _, s := range slots {
		if s.Hour == hour {
			return s.Available
		}
	}
	return false
}
