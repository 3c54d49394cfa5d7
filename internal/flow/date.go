package flow

import (
	"fmt"
	"time"
)

// Date is a calendar day. All scheduling is done in local wall-clock time,
// so a Date carries no location and no time-of-day component.
type Date struct {
	Year  int
	Month int // 1-12
	Day   int // 1-31
}

// DateOf truncates a time to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// At combines the date with an hour of day, minutes and seconds zero,
// in local time.
func (d Date) At(hour int) time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, hour, 0, 0, 0, time.Local)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}
