package domain

import (
	"fmt"
	"time"
)

// Epoch is day 0 of every count series.
var Epoch = time.Date(2020, time.January, 22, 0, 0, 0, 0, time.UTC)

// DayDate returns the calendar date of day offset n.
func DayDate(n int) time.Time {
	return Epoch.AddDate(0, 0, n)
}

// DayLabel formats day offset n as "M/D" for axis labels.
func DayLabel(n int) string {
	d := DayDate(n)
	return fmt.Sprintf("%d/%d", int(d.Month()), d.Day())
}
