package views

import (
	"fmt"
	"time"
)

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	t = t.Local()
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

// formatDayDivider renders the date separator between calendar days.
func formatDayDivider(t time.Time) string {
	return t.Local().Format("Monday, January 2, 2006")
}

// formatElapsed renders a recording duration as mm:ss.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

// sameDay reports whether two timestamps fall on the same local calendar day.
func sameDay(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
