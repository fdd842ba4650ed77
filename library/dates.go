package library

import (
	"fmt"
	"time"
)

// DateLayout is how every date is stored: calendar days, no time of day.
const DateLayout = "2006-01-02"

// formatDate renders t's calendar day in t's own location.
func formatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// maxYear keeps stored dates at four digits so text order is date order.
const maxYear = 9999

// addDays shifts a stored date by n calendar days.
func addDays(date string, n int) (string, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", date, err)
	}
	d = d.AddDate(0, 0, n)
	if y := d.Year(); y < 1 || y > maxYear {
		return "", fmt.Errorf("%d days from %s is outside years 0001-%d", n, date, maxYear)
	}
	return d.Format(DateLayout), nil
}

// daysBetween returns to minus from in whole calendar days.
func daysBetween(from, to string) (int, error) {
	f, err := time.Parse(DateLayout, from)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", from, err)
	}
	t, err := time.Parse(DateLayout, to)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", to, err)
	}
	// Both are UTC midnights, so the difference is an exact multiple of 24h.
	return int(t.Sub(f).Hours() / 24), nil
}
