package core

import (
	"fmt"
	"strconv"
	"time"
)

// DefaultLimitPerDay caps how many submissions one day of an export window
// may fetch.
const DefaultLimitPerDay = 2000

// window is a half-open range of whole days in the service time zone.
type window struct {
	start time.Time
	end   time.Time
}

// exportWindow resolves the days to export. Without a start date the
// window begins at midnight yesterday.
func exportWindow(now time.Time, loc *time.Location, startDate string, days int) (window, error) {
	if days <= 0 {
		return window{}, fmt.Errorf("%w: days must be positive, got %d", ErrInvalidRequest, days)
	}

	var start time.Time
	if startDate == "" {
		y := now.In(loc).AddDate(0, 0, -1)
		start = time.Date(y.Year(), y.Month(), y.Day(), 0, 0, 0, 0, loc)
	} else {
		t, err := time.ParseInLocation("2006-01-02", startDate, loc)
		if err != nil {
			return window{}, fmt.Errorf("%w: start_date %q: %w", ErrInvalidRequest, startDate, err)
		}
		start = t
	}
	return window{start: start, end: start.AddDate(0, 0, days)}, nil
}

// filter returns the forms API query for the window.
func (w window) filter(limit int) map[string]string {
	return map[string]string{
		"created__gte": w.start.UTC().Format(time.RFC3339),
		"created__lt":  w.end.UTC().Format(time.RFC3339),
		"limit":        strconv.Itoa(limit),
	}
}
