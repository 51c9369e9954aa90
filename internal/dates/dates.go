package dates

import (
	"errors"
	"fmt"
	"time"
)

// Layout is the ISO 8601 calendar-date layout used in storage and on the wire.
const Layout = "2006-01-02"

// TimeLayout is the ISO 8601 clock-time layout used for body measurements.
const TimeLayout = "15:04:05"

var (
	// ErrInvalidDate indicates a value that is not a YYYY-MM-DD date.
	ErrInvalidDate = errors.New("dates: invalid date")
	// ErrInvalidTime indicates a value that is not a HH:MM:SS time.
	ErrInvalidTime = errors.New("dates: invalid time")
	// ErrInvalidRange indicates a range whose start falls after its end.
	ErrInvalidRange = errors.New("dates: start after end")
)

// Parse validates a YYYY-MM-DD string and returns its canonical form.
func Parse(value string) (string, error) {
	parsed, err := time.Parse(Layout, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return parsed.Format(Layout), nil
}

// ParseTime validates a HH:MM:SS string and returns its canonical form.
func ParseTime(value string) (string, error) {
	parsed, err := time.Parse(TimeLayout, value)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, value)
	}
	return parsed.Format(TimeLayout), nil
}

// Today formats the current date in the given location.
func Today(clock func() time.Time, location *time.Location) string {
	if clock == nil {
		clock = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	return clock().In(location).Format(Layout)
}

// Range returns every date from start to end inclusive, newest first.
func Range(start, end string) ([]string, error) {
	startDay, err := time.Parse(Layout, start)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, start)
	}
	endDay, err := time.Parse(Layout, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDate, end)
	}
	if startDay.After(endDay) {
		return nil, ErrInvalidRange
	}

	var days []string
	for day := endDay; !day.Before(startDay); day = day.AddDate(0, 0, -1) {
		days = append(days, day.Format(Layout))
	}
	return days, nil
}
