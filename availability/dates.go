package availability

import (
	"errors"
	"fmt"
	"time"

	"hotel-booking/models"
)

// MaxStayDays bounds the inclusive range accepted by the booking endpoints.
const MaxStayDays = 366

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidRange = errors.New("check-in must not be after check-out")
	ErrStayTooLong  = fmt.Errorf("stay longer than %d days", MaxStayDays)
)

// Day truncates t to its calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate accepts "2006-01-02" and RFC 3339 timestamps. A timestamp names
// the calendar date in its own offset, so a "Z" timestamp is read as a UTC
// date; clients that mean a local date should send "2006-01-02".
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(models.DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

// FormatDate renders the calendar day of t in storage format.
func FormatDate(t time.Time) string {
	return Day(t).Format(models.DateLayout)
}

// DatesBetween returns every day of the inclusive range checkIn..checkOut.
func DatesBetween(checkIn, checkOut time.Time) []time.Time {
	start, end := Day(checkIn), Day(checkOut)
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

// ValidateRange rejects reversed ranges and stays above MaxStayDays.
func ValidateRange(checkIn, checkOut time.Time) error {
	start, end := Day(checkIn), Day(checkOut)
	if start.After(end) {
		return ErrInvalidRange
	}
	if end.Sub(start) >= MaxStayDays*24*time.Hour {
		return ErrStayTooLong
	}
	return nil
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = FormatDate(d)
	}
	return out
}
