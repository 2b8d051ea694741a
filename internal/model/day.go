package model

import (
	"fmt"
	"time"
)

// DayLayout is the textual form of a Day.
const DayLayout = "2006-01-02"

// Day is a calendar day counted from 1970-01-01. It carries no time zone or
// hour-of-day, so it is safe to use as a map key for date lookups.
type Day int64

// DayOf normalizes t to its calendar day, using the Y/M/D as seen in t's own location.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// NewDay builds a Day from a year, month and day-of-month.
func NewDay(year int, month time.Month, day int) Day {
	return DayOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// ParseDay parses a "2006-01-02" string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(DayLayout, s)
	if err != nil {
		return 0, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns the day's midnight in UTC.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*86400, 0).UTC()
}

// Weekday returns the day of week, Sunday = 0.
func (d Day) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// DayOfMonth returns 1..31.
func (d Day) DayOfMonth() int {
	return d.Time().Day()
}

// AddDays returns the day n calendar days later.
func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

// DaysUntil returns the number of calendar days from d to other.
func (d Day) DaysUntil(other Day) int {
	return int(other - d)
}

func (d Day) String() string {
	return d.Time().Format(DayLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Day) UnmarshalText(b []byte) error {
	parsed, err := ParseDay(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
