package review

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar date (no time-of-day component). Snapshot and evidence
// dates are compared at day precision, so the wall-clock portion is always
// normalized to midnight UTC.
type Date struct {
	t time.Time
}

// NewDate creates a date from year, month, day
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar date
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO-8601 date (YYYY-MM-DD)
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// ParseFlexibleDate parses an ISO-8601 date, falling back to DD/MM/YYYY.
// Upstream reconciliation exports mix both formats in uncleared-item rows.
func ParseFlexibleDate(s string) (Date, error) {
	if d, err := ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse("02/01/2006", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q", s)
	}
	return DateOf(t), nil
}

// MustDate parses an ISO date and panics on failure. Intended for tests and
// literals only.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }

// IsZero reports whether the date is the zero value
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly before other
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }

// After reports whether d is strictly after other
func (d Date) After(other Date) bool { return d.t.After(other.t) }

// Equal reports whether d and other are the same calendar date
func (d Date) Equal(other Date) bool { return d.t.Equal(other.t) }

// Compare returns -1, 0 or 1 ordering d against other
func (d Date) Compare(other Date) int { return d.t.Compare(other.t) }

// AddDays returns the date shifted by the given number of days
func (d Date) AddDays(days int) Date {
	return DateOf(d.t.AddDate(0, 0, days))
}

// DaysUntil returns the number of whole days from d to other
// (negative when other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t) / (24 * time.Hour))
}

// AddMonths shifts the date by whole calendar months, clamping the day to
// the target month's last day when it would overflow (Jan 31 + 1 = Feb 28).
func (d Date) AddMonths(months int) Date {
	total := d.Year()*12 + int(d.Month()) - 1 + months
	year, month := total/12, total%12
	if month < 0 {
		month += 12
		year--
	}
	m := time.Month(month + 1)
	day := d.Day()
	if last := daysInMonth(year, m); day > last {
		day = last
	}
	return NewDate(year, m, day)
}

// RollMonths shifts the date by whole calendar months, preserving month-end:
// a date on its month's last day lands on the target month's last day
// (Apr 30 + 1 = May 31). Tax filing periods roll this way.
func (d Date) RollMonths(months int) Date {
	shifted := d.AddMonths(months)
	if d.IsMonthEnd() {
		return shifted.LastDayOfMonth()
	}
	return shifted
}

// LastDayOfMonth returns the final day of the date's month
func (d Date) LastDayOfMonth() Date {
	return NewDate(d.Year(), d.Month(), daysInMonth(d.Year(), d.Month()))
}

// IsMonthEnd reports whether the date is the last day of its month
func (d Date) IsMonthEnd() bool {
	return d.Day() == daysInMonth(d.Year(), d.Month())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// String returns the ISO-8601 representation
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(dateLayout)
}

// MarshalText implements encoding.TextMarshaler (used by both JSON and YAML)
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Date) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
