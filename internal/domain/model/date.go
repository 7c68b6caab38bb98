package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// MaxSimulationDays bounds the length of a simulated period.
const MaxSimulationDays = 3650

// Date is a calendar date normalised to midnight UTC.
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts "2006-01-02" or an RFC 3339 timestamp.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return NewDate(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return NewDate(t), nil
}

// MustDate parses s and panics on error. Intended for tests and constants.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(DateLayout)
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysUntil returns the whole number of days from d to other.
func (d Date) DaysUntil(other Date) int {
	return int(other.Sub(d.Time).Hours() / 24)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Period is an inclusive range of simulated days.
type Period struct {
	Start Date
	End   Date
}

// Days returns the number of whole days between start and end.
func (p Period) Days() int {
	return p.Start.DaysUntil(p.End)
}

// Len returns the number of daily samples in the period (both ends inclusive).
func (p Period) Len() int {
	return p.Days() + 1
}

// Dates lists every day in the period.
func (p Period) Dates() []string {
	n := p.Len()
	if n <= 0 {
		return nil
	}
	out := make([]string, n)
	for i := range n {
		out[i] = p.Start.AddDays(i).String()
	}
	return out
}

// Validate checks the ordering and length rules for a simulated period.
func (p Period) Validate() error {
	if p.Start.IsZero() || p.End.IsZero() {
		return errors.New("start_date and end_date are required")
	}
	if !p.End.After(p.Start.Time) {
		return errors.New("end_date must be after start_date")
	}
	if days := p.Days(); days < 1 || days > MaxSimulationDays {
		return fmt.Errorf("simulation period must be between 1 and %d days", MaxSimulationDays)
	}
	return nil
}
