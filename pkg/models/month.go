package models

import (
	"fmt"
	"time"
)

var monthNamesFR = [...]string{
	"Janvier", "Février", "Mars", "Avril", "Mai", "Juin",
	"Juillet", "Août", "Septembre", "Octobre", "Novembre", "Décembre",
}

var weekdayNamesFR = [...]string{
	"dimanche", "lundi", "mardi", "mercredi", "jeudi", "vendredi", "samedi",
}

// Month identifies one ledger partition.
type Month struct {
	Year  int
	Month time.Month
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth accepts YYYY-MM.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// MonthOfDate returns the month of an ISO date.
func MonthOfDate(date string) (Month, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return Month{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return MonthOf(t), nil
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Label is the French display name, e.g. "Juin 2025".
func (m Month) Label() string {
	return fmt.Sprintf("%s %d", monthNamesFR[m.Month-1], m.Year)
}

// Name is the French month name alone.
func (m Month) Name() string {
	return monthNamesFR[m.Month-1]
}

// First returns the first day of the month at midnight UTC.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.First().AddDate(0, 1, -1).Day()
}

// Offset moves by n months, negative for the past.
func (m Month) Offset(n int) Month {
	return MonthOf(m.First().AddDate(0, n, 0))
}

// Date returns the ISO date of the given day of the month.
func (m Month) Date(day int) string {
	return time.Date(m.Year, m.Month, day, 0, 0, 0, 0, time.UTC).Format(DateLayout)
}

// Contains reports whether an ISO date falls in the month.
func (m Month) Contains(date string) bool {
	dm, err := MonthOfDate(date)
	return err == nil && dm == m
}

// FormatDateLong renders an ISO date as "mardi 10 juin 2025". Unparseable
// dates are returned as-is.
func FormatDateLong(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%s %d %s %d", weekdayNamesFR[t.Weekday()], t.Day(), lower(monthNamesFR[t.Month()-1]), t.Year())
}

// FormatDateShort renders an ISO date as "10/6".
func FormatDateShort(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d/%d", t.Day(), int(t.Month()))
}

func lower(s string) string {
	r := []rune(s)
	if len(r) > 0 && r[0] >= 'A' && r[0] <= 'Z' {
		r[0] += 'a' - 'A'
	}
	return string(r)
}
