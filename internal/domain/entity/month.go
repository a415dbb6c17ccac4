package entity

import (
	"database/sql/driver"
	"fmt"
	"time"
)

const monthLayout = "2006-01"

// Month identifies a calendar month. Its string form is the month key "YYYY-MM".
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth returns a Month for year and month
func NewMonth(year int, month time.Month) Month {
	return Month{Year: year, Month: month}
}

// MonthOf returns the month containing t
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: t.Month()}
}

// ParseMonth parses a "YYYY-MM" month key
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("invalid month %q: %w", s, err)
	}
	return MonthOf(t), nil
}

// String returns the "YYYY-MM" key
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Number returns the two-digit month without the year
func (m Month) Number() string {
	return fmt.Sprintf("%02d", int(m.Month))
}

// IsZero reports whether m is unset
func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// Start returns midnight UTC of the first day
func (m Month) Start() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// End returns the first instant of the following month
func (m Month) End() time.Time {
	return m.Start().AddDate(0, 1, 0)
}

// Previous returns the month before m
func (m Month) Previous() Month {
	return MonthOf(m.Start().AddDate(0, -1, 0))
}

// After reports whether m is later than o
func (m Month) After(o Month) bool {
	if m.Year != o.Year {
		return m.Year > o.Year
	}
	return m.Month > o.Month
}

// Scan implements sql.Scanner
func (m *Month) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Month", value)
	}
	parsed, err := ParseMonth(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Value implements driver.Valuer
func (m Month) Value() (driver.Value, error) {
	return m.String(), nil
}
