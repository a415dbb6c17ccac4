package view

import (
	"fmt"
	"strconv"
	"time"

	"github.com/garyjia/invoice-desk/internal/domain/entity"
)

var monthLabels = [12]string{
	"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
	"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre",
}

// MonthOption is one entry of the month selector
type MonthOption struct {
	Value    string
	Label    string
	Disabled bool
}

// MonthOptions lists the twelve months of year. Months after now are disabled.
func MonthOptions(year int, now time.Time) []MonthOption {
	current := entity.MonthOf(now)
	opts := make([]MonthOption, 0, len(monthLabels))
	for i, label := range monthLabels {
		m := entity.NewMonth(year, time.Month(i+1))
		opts = append(opts, MonthOption{
			Value:    m.Number(),
			Label:    label,
			Disabled: m.After(current),
		})
	}
	return opts
}

// MonthLabel returns the Spanish name of a "01".."12" value
func MonthLabel(value string) string {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 12 {
		return value
	}
	return monthLabels[n-1]
}

// monthKey validates a "01".."12" value and joins it with year
func monthKey(year int, value string) (entity.Month, error) {
	if len(value) != 2 {
		return entity.Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 12 {
		return entity.Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, value)
	}
	return entity.NewMonth(year, time.Month(n)), nil
}
