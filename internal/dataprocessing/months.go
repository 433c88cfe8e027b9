package dataprocessing

import (
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"notireport/internal/config"
)

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// MonthNamer renders month numbers as capitalized full names
type MonthNamer struct {
	tag language.Tag
}

// NewMonthNamer returns a namer for "es" or "en"; anything else falls back to Spanish.
func NewMonthNamer(locale string) MonthNamer {
	if locale == "en" {
		return MonthNamer{tag: language.English}
	}
	return MonthNamer{tag: language.Spanish}
}

// Name returns the full month name, or the missing-value label outside 1..12
func (m MonthNamer) Name(month int) string {
	if month < 1 || month > 12 {
		return config.LabelMissingValue
	}
	name := spanishMonths[month-1]
	if m.tag == language.English {
		name = time.Month(month).String()
	}
	return cases.Title(m.tag).String(name)
}
