// Package timefmt renders times, durations and money in the property's
// timezone and locale.
package timefmt

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type Formatter struct {
	loc     *time.Location
	printer *message.Printer
}

func New(loc *time.Location) *Formatter {
	if loc == nil {
		loc = time.UTC
	}
	return &Formatter{
		loc:     loc,
		printer: message.NewPrinter(language.AmericanEnglish),
	}
}

func (f *Formatter) Location() *time.Location {
	return f.loc
}

// DateTime formats t as "Mar 4, 2026 3:04 PM" in the property timezone.
func (f *Formatter) DateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc).Format("Jan 2, 2006 3:04 PM")
}

func (f *Formatter) Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.In(f.loc).Format("Jan 2, 2006")
}

// Relative describes t relative to now ("just now", "5m ago", "3h ago",
// "2d ago"); older than a week falls back to the date.
func (f *Formatter) Relative(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return f.Date(t)
	}
}

// Duration formats seconds as "45s", "4m 05s" or "1h 02m".
func Duration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h, m, s := seconds/3600, (seconds%3600)/60, seconds%60
	switch {
	case h > 0:
		return fmt.Sprintf("%dh %02dm", h, m)
	case m > 0:
		return fmt.Sprintf("%dm %02ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// Cost formats cents as dollars with grouping, e.g. "$1,234.50".
func (f *Formatter) Cost(cents int64) string {
	return f.printer.Sprintf("$%.2f", float64(cents)/100)
}

func (f *Formatter) Count(n int) string {
	return f.printer.Sprintf("%d", n)
}

// Label turns identifiers like "late_checkout" into "Late Checkout".
func (f *Formatter) Label(s string) string {
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	// a Caser keeps state, so one per call
	return cases.Title(language.English).String(s)
}
