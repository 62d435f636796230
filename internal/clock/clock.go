// Package clock converts between the wall-clock HH:MM values a user types and the
// canonical GMT HH:MM values the device stores.
package clock

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// MinutesPerDay is the size of the time-of-day axis.
const MinutesPerDay = 1440

// Layout is the HH:MM layout used by every stored time.
const Layout = "15:04"

var hhmm = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Valid reports whether s is a well formed HH:MM string in 00:00..23:59.
func Valid(s string) bool {
	return hhmm.MatchString(s)
}

// Parse returns the minute of day for an HH:MM string.
func Parse(s string) (int, error) {
	if !Valid(s) {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, _ := strconv.Atoi(s[:2])
	m, _ := strconv.Atoi(s[3:])
	return h*60 + m, nil
}

// MustParse is Parse for values already validated by the caller.
func MustParse(s string) int {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Format renders a minute of day as HH:MM, wrapping modulo one day.
func Format(minute int) string {
	minute = Wrap(minute)
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

// Wrap folds any minute count into [0, MinutesPerDay).
func Wrap(minute int) int {
	return ((minute % MinutesPerDay) + MinutesPerDay) % MinutesPerDay
}

// LocalToCanonical converts a local HH:MM at the given UTC offset (minutes east of
// GMT) to canonical GMT HH:MM. Input must already satisfy Valid.
func LocalToCanonical(local string, offset int) string {
	return Format(MustParse(local) - offset)
}

// CanonicalToLocal is the inverse of LocalToCanonical.
func CanonicalToLocal(canonical string, offset int) string {
	return Format(MustParse(canonical) + offset)
}

// MinuteOfDay returns minutes since midnight of t in t's location.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
