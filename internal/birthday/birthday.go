// Package birthday parses user-entered birthdates and decides when the
// daily announcement fires for each member.
package birthday

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseable is returned when no known date format matches the input.
var ErrUnparseable = fmt.Errorf("could not parse birthdate")

var (
	ordinalRe = regexp.MustCompile(`(?i)(\d+)(st|nd|rd|th)`)
	numericRe = regexp.MustCompile(`^(\d{1,2})[-/](\d{1,2})$`)
	spacesRe  = regexp.MustCompile(`\s+`)
)

// Parse normalizes a user-entered birthdate to canonical "MM-DD" form.
// Accepted inputs: "03-14", "3/14", "March 14th", "14 March",
// "14th of March". Years are never stored.
func Parse(input string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	s = strings.ReplaceAll(s, " of ", " ")
	s = ordinalRe.ReplaceAllString(s, "$1")
	s = spacesRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if m := numericRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return canonical(month, day)
	}

	for _, layout := range []string{"January 2", "2 January", "Jan 2", "2 Jan"} {
		if t, err := time.Parse(layout, s); err == nil {
			return canonical(int(t.Month()), t.Day())
		}
	}
	return "", ErrUnparseable
}

func canonical(month, day int) (string, error) {
	if month < 1 || month > 12 {
		return "", fmt.Errorf("month %d is out of range", month)
	}
	// Feb 29 is allowed; it matches on leap years only.
	if day < 1 || day > daysIn(time.Month(month)) {
		return "", fmt.Errorf("day %d is out of range for %s", day, time.Month(month))
	}
	return fmt.Sprintf("%02d-%02d", month, day), nil
}

func daysIn(m time.Month) int {
	// Day 0 of the next month, against a leap year so Feb reports 29.
	return time.Date(2024, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsAnnouncementDue reports whether the stored "MM-DD" birthdate falls on
// today in the member's own timezone, during the local midnight hour. The
// check runs hourly, so each member is matched exactly once per birthday.
func IsAnnouncementDue(birthdate, timezone string, now time.Time) bool {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return false
	}
	local := now.In(loc)
	return local.Format("01-02") == birthdate && local.Hour() == 0
}

// Display renders a stored "MM-DD" value back into a readable form, e.g.
// "March 14".
func Display(birthdate string) string {
	t, err := time.Parse("01-02", birthdate)
	if err != nil {
		return birthdate
	}
	return t.Format("January 2")
}
