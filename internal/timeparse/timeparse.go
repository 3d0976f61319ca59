// Package timeparse resolves heterogeneous textual time input into a zoned
// time.Time. Grammars are tried in a fixed precedence order and the first
// grammar whose shape matches claims the input: candidates within that
// grammar may still fail (hour 25, minute 61), but parsing never falls
// through to a later grammar once a shape has matched.
package timeparse

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrUnparsable reports input that no grammar could resolve, or input whose
// claiming grammar rejected every candidate layout.
var ErrUnparsable = errors.New("unrecognized time format")

// grammar precedence, highest first:
//  1. ISO-8601 datetime, optional offset; "date SPACE time" is normalized
//     by substituting the separator before parsing
//  2. explicit date+time layouts without offset (slashed, day-first)
//  3. 12-hour clock with meridiem, anchored to today in the target zone
//  4. 24-hour clock, anchored likewise
//  5. generic ISO fallback (no shape; catches date-only and exotic ISO)
type grammar struct {
	name     string
	shape    *regexp.Regexp
	layouts  []string
	anchored bool // bare clock time, attach today's date in loc
	prepare  func(string) string
}

var grammars = []grammar{
	{
		name:  "iso-datetime",
		shape: regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?:[T ]\d{1,2}:\d{2}(?::\d{2})?(?:Z|[+-]\d{2}:?\d{2})?)?$`),
		layouts: []string{
			time.RFC3339,
			"2006-01-02T15:04:05",
			"2006-01-02T15:04Z07:00",
			"2006-01-02T15:04:05-0700",
			"2006-01-02T15:04-0700",
			"2006-01-02T15:04",
			"2006-01-02",
		},
		prepare: func(s string) string {
			// "2025-12-13 10:00" -> "2025-12-13T10:00"
			return strings.Replace(s, " ", "T", 1)
		},
	},
	{
		name:    "slashed-datetime",
		shape:   regexp.MustCompile(`^\d{4}/\d{2}/\d{2} \d{1,2}:\d{2}$`),
		layouts: []string{"2006/01/02 15:04"},
	},
	{
		name:    "dayfirst-datetime",
		shape:   regexp.MustCompile(`^\d{2}-\d{2}-\d{4} \d{1,2}:\d{2}$`),
		layouts: []string{"02-01-2006 15:04"},
	},
	{
		name:     "clock-12h",
		shape:    regexp.MustCompile(`(?i)^\d{1,2}(?::\d{2})?\s*[AP]M$`),
		layouts:  []string{"3:04 PM", "3 PM", "3:04PM", "3PM"},
		anchored: true,
		prepare:  strings.ToUpper,
	},
	{
		name:     "clock-24h",
		shape:    regexp.MustCompile(`^\d{1,2}(?::\d{2})?$`),
		layouts:  []string{"15:04", "15"},
		anchored: true,
	},
}

// isoFallbackLayouts is the last-resort grammar; it has no shape and runs
// only when nothing above claimed the input.
var isoFallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Parse resolves raw in loc, anchoring bare clock times to the current date
// in loc. The result carries both the absolute instant and, through its
// location, the room-local wall clock.
func Parse(raw string, loc *time.Location) (time.Time, error) {
	return ParseAt(raw, loc, time.Now())
}

// ParseAt is Parse with an explicit reference instant for date anchoring.
func ParseAt(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return time.Time{}, fmt.Errorf("empty input: %w", ErrUnparsable)
	}

	for _, g := range grammars {
		if !g.shape.MatchString(trimmed) {
			continue
		}
		candidate := trimmed
		if g.prepare != nil {
			candidate = g.prepare(candidate)
		}
		for _, layout := range g.layouts {
			t, err := parseLayout(layout, candidate, loc)
			if err != nil {
				continue
			}
			if g.anchored {
				t = anchorToDate(t, now.In(loc), loc)
			}
			return t, nil
		}
		// Shape matched but every candidate was semantically invalid;
		// do not backtrack into a later grammar.
		return time.Time{}, fmt.Errorf("%s rejected %q: %w", g.name, raw, ErrUnparsable)
	}

	for _, layout := range isoFallbackLayouts {
		if t, err := parseLayout(layout, trimmed, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no grammar matched %q: %w", raw, ErrUnparsable)
}

func parseLayout(layout, value string, loc *time.Location) (time.Time, error) {
	if strings.ContainsAny(layout, "Z-") && strings.Contains(layout, "07") {
		// Layout carries an explicit offset; respect it, then rezone.
		t, err := time.Parse(layout, value)
		if err != nil {
			return time.Time{}, err
		}
		return t.In(loc), nil
	}
	return time.ParseInLocation(layout, value, loc)
}

func anchorToDate(clock, today time.Time, loc *time.Location) time.Time {
	return time.Date(today.Year(), today.Month(), today.Day(),
		clock.Hour(), clock.Minute(), 0, 0, loc)
}
