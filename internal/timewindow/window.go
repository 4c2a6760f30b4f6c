// Package timewindow computes the 24-hour diary eligibility window for a
// daily feedback run: previous day 04:00 to current day 04:00, anchored in
// JST (UTC+9).
package timewindow

import (
	"fmt"
	"time"
)

// JST is the fixed local offset used for anchoring. The product is
// single-market; per-user timezones are out of scope.
var JST = time.FixedZone("JST", 9*60*60)

const anchorHour = 4

// Window is a half-open interval [Start, End) in UTC, exactly 24 hours by
// construction, with the equivalent JST representation retained for
// display and audit.
type Window struct {
	Start    time.Time
	End      time.Time
	StartJST time.Time
	EndJST   time.Time
}

// Duration returns End - Start.
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t falls inside the half-open interval.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// FeedbackDate returns the JST calendar date (YYYY-MM-DD) a timestamp inside
// the window belongs to, used as the dedup key for stored feedback.
func FeedbackDate(t time.Time) string {
	return t.In(JST).Format("2006-01-02")
}

// Resolve computes the window for a run triggered at ref. The anchor is
// ref's calendar day 04:00 JST; when ref's JST hour is before 4 the anchor
// shifts back one day, so a run at 01:00 still targets yesterday's window.
// Resolve is pure: all "now" dependence enters via ref.
func Resolve(ref time.Time) Window {
	local := ref.In(JST)

	anchor := time.Date(local.Year(), local.Month(), local.Day(), anchorHour, 0, 0, 0, JST)
	if local.Hour() < anchorHour {
		anchor = anchor.AddDate(0, 0, -1)
	}

	startJST := anchor.AddDate(0, 0, -1)

	return Window{
		Start:    startJST.UTC(),
		End:      anchor.UTC(),
		StartJST: startJST,
		EndJST:   anchor,
	}
}

// Validate sanity-checks a window against now, returning human-readable
// violations instead of an error so callers can log and continue.
func Validate(w Window, now time.Time) []string {
	var issues []string

	if d := w.Duration(); d < 24*time.Hour-time.Minute || d > 24*time.Hour+time.Minute {
		issues = append(issues, fmt.Sprintf("window is not 24 hours: %s", d))
	}

	if !w.Start.Before(w.End) {
		issues = append(issues, "start time is not before end time")
	}

	if w.End.After(now) {
		issues = append(issues, "end time is in the future")
	}

	if w.Start.Before(now.AddDate(0, 0, -7)) {
		issues = append(issues, "window is more than one week old")
	}

	return issues
}
