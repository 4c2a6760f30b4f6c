package timewindow

import (
	"testing"
	"time"
)

func TestResolveAnchorsToSameDayFourAM(t *testing.T) {
	tests := []struct {
		name      string
		ref       time.Time
		wantEnd   time.Time
		wantStart time.Time
	}{
		{
			"morning run after anchor",
			time.Date(2025, 6, 10, 4, 0, 0, 0, JST),
			time.Date(2025, 6, 10, 4, 0, 0, 0, JST),
			time.Date(2025, 6, 9, 4, 0, 0, 0, JST),
		},
		{
			"midday run",
			time.Date(2025, 6, 10, 13, 30, 0, 0, JST),
			time.Date(2025, 6, 10, 4, 0, 0, 0, JST),
			time.Date(2025, 6, 9, 4, 0, 0, 0, JST),
		},
		{
			"late evening run",
			time.Date(2025, 6, 10, 23, 59, 59, 0, JST),
			time.Date(2025, 6, 10, 4, 0, 0, 0, JST),
			time.Date(2025, 6, 9, 4, 0, 0, 0, JST),
		},
		{
			"run before anchor shifts back a day",
			time.Date(2025, 6, 10, 1, 0, 0, 0, JST),
			time.Date(2025, 6, 9, 4, 0, 0, 0, JST),
			time.Date(2025, 6, 8, 4, 0, 0, 0, JST),
		},
		{
			"run at 03:59 shifts back a day",
			time.Date(2025, 6, 10, 3, 59, 0, 0, JST),
			time.Date(2025, 6, 9, 4, 0, 0, 0, JST),
			time.Date(2025, 6, 8, 4, 0, 0, 0, JST),
		},
		{
			"month boundary",
			time.Date(2025, 7, 1, 2, 0, 0, 0, JST),
			time.Date(2025, 6, 30, 4, 0, 0, 0, JST),
			time.Date(2025, 6, 29, 4, 0, 0, 0, JST),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := Resolve(tt.ref)
			if !w.End.Equal(tt.wantEnd) {
				t.Errorf("Resolve(%v).End = %v, want %v", tt.ref, w.EndJST, tt.wantEnd)
			}
			if !w.Start.Equal(tt.wantStart) {
				t.Errorf("Resolve(%v).Start = %v, want %v", tt.ref, w.StartJST, tt.wantStart)
			}
			if w.Duration() != 24*time.Hour {
				t.Errorf("Resolve(%v).Duration() = %v, want 24h", tt.ref, w.Duration())
			}
		})
	}
}

func TestResolveReferenceInUTC(t *testing.T) {
	// 2025-06-09 20:00 UTC is 2025-06-10 05:00 JST, past the anchor.
	ref := time.Date(2025, 6, 9, 20, 0, 0, 0, time.UTC)
	w := Resolve(ref)

	wantEnd := time.Date(2025, 6, 10, 4, 0, 0, 0, JST)
	if !w.End.Equal(wantEnd) {
		t.Errorf("End = %v, want %v", w.EndJST, wantEnd)
	}
}

func TestWindowContains(t *testing.T) {
	w := Resolve(time.Date(2025, 6, 10, 12, 0, 0, 0, JST))

	if !w.Contains(w.Start) {
		t.Error("window should contain its start (inclusive)")
	}
	if w.Contains(w.End) {
		t.Error("window should not contain its end (exclusive)")
	}
	if !w.Contains(w.Start.Add(12 * time.Hour)) {
		t.Error("window should contain its midpoint")
	}
}

func TestFeedbackDate(t *testing.T) {
	// 2025-06-09 18:30 UTC is 2025-06-10 03:30 JST.
	got := FeedbackDate(time.Date(2025, 6, 9, 18, 30, 0, 0, time.UTC))
	if got != "2025-06-10" {
		t.Errorf("FeedbackDate = %q, want %q", got, "2025-06-10")
	}
}

func TestValidate(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, JST)
	valid := Resolve(now)

	if issues := Validate(valid, now); len(issues) != 0 {
		t.Errorf("Validate(valid) = %v, want no issues", issues)
	}

	future := valid
	future.End = now.Add(2 * time.Hour)
	if issues := Validate(future, now); len(issues) == 0 {
		t.Error("expected violation for future end time")
	}

	inverted := Window{Start: valid.End, End: valid.Start}
	issues := Validate(inverted, now)
	if len(issues) == 0 {
		t.Error("expected violations for inverted window")
	}

	stale := Resolve(now.AddDate(0, 0, -10))
	if issues := Validate(stale, now); len(issues) == 0 {
		t.Error("expected violation for window older than a week")
	}
}
