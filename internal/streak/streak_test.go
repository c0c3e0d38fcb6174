package streak_test

import (
	"testing"
	"time"

	"github.com/sakif/habit-tracker/internal/streak"
)

// A fixed "now" keeps every case deterministic: Friday 2026-03-20, mid-day
// local time.
var now = time.Date(2026, 3, 20, 14, 30, 0, 0, time.Local)

func TestCurrent(t *testing.T) {
	tests := []struct {
		name        string
		completions []string
		want        int
	}{
		{
			name:        "no completions",
			completions: nil,
			want:        0,
		},
		{
			name:        "single completion today",
			completions: []string{"2026-03-20"},
			want:        1,
		},
		{
			name:        "single completion yesterday still counts",
			completions: []string{"2026-03-19"},
			want:        1,
		},
		{
			name:        "most recent two days ago breaks the streak",
			completions: []string{"2026-03-18"},
			want:        0,
		},
		{
			name:        "three consecutive days ending today",
			completions: []string{"2026-03-18", "2026-03-19", "2026-03-20"},
			want:        3,
		},
		{
			name:        "three consecutive days ending yesterday",
			completions: []string{"2026-03-17", "2026-03-18", "2026-03-19"},
			want:        3,
		},
		{
			name:        "gap stops the count",
			completions: []string{"2026-03-16", "2026-03-19", "2026-03-20"},
			want:        2,
		},
		{
			name:        "unsorted input",
			completions: []string{"2026-03-20", "2026-03-18", "2026-03-19"},
			want:        3,
		},
		{
			name:        "long history only counts the current run",
			completions: []string{"2026-03-01", "2026-03-02", "2026-03-03", "2026-03-19", "2026-03-20"},
			want:        2,
		},
		{
			name:        "future dates do not extend the streak",
			completions: []string{"2026-03-20", "2026-03-21"},
			want:        0, // most recent is tomorrow, neither today nor yesterday
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := streak.Current(tt.completions, now); got != tt.want {
				t.Errorf("Current(%v) = %d, want %d", tt.completions, got, tt.want)
			}
		})
	}
}

func TestCurrent_DoesNotMutateInput(t *testing.T) {
	completions := []string{"2026-03-20", "2026-03-18", "2026-03-19"}
	streak.Current(completions, now)

	want := []string{"2026-03-20", "2026-03-18", "2026-03-19"}
	for i := range want {
		if completions[i] != want[i] {
			t.Fatalf("input slice mutated: %v", completions)
		}
	}
}

func TestBest(t *testing.T) {
	tests := []struct {
		name        string
		completions []string
		want        int
	}{
		{
			name:        "no completions",
			completions: nil,
			want:        0,
		},
		{
			name:        "single day",
			completions: []string{"2026-01-05"},
			want:        1,
		},
		{
			name:        "one unbroken run",
			completions: []string{"2026-01-01", "2026-01-02", "2026-01-03"},
			want:        3,
		},
		{
			name:        "best run is in the past",
			completions: []string{"2026-01-01", "2026-01-02", "2026-01-03", "2026-01-10"},
			want:        3,
		},
		{
			name:        "two runs, later one longer",
			completions: []string{"2026-01-01", "2026-01-02", "2026-02-01", "2026-02-02", "2026-02-03"},
			want:        3,
		},
		{
			name:        "unsorted input",
			completions: []string{"2026-01-03", "2026-01-01", "2026-01-02"},
			want:        3,
		},
		{
			name:        "month boundary is consecutive",
			completions: []string{"2026-01-31", "2026-02-01"},
			want:        2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := streak.Best(tt.completions); got != tt.want {
				t.Errorf("Best(%v) = %d, want %d", tt.completions, got, tt.want)
			}
		})
	}
}

func TestBest_NeverBelowCurrent(t *testing.T) {
	// The best streak can never be smaller than the current one — the
	// current run is itself a candidate for best.
	histories := [][]string{
		{"2026-03-19", "2026-03-20"},
		{"2026-03-18", "2026-03-19", "2026-03-20"},
		{"2026-03-01", "2026-03-19", "2026-03-20"},
		{"2026-03-20"},
	}
	for _, completions := range histories {
		current := streak.Current(completions, now)
		best := streak.Best(completions)
		if best < current {
			t.Errorf("Best(%v) = %d < Current = %d", completions, best, current)
		}
	}
}

func TestCompletionRate(t *testing.T) {
	tests := []struct {
		name      string
		count     int
		createdAt time.Time
		want      int
	}{
		{
			name:      "no completions is always zero",
			count:     0,
			createdAt: now.AddDate(0, 0, -30),
			want:      0,
		},
		{
			name:      "created moments ago, one completion",
			count:     1,
			createdAt: now.Add(-time.Minute),
			want:      100, // age rounds up to one day minimum
		},
		{
			name:      "perfect record over ten days",
			count:     10,
			createdAt: now.Add(-10 * 24 * time.Hour),
			want:      100,
		},
		{
			name:      "half record over ten days",
			count:     5,
			createdAt: now.Add(-10 * 24 * time.Hour),
			want:      50,
		},
		{
			name:      "rounds to nearest integer",
			count:     1,
			createdAt: now.Add(-3 * 24 * time.Hour),
			want:      33, // 1/3 → 33.33 → 33
		},
		{
			name:      "rounds up",
			count:     2,
			createdAt: now.Add(-3 * 24 * time.Hour),
			want:      67, // 2/3 → 66.67 → 67
		},
		{
			name:      "partial day counts as a full day",
			count:     2,
			createdAt: now.Add(-25 * time.Hour), // ceil → 2 days
			want:      100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := streak.CompletionRate(tt.count, tt.createdAt, now); got != tt.want {
				t.Errorf("CompletionRate(%d, age %v) = %d, want %d",
					tt.count, now.Sub(tt.createdAt), got, tt.want)
			}
		})
	}
}
