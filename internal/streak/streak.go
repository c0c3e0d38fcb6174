// Package streak is the pure statistics engine: it turns an unordered set
// of completion-day strings into a current streak, a best historical
// streak, and a completion rate.
//
// DESIGN RULES:
//   - No I/O, no side effects, no clocks. Functions that depend on "today"
//     take the reference time as a parameter so tests are deterministic.
//   - All day arithmetic goes through dateutil — pure calendar-day
//     differences, never raw duration division on instants.
//   - Inputs that slipped past validation (malformed day strings) break a
//     run rather than panic; the repositories only ever store dates that
//     came through dateutil, so this is belt-and-braces.
package streak

import (
	"math"
	"slices"
	"time"

	"github.com/sakif/habit-tracker/internal/dateutil"
)

// Current computes the length of the streak of consecutive calendar days,
// ending today or yesterday, with a completion recorded.
//
// THE GRACE PERIOD:
// A streak survives until the user has skipped an ENTIRE day. If the most
// recent completion is yesterday and today isn't over yet, the streak still
// counts — it only reports 0 once today also lapses. Concretely:
//
//	completed {today}              → 1
//	completed {yesterday}          → 1 (grace: today isn't lost yet)
//	completed {two days ago}       → 0 (a whole day passed with nothing)
//
// ALGORITHM:
//  1. Empty set → 0.
//  2. Sort descending. Lexicographic order on YYYY-MM-DD strings IS
//     calendar order, so a plain string sort is correct.
//  3. If the most recent day is neither today nor yesterday, return 0.
//  4. Walk backwards while each entry is exactly the day before the
//     previous one, counting; the first miss ends the streak.
func Current(completions []string, now time.Time) int {
	if len(completions) == 0 {
		return 0
	}

	sorted := slices.Clone(completions)
	slices.Sort(sorted)
	slices.Reverse(sorted)

	today := dateutil.FormatDay(now)
	yesterday := dateutil.FormatDay(now.AddDate(0, 0, -1))

	if sorted[0] != today && sorted[0] != yesterday {
		return 0
	}

	count := 1
	expected := sorted[0]
	for i := 1; i < len(sorted); i++ {
		// sorted is descending, so sorted[i] must be the day before.
		prev, err := dateutil.AddDays(expected, -1)
		if err != nil || sorted[i] != prev {
			break
		}
		count++
		expected = prev
	}
	return count
}

// Best computes the longest run of consecutive completion days anywhere in
// the history. Best(c) >= Current(c, now) always holds for any reference
// time: the active streak is one of the runs Best considers.
//
// The walk keeps a running consecutive-day counter over the ascending
// sort: a gap of exactly 1 extends the run, a larger gap resets it to 1.
// A gap of 0 cannot occur because completions are a set (unique days).
func Best(completions []string) int {
	if len(completions) == 0 {
		return 0
	}

	sorted := slices.Clone(completions)
	slices.Sort(sorted)

	best, run := 1, 1
	for i := 1; i < len(sorted); i++ {
		diff, err := dateutil.DaysBetween(sorted[i-1], sorted[i])
		if err != nil {
			run = 1
			continue
		}
		if diff == 1 {
			run++
			if run > best {
				best = run
			}
		} else if diff > 1 {
			run = 1
		}
	}
	return best
}

// CompletionRate returns the percentage of days since the habit was created
// on which it was completed: round(count / max(1, daysSinceCreation) * 100),
// where daysSinceCreation = ceil(now - createdAt in days). Zero when there
// are no completions.
//
// KNOWN APPROXIMATION:
// The denominator counts EVERY day since creation, ignoring the repeat
// schedule — a habit due only on Fridays is penalized as if it were due
// daily. This matches the shipped behavior on purpose; changing the
// denominator would silently change every user's displayed rate.
func CompletionRate(count int, createdAt, now time.Time) int {
	if count == 0 {
		return 0
	}
	days := int(math.Ceil(now.Sub(createdAt).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return int(math.Round(float64(count) / float64(days) * 100))
}
