// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — similar to classes in other
// languages, but without inheritance. Go favours composition over inheritance.
package model

import (
	"slices"
	"time"

	"github.com/sakif/habit-tracker/internal/dateutil"
)

// Habit represents one tracked behavior belonging to a single user.
//
// The `json:"..."` tags control how the struct serializes over the API;
// the `db:"..."` tags document the column names used by the relational
// repositories.
//
// FIELD NOTES:
//   - RepeatDays holds weekday indices (0=Sunday..6=Saturday) on which the
//     habit is due. An empty set means the habit is never due.
//   - Completions holds YYYY-MM-DD day strings, each at most once. The
//     slice carries no ordering significance — the streak engine sorts on
//     demand.
//   - Order is the display position among the user's habits and stays a
//     dense 0..N-1 sequence after every mutation (the reorder operation
//     renumbers the whole collection).
//   - CreatedAt is immutable and only feeds the completion-rate denominator.
type Habit struct {
	ID              string    `json:"id"              db:"id"`
	UserID          string    `json:"userId"          db:"user_id"`
	Name            string    `json:"name"            db:"name"`
	Icon            string    `json:"icon"            db:"icon"`
	ColorID         string    `json:"colorId"         db:"color_id"`
	ReminderEnabled bool      `json:"reminderEnabled" db:"reminder_enabled"`
	ReminderTime    string    `json:"reminderTime"    db:"reminder_time"` // HH:MM, no timezone
	RepeatDays      []int     `json:"repeatDays"      db:"repeat_days"`
	Completions     []string  `json:"completions"     db:"-"`
	CreatedAt       time.Time `json:"createdAt"       db:"created_at"`
	Order           int       `json:"order"           db:"position"`
}

// Completion is one (habit, day) completion record as persisted by the
// relational backends. Unique per (HabitID, Date).
type Completion struct {
	HabitID string `json:"habitId" db:"habit_id"`
	UserID  string `json:"userId"  db:"user_id"`
	Date    string `json:"date"    db:"date"` // YYYY-MM-DD
}

// DueOn reports whether the habit is scheduled for the given day string,
// i.e. whether that day's weekday is in RepeatDays.
//
// A malformed date is simply "not due" — callers validate dates before
// they get here, and the filter must never turn a bad input into a panic.
func (h *Habit) DueOn(date string) bool {
	wd, err := dateutil.DayOfWeek(date)
	if err != nil {
		return false
	}
	return slices.Contains(h.RepeatDays, wd)
}

// CompletedOn reports whether the habit has a completion recorded for the
// given day string.
func (h *Habit) CompletedOn(date string) bool {
	return slices.Contains(h.Completions, date)
}
