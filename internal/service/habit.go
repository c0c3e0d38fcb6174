// Package service contains the business logic layer of the application.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes the backing store
//
// The service receives repository INTERFACES, not concrete stores — the
// same HabitService runs unchanged against sqlite, postgres, or the JSON
// file store, and against the in-memory mock in tests. It accepts
// primitives and returns domain errors; it knows nothing about HTTP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/habit-tracker/internal/apperror"
	"github.com/sakif/habit-tracker/internal/dateutil"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
	"github.com/sakif/habit-tracker/internal/streak"
)

// Validation constants.
const (
	MaxHabitNameLength = 100
)

// HabitService handles business logic for the habit collection.
type HabitService struct {
	repo   repository.HabitRepository
	users  repository.UserRepository
	logger *slog.Logger
}

// NewHabitService creates a HabitService. The caller decides WHICH
// repository implementation to inject (sqlite, postgres, jsonfile, mock).
func NewHabitService(repo repository.HabitRepository, users repository.UserRepository, logger *slog.Logger) *HabitService {
	return &HabitService{
		repo:   repo,
		users:  users,
		logger: logger,
	}
}

// HabitInput carries the user-editable attributes for a create.
type HabitInput struct {
	Name            string `json:"name"`
	Icon            string `json:"icon"`
	ColorID         string `json:"colorId"`
	ReminderEnabled bool   `json:"reminderEnabled"`
	ReminderTime    string `json:"reminderTime"`
	RepeatDays      []int  `json:"repeatDays"`
}

// Stats bundles the derived statistics for one habit.
type Stats struct {
	Streak           int `json:"streak"`
	BestStreak       int `json:"bestStreak"`
	TotalCompletions int `json:"totalCompletions"`
	CompletionRate   int `json:"completionRate"` // percent
}

// statsFor computes the three derived statistics at the given reference
// time. This is the only place the streak engine meets the data model.
func statsFor(h *model.Habit, now time.Time) Stats {
	return Stats{
		Streak:           streak.Current(h.Completions, now),
		BestStreak:       streak.Best(h.Completions),
		TotalCompletions: len(h.Completions),
		CompletionRate:   streak.CompletionRate(len(h.Completions), h.CreatedAt, now),
	}
}

// validateRepeatDays checks every weekday index is in [0,6] and drops
// duplicates, preserving first-seen order.
func validateRepeatDays(days []int) ([]int, error) {
	if days == nil {
		return []int{}, nil
	}
	seen := map[int]bool{}
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 0 || d > 6 {
			return nil, apperror.ValidationFailed("repeatDays",
				fmt.Sprintf("repeat day %d out of range 0..6", d))
		}
		if !seen[d] {
			seen[d] = true
			out = append(out, d)
		}
	}
	return out, nil
}

// validateReminderTime accepts HH:MM (24-hour, no timezone). Only checked
// when the reminder is enabled — a stale ReminderTime on a disabled
// reminder is harmless.
func validateReminderTime(s string) error {
	if _, err := time.Parse("15:04", s); err != nil {
		return apperror.ValidationFailed("reminderTime",
			fmt.Sprintf("reminder time %q is not HH:MM", s))
	}
	return nil
}

// List returns the user's habits ordered by position. When date is
// non-empty it must be a YYYY-MM-DD string, and the result is filtered to
// habits due on that date (the due-today filter): a habit is due iff the
// date's weekday is in its repeat set.
func (s *HabitService) List(ctx context.Context, userID, date string) ([]model.Habit, error) {
	if userID == "" {
		return nil, apperror.AuthRequired("listing habits requires a signed-in user")
	}

	habits, err := s.repo.List(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list habits",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Backend("could not load habits", err)
	}

	if date == "" {
		return habits, nil
	}
	if _, err := dateutil.ParseDay(date); err != nil {
		return nil, apperror.ValidationFailed("date",
			fmt.Sprintf("date %q is not YYYY-MM-DD", date))
	}

	due := make([]model.Habit, 0, len(habits))
	for _, h := range habits {
		if h.DueOn(date) {
			due = append(due, h)
		}
	}
	return due, nil
}

// Create validates and saves a new habit. The repository assigns the ID,
// creation timestamp, empty completions, and the tail position.
func (s *HabitService) Create(ctx context.Context, userID string, in HabitInput) (*model.Habit, error) {
	if userID == "" {
		return nil, apperror.AuthRequired("creating a habit requires a signed-in user")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "habit name is required")
	}
	if len(name) > MaxHabitNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("habit name must be %d characters or less", MaxHabitNameLength))
	}

	repeatDays, err := validateRepeatDays(in.RepeatDays)
	if err != nil {
		return nil, err
	}
	if in.ReminderEnabled {
		if err := validateReminderTime(in.ReminderTime); err != nil {
			return nil, err
		}
	}

	habit := &model.Habit{
		UserID:          userID,
		Name:            name,
		Icon:            in.Icon,
		ColorID:         in.ColorID,
		ReminderEnabled: in.ReminderEnabled,
		ReminderTime:    in.ReminderTime,
		RepeatDays:      repeatDays,
	}

	if err := s.repo.Create(ctx, habit); err != nil {
		s.logger.Error("failed to create habit",
			slog.String("name", name),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Backend("could not save habit", err)
	}

	s.logger.Info("habit created",
		slog.String("id", habit.ID),
		slog.String("name", habit.Name),
	)
	return habit, nil
}

// Get returns one habit together with its computed statistics and the
// resolved palette color (unknown ColorIDs fall back to the first entry).
func (s *HabitService) Get(ctx context.Context, userID, id string) (*model.Habit, Stats, error) {
	if userID == "" {
		return nil, Stats{}, apperror.AuthRequired("reading a habit requires a signed-in user")
	}

	habit, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, Stats{}, err
		}
		return nil, Stats{}, apperror.Backend("could not load habit", err)
	}
	return habit, statsFor(habit, time.Now()), nil
}

// Update merges the provided partial attributes into the stored habit.
//
// STRATEGY: fetch then update. Fetching first confirms existence (a
// consistent NotFound), gives us the full row to merge into, and lets us
// validate the merged result rather than fragments.
func (s *HabitService) Update(ctx context.Context, userID, id string, in repository.HabitUpdate) (*model.Habit, error) {
	if userID == "" {
		return nil, apperror.AuthRequired("updating a habit requires a signed-in user")
	}

	habit, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		return nil, apperror.Backend("could not load habit", err)
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperror.ValidationFailed("name", "habit name is required")
		}
		if len(name) > MaxHabitNameLength {
			return nil, apperror.ValidationFailed("name",
				fmt.Sprintf("habit name must be %d characters or less", MaxHabitNameLength))
		}
		habit.Name = name
	}
	if in.Icon != nil {
		habit.Icon = *in.Icon
	}
	if in.ColorID != nil {
		habit.ColorID = *in.ColorID
	}
	if in.ReminderEnabled != nil {
		habit.ReminderEnabled = *in.ReminderEnabled
	}
	if in.ReminderTime != nil {
		habit.ReminderTime = *in.ReminderTime
	}
	if in.RepeatDays != nil {
		repeatDays, err := validateRepeatDays(*in.RepeatDays)
		if err != nil {
			return nil, err
		}
		habit.RepeatDays = repeatDays
	}
	if habit.ReminderEnabled {
		if err := validateReminderTime(habit.ReminderTime); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, habit); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to update habit",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Backend("could not save habit", err)
	}

	s.logger.Info("habit updated",
		slog.String("id", habit.ID),
		slog.String("name", habit.Name),
	)
	return habit, nil
}

// Delete removes a habit and its completion history.
//
// IDEMPOTENT BY CONTRACT: deleting an id that doesn't exist (or was
// already deleted) is a success, not an error — the repository's NotFound
// is swallowed here so callers can't tell the difference, which is the
// behavior the UI expects from a delete button pressed twice.
func (s *HabitService) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return apperror.AuthRequired("deleting a habit requires a signed-in user")
	}

	if err := s.repo.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil
		}
		s.logger.Error("failed to delete habit",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return apperror.Backend("could not delete habit", err)
	}

	s.logger.Info("habit deleted", slog.String("id", id))
	return nil
}

// ToggleResult reports the state after a completion toggle: the reloaded
// habit, the calendar day that actually toggled, and its new state.
type ToggleResult struct {
	Habit     *model.Habit `json:"habit"`
	Date      string       `json:"date"`
	Completed bool         `json:"completed"`
}

// ToggleCompletion flips the completion state of (habit, date). An empty
// date means today (the server's local calendar day). Calling twice with
// the same date restores the original state — toggle is its own inverse.
func (s *HabitService) ToggleCompletion(ctx context.Context, userID, id, date string) (*ToggleResult, error) {
	if userID == "" {
		return nil, apperror.AuthRequired("toggling a completion requires a signed-in user")
	}

	if date == "" {
		date = dateutil.FormatDay(time.Now())
	} else if _, err := dateutil.ParseDay(date); err != nil {
		return nil, apperror.ValidationFailed("date",
			fmt.Sprintf("date %q is not YYYY-MM-DD", date))
	}

	added, err := s.repo.ToggleCompletion(ctx, userID, id, date)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, err
		}
		s.logger.Error("failed to toggle completion",
			slog.String("id", id),
			slog.String("date", date),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Backend("could not record completion", err)
	}

	habit, err := s.repo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, apperror.Backend("could not reload habit", err)
	}

	s.logger.Info("completion toggled",
		slog.String("id", id),
		slog.String("date", date),
		slog.Bool("added", added),
	)
	// Report the reloaded habit's own state rather than the repo's added
	// flag — the habit in the result can never disagree with Completed.
	return &ToggleResult{Habit: habit, Date: date, Completed: habit.CompletedOn(date)}, nil
}

// Reorder moves a habit within the user's ordering. The repository
// renumbers the collection to a dense 0..N-1 sequence and returns it.
func (s *HabitService) Reorder(ctx context.Context, userID string, fromIndex, toIndex int) ([]model.Habit, error) {
	if userID == "" {
		return nil, apperror.AuthRequired("reordering habits requires a signed-in user")
	}

	habits, err := s.repo.Reorder(ctx, userID, fromIndex, toIndex)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return nil, err
		}
		s.logger.Error("failed to reorder habits",
			slog.Int("from", fromIndex),
			slog.Int("to", toIndex),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Backend("could not reorder habits", err)
	}
	return habits, nil
}

// ExportDocument is the on-demand JSON dump of a user's full collection.
// It is a read-only artifact for download, not an input format anywhere.
type ExportDocument struct {
	ExportedAt time.Time     `json:"exportedAt"`
	UserID     string        `json:"userId"`
	Habits     []model.Habit `json:"habits"`
}

// Export assembles the export document: every habit with its resolved
// completions, in display order.
func (s *HabitService) Export(ctx context.Context, userID string) (*ExportDocument, error) {
	habits, err := s.List(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	return &ExportDocument{
		ExportedAt: time.Now(),
		UserID:     userID,
		Habits:     habits,
	}, nil
}

// ProfileStats are the aggregates shown on the profile page.
type ProfileStats struct {
	HabitCount       int `json:"habitCount"`
	TotalCompletions int `json:"totalCompletions"`
	ActiveStreaks    int `json:"activeStreaks"` // habits with a current streak > 0
}

// Profile returns the user record together with collection-wide stats.
func (s *HabitService) Profile(ctx context.Context, userID string) (*model.User, ProfileStats, error) {
	if userID == "" {
		return nil, ProfileStats{}, apperror.AuthRequired("profile requires a signed-in user")
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, ProfileStats{}, err
		}
		return nil, ProfileStats{}, apperror.Backend("could not load profile", err)
	}

	habits, err := s.List(ctx, userID, "")
	if err != nil {
		return nil, ProfileStats{}, err
	}

	now := time.Now()
	stats := ProfileStats{HabitCount: len(habits)}
	for _, h := range habits {
		stats.TotalCompletions += len(h.Completions)
		if streak.Current(h.Completions, now) > 0 {
			stats.ActiveStreaks++
		}
	}
	return user, stats, nil
}
