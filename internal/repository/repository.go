// Package repository declares the storage-agnostic contracts the service
// layer depends on. Three backends implement them identically — sqlite
// (embedded relational), postgres (remote relational), and jsonfile (local
// single-document store) — selected at composition time in server.go.
//
// Whatever the backend, observable behavior must match: same return
// values, same error kinds, same resulting order sequences. The service
// layer never imports a concrete backend package.
package repository

import (
	"context"

	"github.com/sakif/habit-tracker/internal/model"
)

// HabitRepository is the CRUD surface for one user's habit collection.
//
// CONTRACT NOTES:
//   - List returns habits ordered by Order ascending, completions resolved.
//   - Create assigns ID, CreatedAt, empty completions, and
//     Order = current count for that user, mutating the passed habit.
//   - Update persists an already-merged habit (the service does the
//     fetch-then-merge of partial attributes) and fails with NotFound if
//     the habit is gone.
//   - Delete removes the habit and all of its completion records, then
//     renumbers the survivors to a dense 0..N-1 sequence (a positional
//     hole would collide with the next create). Returns NotFound for an
//     unknown id — the service translates that to success, so deletion is
//     idempotent from the caller's perspective.
//   - ToggleCompletion is a single atomic transition per call keyed on
//     (habit, date): relational backends must use delete-then-
//     insert-on-conflict inside one transaction, never read-then-write.
//     It reports whether the date was added (true) or removed (false).
//   - Reorder moves one habit and renumbers the user's collection to a
//     dense 0..N-1 sequence, persisting every habit whose Order changed,
//     and returns the new ordering.
type HabitRepository interface {
	List(ctx context.Context, userID string) ([]model.Habit, error)
	GetByID(ctx context.Context, userID, id string) (*model.Habit, error)
	Create(ctx context.Context, habit *model.Habit) error
	Update(ctx context.Context, habit *model.Habit) error
	Delete(ctx context.Context, userID, id string) error
	ToggleCompletion(ctx context.Context, userID, id, date string) (added bool, err error)
	Reorder(ctx context.Context, userID string, fromIndex, toIndex int) ([]model.Habit, error)
}

// UserRepository manages account records. Method names carry the "User"
// noun so one backend type can implement both contracts side by side.
//
// GetUserByEmail returns NotFound when no account has that email;
// CreateUser returns Conflict when the email is already registered.
// UpsertByGitHubID serves the optional OAuth flow: insert on first login,
// refresh name and email on subsequent logins, keyed on the stable GitHub
// numeric ID.
type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertByGitHubID(ctx context.Context, user *model.User) error
}

// HabitUpdate carries partial attributes for an edit: nil means "leave
// unchanged". Only the fields a user can edit appear here — ID, UserID,
// CreatedAt, Order, and Completions are never touched by an update.
type HabitUpdate struct {
	Name            *string `json:"name"`
	Icon            *string `json:"icon"`
	ColorID         *string `json:"colorId"`
	ReminderEnabled *bool   `json:"reminderEnabled"`
	ReminderTime    *string `json:"reminderTime"`
	RepeatDays      *[]int  `json:"repeatDays"`
}
