package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/sakif/habit-tracker/internal/apperror"
	"github.com/sakif/habit-tracker/internal/dateutil"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
	"github.com/sakif/habit-tracker/internal/service"
)

// ============================================================
// In-memory fakes
// ============================================================

// fakeRepo implements both repository contracts in memory. failWith, when
// set, makes every call fail — for exercising the backend-error paths.
type fakeRepo struct {
	habits   map[string]*model.Habit
	users    map[string]*model.User
	nextID   int
	failWith error
}

var _ repository.HabitRepository = (*fakeRepo)(nil)
var _ repository.UserRepository = (*fakeRepo)(nil)

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		habits: map[string]*model.Habit{},
		users:  map[string]*model.User{},
	}
}

func (f *fakeRepo) id() string {
	f.nextID++
	return fmt.Sprintf("id-%d", f.nextID)
}

func (f *fakeRepo) userHabits(userID string) []model.Habit {
	var out []model.Habit
	for _, h := range f.habits {
		if h.UserID == userID {
			out = append(out, *h)
		}
	}
	slices.SortFunc(out, func(a, b model.Habit) int { return a.Order - b.Order })
	return out
}

func (f *fakeRepo) List(_ context.Context, userID string) ([]model.Habit, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	habits := f.userHabits(userID)
	if habits == nil {
		habits = []model.Habit{}
	}
	return habits, nil
}

func (f *fakeRepo) GetByID(_ context.Context, userID, id string) (*model.Habit, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return nil, apperror.NotFound("habit", id)
	}
	c := *h
	return &c, nil
}

func (f *fakeRepo) Create(_ context.Context, habit *model.Habit) error {
	if f.failWith != nil {
		return f.failWith
	}
	habit.ID = f.id()
	habit.CreatedAt = time.Now()
	habit.Completions = []string{}
	habit.Order = len(f.userHabits(habit.UserID))
	c := *habit
	f.habits[habit.ID] = &c
	return nil
}

func (f *fakeRepo) Update(_ context.Context, habit *model.Habit) error {
	if f.failWith != nil {
		return f.failWith
	}
	if _, ok := f.habits[habit.ID]; !ok {
		return apperror.NotFound("habit", habit.ID)
	}
	c := *habit
	f.habits[habit.ID] = &c
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, userID, id string) error {
	if f.failWith != nil {
		return f.failWith
	}
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return apperror.NotFound("habit", id)
	}
	delete(f.habits, id)
	return nil
}

func (f *fakeRepo) ToggleCompletion(_ context.Context, userID, id, date string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	h, ok := f.habits[id]
	if !ok || h.UserID != userID {
		return false, apperror.NotFound("habit", id)
	}
	if i := slices.Index(h.Completions, date); i >= 0 {
		h.Completions = slices.Delete(h.Completions, i, i+1)
		return false, nil
	}
	h.Completions = append(h.Completions, date)
	return true, nil
}

func (f *fakeRepo) Reorder(_ context.Context, userID string, fromIndex, toIndex int) ([]model.Habit, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	habits := f.userHabits(userID)
	n := len(habits)
	if fromIndex < 0 || fromIndex >= n {
		return nil, apperror.ValidationFailed("fromIndex", "out of range")
	}
	if toIndex < 0 || toIndex >= n {
		return nil, apperror.ValidationFailed("toIndex", "out of range")
	}
	moved := habits[fromIndex]
	habits = slices.Delete(habits, fromIndex, fromIndex+1)
	habits = slices.Insert(habits, toIndex, moved)
	for i := range habits {
		habits[i].Order = i
		f.habits[habits[i].ID].Order = i
	}
	return habits, nil
}

func (f *fakeRepo) CreateUser(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", user.Email)
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	c := *user
	f.users[user.ID] = &c
	return nil
}

func (f *fakeRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	c := *u
	return &c, nil
}

func (f *fakeRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	if f.failWith != nil {
		return nil, f.failWith
	}
	for _, u := range f.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (f *fakeRepo) UpsertByGitHubID(_ context.Context, user *model.User) error {
	if f.failWith != nil {
		return f.failWith
	}
	for _, u := range f.users {
		if u.GitHubID == user.GitHubID {
			u.Name = user.Name
			u.Email = user.Email
			*user = *u
			return nil
		}
	}
	user.ID = f.id()
	user.CreatedAt = time.Now()
	c := *user
	f.users[user.ID] = &c
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(f *fakeRepo) *service.HabitService {
	return service.NewHabitService(f, f, discardLogger())
}

// ============================================================
// Create
// ============================================================

func TestServiceCreate(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	habit, err := svc.Create(ctx, "u1", service.HabitInput{
		Name:       "  Read  ",
		Icon:       "mdi:book-open-page-variant",
		ColorID:    "navy",
		RepeatDays: []int{1, 3, 3, 5},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if habit.Name != "Read" {
		t.Errorf("name not trimmed: %q", habit.Name)
	}
	if len(habit.RepeatDays) != 3 {
		t.Errorf("duplicate repeat days not dropped: %v", habit.RepeatDays)
	}
	if habit.ID == "" || habit.Order != 0 {
		t.Errorf("repository fields not assigned: %+v", habit)
	}
}

func TestServiceCreate_Validation(t *testing.T) {
	svc := newService(newFakeRepo())
	ctx := context.Background()

	tests := []struct {
		name string
		in   service.HabitInput
	}{
		{"empty name", service.HabitInput{Name: "   "}},
		{"repeat day out of range", service.HabitInput{Name: "X", RepeatDays: []int{7}}},
		{"negative repeat day", service.HabitInput{Name: "X", RepeatDays: []int{-1}}},
		{"reminder enabled without valid time", service.HabitInput{
			Name: "X", ReminderEnabled: true, ReminderTime: "9 o'clock",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, "u1", tt.in); !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("got %v, want ErrValidation", err)
			}
		})
	}

	if _, err := svc.Create(ctx, "", service.HabitInput{Name: "X"}); !errors.Is(err, apperror.ErrAuthRequired) {
		t.Errorf("no user: got %v, want ErrAuthRequired", err)
	}
}

func TestServiceCreate_BackendFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failWith = errors.New("disk on fire")
	svc := newService(repo)

	_, err := svc.Create(context.Background(), "u1", service.HabitInput{Name: "X"})
	if !errors.Is(err, apperror.ErrBackend) {
		t.Errorf("got %v, want ErrBackend", err)
	}
}

// ============================================================
// List and the due filter
// ============================================================

func TestServiceList_DueFilter(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	// 2026-03-16 is a Monday (weekday 1).
	mondays, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "Mondays", RepeatDays: []int{1}})
	if _, err := svc.Create(ctx, "u1", service.HabitInput{Name: "Sundays", RepeatDays: []int{0}}); err != nil {
		t.Fatal(err)
	}

	all, err := svc.List(ctx, "u1", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered list has %d habits", len(all))
	}

	due, err := svc.List(ctx, "u1", "2026-03-16")
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != mondays.ID {
		t.Errorf("due filter returned %+v, want only the Monday habit", due)
	}

	if _, err := svc.List(ctx, "u1", "next tuesday"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("malformed date: got %v, want ErrValidation", err)
	}
}

// ============================================================
// Update
// ============================================================

func strPtr(s string) *string { return &s }

func TestServiceUpdate_PartialMerge(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	habit, _ := svc.Create(ctx, "u1", service.HabitInput{
		Name: "Read", Icon: "mdi:book-open-page-variant", ColorID: "navy",
	})

	updated, err := svc.Update(ctx, "u1", habit.ID, repository.HabitUpdate{
		Name: strPtr("Read more"),
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Read more" {
		t.Errorf("name = %q", updated.Name)
	}
	// Absent fields keep their stored values.
	if updated.Icon != "mdi:book-open-page-variant" || updated.ColorID != "navy" {
		t.Errorf("absent fields changed: %+v", updated)
	}
}

func TestServiceUpdate_ValidatesMergedResult(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	habit, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "Read"})

	if _, err := svc.Update(ctx, "u1", habit.ID, repository.HabitUpdate{
		Name: strPtr("   "),
	}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("blank name: got %v, want ErrValidation", err)
	}

	// Enabling the reminder without ever setting a time must fail on the
	// merged state, not just on the provided fragment.
	enabled := true
	if _, err := svc.Update(ctx, "u1", habit.ID, repository.HabitUpdate{
		ReminderEnabled: &enabled,
	}); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("reminder without time: got %v, want ErrValidation", err)
	}
}

func TestServiceUpdate_NotFound(t *testing.T) {
	svc := newService(newFakeRepo())

	_, err := svc.Update(context.Background(), "u1", "ghost", repository.HabitUpdate{})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

// ============================================================
// Delete is idempotent
// ============================================================

func TestServiceDelete_Idempotent(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	habit, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "Read"})

	if err := svc.Delete(ctx, "u1", habit.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	// Deleting again (or deleting garbage) is still success.
	if err := svc.Delete(ctx, "u1", habit.ID); err != nil {
		t.Errorf("second delete: %v", err)
	}
	if err := svc.Delete(ctx, "u1", "never-existed"); err != nil {
		t.Errorf("deleting unknown id: %v", err)
	}
}

// ============================================================
// Toggle
// ============================================================

func TestServiceToggle(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	habit, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "Read"})

	result, err := svc.ToggleCompletion(ctx, "u1", habit.ID, "2026-03-20")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !result.Completed || result.Date != "2026-03-20" {
		t.Errorf("toggle result = %+v", result)
	}
	if len(result.Habit.Completions) != 1 {
		t.Errorf("habit completions = %v", result.Habit.Completions)
	}

	result, err = svc.ToggleCompletion(ctx, "u1", habit.ID, "2026-03-20")
	if err != nil {
		t.Fatal(err)
	}
	if result.Completed {
		t.Error("second toggle should report removal")
	}
}

func TestServiceToggle_DefaultsToToday(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	habit, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "Read"})

	result, err := svc.ToggleCompletion(ctx, "u1", habit.ID, "")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if result.Date != dateutil.FormatDay(time.Now()) {
		t.Errorf("defaulted date = %q, want today", result.Date)
	}
}

func TestServiceToggle_RejectsBadDate(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	habit, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "Read"})

	if _, err := svc.ToggleCompletion(ctx, "u1", habit.ID, "03/20/2026"); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("got %v, want ErrValidation", err)
	}
}

// ============================================================
// Stats, export, profile
// ============================================================

func TestServiceGet_Stats(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	habit, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "Read"})
	today := dateutil.FormatDay(time.Now())
	yesterday := dateutil.FormatDay(time.Now().AddDate(0, 0, -1))
	for _, d := range []string{yesterday, today} {
		if _, err := svc.ToggleCompletion(ctx, "u1", habit.ID, d); err != nil {
			t.Fatal(err)
		}
	}

	_, stats, err := svc.Get(ctx, "u1", habit.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stats.Streak != 2 {
		t.Errorf("streak = %d, want 2", stats.Streak)
	}
	if stats.BestStreak != 2 {
		t.Errorf("best streak = %d, want 2", stats.BestStreak)
	}
	if stats.TotalCompletions != 2 {
		t.Errorf("total = %d, want 2", stats.TotalCompletions)
	}
	if stats.CompletionRate == 0 {
		t.Error("completion rate should be nonzero with completions recorded")
	}
}

func TestServiceExport(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "u1", service.HabitInput{Name: "A"})
	if _, err := svc.Create(ctx, "u1", service.HabitInput{Name: "B"}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.ToggleCompletion(ctx, "u1", a.ID, "2026-03-20"); err != nil {
		t.Fatal(err)
	}

	doc, err := svc.Export(ctx, "u1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.UserID != "u1" || len(doc.Habits) != 2 {
		t.Errorf("export doc = %+v", doc)
	}
	if doc.ExportedAt.IsZero() {
		t.Error("ExportedAt not set")
	}
	if len(doc.Habits[0].Completions) != 1 {
		t.Errorf("export lost completions: %v", doc.Habits[0].Completions)
	}
}

func TestServiceProfile(t *testing.T) {
	repo := newFakeRepo()
	svc := newService(repo)
	ctx := context.Background()

	user := &model.User{Name: "Ada", Email: "ada@example.com"}
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatal(err)
	}

	active, _ := svc.Create(ctx, user.ID, service.HabitInput{Name: "Active"})
	if _, err := svc.Create(ctx, user.ID, service.HabitInput{Name: "Idle"}); err != nil {
		t.Fatal(err)
	}
	today := dateutil.FormatDay(time.Now())
	if _, err := svc.ToggleCompletion(ctx, user.ID, active.ID, today); err != nil {
		t.Fatal(err)
	}

	got, stats, err := svc.Profile(ctx, user.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if got.Name != "Ada" {
		t.Errorf("user = %+v", got)
	}
	if stats.HabitCount != 2 || stats.TotalCompletions != 1 || stats.ActiveStreaks != 1 {
		t.Errorf("stats = %+v", stats)
	}
}
