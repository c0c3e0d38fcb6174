package jsonfile

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/habit-tracker/internal/apperror"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
)

var _ repository.HabitRepository = (*Store)(nil)

// userHabits returns the user's habits sorted by Order ascending.
// Callers hold s.mu.
func (s *Store) userHabits(userID string) []model.Habit {
	var habits []model.Habit
	for _, h := range s.doc.Habits {
		if h.UserID == userID {
			habits = append(habits, cloneHabit(h))
		}
	}
	slices.SortFunc(habits, func(a, b model.Habit) int { return a.Order - b.Order })
	return habits
}

func (s *Store) List(_ context.Context, userID string) ([]model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	habits := s.userHabits(userID)
	if habits == nil {
		habits = []model.Habit{}
	}
	return habits, nil
}

func (s *Store) GetByID(_ context.Context, userID, id string) (*model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.doc.Habits[id]
	if !ok || h.UserID != userID {
		return nil, apperror.NotFound("habit", id)
	}
	c := cloneHabit(h)
	return &c, nil
}

func (s *Store) Create(_ context.Context, habit *model.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	habit.ID = xid.New().String()
	habit.CreatedAt = time.Now()
	habit.Completions = []string{}
	if habit.RepeatDays == nil {
		habit.RepeatDays = []int{}
	}
	habit.Order = len(s.userHabits(habit.UserID))

	s.doc.Habits[habit.ID] = cloneHabit(*habit)
	if err := s.save(); err != nil {
		delete(s.doc.Habits, habit.ID)
		return err
	}
	return nil
}

func (s *Store) Update(_ context.Context, habit *model.Habit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.doc.Habits[habit.ID]
	if !ok || prev.UserID != habit.UserID {
		return apperror.NotFound("habit", habit.ID)
	}

	// Only the editable fields move; identity, ordering, history stay.
	next := prev
	next.Name = habit.Name
	next.Icon = habit.Icon
	next.ColorID = habit.ColorID
	next.ReminderEnabled = habit.ReminderEnabled
	next.ReminderTime = habit.ReminderTime
	next.RepeatDays = append([]int{}, habit.RepeatDays...)

	s.doc.Habits[habit.ID] = next
	if err := s.save(); err != nil {
		s.doc.Habits[habit.ID] = prev
		return err
	}
	return nil
}

// Delete removes the habit and renumbers the survivors to a dense 0..N-1
// sequence. Create assigns order = count, so a hole left by a deletion
// would make the next create collide with an existing position.
func (s *Store) Delete(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.doc.Habits[id]
	if !ok || h.UserID != userID {
		return apperror.NotFound("habit", id)
	}

	delete(s.doc.Habits, id)

	prev := map[string]model.Habit{}
	for i, survivor := range s.userHabits(userID) {
		if survivor.Order == i {
			continue
		}
		prev[survivor.ID] = s.doc.Habits[survivor.ID]
		survivor.Order = i
		s.doc.Habits[survivor.ID] = cloneHabit(survivor)
	}

	if err := s.save(); err != nil {
		s.doc.Habits[id] = h
		for pid, ph := range prev {
			s.doc.Habits[pid] = ph
		}
		return err
	}
	return nil
}

// ToggleCompletion is trivially atomic here: the store mutex serializes
// all mutations, so "check then flip" has no race window.
func (s *Store) ToggleCompletion(_ context.Context, userID, id, date string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.doc.Habits[id]
	if !ok || prev.UserID != userID {
		return false, apperror.NotFound("habit", id)
	}

	next := cloneHabit(prev)
	added := false
	if i := slices.Index(next.Completions, date); i >= 0 {
		next.Completions = slices.Delete(next.Completions, i, i+1)
	} else {
		next.Completions = append(next.Completions, date)
		added = true
	}

	s.doc.Habits[id] = next
	if err := s.save(); err != nil {
		s.doc.Habits[id] = prev
		return false, err
	}
	return added, nil
}

func (s *Store) Reorder(_ context.Context, userID string, fromIndex, toIndex int) ([]model.Habit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	habits := s.userHabits(userID)
	n := len(habits)
	if fromIndex < 0 || fromIndex >= n {
		return nil, apperror.ValidationFailed("fromIndex",
			fmt.Sprintf("fromIndex %d out of range [0,%d)", fromIndex, n))
	}
	if toIndex < 0 || toIndex >= n {
		return nil, apperror.ValidationFailed("toIndex",
			fmt.Sprintf("toIndex %d out of range [0,%d)", toIndex, n))
	}

	moved := habits[fromIndex]
	habits = slices.Delete(habits, fromIndex, fromIndex+1)
	habits = slices.Insert(habits, toIndex, moved)

	prev := map[string]model.Habit{}
	for i := range habits {
		prev[habits[i].ID] = s.doc.Habits[habits[i].ID]
		habits[i].Order = i
		s.doc.Habits[habits[i].ID] = cloneHabit(habits[i])
	}
	if err := s.save(); err != nil {
		for id, h := range prev {
			s.doc.Habits[id] = h
		}
		return nil, err
	}
	return habits, nil
}
