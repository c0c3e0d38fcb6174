// Package jsonfile implements the repository contracts on a single local
// JSON document — the "local device storage" backend.
//
// HOW IT WORKS:
// The whole dataset lives in memory and the entire document is rewritten
// to disk on every mutation. That sounds wasteful, but for a personal
// habit tracker the document is a few kilobytes, and whole-file rewrites
// make the store trivially consistent: the file on disk is always one
// complete snapshot, never a partial update. Reads never touch the disk
// after the initial load.
//
// CONCURRENCY:
// The HTTP server calls into this store from many goroutines, so every
// method takes the store mutex. Mutations apply to the in-memory document
// first and then persist; if the write to disk fails, the in-memory change
// is rolled back so a failed write never leaves phantom state (the
// write-confirmed vs write-failed distinction the service relies on).
package jsonfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sakif/habit-tracker/internal/model"
)

// document is the on-disk shape. Maps are keyed by record ID; habit order
// lives in the Order field, not in map iteration order.
type document struct {
	Version int                     `json:"version"`
	Users   map[string]model.User   `json:"users"`
	Habits  map[string]model.Habit  `json:"habits"`
}

// Store implements repository.HabitRepository and repository.UserRepository
// over one JSON file.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// New loads (or initializes) the JSON document at path. A missing file is
// not an error — it means a fresh install, and the first mutation will
// create it. A malformed file IS an error: silently discarding a user's
// data is worse than refusing to start.
func New(path string) (*Store, error) {
	s := &Store{
		path: path,
		doc: document{
			Version: 1,
			Users:   map[string]model.User{},
			Habits:  map[string]model.Habit{},
		},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("jsonfile: reading %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &s.doc); err != nil {
		return nil, fmt.Errorf("jsonfile: parsing %s: %w", path, err)
	}
	if s.doc.Users == nil {
		s.doc.Users = map[string]model.User{}
	}
	if s.doc.Habits == nil {
		s.doc.Habits = map[string]model.Habit{}
	}
	return s, nil
}

// Close flushes nothing — every mutation already persisted — but keeps the
// lifecycle symmetric with the database-backed stores.
func (s *Store) Close() error {
	return nil
}

// save writes the full document. Callers hold s.mu.
//
// The write goes through a temp file + rename so a crash mid-write can't
// truncate the only copy of the user's data.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("jsonfile: encoding document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("jsonfile: creating %s: %w", dir, err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("jsonfile: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("jsonfile: replacing %s: %w", s.path, err)
	}
	return nil
}

// cloneHabit returns a copy with its own slices, so callers can't reach
// back into the store's document through a shared backing array.
func cloneHabit(h model.Habit) model.Habit {
	c := h
	c.RepeatDays = append([]int{}, h.RepeatDays...)
	c.Completions = append([]string{}, h.Completions...)
	return c
}
