package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/habit-tracker/internal/apperror"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
)

var _ repository.HabitRepository = (*DB)(nil)

const habitColumns = `id, user_id, name, icon, color_id, reminder_enabled,
	reminder_time, repeat_days, created_at, position`

func scanHabit(row interface{ Scan(...any) error }) (*model.Habit, error) {
	var h model.Habit
	var repeatDays string
	err := row.Scan(
		&h.ID, &h.UserID, &h.Name, &h.Icon, &h.ColorID,
		&h.ReminderEnabled, &h.ReminderTime, &repeatDays,
		&h.CreatedAt, &h.Order,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(repeatDays), &h.RepeatDays); err != nil {
		return nil, fmt.Errorf("decoding repeat_days: %w", err)
	}
	h.Completions = []string{}
	return &h, nil
}

func (db *DB) Create(ctx context.Context, habit *model.Habit) error {
	habit.ID = xid.New().String()
	habit.CreatedAt = time.Now()
	habit.Completions = []string{}
	if habit.RepeatDays == nil {
		habit.RepeatDays = []int{}
	}

	repeatDays, err := json.Marshal(habit.RepeatDays)
	if err != nil {
		return fmt.Errorf("postgres: encoding repeat_days: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning create tx: %w", err)
	}
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = $1`, habit.UserID,
	).Scan(&habit.Order); err != nil {
		return fmt.Errorf("postgres: counting habits: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, icon, color_id,
			reminder_enabled, reminder_time, repeat_days, created_at, position)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		habit.ID, habit.UserID, habit.Name, habit.Icon, habit.ColorID,
		habit.ReminderEnabled, habit.ReminderTime, string(repeatDays),
		habit.CreatedAt, habit.Order,
	)
	if err != nil {
		return fmt.Errorf("postgres: creating habit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing create: %w", err)
	}
	return nil
}

func (db *DB) GetByID(ctx context.Context, userID, id string) (*model.Habit, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	habit, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("habit", id)
		}
		return nil, fmt.Errorf("postgres: getting habit %s: %w", id, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT date FROM completions WHERE habit_id = $1 ORDER BY date`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: loading completions for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("postgres: scanning completion: %w", err)
		}
		habit.Completions = append(habit.Completions, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating completions: %w", err)
	}
	return habit, nil
}

func (db *DB) List(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE user_id = $1 ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing habits: %w", err)
	}
	defer rows.Close()

	habits := []model.Habit{}
	index := map[string]int{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scanning habit row: %w", err)
		}
		index[h.ID] = len(habits)
		habits = append(habits, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating habits: %w", err)
	}

	crows, err := db.conn.QueryContext(ctx,
		`SELECT habit_id, date FROM completions WHERE user_id = $1 ORDER BY date`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: listing completions: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		var habitID, date string
		if err := crows.Scan(&habitID, &date); err != nil {
			return nil, fmt.Errorf("postgres: scanning completion row: %w", err)
		}
		if i, ok := index[habitID]; ok {
			habits[i].Completions = append(habits[i].Completions, date)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterating completions: %w", err)
	}
	return habits, nil
}

func (db *DB) Update(ctx context.Context, habit *model.Habit) error {
	repeatDays, err := json.Marshal(habit.RepeatDays)
	if err != nil {
		return fmt.Errorf("postgres: encoding repeat_days: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE habits
		 SET name = $1, icon = $2, color_id = $3, reminder_enabled = $4,
		     reminder_time = $5, repeat_days = $6
		 WHERE id = $7 AND user_id = $8`,
		habit.Name, habit.Icon, habit.ColorID, habit.ReminderEnabled,
		habit.ReminderTime, string(repeatDays),
		habit.ID, habit.UserID,
	)
	if err != nil {
		return fmt.Errorf("postgres: updating habit %s: %w", habit.ID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("habit", habit.ID)
	}
	return nil
}

// Delete removes the habit and renumbers the survivors in one transaction,
// keeping positions a dense 0..N-1 sequence so the next create (position =
// count) cannot collide with a hole left by the deletion.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: beginning delete tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM habits WHERE id = $1 AND user_id = $2`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: deleting habit %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("habit", id)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, position FROM habits WHERE user_id = $1 ORDER BY position`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("postgres: reading ordering: %w", err)
	}
	type entry struct {
		id  string
		pos int
	}
	var ordering []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.pos); err != nil {
			rows.Close()
			return fmt.Errorf("postgres: scanning ordering: %w", err)
		}
		ordering = append(ordering, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("postgres: iterating ordering: %w", err)
	}
	rows.Close()

	for i, e := range ordering {
		if e.pos == i {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE habits SET position = $1 WHERE id = $2`, i, e.id,
		); err != nil {
			return fmt.Errorf("postgres: renumbering habit %s: %w", e.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: committing delete: %w", err)
	}
	return nil
}

// ToggleCompletion uses the same delete-then-insert-on-conflict shape as
// the sqlite backend: the (habit_id, date) primary key makes the insert
// race-safe, so there is no read-then-write window even across sessions
// hitting a shared remote server.
func (db *DB) ToggleCompletion(ctx context.Context, userID, id, date string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("postgres: beginning toggle tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE id = $1 AND user_id = $2`, id, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: checking habit %s: %w", id, err)
	}
	if exists == 0 {
		return false, apperror.NotFound("habit", id)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM completions WHERE habit_id = $1 AND date = $2`, id, date,
	)
	if err != nil {
		return false, fmt.Errorf("postgres: removing completion: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("postgres: checking rows affected: %w", err)
	}

	added := false
	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO completions (habit_id, user_id, date)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (habit_id, date) DO NOTHING`,
			id, userID, date,
		)
		if err != nil {
			return false, fmt.Errorf("postgres: adding completion: %w", err)
		}
		added = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("postgres: committing toggle: %w", err)
	}
	return added, nil
}

func (db *DB) Reorder(ctx context.Context, userID string, fromIndex, toIndex int) ([]model.Habit, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("postgres: beginning reorder tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, position FROM habits WHERE user_id = $1 ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: reading ordering: %w", err)
	}

	type entry struct {
		id  string
		pos int
	}
	var ordering []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.id, &e.pos); err != nil {
			rows.Close()
			return nil, fmt.Errorf("postgres: scanning ordering: %w", err)
		}
		ordering = append(ordering, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("postgres: iterating ordering: %w", err)
	}
	rows.Close()

	n := len(ordering)
	if fromIndex < 0 || fromIndex >= n {
		return nil, apperror.ValidationFailed("fromIndex",
			fmt.Sprintf("fromIndex %d out of range [0,%d)", fromIndex, n))
	}
	if toIndex < 0 || toIndex >= n {
		return nil, apperror.ValidationFailed("toIndex",
			fmt.Sprintf("toIndex %d out of range [0,%d)", toIndex, n))
	}

	moved := ordering[fromIndex]
	ordering = append(ordering[:fromIndex], ordering[fromIndex+1:]...)
	ordering = append(ordering[:toIndex],
		append([]entry{moved}, ordering[toIndex:]...)...)

	for i, e := range ordering {
		if e.pos == i {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE habits SET position = $1 WHERE id = $2`, i, e.id,
		); err != nil {
			return nil, fmt.Errorf("postgres: renumbering habit %s: %w", e.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("postgres: committing reorder: %w", err)
	}
	return db.List(ctx, userID)
}
