package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/habit-tracker/internal/apperror"
	"github.com/sakif/habit-tracker/internal/model"
	"github.com/sakif/habit-tracker/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// `var _ X = (*Y)(nil)` assigns a nil *Y to a variable of interface type X.
// If *Y doesn't implement X, the compiler errors immediately instead of at
// the call site much later. Standard practice for any implementation.
var _ repository.HabitRepository = (*DB)(nil)

// habitColumns is the SELECT list shared by every habit query, so Scan
// calls stay in one fixed column order.
const habitColumns = `id, user_id, name, icon, color_id, reminder_enabled,
	reminder_time, repeat_days, created_at, position`

// scanHabit reads one habit row. repeat_days comes back as a JSON TEXT
// column and is decoded here; Completions are attached separately.
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

// Create inserts a new habit for its user.
//
// The repository assigns what the caller must not: a fresh xid, the
// creation timestamp, an empty completion set, and position = current
// count for that user. Count-then-insert runs inside one transaction so
// two concurrent creates can't claim the same position.
func (db *DB) Create(ctx context.Context, habit *model.Habit) error {
	habit.ID = xid.New().String()
	habit.CreatedAt = time.Now()
	habit.Completions = []string{}
	if habit.RepeatDays == nil {
		habit.RepeatDays = []int{}
	}

	repeatDays, err := json.Marshal(habit.RepeatDays)
	if err != nil {
		return fmt.Errorf("sqlite: encoding repeat_days: %w", err)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning create tx: %w", err)
	}
	// Rollback after a successful Commit is a no-op, so a bare defer
	// covers every early return below.
	defer tx.Rollback()

	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = ?`, habit.UserID,
	).Scan(&habit.Order); err != nil {
		return fmt.Errorf("sqlite: counting habits: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, icon, color_id,
			reminder_enabled, reminder_time, repeat_days, created_at, position)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Name, habit.Icon, habit.ColorID,
		habit.ReminderEnabled, habit.ReminderTime, string(repeatDays),
		habit.CreatedAt, habit.Order,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating habit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing create: %w", err)
	}
	return nil
}

// GetByID retrieves a single habit (with completions) scoped to its owner.
// The WHERE clause carries BOTH id and user_id — another user's habit id
// behaves exactly like a nonexistent one.
func (db *DB) GetByID(ctx context.Context, userID, id string) (*model.Habit, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	habit, err := scanHabit(row)
	if err != nil {
		// sql.ErrNoRows is a sentinel, not a failure — translate it to the
		// domain's NotFound so the handler can return 404.
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("habit", id)
		}
		return nil, fmt.Errorf("sqlite: getting habit %s: %w", id, err)
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT date FROM completions WHERE habit_id = ? ORDER BY date`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading completions for %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var date string
		if err := rows.Scan(&date); err != nil {
			return nil, fmt.Errorf("sqlite: scanning completion: %w", err)
		}
		habit.Completions = append(habit.Completions, date)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating completions: %w", err)
	}

	return habit, nil
}

// List returns all of a user's habits ordered by position ascending, with
// completions resolved. Two queries, not N+1: one for the habits, one for
// all of the user's completion rows, merged in memory.
func (db *DB) List(ctx context.Context, userID string) ([]model.Habit, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE user_id = ? ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing habits: %w", err)
	}
	// Always close rows — a forgotten Close leaks a pool connection.
	defer rows.Close()

	habits := []model.Habit{}
	index := map[string]int{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning habit row: %w", err)
		}
		index[h.ID] = len(habits)
		habits = append(habits, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating habits: %w", err)
	}

	crows, err := db.conn.QueryContext(ctx,
		`SELECT habit_id, date FROM completions WHERE user_id = ? ORDER BY date`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing completions: %w", err)
	}
	defer crows.Close()

	for crows.Next() {
		var habitID, date string
		if err := crows.Scan(&habitID, &date); err != nil {
			return nil, fmt.Errorf("sqlite: scanning completion row: %w", err)
		}
		if i, ok := index[habitID]; ok {
			habits[i].Completions = append(habits[i].Completions, date)
		}
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating completions: %w", err)
	}

	return habits, nil
}

// Update persists an edited habit. The service has already merged partial
// attributes into a fetched copy, so this is a full-row UPDATE of the
// editable columns — id, user_id, created_at, and position never change
// here. RowsAffected()==0 means the WHERE matched nothing → NotFound.
func (db *DB) Update(ctx context.Context, habit *model.Habit) error {
	repeatDays, err := json.Marshal(habit.RepeatDays)
	if err != nil {
		return fmt.Errorf("sqlite: encoding repeat_days: %w", err)
	}

	result, err := db.conn.ExecContext(ctx,
		`UPDATE habits
		 SET name = ?, icon = ?, color_id = ?, reminder_enabled = ?,
		     reminder_time = ?, repeat_days = ?
		 WHERE id = ? AND user_id = ?`,
		habit.Name, habit.Icon, habit.ColorID, habit.ReminderEnabled,
		habit.ReminderTime, string(repeatDays),
		habit.ID, habit.UserID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating habit %s: %w", habit.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("habit", habit.ID)
	}
	return nil
}

// Delete removes a habit and all of its completion records (the CASCADE on
// completions.habit_id handles the latter), then renumbers the user's
// surviving habits back to a dense 0..N-1 sequence — Create assigns
// position = count, so leaving a hole would make the next create collide
// with an existing position. Returns NotFound for an unknown id; the
// service layer turns that into a no-op success.
func (db *DB) Delete(ctx context.Context, userID, id string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning delete tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM habits WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting habit %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("habit", id)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, position FROM habits WHERE user_id = ? ORDER BY position`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: reading ordering: %w", err)
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
			return fmt.Errorf("sqlite: scanning ordering: %w", err)
		}
		ordering = append(ordering, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("sqlite: iterating ordering: %w", err)
	}
	rows.Close()

	for i, e := range ordering {
		if e.pos == i {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE habits SET position = ? WHERE id = ?`, i, e.id,
		); err != nil {
			return fmt.Errorf("sqlite: renumbering habit %s: %w", e.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing delete: %w", err)
	}
	return nil
}

// ToggleCompletion flips the completion state of (habit, date) in a single
// atomic transition.
//
// NO READ-THEN-WRITE:
// A naive implementation would SELECT to see whether the date exists, then
// INSERT or DELETE — and two concurrent toggles could both see "absent"
// and double-add. Instead we DELETE first: if a row went away the toggle
// was a removal; otherwise we INSERT with OR IGNORE, so even a racing
// duplicate insert cannot violate the (habit_id, date) key. Both
// statements run inside one transaction with the ownership check.
func (db *DB) ToggleCompletion(ctx context.Context, userID, id, date string) (bool, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning toggle tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE id = ? AND user_id = ?`, id, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking habit %s: %w", id, err)
	}
	if exists == 0 {
		return false, apperror.NotFound("habit", id)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM completions WHERE habit_id = ? AND date = ?`,
		id, date,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: removing completion: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}

	added := false
	if removed == 0 {
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO completions (habit_id, user_id, date)
			 VALUES (?, ?, ?)`,
			id, userID, date,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: adding completion: %w", err)
		}
		added = true
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing toggle: %w", err)
	}
	return added, nil
}

// Reorder moves the habit at fromIndex to toIndex within the user's
// ordering and renumbers the collection to a dense 0..N-1 sequence.
//
// The whole operation is one transaction: read the current ordering, move
// the element, write back a new position for every habit whose position
// changed. A single writer per user session is assumed, but the
// transaction still keeps a crash from leaving a half-renumbered
// collection.
func (db *DB) Reorder(ctx context.Context, userID string, fromIndex, toIndex int) ([]model.Habit, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("sqlite: beginning reorder tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, position FROM habits WHERE user_id = ? ORDER BY position`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: reading ordering: %w", err)
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
			return nil, fmt.Errorf("sqlite: scanning ordering: %w", err)
		}
		ordering = append(ordering, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("sqlite: iterating ordering: %w", err)
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
			continue // position unchanged, skip the write
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE habits SET position = ? WHERE id = ?`, i, e.id,
		); err != nil {
			return nil, fmt.Errorf("sqlite: renumbering habit %s: %w", e.id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: committing reorder: %w", err)
	}

	return db.List(ctx, userID)
}
