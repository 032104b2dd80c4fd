package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Timestamps are written with fixed-width fractional seconds so the string
// range comparisons in the count queries order chronologically. Parsing stays
// on RFC3339Nano, which accepts any fractional width.
const (
	sqliteTimeLayout      = "2006-01-02T15:04:05.000000000Z07:00"
	sqliteTimeParseLayout = time.RFC3339Nano
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	if db == nil {
		return nil, errors.New("storage: nil db")
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return &SQLiteRepository{db: db}, nil
}

func OpenSQLite(path string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo, err := NewSQLiteRepository(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) DB() *sql.DB {
	return r.db
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, in Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, created_at, deadline, completed_at, reactivation_count, predecessor_id, reminder_token, buffer_token)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.Title, in.Description, in.Status,
		mustTime(in.CreatedAt), mustTime(in.Deadline), nullTime(in.CompletedAt),
		in.ReactivationCount, in.PredecessorID, in.ReminderToken, in.BufferToken,
	)
	return err
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, status, created_at, deadline, completed_at, reactivation_count, predecessor_id, reminder_token, buffer_token
		FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}
	return task, nil
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, in Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, status = ?, deadline = ?, completed_at = ?, reactivation_count = ?, predecessor_id = ?, reminder_token = ?, buffer_token = ?
		WHERE id = ?`,
		in.Title, in.Description, in.Status,
		mustTime(in.Deadline), nullTime(in.CompletedAt),
		in.ReactivationCount, in.PredecessorID, in.ReminderToken, in.BufferToken, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListTasks(ctx context.Context, filter TaskListFilter) ([]Task, error) {
	query := `SELECT id, title, description, status, created_at, deadline, completed_at, reactivation_count, predecessor_id, reminder_token, buffer_token FROM tasks`
	args := make([]any, 0, 3)
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at DESC`
	query += applyPagination(&args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Task, 0)
	for rows.Next() {
		task, scanErr := scanTask(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, task)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) CountTasksByStatus(ctx context.Context, status string) (int, error) {
	row := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE status = ?`, status)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SQLiteRepository) CountTasksByStatusInRange(ctx context.Context, status string, start, end time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE status = ? AND created_at >= ? AND created_at <= ?`,
		status, mustTime(start), mustTime(end))
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *SQLiteRepository) SumReactivationsInRange(ctx context.Context, start, end time.Time) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(reactivation_count), 0) FROM tasks
		WHERE created_at >= ? AND created_at <= ?`,
		mustTime(start), mustTime(end))
	var sum int
	if err := row.Scan(&sum); err != nil {
		return 0, err
	}
	return sum, nil
}

func (r *SQLiteRepository) GetSettings(ctx context.Context) (Settings, error) {
	row := r.db.QueryRowContext(ctx, `SELECT max_active_tasks, buffer_minutes FROM settings WHERE id = 1`)
	var out Settings
	if err := row.Scan(&out.MaxActiveTasks, &out.BufferMinutes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Settings{}, ErrNotFound
		}
		return Settings{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) SaveSettings(ctx context.Context, in Settings) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO settings (id, max_active_tasks, buffer_minutes)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			max_active_tasks = excluded.max_active_tasks,
			buffer_minutes = excluded.buffer_minutes`,
		in.MaxActiveTasks, in.BufferMinutes,
	)
	return err
}

func (r *SQLiteRepository) CreatePeriod(ctx context.Context, in TimePeriod) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO time_periods (id, start_hour, start_minute, end_hour, end_minute, max_hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.StartHour, in.StartMinute, in.EndHour, in.EndMinute, in.MaxHours, mustTime(in.CreatedAt),
	)
	return err
}

func (r *SQLiteRepository) GetPeriod(ctx context.Context, id string) (TimePeriod, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, start_hour, start_minute, end_hour, end_minute, max_hours, created_at
		FROM time_periods WHERE id = ?`, id)
	item, err := scanPeriod(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TimePeriod{}, ErrNotFound
		}
		return TimePeriod{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) UpdatePeriod(ctx context.Context, in TimePeriod) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE time_periods
		SET start_hour = ?, start_minute = ?, end_hour = ?, end_minute = ?, max_hours = ?
		WHERE id = ?`,
		in.StartHour, in.StartMinute, in.EndHour, in.EndMinute, in.MaxHours, in.ID,
	)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) DeletePeriod(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM time_periods WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkRowsAffected(res)
}

func (r *SQLiteRepository) ListPeriods(ctx context.Context) ([]TimePeriod, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, start_hour, start_minute, end_hour, end_minute, max_hours, created_at
		FROM time_periods ORDER BY start_hour ASC, start_minute ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TimePeriod, 0)
	for rows.Next() {
		item, scanErr := scanPeriod(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return v.UTC().Format(sqliteTimeLayout)
}

func mustTime(v time.Time) string {
	return v.UTC().Format(sqliteTimeLayout)
}

func parseNullableTime(v sql.NullString) (*time.Time, error) {
	if !v.Valid || v.String == "" {
		return nil, nil
	}
	tm, err := time.Parse(sqliteTimeParseLayout, v.String)
	if err != nil {
		return nil, err
	}
	return &tm, nil
}

func parseRequiredTime(v string) (time.Time, error) {
	return time.Parse(sqliteTimeParseLayout, v)
}

func applyPagination(args *[]any, limit, offset int) string {
	sql := ""
	if limit > 0 {
		sql += " LIMIT ?"
		*args = append(*args, limit)
	}
	if offset > 0 {
		sql += " OFFSET ?"
		*args = append(*args, offset)
	}
	return sql
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (Task, error) {
	var out Task
	var created string
	var deadline string
	var completed sql.NullString
	if err := s.Scan(&out.ID, &out.Title, &out.Description, &out.Status, &created, &deadline, &completed,
		&out.ReactivationCount, &out.PredecessorID, &out.ReminderToken, &out.BufferToken); err != nil {
		return Task{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return Task{}, err
	}
	deadlineAt, err := parseRequiredTime(deadline)
	if err != nil {
		return Task{}, err
	}
	completedAt, err := parseNullableTime(completed)
	if err != nil {
		return Task{}, err
	}
	out.CreatedAt = createdAt
	out.Deadline = deadlineAt
	out.CompletedAt = completedAt
	return out, nil
}

func scanPeriod(s scanner) (TimePeriod, error) {
	var out TimePeriod
	var created string
	if err := s.Scan(&out.ID, &out.StartHour, &out.StartMinute, &out.EndHour, &out.EndMinute, &out.MaxHours, &created); err != nil {
		return TimePeriod{}, err
	}
	createdAt, err := parseRequiredTime(created)
	if err != nil {
		return TimePeriod{}, err
	}
	out.CreatedAt = createdAt
	return out, nil
}

func checkRowsAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
