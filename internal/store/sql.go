package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/ZerkerEOD/filecrack/internal/models"
)

// Dialect selects placeholder style and locking clauses
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const taskColumns = `id, file_path, profile, custom_mask, state, stage_index, stage_count,
	progress, result_json, error_kind, error_message, worker_id, budget_seconds,
	created_at, started_at, completed_at, updated_at, cancel_requested`

// SQLStore implements Store on database/sql for sqlite and postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// NewSQLStore wraps an already opened database
func NewSQLStore(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect}
}

// Open connects to driver ("sqlite" or "postgres") and pings it.
func Open(driver, dsn string) (*sql.DB, Dialect, error) {
	var dialect Dialect
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		dialect = DialectSQLite
	case "postgres", "postgresql":
		dialect = DialectPostgres
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite {
		// sqlite allows one writer; serialising here avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("failed to ping database: %w", err)
	}
	return db, dialect, nil
}

// DB exposes the underlying handle for migrations and shutdown
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func encodeResult(r *models.Result) (sql.NullString, error) {
	if r == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode result: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (s *SQLStore) Create(ctx context.Context, task *models.Task) error {
	result, err := encodeResult(task.Result)
	if err != nil {
		return err
	}
	query := s.rebind(`INSERT INTO crack_tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		task.ID, task.FilePath, string(task.Profile), task.CustomMask, string(task.State),
		task.StageIndex, task.StageCount, task.Progress, result,
		string(task.ErrorKind), task.ErrorMessage, task.WorkerID, int64(task.Budget/time.Second),
		task.CreatedAt.UTC(), nullTime(task.StartedAt), nullTime(task.CompletedAt), task.UpdatedAt.UTC(),
		task.CancelRequested,
	)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	var (
		t                    models.Task
		profile, state, kind string
		result               sql.NullString
		budget               int64
		started, completed   sql.NullTime
		created, updated     time.Time
	)
	err := row.Scan(&t.ID, &t.FilePath, &profile, &t.CustomMask, &state, &t.StageIndex, &t.StageCount,
		&t.Progress, &result, &kind, &t.ErrorMessage, &t.WorkerID, &budget,
		&created, &started, &completed, &updated, &t.CancelRequested)
	if err != nil {
		return nil, err
	}
	t.Profile = models.Profile(profile)
	t.State = models.State(state)
	t.ErrorKind = models.ErrorKind(kind)
	t.Budget = time.Duration(budget) * time.Second
	t.CreatedAt = created
	t.UpdatedAt = updated
	if started.Valid {
		st := started.Time
		t.StartedAt = &st
	}
	if completed.Valid {
		ct := completed.Time
		t.CompletedAt = &ct
	}
	if result.Valid && result.String != "" {
		var r models.Result
		if err := json.Unmarshal([]byte(result.String), &r); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
		t.Result = &r
	}
	return &t, nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (*models.Task, error) {
	query := s.rebind(`SELECT ` + taskColumns + ` FROM crack_tasks WHERE id = ?`)
	t, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return t, nil
}

func (s *SQLStore) Update(ctx context.Context, task *models.Task) error {
	result, err := encodeResult(task.Result)
	if err != nil {
		return err
	}
	query := s.rebind(`UPDATE crack_tasks SET
		state = ?, stage_index = ?, stage_count = ?, progress = ?, result_json = ?,
		error_kind = ?, error_message = ?, worker_id = ?, budget_seconds = ?,
		started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query,
		string(task.State), task.StageIndex, task.StageCount, task.Progress, result,
		string(task.ErrorKind), task.ErrorMessage, task.WorkerID, int64(task.Budget/time.Second),
		nullTime(task.StartedAt), nullTime(task.CompletedAt), task.UpdatedAt.UTC(),
		task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) AppendLog(ctx context.Context, entry *models.LogEntry) error {
	args := []any{entry.TaskID, entry.Time.UTC(), entry.Level, string(entry.Event), entry.Message, entry.StageIndex}
	insert := `INSERT INTO crack_task_logs (task_id, logged_at, level, event, message, stage_index)
		VALUES (?, ?, ?, ?, ?, ?)`

	if s.dialect == DialectPostgres {
		if err := s.db.QueryRowContext(ctx, s.rebind(insert+` RETURNING id`), args...).Scan(&entry.ID); err != nil {
			return fmt.Errorf("failed to append task log: %w", err)
		}
		return nil
	}

	res, err := s.db.ExecContext(ctx, insert, args...)
	if err != nil {
		return fmt.Errorf("failed to append task log: %w", err)
	}
	if entry.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("failed to get log id: %w", err)
	}
	return nil
}

func (s *SQLStore) Logs(ctx context.Context, taskID string) ([]models.LogEntry, error) {
	query := s.rebind(`SELECT id, task_id, logged_at, level, event, message, stage_index
		FROM crack_task_logs WHERE task_id = ? ORDER BY id`)
	rows, err := s.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to query task logs: %w", err)
	}
	defer rows.Close()

	var entries []models.LogEntry
	for rows.Next() {
		var (
			e     models.LogEntry
			event string
		)
		if err := rows.Scan(&e.ID, &e.TaskID, &e.Time, &e.Level, &event, &e.Message, &e.StageIndex); err != nil {
			return nil, fmt.Errorf("failed to scan task log: %w", err)
		}
		e.Event = models.LogEvent(event)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *SQLStore) ClaimPending(ctx context.Context, workerID string) (*models.Task, error) {
	lock := ""
	if s.dialect == DialectPostgres {
		lock = " FOR UPDATE SKIP LOCKED"
	}
	query := s.rebind(`UPDATE crack_tasks SET worker_id = ?, updated_at = ?
		WHERE id = (
			SELECT id FROM crack_tasks
			WHERE state = ? AND worker_id = ''
			ORDER BY created_at
			LIMIT 1` + lock + `
		)
		RETURNING id`)

	var id string
	err := s.db.QueryRowContext(ctx, query, workerID, time.Now().UTC(), string(models.StatePending)).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending task: %w", err)
	}
	return s.Get(ctx, id)
}

func (s *SQLStore) ListByState(ctx context.Context, states ...models.State) ([]*models.Task, error) {
	if len(states) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(states))
	args := make([]any, len(states))
	for i, st := range states {
		placeholders[i] = "?"
		args[i] = string(st)
	}
	query := s.rebind(`SELECT ` + taskColumns + ` FROM crack_tasks
		WHERE state IN (` + strings.Join(placeholders, ", ") + `) ORDER BY created_at`)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLStore) RequestCancel(ctx context.Context, id string) error {
	query := s.rebind(`UPDATE crack_tasks SET cancel_requested = ? WHERE id = ?`)
	res, err := s.db.ExecContext(ctx, query, true, id)
	if err != nil {
		return fmt.Errorf("failed to request cancellation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) CancelPending(ctx context.Context, id, reason string, at time.Time) (bool, error) {
	query := s.rebind(`UPDATE crack_tasks SET
		state = ?, error_kind = ?, error_message = ?, cancel_requested = ?,
		completed_at = ?, updated_at = ?
		WHERE id = ? AND state = ? AND worker_id = ''`)
	res, err := s.db.ExecContext(ctx, query,
		string(models.StateCancelled), string(models.KindCancelled), reason, true,
		at.UTC(), at.UTC(),
		id, string(models.StatePending),
	)
	if err != nil {
		return false, fmt.Errorf("failed to cancel pending task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return true, nil
	}
	if _, err := s.Get(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
