// Package store persists tasks, projects and goals in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Store wraps the SQLite connection. It implements tasks.Repository,
// project.Repository and scheduler.TaskSource.
type Store struct {
	conn *sql.DB
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create db directory")
	}
	conn, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}
	// One writer at a time keeps SQLite from returning SQLITE_BUSY.
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn, now: time.Now}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "migrate database")
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS goals (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		deadline TEXT
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'active',
		parent_id TEXT NOT NULL DEFAULT '',
		goal_id TEXT NOT NULL DEFAULT '',
		deadline TEXT
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'inbox',
		source TEXT NOT NULL DEFAULT '',
		tags TEXT NOT NULL DEFAULT '[]',
		duration_min INTEGER NOT NULL DEFAULT 0,
		duration_max INTEGER NOT NULL DEFAULT 0,
		due_date TEXT,
		priority INTEGER NOT NULL DEFAULT 3,
		energy_required INTEGER NOT NULL DEFAULT 2,
		complexity INTEGER NOT NULL DEFAULT 1,
		is_private INTEGER NOT NULL DEFAULT 0,
		percent_complete INTEGER NOT NULL DEFAULT 0,
		is_critical_path INTEGER NOT NULL DEFAULT 0,
		is_milestone INTEGER NOT NULL DEFAULT 0,
		project_id TEXT NOT NULL DEFAULT '',
		goal_id TEXT NOT NULL DEFAULT '',
		context_id TEXT NOT NULL DEFAULT '',
		area_id TEXT NOT NULL DEFAULT '',
		ready_since TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS task_blockers (
		task_id TEXT NOT NULL,
		blocker_id TEXT NOT NULL,
		PRIMARY KEY (task_id, blocker_id),
		FOREIGN KEY (task_id) REFERENCES tasks(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
	CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_task_blockers_blocker_id ON task_blockers(blocker_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

// Tasks are read with the deadlines of their project and goal joined in. A
// task without its own goal inherits its project's.
const selectTasks = `
	SELECT t.id, t.title, t.description, t.status, t.source, t.tags,
		t.duration_min, t.duration_max, t.due_date, t.priority, t.energy_required,
		t.complexity, t.is_private, t.percent_complete, t.is_critical_path,
		t.is_milestone, t.project_id, t.goal_id, t.context_id, t.area_id,
		t.ready_since, p.deadline, g.deadline
	FROM tasks t
	LEFT JOIN projects p ON p.id = t.project_id
	LEFT JOIN goals g ON g.id = CASE WHEN t.goal_id != '' THEN t.goal_id ELSE p.goal_id END`

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (*model.Task, error) {
	var (
		t                                         model.Task
		status, tags                              string
		due, ready, projectDeadline, goalDeadline sql.NullString
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &status, &t.Source, &tags,
		&t.DurationMin, &t.DurationMax, &due, &t.Priority, &t.EnergyRequired,
		&t.Complexity, &t.IsPrivate, &t.PercentComplete, &t.IsCriticalPath,
		&t.IsMilestone, &t.ProjectID, &t.GoalID, &t.ContextID, &t.AreaID,
		&ready, &projectDeadline, &goalDeadline)
	if err != nil {
		return nil, err
	}
	t.Status = model.Status(status)
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, errors.Wrapf(err, "decode tags of task %s", t.ID)
	}
	for _, f := range []struct {
		src sql.NullString
		dst **time.Time
	}{
		{due, &t.DueDate},
		{ready, &t.ReadySince},
		{projectDeadline, &t.ProjectDeadline},
		{goalDeadline, &t.GoalDeadline},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return nil, errors.Wrapf(err, "decode time of task %s", t.ID)
		}
	}
	return &t, nil
}

func parseTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// timeLayout keeps a fixed number of fraction digits so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func (s *Store) queryTasks(ctx context.Context, where string, args ...any) ([]*model.Task, error) {
	rows, err := s.conn.QueryContext(ctx, selectTasks+" "+where, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := s.loadBlockers(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) loadBlockers(ctx context.Context, tasks []*model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	byID := make(map[string]*model.Task, len(tasks))
	args := make([]any, 0, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		args = append(args, t.ID)
	}
	rows, err := s.conn.QueryContext(ctx,
		`SELECT task_id, blocker_id FROM task_blockers WHERE task_id IN (`+placeholders(len(args))+`) ORDER BY rowid`,
		args...)
	if err != nil {
		return errors.Wrap(err, "load blockers")
	}
	defer rows.Close()
	for rows.Next() {
		var taskID, blockerID string
		if err := rows.Scan(&taskID, &blockerID); err != nil {
			return err
		}
		t := byID[taskID]
		t.BlockedBy = append(t.BlockedBy, blockerID)
	}
	return rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func statusArgs(statuses []model.Status) []any {
	args := make([]any, len(statuses))
	for i, st := range statuses {
		args[i] = string(st)
	}
	return args
}

// GetActiveTasks returns the todo and scheduled tasks in insertion order.
func (s *Store) GetActiveTasks(ctx context.Context) ([]*model.Task, error) {
	tasks, err := s.queryTasks(ctx, `WHERE t.status IN (?, ?) ORDER BY t.rowid`,
		string(model.StatusTodo), string(model.StatusScheduled))
	if err != nil {
		return nil, errors.Wrap(err, "query active tasks")
	}
	return tasks, nil
}

// ListTasks returns every task whose status is in statuses, or all tasks when none are given.
func (s *Store) ListTasks(ctx context.Context, statuses ...model.Status) ([]*model.Task, error) {
	where := `ORDER BY t.rowid`
	if len(statuses) > 0 {
		where = `WHERE t.status IN (` + placeholders(len(statuses)) + `) ` + where
	}
	tasks, err := s.queryTasks(ctx, where, statusArgs(statuses)...)
	if err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	return tasks, nil
}

// GetByID returns the task with id, or an error wrapping ErrTaskNotFound.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(s.conn.QueryRowContext(ctx, selectTasks+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrTaskNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get task %s", id)
	}
	if err := s.loadBlockers(ctx, []*model.Task{t}); err != nil {
		return nil, err
	}
	return t, nil
}

// Save inserts task, assigning a UUID when it has no id, or updates it.
// Its blocker list replaces the stored one.
func (s *Store) Save(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	tags := task.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return errors.Wrap(err, "encode tags")
	}
	now := s.now().UTC().Format(timeLayout)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tasks (id, title, description, status, source, tags,
			duration_min, duration_max, due_date, priority, energy_required,
			complexity, is_private, percent_complete, is_critical_path,
			is_milestone, project_id, goal_id, context_id, area_id,
			ready_since, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, description = excluded.description,
			status = excluded.status, source = excluded.source, tags = excluded.tags,
			duration_min = excluded.duration_min, duration_max = excluded.duration_max,
			due_date = excluded.due_date, priority = excluded.priority,
			energy_required = excluded.energy_required, complexity = excluded.complexity,
			is_private = excluded.is_private, percent_complete = excluded.percent_complete,
			is_critical_path = excluded.is_critical_path, is_milestone = excluded.is_milestone,
			project_id = excluded.project_id, goal_id = excluded.goal_id,
			context_id = excluded.context_id, area_id = excluded.area_id,
			ready_since = excluded.ready_since, updated_at = excluded.updated_at`,
		task.ID, task.Title, task.Description, string(task.Status), task.Source, string(encoded),
		task.DurationMin, task.DurationMax, formatTime(task.DueDate), task.Priority, task.EnergyRequired,
		task.Complexity, task.IsPrivate, task.PercentComplete, task.IsCriticalPath,
		task.IsMilestone, task.ProjectID, task.GoalID, task.ContextID, task.AreaID,
		formatTime(task.ReadySince), now, now)
	if err != nil {
		return errors.Wrapf(err, "save task %s", task.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_blockers WHERE task_id = ?`, task.ID); err != nil {
		return errors.Wrapf(err, "clear blockers of task %s", task.ID)
	}
	for _, b := range task.BlockedBy {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO task_blockers (task_id, blocker_id) VALUES (?, ?)`, task.ID, b); err != nil {
			return errors.Wrapf(err, "save blocker of task %s", task.ID)
		}
	}
	return tx.Commit()
}

// GetDependentTasks returns the tasks listing blockerID as a blocker.
func (s *Store) GetDependentTasks(ctx context.Context, blockerID string) ([]*model.Task, error) {
	tasks, err := s.queryTasks(ctx,
		`WHERE t.id IN (SELECT task_id FROM task_blockers WHERE blocker_id = ?) ORDER BY t.rowid`,
		blockerID)
	if err != nil {
		return nil, errors.Wrapf(err, "query dependents of %s", blockerID)
	}
	return tasks, nil
}

// HasActiveBlockers reports whether a blocker of taskID is neither done nor
// cancelled. Blocker ids with no stored task do not block.
func (s *Store) HasActiveBlockers(ctx context.Context, taskID string) (bool, error) {
	var exists, blocked bool
	err := s.conn.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM tasks WHERE id = ?),
			EXISTS(SELECT 1 FROM task_blockers b JOIN tasks bt ON bt.id = b.blocker_id
				WHERE b.task_id = ? AND bt.status NOT IN (?, ?))`,
		taskID, taskID, string(model.StatusDone), string(model.StatusCancelled)).Scan(&exists, &blocked)
	if err != nil {
		return false, errors.Wrapf(err, "query blockers of %s", taskID)
	}
	if !exists {
		return false, errors.Wrapf(errors.ErrTaskNotFound, "id %s", taskID)
	}
	return blocked, nil
}

// ProjectTasks returns the project's tasks whose status is in statuses.
func (s *Store) ProjectTasks(ctx context.Context, projectID string, statuses []model.Status) ([]*model.Task, error) {
	where := `WHERE t.project_id = ?`
	args := []any{projectID}
	if len(statuses) > 0 {
		where += ` AND t.status IN (` + placeholders(len(statuses)) + `)`
		args = append(args, statusArgs(statuses)...)
	}
	tasks, err := s.queryTasks(ctx, where+` ORDER BY t.rowid`, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query tasks of project %s", projectID)
	}
	return tasks, nil
}

// UpdateCriticalPath writes the critical-path flags in one transaction.
func (s *Store) UpdateCriticalPath(ctx context.Context, flags map[string]bool) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE tasks SET is_critical_path = ?, updated_at = ? WHERE id = ?`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := s.now().UTC().Format(timeLayout)
	for id, critical := range flags {
		if _, err := stmt.ExecContext(ctx, critical, now, id); err != nil {
			return errors.Wrapf(err, "update critical path of %s", id)
		}
	}
	return tx.Commit()
}
