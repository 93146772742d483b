package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// SaveProject inserts or updates a project, assigning a UUID when it has no id.
func (s *Store) SaveProject(ctx context.Context, p *model.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	status := p.Status
	if status == "" {
		status = "active"
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO projects (id, title, status, parent_id, goal_id, deadline)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, status = excluded.status, parent_id = excluded.parent_id,
			goal_id = excluded.goal_id, deadline = excluded.deadline`,
		p.ID, p.Title, status, p.ParentID, p.GoalID, formatTime(p.Deadline))
	if err != nil {
		return errors.Wrapf(err, "save project %s", p.ID)
	}
	p.Status = status
	return nil
}

// GetProject returns the project with id, or an error wrapping ErrProjectNotFound.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var (
		p        model.Project
		deadline sql.NullString
	)
	err := s.conn.QueryRowContext(ctx,
		`SELECT id, title, status, parent_id, goal_id, deadline FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Title, &p.Status, &p.ParentID, &p.GoalID, &deadline)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(errors.ErrProjectNotFound, "id %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get project %s", id)
	}
	if p.Deadline, err = parseTime(deadline); err != nil {
		return nil, errors.Wrapf(err, "decode deadline of project %s", id)
	}
	return &p, nil
}

// SaveGoal inserts or updates a goal, assigning a UUID when it has no id.
func (s *Store) SaveGoal(ctx context.Context, g *model.Goal) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	status := g.Status
	if status == "" {
		status = "active"
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO goals (id, title, status, deadline) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, status = excluded.status, deadline = excluded.deadline`,
		g.ID, g.Title, status, formatTime(g.Deadline))
	if err != nil {
		return errors.Wrapf(err, "save goal %s", g.ID)
	}
	g.Status = status
	return nil
}
