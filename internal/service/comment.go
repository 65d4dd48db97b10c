package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/security"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
)

// CreateComment attaches a comment to a task. The caller needs READ on the
// task's workbasket.
func (s *TaskService) CreateComment(ctx context.Context, p security.Principal, taskID, text string) (*task.Comment, error) {
	t, err := s.store.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead); err != nil {
		return nil, err
	}

	now := s.now()
	c := &task.Comment{
		ID:       uuid.New().String(),
		TaskID:   taskID,
		Creator:  p.UserID,
		Text:     text,
		Created:  now,
		Modified: now,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// GetComment returns a comment by id, subject to READ on the task's
// workbasket.
func (s *TaskService) GetComment(ctx context.Context, p security.Principal, id string) (*task.Comment, error) {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, p, c.TaskID); err != nil {
		return nil, err
	}
	return c, nil
}

// ListComments returns all comments of a task, subject to READ on the
// task's workbasket.
func (s *TaskService) ListComments(ctx context.Context, p security.Principal, taskID string) ([]task.Comment, error) {
	if _, err := s.Get(ctx, p, taskID); err != nil {
		return nil, err
	}
	return s.store.ListComments(ctx, taskID)
}

// UpdateComment replaces a comment's text. Only the creator or an
// administrator may update it; the Modified timestamp of upd must be the
// one read by the caller.
func (s *TaskService) UpdateComment(ctx context.Context, p security.Principal, upd *task.Comment) (*task.Comment, error) {
	if upd.ID == "" {
		return nil, fmt.Errorf("comment id is required: %w", domain.ErrInvalidArgument)
	}
	c, err := s.store.GetComment(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCommentAccess(p, c); err != nil {
		return nil, err
	}

	readModified := upd.Modified
	c.Text = upd.Text
	c.Modified = s.now()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateComment(ctx, c, readModified); err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteComment removes a comment. Only the creator or an administrator may
// delete it.
func (s *TaskService) DeleteComment(ctx context.Context, p security.Principal, id string) error {
	c, err := s.store.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requireCommentAccess(p, c); err != nil {
		return err
	}
	return s.store.DeleteComment(ctx, id)
}

func (s *TaskService) requireCommentAccess(p security.Principal, c *task.Comment) error {
	if p.IsAdmin() || workbasket.NormalizeAccessID(c.Creator) == workbasket.NormalizeAccessID(p.UserID) {
		return nil
	}
	return fmt.Errorf("comment %s belongs to %q: %w", c.ID, c.Creator, domain.ErrNotAuthorized)
}
