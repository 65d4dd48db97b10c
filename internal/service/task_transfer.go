package service

import (
	"context"
	"fmt"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/security"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/port/messagequeue"
)

// Transfer moves a task into the destination workbasket. The caller needs
// TRANSFER on the source workbasket and APPEND on the destination; the
// task must not be in an end state. On success the read flag is cleared
// and the transferred flag set as requested.
func (s *TaskService) Transfer(ctx context.Context, p security.Principal, id, destinationID string, setTransferFlag bool) (*task.Task, error) {
	return s.transfer(ctx, p, id, destinationID, "", "", setTransferFlag)
}

// TransferByKey is Transfer with the destination addressed by key+domain.
func (s *TaskService) TransferByKey(ctx context.Context, p security.Principal, id, key, domainName string, setTransferFlag bool) (*task.Task, error) {
	return s.transfer(ctx, p, id, "", key, domainName, setTransferFlag)
}

func (s *TaskService) transfer(ctx context.Context, p security.Principal, id, destID, destKey, destDomain string, setTransferFlag bool) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermTransfer); err != nil {
		return nil, err
	}

	dest, err := s.resolveWorkbasket(ctx, destID, destKey, destDomain)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, dest.ID, workbasket.PermAppend); err != nil {
		return nil, err
	}
	if dest.MarkedForDeletion {
		return nil, fmt.Errorf("workbasket %s is marked for deletion and accepts no new tasks: %w",
			dest.ID, domain.ErrInvalidArgument)
	}
	if dest.ID == t.WorkbasketID {
		return t, nil
	}

	readModified := t.Modified
	oldState := t.State
	if err := t.MoveTo(dest.ID, setTransferFlag, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTask(ctx, t, readModified); err != nil {
		return nil, err
	}

	s.publishTaskEvent(ctx, messagequeue.SubjectTaskTransferred, t, string(oldState), p.UserID, dest.ID)
	if s.metrics != nil {
		s.metrics.Transitions.Add(ctx, 1)
	}
	return t, nil
}
