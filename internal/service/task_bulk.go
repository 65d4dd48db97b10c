package service

import (
	"context"
	"fmt"
	"time"

	tdotel "github.com/taskdesk/taskdesk/internal/adapter/otel"
	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/security"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/port/messagequeue"
)

// bulk wraps runBulk with the batch span and metrics shared by all bulk
// task operations.
func (s *TaskService) bulk(ctx context.Context, operation string, ids []string, op func(ctx context.Context, id string) error) (*BulkResult, error) {
	ctx, span := tdotel.StartBulkSpan(ctx, operation, len(ids))
	defer span.End()

	result, err := runBulk(ctx, ids, op)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.BulkItems.Add(ctx, int64(len(ids)))
		s.metrics.BulkFailures.Add(ctx, int64(len(result.Failures())))
	}
	return result, nil
}

// CompleteBulk completes every task in ids, isolating failures per item.
func (s *TaskService) CompleteBulk(ctx context.Context, p security.Principal, ids []string) (*BulkResult, error) {
	return s.bulk(ctx, "complete", ids, func(ctx context.Context, id string) error {
		_, err := s.Complete(ctx, p, id)
		return err
	})
}

// DeleteBulk deletes every task in ids, isolating failures per item.
// Items absent from the failure report were deleted.
func (s *TaskService) DeleteBulk(ctx context.Context, p security.Principal, ids []string, force bool) (*BulkResult, error) {
	// the role check is structural: without it, no item could succeed
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return nil, err
	}
	return s.bulk(ctx, "delete", ids, func(ctx context.Context, id string) error {
		return s.Delete(ctx, p, id, force)
	})
}

// TransferBulk transfers every task in ids into the destination workbasket.
func (s *TaskService) TransferBulk(ctx context.Context, p security.Principal, destinationID string, setTransferFlag bool, ids []string) (*BulkResult, error) {
	return s.bulk(ctx, "transfer", ids, func(ctx context.Context, id string) error {
		_, err := s.Transfer(ctx, p, id, destinationID, setTransferFlag)
		return err
	})
}

// TransferBulkByKey is TransferBulk with the destination addressed by
// key+domain.
func (s *TaskService) TransferBulkByKey(ctx context.Context, p security.Principal, key, domainName string, setTransferFlag bool, ids []string) (*BulkResult, error) {
	return s.bulk(ctx, "transfer", ids, func(ctx context.Context, id string) error {
		_, err := s.TransferByKey(ctx, p, id, key, domainName, setTransferFlag)
		return err
	})
}

// SetOwnerBulk sets the owner of every READY task in ids.
func (s *TaskService) SetOwnerBulk(ctx context.Context, p security.Principal, owner string, ids []string) (*BulkResult, error) {
	if owner == "" {
		return nil, fmt.Errorf("owner is required: %w", domain.ErrInvalidArgument)
	}
	return s.bulk(ctx, "set-owner", ids, func(ctx context.Context, id string) error {
		t, err := s.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead); err != nil {
			return err
		}
		if t.State != task.StateReady {
			return fmt.Errorf("task %s must be READY to change its owner, was %s: %w",
				id, t.State, domain.ErrInvalidState)
		}
		readModified := t.Modified
		t.Owner = owner
		t.Modified = s.now()
		return s.store.UpdateTask(ctx, t, readModified)
	})
}

// SetPlannedBulk sets the planned timestamp of every task in ids and
// recomputes each task's due date from its service levels.
func (s *TaskService) SetPlannedBulk(ctx context.Context, p security.Principal, planned time.Time, ids []string) (*BulkResult, error) {
	if planned.IsZero() {
		return nil, fmt.Errorf("planned timestamp is required: %w", domain.ErrInvalidArgument)
	}
	return s.bulk(ctx, "set-planned", ids, func(ctx context.Context, id string) error {
		t, err := s.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead); err != nil {
			return err
		}
		if t.State.IsEndState() {
			return fmt.Errorf("task %s is in end state %s: %w", id, t.State, domain.ErrInvalidState)
		}
		readModified := t.Modified
		t.Planned = planned
		t.Modified = s.now()
		due, err := s.classifications.DueFor(ctx, t)
		if err != nil {
			return err
		}
		t.Due = due
		if err := s.store.UpdateTask(ctx, t, readModified); err != nil {
			return err
		}
		s.publishTaskEvent(ctx, messagequeue.SubjectTaskUpdated, t, string(t.State), p.UserID, "")
		return nil
	})
}

// SetCallbackStateBulk sets the callback state of every task in ids.
func (s *TaskService) SetCallbackStateBulk(ctx context.Context, p security.Principal, state task.CallbackState, ids []string) (*BulkResult, error) {
	if !task.ValidCallbackStates[state] {
		return nil, fmt.Errorf("callback state %q is unknown: %w", state, domain.ErrInvalidArgument)
	}
	return s.bulk(ctx, "set-callback-state", ids, func(ctx context.Context, id string) error {
		t, err := s.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead); err != nil {
			return err
		}
		readModified := t.Modified
		t.CallbackState = state
		t.Modified = s.now()
		return s.store.UpdateTask(ctx, t, readModified)
	})
}
