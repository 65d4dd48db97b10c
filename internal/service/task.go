package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	tdotel "github.com/taskdesk/taskdesk/internal/adapter/otel"
	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/security"
	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/port/database"
	"github.com/taskdesk/taskdesk/internal/port/messagequeue"
	"github.com/taskdesk/taskdesk/internal/query"
)

// TaskService exposes the task lifecycle: creation, the guarded state
// transitions, transfer, queries and deletion. Every operation takes the
// caller's principal explicitly and runs authorization before any state
// validation.
type TaskService struct {
	store           database.Store
	authz           *Authorizer
	classifications *ClassificationService
	queue           messagequeue.Queue
	metrics         *tdotel.Metrics
	now             func() time.Time
	reviewEnabled   bool
}

// NewTaskService creates a TaskService. reviewEnabled controls whether the
// review cycle (RequestReview/RequestChanges) is available; when disabled
// both operations reject with an invalid-request error.
func NewTaskService(store database.Store, authz *Authorizer, classifications *ClassificationService, queue messagequeue.Queue, reviewEnabled bool) *TaskService {
	return &TaskService{
		store:           store,
		authz:           authz,
		classifications: classifications,
		queue:           queue,
		now:             time.Now,
		reviewEnabled:   reviewEnabled,
	}
}

// SetMetrics wires the metric instruments. Optional; without it the service
// records nothing.
func (s *TaskService) SetMetrics(m *tdotel.Metrics) { s.metrics = m }

// Create validates the request, checks APPEND on the target workbasket and
// persists a new READY task. The due date is derived from the planned date
// and the applicable service levels.
func (s *TaskService) Create(ctx context.Context, p security.Principal, req task.CreateRequest) (*task.Task, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	wb, err := s.resolveWorkbasket(ctx, req.WorkbasketID, req.WorkbasketKey, req.Domain)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, wb.ID, workbasket.PermAppend); err != nil {
		return nil, err
	}
	if wb.MarkedForDeletion {
		return nil, fmt.Errorf("workbasket %s is marked for deletion and accepts no new tasks: %w",
			wb.ID, domain.ErrInvalidArgument)
	}

	now := s.now()
	t := &task.Task{
		ID:                        uuid.New().String(),
		ExternalID:                req.ExternalID,
		Name:                      req.Name,
		Description:               req.Description,
		Note:                      req.Note,
		Priority:                  req.Priority,
		State:                     task.StateReady,
		WorkbasketID:              wb.ID,
		ClassificationKey:         req.ClassificationKey,
		Domain:                    wb.Domain,
		PrimaryObjectReference:    req.PrimaryObjectReference,
		SecondaryObjectReferences: req.SecondaryObjectReferences,
		CallbackState:             req.CallbackState,
		Created:                   now,
		Modified:                  now,
		Planned:                   req.Planned,
		Received:                  req.Received,
	}
	if t.ExternalID == "" {
		t.ExternalID = uuid.New().String()
	}
	if t.CallbackState == "" {
		t.CallbackState = task.CallbackNone
	}
	if t.Planned.IsZero() {
		t.Planned = now
	}
	for n, v := range req.CustomFields {
		if err := t.SetCustomField(n, v); err != nil {
			return nil, err
		}
	}
	for _, a := range req.Attachments {
		a.ID = uuid.New().String()
		a.TaskID = t.ID
		a.Created = now
		a.Modified = now
		t.Attachments = append(t.Attachments, a)
	}

	due, err := s.classifications.DueFor(ctx, t)
	if err != nil {
		return nil, err
	}
	t.Due = due

	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, err
	}

	s.publishTaskEvent(ctx, messagequeue.SubjectTaskCreated, t, "", p.UserID, "")
	if s.metrics != nil {
		s.metrics.TasksCreated.Add(ctx, 1)
	}
	return t, nil
}

// Get returns a task by id. The caller needs READ on the containing
// workbasket.
func (s *TaskService) Get(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead); err != nil {
		return nil, err
	}
	return t, nil
}

// Update applies the mutable fields of upd to the stored task. The Modified
// timestamp of upd must be the one read by the caller; a mismatch against
// the stored row is a Concurrency error. Due is recomputed.
func (s *TaskService) Update(ctx context.Context, p security.Principal, upd *task.Task) (*task.Task, error) {
	if upd.ID == "" {
		return nil, fmt.Errorf("task id is required: %w", domain.ErrInvalidArgument)
	}

	t, err := s.store.GetTask(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead, workbasket.PermAppend); err != nil {
		return nil, err
	}

	readModified := upd.Modified

	// lifecycle-owned fields (state, owner, flags, workbasket) are not
	// updatable here; they change only through their transitions
	t.Name = upd.Name
	t.Description = upd.Description
	t.Note = upd.Note
	t.Priority = upd.Priority
	t.ClassificationKey = upd.ClassificationKey
	t.PrimaryObjectReference = upd.PrimaryObjectReference
	t.SecondaryObjectReferences = upd.SecondaryObjectReferences
	t.CustomFields = upd.CustomFields
	t.Planned = upd.Planned
	t.Received = upd.Received
	t.Modified = s.now()

	due, err := s.classifications.DueFor(ctx, t)
	if err != nil {
		return nil, err
	}
	t.Due = due

	if err := s.store.UpdateTask(ctx, t, readModified); err != nil {
		return nil, err
	}
	s.publishTaskEvent(ctx, messagequeue.SubjectTaskUpdated, t, string(t.State), p.UserID, "")
	return t, nil
}

// --- lifecycle transitions ---

// transition loads the task, checks the required workbasket permissions,
// applies the state change and persists it under the optimistic lock.
func (s *TaskService) transition(
	ctx context.Context,
	p security.Principal,
	id, operation, subject string,
	required []workbasket.Permission,
	apply func(t *task.Task, now time.Time) error,
) (*task.Task, error) {
	ctx, span := tdotel.StartTransitionSpan(ctx, operation, id)
	defer span.End()

	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(required) > 0 {
		if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, required...); err != nil {
			return nil, err
		}
	}

	readModified := t.Modified
	oldState := t.State
	if err := apply(t, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.UpdateTask(ctx, t, readModified); err != nil {
		return nil, err
	}

	s.publishTaskEvent(ctx, subject, t, string(oldState), p.UserID, "")
	if s.metrics != nil {
		s.metrics.Transitions.Add(ctx, 1)
	}
	return t, nil
}

var readPermission = []workbasket.Permission{workbasket.PermRead}

// Claim assigns a READY task to the caller.
func (s *TaskService) Claim(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	return s.transition(ctx, p, id, "claim", messagequeue.SubjectTaskClaimed, readPermission,
		func(t *task.Task, now time.Time) error { return t.Claim(p.UserID, false, now) })
}

// ForceClaim assigns the task to the caller even when someone else holds it.
func (s *TaskService) ForceClaim(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	return s.transition(ctx, p, id, "claim", messagequeue.SubjectTaskClaimed, readPermission,
		func(t *task.Task, now time.Time) error { return t.Claim(p.UserID, true, now) })
}

// CancelClaim returns the caller's claimed task to READY.
func (s *TaskService) CancelClaim(ctx context.Context, p security.Principal, id string, keepOwner bool) (*task.Task, error) {
	return s.transition(ctx, p, id, "cancel-claim", messagequeue.SubjectTaskClaimCancelled, readPermission,
		func(t *task.Task, now time.Time) error { return t.CancelClaim(p.UserID, keepOwner, false, now) })
}

// ForceCancelClaim returns a claimed task to READY regardless of its owner.
func (s *TaskService) ForceCancelClaim(ctx context.Context, p security.Principal, id string, keepOwner bool) (*task.Task, error) {
	return s.transition(ctx, p, id, "cancel-claim", messagequeue.SubjectTaskClaimCancelled, readPermission,
		func(t *task.Task, now time.Time) error { return t.CancelClaim(p.UserID, keepOwner, true, now) })
}

// Complete marks the caller's claimed task COMPLETED. Completing an already
// completed task returns it unchanged.
func (s *TaskService) Complete(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	return s.complete(ctx, p, id, false)
}

// ForceComplete completes the task regardless of owner, implicitly claiming
// it when still READY.
func (s *TaskService) ForceComplete(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	return s.complete(ctx, p, id, true)
}

func (s *TaskService) complete(ctx context.Context, p security.Principal, id string, force bool) (*task.Task, error) {
	// completion is idempotent: a task that is already COMPLETED is
	// returned as-is, after the usual authorization
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead); err != nil {
		return nil, err
	}
	if t.State == task.StateCompleted {
		return t, nil
	}
	return s.transition(ctx, p, id, "complete", messagequeue.SubjectTaskCompleted, nil,
		func(t *task.Task, now time.Time) error {
			return t.Complete(p.UserID, force, force || p.IsAdmin(), now)
		})
}

// Cancel marks a task CANCELLED: the work is no longer needed.
func (s *TaskService) Cancel(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	return s.transition(ctx, p, id, "cancel", messagequeue.SubjectTaskCancelled, readPermission,
		func(t *task.Task, now time.Time) error { return t.Cancel(now) })
}

// Terminate marks a task TERMINATED. Administrators and task administrators
// only; no workbasket permission applies.
func (s *TaskService) Terminate(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	if err := s.authz.RequireRole(p, security.RoleTaskAdmin); err != nil {
		return nil, err
	}
	return s.transition(ctx, p, id, "terminate", messagequeue.SubjectTaskTerminated, nil,
		func(t *task.Task, now time.Time) error { return t.Terminate(now) })
}

// RequestReview hands a claimed task over for review.
func (s *TaskService) RequestReview(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	if !s.reviewEnabled {
		return nil, fmt.Errorf("%w: review workflow is disabled", domain.ErrInvalidRequest)
	}
	return s.transition(ctx, p, id, "request-review", messagequeue.SubjectTaskReviewRequested, readPermission,
		func(t *task.Task, now time.Time) error { return t.RequestReview(p.UserID, false, now) })
}

// RequestChanges sends a task under review back to READY for rework.
func (s *TaskService) RequestChanges(ctx context.Context, p security.Principal, id string) (*task.Task, error) {
	if !s.reviewEnabled {
		return nil, fmt.Errorf("%w: review workflow is disabled", domain.ErrInvalidRequest)
	}
	return s.transition(ctx, p, id, "request-changes", messagequeue.SubjectTaskChangesRequested, readPermission,
		func(t *task.Task, now time.Time) error { return t.RequestChanges(now) })
}

// SetRead sets the read flag; valid in any state.
func (s *TaskService) SetRead(ctx context.Context, p security.Principal, id string, isRead bool) (*task.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, t.WorkbasketID, workbasket.PermRead); err != nil {
		return nil, err
	}
	readModified := t.Modified
	t.SetRead(isRead, s.now())
	if err := s.store.UpdateTask(ctx, t, readModified); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes a completed task. Administrators only; force removes the
// task regardless of its state.
func (s *TaskService) Delete(ctx context.Context, p security.Principal, id string, force bool) error {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return err
	}
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if !force && !t.State.IsEndState() {
		return fmt.Errorf("task %s is in state %s and can only be force-deleted: %w",
			id, t.State, domain.ErrInvalidState)
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.publishTaskEvent(ctx, messagequeue.SubjectTaskDeleted, t, string(t.State), p.UserID, "")
	return nil
}

// --- queries ---

// List executes the query and returns one page of task summaries. Results
// are implicitly restricted to workbaskets the caller may read.
func (s *TaskService) List(ctx context.Context, p security.Principal, q query.TaskQuery, page query.Page) ([]task.Summary, error) {
	spec, err := q.Spec()
	if err != nil {
		return nil, err
	}
	spec.Access = s.authz.AccessFilterFor(p)

	page = page.Normalize()
	if page.Empty() {
		return []task.Summary{}, nil
	}

	ctx, span := tdotel.StartQuerySpan(ctx, "tasks", len(spec.Filters))
	defer span.End()
	start := s.now()
	summaries, err := s.store.QueryTasks(ctx, spec, page)
	if s.metrics != nil {
		s.metrics.QueryDuration.Record(ctx, s.now().Sub(start).Seconds())
	}
	return summaries, err
}

// Count executes the query and returns the total number of matching tasks.
func (s *TaskService) Count(ctx context.Context, p security.Principal, q query.TaskQuery) (int64, error) {
	spec, err := q.Spec()
	if err != nil {
		return 0, err
	}
	spec.Access = s.authz.AccessFilterFor(p)

	ctx, span := tdotel.StartQuerySpan(ctx, "tasks", len(spec.Filters))
	defer span.End()
	return s.store.CountTasks(ctx, spec)
}

// --- helpers ---

func (s *TaskService) resolveWorkbasket(ctx context.Context, id, key, domainName string) (*workbasket.Workbasket, error) {
	if id != "" {
		return s.store.GetWorkbasket(ctx, id)
	}
	return s.store.GetWorkbasketByKey(ctx, key, domainName)
}

// publishTaskEvent emits a history event. Publishing is best-effort: the
// task is already persisted, so a queue failure is logged and swallowed.
func (s *TaskService) publishTaskEvent(ctx context.Context, subject string, t *task.Task, oldState, actor, targetWorkbasketID string) {
	if s.queue == nil {
		return
	}
	payload := messagequeue.TaskEventPayload{
		TaskID:             t.ID,
		WorkbasketID:       t.WorkbasketID,
		OldState:           oldState,
		NewState:           string(t.State),
		Actor:              actor,
		Occurred:           s.now(),
		TargetWorkbasketID: targetWorkbasketID,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal task event", "subject", subject, "task_id", t.ID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("failed to publish task event", "subject", subject, "task_id", t.ID, "error", err)
	}
}
