package service

import (
	"context"
	"encoding/json"
	"errors"
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

// WorkbasketService exposes workbasket CRUD, distribution targets and
// access item management. Structural changes (create, update, delete,
// access items, distribution targets) are administrator operations; reads
// are gated by the READ permission.
type WorkbasketService struct {
	store database.Store
	authz *Authorizer
	queue messagequeue.Queue
	now   func() time.Time
}

// NewWorkbasketService creates a WorkbasketService.
func NewWorkbasketService(store database.Store, authz *Authorizer, queue messagequeue.Queue) *WorkbasketService {
	return &WorkbasketService{store: store, authz: authz, queue: queue, now: time.Now}
}

// Create validates and persists a new workbasket. The (key, domain) pair
// must be unique, compared case-insensitively.
func (s *WorkbasketService) Create(ctx context.Context, p security.Principal, req workbasket.CreateRequest) (*workbasket.Workbasket, error) {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("validate workbasket: %w: %w", err, domain.ErrInvalidArgument)
	}

	if _, err := s.store.GetWorkbasketByKey(ctx, req.Key, req.Domain); err == nil {
		return nil, fmt.Errorf("workbasket %s/%s: %w", req.Domain, req.Key, domain.ErrAlreadyExists)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now()
	w := &workbasket.Workbasket{
		ID:          uuid.New().String(),
		Key:         req.Key,
		Domain:      req.Domain,
		Name:        req.Name,
		Description: req.Description,
		Type:        req.Type,
		Owner:       req.Owner,
		OrgLevel1:   req.OrgLevel1,
		OrgLevel2:   req.OrgLevel2,
		OrgLevel3:   req.OrgLevel3,
		OrgLevel4:   req.OrgLevel4,
		Custom1:     req.Custom1,
		Custom2:     req.Custom2,
		Custom3:     req.Custom3,
		Custom4:     req.Custom4,
		Created:     now,
		Modified:    now,
	}
	if err := s.store.CreateWorkbasket(ctx, w); err != nil {
		return nil, err
	}
	s.publishWorkbasketEvent(ctx, messagequeue.SubjectWorkbasketCreated, w, p.UserID, false)
	return w, nil
}

// Get returns a workbasket by id. The caller needs READ on it.
func (s *WorkbasketService) Get(ctx context.Context, p security.Principal, id string) (*workbasket.Workbasket, error) {
	w, err := s.store.GetWorkbasket(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, w.ID, workbasket.PermRead); err != nil {
		return nil, err
	}
	return w, nil
}

// GetByKey returns a workbasket by key+domain. The caller needs READ on it.
func (s *WorkbasketService) GetByKey(ctx context.Context, p security.Principal, key, domainName string) (*workbasket.Workbasket, error) {
	w, err := s.store.GetWorkbasketByKey(ctx, key, domainName)
	if err != nil {
		return nil, err
	}
	if err := s.authz.CheckPermission(ctx, p, w.ID, workbasket.PermRead); err != nil {
		return nil, err
	}
	return w, nil
}

// Update applies the mutable fields of upd. Key, domain and id are
// immutable once assigned. Administrators only.
func (s *WorkbasketService) Update(ctx context.Context, p security.Principal, upd *workbasket.Workbasket) (*workbasket.Workbasket, error) {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return nil, err
	}
	if upd.ID == "" {
		return nil, fmt.Errorf("workbasket id is required: %w", domain.ErrInvalidArgument)
	}

	w, err := s.store.GetWorkbasket(ctx, upd.ID)
	if err != nil {
		return nil, err
	}

	readModified := upd.Modified
	w.Name = upd.Name
	w.Description = upd.Description
	w.Type = upd.Type
	w.Owner = upd.Owner
	w.OrgLevel1 = upd.OrgLevel1
	w.OrgLevel2 = upd.OrgLevel2
	w.OrgLevel3 = upd.OrgLevel3
	w.OrgLevel4 = upd.OrgLevel4
	w.Custom1 = upd.Custom1
	w.Custom2 = upd.Custom2
	w.Custom3 = upd.Custom3
	w.Custom4 = upd.Custom4
	w.Modified = s.now()

	if err := s.store.UpdateWorkbasket(ctx, w, readModified); err != nil {
		return nil, err
	}
	s.publishWorkbasketEvent(ctx, messagequeue.SubjectWorkbasketUpdated, w, p.UserID, false)
	return w, nil
}

// Delete removes a workbasket. A workbasket that still holds tasks in a
// non-end state is only marked for deletion; it accepts no new tasks and
// reports markedForDeletion=true. Administrators only.
func (s *WorkbasketService) Delete(ctx context.Context, p security.Principal, id string) (markedForDeletion bool, err error) {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return false, err
	}
	w, err := s.store.GetWorkbasket(ctx, id)
	if err != nil {
		return false, err
	}

	unfinished, err := s.store.CountTasks(ctx, query.TaskSpec{
		Filters: []query.Filter{
			{Attribute: query.TaskAttrWorkbasketID, Kind: query.KindIn, Values: []string{id}},
			{Attribute: query.TaskAttrState, Kind: query.KindNotIn, Values: []string{
				string(task.StateCompleted), string(task.StateCancelled), string(task.StateTerminated),
			}},
		},
	})
	if err != nil {
		return false, err
	}

	if unfinished > 0 {
		readModified := w.Modified
		w.MarkedForDeletion = true
		w.Modified = s.now()
		if err := s.store.UpdateWorkbasket(ctx, w, readModified); err != nil {
			return false, err
		}
		s.publishWorkbasketEvent(ctx, messagequeue.SubjectWorkbasketDeleted, w, p.UserID, true)
		return true, nil
	}

	if err := s.store.DeleteWorkbasket(ctx, id); err != nil {
		return false, err
	}
	s.publishWorkbasketEvent(ctx, messagequeue.SubjectWorkbasketDeleted, w, p.UserID, false)
	return false, nil
}

// --- queries ---

// List executes the query and returns one page of workbasket summaries,
// implicitly restricted to workbaskets the caller may read.
func (s *WorkbasketService) List(ctx context.Context, p security.Principal, q query.WorkbasketQuery, page query.Page) ([]workbasket.Summary, error) {
	spec, err := q.Spec()
	if err != nil {
		return nil, err
	}
	spec.Access = s.authz.AccessFilterFor(p)

	page = page.Normalize()
	if page.Empty() {
		return []workbasket.Summary{}, nil
	}

	ctx, span := tdotel.StartQuerySpan(ctx, "workbaskets", len(spec.Filters))
	defer span.End()
	return s.store.QueryWorkbaskets(ctx, spec, page)
}

// Count executes the query and returns the total number of matching
// workbaskets.
func (s *WorkbasketService) Count(ctx context.Context, p security.Principal, q query.WorkbasketQuery) (int64, error) {
	spec, err := q.Spec()
	if err != nil {
		return 0, err
	}
	spec.Access = s.authz.AccessFilterFor(p)

	ctx, span := tdotel.StartQuerySpan(ctx, "workbaskets", len(spec.Filters))
	defer span.End()
	return s.store.CountWorkbaskets(ctx, spec)
}

// --- distribution targets ---

// DistributionTargets lists the valid transfer destinations of a
// workbasket. The caller needs READ on the source.
func (s *WorkbasketService) DistributionTargets(ctx context.Context, p security.Principal, id string) ([]workbasket.Summary, error) {
	if _, err := s.Get(ctx, p, id); err != nil {
		return nil, err
	}
	return s.store.ListDistributionTargets(ctx, id)
}

// AddDistributionTarget adds one routing edge. Administrators only.
func (s *WorkbasketService) AddDistributionTarget(ctx context.Context, p security.Principal, sourceID, targetID string) error {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.store.GetWorkbasket(ctx, sourceID); err != nil {
		return err
	}
	if _, err := s.store.GetWorkbasket(ctx, targetID); err != nil {
		return err
	}
	return s.store.AddDistributionTarget(ctx, sourceID, targetID)
}

// RemoveDistributionTarget removes one routing edge. Administrators only.
func (s *WorkbasketService) RemoveDistributionTarget(ctx context.Context, p security.Principal, sourceID, targetID string) error {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return err
	}
	return s.store.RemoveDistributionTarget(ctx, sourceID, targetID)
}

// SetDistributionTargets replaces all routing edges of a workbasket.
// Administrators only.
func (s *WorkbasketService) SetDistributionTargets(ctx context.Context, p security.Principal, sourceID string, targetIDs []string) error {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.store.GetWorkbasket(ctx, sourceID); err != nil {
		return err
	}
	for _, targetID := range targetIDs {
		if _, err := s.store.GetWorkbasket(ctx, targetID); err != nil {
			return err
		}
	}
	return s.store.SetDistributionTargets(ctx, sourceID, targetIDs)
}

// --- access items ---

// CreateAccessItem grants a permission set to one identity on one
// workbasket. At most one access item may exist per (workbasket, access id)
// pair. Administrators only.
func (s *WorkbasketService) CreateAccessItem(ctx context.Context, p security.Principal, item *workbasket.AccessItem) (*workbasket.AccessItem, error) {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return nil, err
	}
	if err := item.Validate(); err != nil {
		return nil, fmt.Errorf("validate access item: %w: %w", err, domain.ErrInvalidArgument)
	}
	if _, err := s.store.GetWorkbasket(ctx, item.WorkbasketID); err != nil {
		return nil, err
	}

	existing, err := s.store.ListAccessItems(ctx, item.WorkbasketID)
	if err != nil {
		return nil, err
	}
	normalized := workbasket.NormalizeAccessID(item.AccessID)
	for _, e := range existing {
		if workbasket.NormalizeAccessID(e.AccessID) == normalized {
			return nil, fmt.Errorf("access item for %q on workbasket %s: %w",
				normalized, item.WorkbasketID, domain.ErrAlreadyExists)
		}
	}

	now := s.now()
	item.ID = uuid.New().String()
	item.AccessID = normalized
	item.Created = now
	item.Modified = now
	if err := s.store.CreateAccessItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// AccessItems lists all access items of a workbasket. Administrators only.
func (s *WorkbasketService) AccessItems(ctx context.Context, p security.Principal, workbasketID string) ([]workbasket.AccessItem, error) {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.store.GetWorkbasket(ctx, workbasketID); err != nil {
		return nil, err
	}
	return s.store.ListAccessItems(ctx, workbasketID)
}

// UpdateAccessItem replaces the permission set and display name of an
// access item. The workbasket and access id are immutable. Administrators
// only.
func (s *WorkbasketService) UpdateAccessItem(ctx context.Context, p security.Principal, upd *workbasket.AccessItem) (*workbasket.AccessItem, error) {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return nil, err
	}
	item, err := s.store.GetAccessItem(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	item.AccessName = upd.AccessName
	item.Permissions = upd.Permissions
	item.Modified = s.now()
	if err := s.store.UpdateAccessItem(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// DeleteAccessItem revokes a grant. Administrators only.
func (s *WorkbasketService) DeleteAccessItem(ctx context.Context, p security.Principal, id string) error {
	if err := s.authz.RequireRole(p, security.RoleAdmin); err != nil {
		return err
	}
	return s.store.DeleteAccessItem(ctx, id)
}

// publishWorkbasketEvent emits a history event, best-effort.
func (s *WorkbasketService) publishWorkbasketEvent(ctx context.Context, subject string, w *workbasket.Workbasket, actor string, marked bool) {
	if s.queue == nil {
		return
	}
	payload := messagequeue.WorkbasketEventPayload{
		WorkbasketID:      w.ID,
		Key:               w.Key,
		Domain:            w.Domain,
		Actor:             actor,
		Occurred:          s.now(),
		MarkedForDeletion: marked,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal workbasket event", "subject", subject, "workbasket_id", w.ID, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("failed to publish workbasket event", "subject", subject, "workbasket_id", w.ID, "error", err)
	}
}
