// Package database defines the storage gateway port (interface).
//
// The gateway owns persistence and transactions. It enforces none of the
// authorization logic itself: it trusts the predicate specifications handed
// to it, including the implicit workbasket-permission intersection injected
// by the query builder.
package database

import (
	"context"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/query"
)

// Store is the port interface for all persistence operations.
//
// Mutating operations on tasks, workbaskets and comments take the Modified
// timestamp that was read at the start of the operation; a mismatch against
// the stored value is reported as domain.ErrConcurrency and leaves the row
// untouched.
type Store interface {
	// Tasks
	GetTask(ctx context.Context, id string) (*task.Task, error)
	CreateTask(ctx context.Context, t *task.Task) error
	UpdateTask(ctx context.Context, t *task.Task, readModified time.Time) error
	DeleteTask(ctx context.Context, id string) error
	QueryTasks(ctx context.Context, spec query.TaskSpec, page query.Page) ([]task.Summary, error)
	CountTasks(ctx context.Context, spec query.TaskSpec) (int64, error)

	// Task comments
	GetComment(ctx context.Context, id string) (*task.Comment, error)
	ListComments(ctx context.Context, taskID string) ([]task.Comment, error)
	CreateComment(ctx context.Context, c *task.Comment) error
	UpdateComment(ctx context.Context, c *task.Comment, readModified time.Time) error
	DeleteComment(ctx context.Context, id string) error

	// Workbaskets
	GetWorkbasket(ctx context.Context, id string) (*workbasket.Workbasket, error)
	GetWorkbasketByKey(ctx context.Context, key, domain string) (*workbasket.Workbasket, error)
	CreateWorkbasket(ctx context.Context, w *workbasket.Workbasket) error
	UpdateWorkbasket(ctx context.Context, w *workbasket.Workbasket, readModified time.Time) error
	DeleteWorkbasket(ctx context.Context, id string) error
	QueryWorkbaskets(ctx context.Context, spec query.WorkbasketSpec, page query.Page) ([]workbasket.Summary, error)
	CountWorkbaskets(ctx context.Context, spec query.WorkbasketSpec) (int64, error)

	// Access items
	GetAccessItem(ctx context.Context, id string) (*workbasket.AccessItem, error)
	ListAccessItems(ctx context.Context, workbasketID string) ([]workbasket.AccessItem, error)
	CreateAccessItem(ctx context.Context, item *workbasket.AccessItem) error
	UpdateAccessItem(ctx context.Context, item *workbasket.AccessItem) error
	DeleteAccessItem(ctx context.Context, id string) error

	// Distribution targets (directed edges between workbaskets)
	ListDistributionTargets(ctx context.Context, workbasketID string) ([]workbasket.Summary, error)
	AddDistributionTarget(ctx context.Context, sourceID, targetID string) error
	RemoveDistributionTarget(ctx context.Context, sourceID, targetID string) error
	SetDistributionTargets(ctx context.Context, sourceID string, targetIDs []string) error
}
