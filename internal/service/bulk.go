package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// bulkParallelism bounds how many items of one batch run concurrently.
// Each item touches a disjoint task, so the loop parallelizes safely; only
// the result aggregation is shared and mutex-guarded.
const bulkParallelism = 8

// BulkFailure pairs one operand identifier with the error it produced.
type BulkFailure struct {
	ID  string `json:"id"`
	Err error  `json:"error"`
}

// BulkResult reports the per-item failures of a batch operation. Items
// absent from the failure report succeeded. A result is created fresh per
// bulk call and returned only once the whole batch has been processed.
type BulkResult struct {
	mu       sync.Mutex
	failures map[string]error
}

func newBulkResult() *BulkResult {
	return &BulkResult{failures: make(map[string]error)}
}

func (r *BulkResult) addFailure(id string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[id] = err
}

// Failed reports whether any item failed.
func (r *BulkResult) Failed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.failures) > 0
}

// ErrorFor returns the error recorded for the given id, or nil if the item
// succeeded.
func (r *BulkResult) ErrorFor(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures[id]
}

// Failures lists all failed items ordered by id.
func (r *BulkResult) Failures() []BulkFailure {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]BulkFailure, 0, len(r.failures))
	for id, err := range r.failures {
		out = append(out, BulkFailure{ID: id, Err: err})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// runBulk applies op to every id, isolating failures per item: an error from
// one item is recorded against that id and processing continues. The
// executor never aborts early. Structural errors that apply to the whole
// batch are raised before any per-item processing begins.
func runBulk(ctx context.Context, ids []string, op func(ctx context.Context, id string) error) (*BulkResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("bulk operation requires at least one id: %w", domain.ErrInvalidArgument)
	}

	result := newBulkResult()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkParallelism)
	for _, id := range ids {
		g.Go(func() error {
			if id == "" {
				result.addFailure(id, fmt.Errorf("empty task id: %w", domain.ErrInvalidArgument))
				return nil
			}
			if err := op(gctx, id); err != nil {
				result.addFailure(id, err)
			}
			// per-item errors are aggregated, never propagated
			return nil
		})
	}
	// The group error is always nil: op errors stay inside the result.
	_ = g.Wait()

	return result, nil
}
