// Package classifier defines the classification resolver port (interface).
package classifier

import (
	"context"

	"github.com/taskdesk/taskdesk/internal/domain/classification"
)

// Resolver looks up classification metadata by key and domain. The core
// uses it only to compute a task's due date from its planned date via the
// classification's service level.
type Resolver interface {
	Classification(ctx context.Context, key, domain string) (*classification.Summary, error)
}
