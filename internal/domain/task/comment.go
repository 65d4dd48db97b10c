package task

import (
	"fmt"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// Comment is a free-text note attached to a task by a user.
// Only the creator (or an administrator) may update or delete it.
type Comment struct {
	ID       string    `json:"id"`
	TaskID   string    `json:"task_id"`
	Creator  string    `json:"creator"`
	Text     string    `json:"text"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// Validate checks that the comment is well formed.
func (c *Comment) Validate() error {
	if c.TaskID == "" {
		return fmt.Errorf("comment task id is required: %w", domain.ErrInvalidArgument)
	}
	if c.Text == "" {
		return fmt.Errorf("comment text is required: %w", domain.ErrInvalidArgument)
	}
	return nil
}
