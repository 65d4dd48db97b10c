package messagequeue

import "time"

// TaskEventPayload is the schema for all tasks.* history events.
type TaskEventPayload struct {
	TaskID       string    `json:"task_id"`
	WorkbasketID string    `json:"workbasket_id"`
	OldState     string    `json:"old_state,omitempty"`
	NewState     string    `json:"new_state,omitempty"`
	Actor        string    `json:"actor"`
	Occurred     time.Time `json:"occurred"`

	// TargetWorkbasketID is set on tasks.transferred events.
	TargetWorkbasketID string `json:"target_workbasket_id,omitempty"`
}

// WorkbasketEventPayload is the schema for all workbaskets.* history events.
type WorkbasketEventPayload struct {
	WorkbasketID string    `json:"workbasket_id"`
	Key          string    `json:"key"`
	Domain       string    `json:"domain"`
	Actor        string    `json:"actor"`
	Occurred     time.Time `json:"occurred"`

	// MarkedForDeletion is set on workbaskets.deleted events when the
	// workbasket was only marked because it still held unfinished tasks.
	MarkedForDeletion bool `json:"marked_for_deletion,omitempty"`
}
