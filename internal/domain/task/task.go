// Package task defines the Task domain entity and its lifecycle state machine.
package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// CustomFieldCount is the number of generic string custom fields on a task.
const CustomFieldCount = 16

// ObjectReference identifies the external business object a task concerns.
type ObjectReference struct {
	Company        string `json:"company"`
	System         string `json:"system,omitempty"`
	SystemInstance string `json:"system_instance,omitempty"`
	Type           string `json:"type"`
	Value          string `json:"value"`
}

// Validate checks that the mandatory parts of the reference are present.
func (o ObjectReference) Validate() error {
	if o.Company == "" {
		return fmt.Errorf("object reference company is required: %w", domain.ErrInvalidArgument)
	}
	if o.Type == "" {
		return fmt.Errorf("object reference type is required: %w", domain.ErrInvalidArgument)
	}
	if o.Value == "" {
		return fmt.Errorf("object reference value is required: %w", domain.ErrInvalidArgument)
	}
	return nil
}

// Attachment is a document attached to a task. It carries its own
// classification, which participates in the task's due-date computation.
type Attachment struct {
	ID                string          `json:"id"`
	TaskID            string          `json:"task_id"`
	ClassificationKey string          `json:"classification_key"`
	Channel           string          `json:"channel,omitempty"`
	ObjectReference   ObjectReference `json:"object_reference"`
	Received          time.Time       `json:"received,omitzero"`
	Created           time.Time       `json:"created"`
	Modified          time.Time       `json:"modified"`
}

// Task represents a unit of work routed through a workbasket.
type Task struct {
	ID          string `json:"id"`
	ExternalID  string `json:"external_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Note        string `json:"note,omitempty"`

	// Priority orders tasks; higher means more urgent.
	Priority int    `json:"priority"`
	State    State  `json:"state"`
	Owner    string `json:"owner,omitempty"`

	WorkbasketID      string `json:"workbasket_id"`
	ClassificationKey string `json:"classification_key"`
	Domain            string `json:"domain"`

	PrimaryObjectReference    ObjectReference   `json:"primary_object_reference"`
	SecondaryObjectReferences []ObjectReference `json:"secondary_object_references,omitempty"`
	Attachments               []Attachment      `json:"attachments,omitempty"`

	CustomFields [CustomFieldCount]string `json:"custom_fields"`

	Read          bool          `json:"read"`
	Transferred   bool          `json:"transferred"`
	CallbackState CallbackState `json:"callback_state"`

	Created   time.Time `json:"created"`
	Claimed   time.Time `json:"claimed,omitzero"`
	Completed time.Time `json:"completed,omitzero"`
	Modified  time.Time `json:"modified"`
	Planned   time.Time `json:"planned,omitzero"`
	Due       time.Time `json:"due,omitzero"`
	Received  time.Time `json:"received,omitzero"`
}

// CustomField returns the value of custom field n (1-based, 1..16).
func (t *Task) CustomField(n int) (string, error) {
	if n < 1 || n > CustomFieldCount {
		return "", fmt.Errorf("custom field %d out of range: %w", n, domain.ErrInvalidArgument)
	}
	return t.CustomFields[n-1], nil
}

// SetCustomField sets the value of custom field n (1-based, 1..16).
func (t *Task) SetCustomField(n int, value string) error {
	if n < 1 || n > CustomFieldCount {
		return fmt.Errorf("custom field %d out of range: %w", n, domain.ErrInvalidArgument)
	}
	t.CustomFields[n-1] = value
	return nil
}

// OwnedBy reports whether the task is owned by the given user.
// Owner comparison is case-insensitive, matching access id normalization.
func (t *Task) OwnedBy(userID string) bool {
	return t.Owner != "" && strings.EqualFold(t.Owner, userID)
}

// --- lifecycle transitions ---
//
// Each transition validates the current state (and owner where required),
// applies its side effects, and stamps Modified. Authorization is the
// service layer's concern; these guards are purely about lifecycle.

// Claim assigns the task to caller. Without force the task must be READY;
// with force a task already claimed by someone else is reassigned.
func (t *Task) Claim(caller string, force bool, now time.Time) error {
	if t.State.IsEndState() {
		return fmt.Errorf("task %s is in end state %s and cannot be claimed: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	if !force && t.State != StateReady {
		return fmt.Errorf("task %s must be READY to be claimed, was %s: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	t.State = StateClaimed
	t.Owner = caller
	t.Claimed = now
	t.Read = true
	t.Modified = now
	return nil
}

// CancelClaim returns a claimed task to READY. Without force the caller must
// be the current owner. The owner is cleared unless keepOwner is set.
func (t *Task) CancelClaim(caller string, keepOwner, force bool, now time.Time) error {
	if t.State != StateClaimed && t.State != StateInReview {
		return fmt.Errorf("task %s must be CLAIMED to cancel the claim, was %s: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	if !force && !t.OwnedBy(caller) {
		return fmt.Errorf("task %s is owned by %q, not %q: %w",
			t.ID, t.Owner, caller, domain.ErrInvalidOwner)
	}
	t.State = StateReady
	if !keepOwner {
		t.Owner = ""
	}
	t.Claimed = time.Time{}
	t.Modified = now
	return nil
}

// Complete marks the task COMPLETED. Without force the task must be CLAIMED
// (or IN_REVIEW) and owned by caller; bypassOwner waives the ownership
// requirement but not the state one (the service sets it for
// administrators). Idempotent completion of an already completed task is
// handled by the service before this guard runs.
func (t *Task) Complete(caller string, force, bypassOwner bool, now time.Time) error {
	if t.State.IsEndState() {
		return fmt.Errorf("task %s is in end state %s and cannot be completed: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	if !force {
		if t.State != StateClaimed && t.State != StateInReview {
			return fmt.Errorf("task %s must be CLAIMED to be completed, was %s: %w",
				t.ID, t.State, domain.ErrInvalidState)
		}
		if !bypassOwner && !t.OwnedBy(caller) {
			return fmt.Errorf("task %s is owned by %q, not %q: %w",
				t.ID, t.Owner, caller, domain.ErrInvalidOwner)
		}
	} else if t.State == StateReady {
		// force-completing an unclaimed task claims it implicitly
		t.Owner = caller
		t.Claimed = now
	}
	t.State = StateCompleted
	t.Completed = now
	t.Modified = now
	return nil
}

// Cancel marks the task CANCELLED: the work is no longer needed.
func (t *Task) Cancel(now time.Time) error {
	if t.State != StateReady && t.State != StateClaimed && t.State != StateInReview {
		return fmt.Errorf("task %s must be READY or CLAIMED to be cancelled, was %s: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	t.State = StateCancelled
	t.Modified = now
	return nil
}

// Terminate marks the task TERMINATED, an administrative override.
func (t *Task) Terminate(now time.Time) error {
	if t.State != StateReady && t.State != StateClaimed && t.State != StateInReview {
		return fmt.Errorf("task %s must be READY or CLAIMED to be terminated, was %s: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	t.State = StateTerminated
	t.Modified = now
	return nil
}

// RequestReview moves a claimed task into IN_REVIEW. The owner is kept so
// the author can still complete the task once the review passes. Without
// force the caller must be the current owner.
func (t *Task) RequestReview(caller string, force bool, now time.Time) error {
	if t.State != StateClaimed {
		return fmt.Errorf("task %s must be CLAIMED to request review, was %s: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	if !force && !t.OwnedBy(caller) {
		return fmt.Errorf("task %s is owned by %q, not %q: %w",
			t.ID, t.Owner, caller, domain.ErrInvalidOwner)
	}
	t.State = StateInReview
	t.Modified = now
	return nil
}

// RequestChanges moves a task under review back to READY for rework.
func (t *Task) RequestChanges(now time.Time) error {
	if t.State != StateInReview {
		return fmt.Errorf("task %s must be IN_REVIEW to request changes, was %s: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	t.State = StateReady
	t.Owner = ""
	t.Modified = now
	return nil
}

// MoveTo re-homes the task into another workbasket. The read flag is
// cleared and the transferred flag set as requested.
func (t *Task) MoveTo(workbasketID string, setTransferFlag bool, now time.Time) error {
	if t.State.IsEndState() {
		return fmt.Errorf("task %s is in end state %s and cannot be transferred: %w",
			t.ID, t.State, domain.ErrInvalidState)
	}
	t.WorkbasketID = workbasketID
	t.Read = false
	t.Transferred = setTransferFlag
	t.Modified = now
	return nil
}

// SetRead sets the read flag. Valid in any state.
func (t *Task) SetRead(isRead bool, now time.Time) {
	t.Read = isRead
	t.Modified = now
}
