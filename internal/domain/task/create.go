package task

import (
	"fmt"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// CreateRequest holds the fields needed to create a new task. The target
// workbasket is addressed either by id or by key+domain.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Note        string `json:"note,omitempty"`
	ExternalID  string `json:"external_id,omitempty"`
	Priority    int    `json:"priority,omitempty"`

	WorkbasketID  string `json:"workbasket_id,omitempty"`
	WorkbasketKey string `json:"workbasket_key,omitempty"`
	Domain        string `json:"domain,omitempty"`

	ClassificationKey string `json:"classification_key"`

	PrimaryObjectReference    ObjectReference   `json:"primary_object_reference"`
	SecondaryObjectReferences []ObjectReference `json:"secondary_object_references,omitempty"`
	Attachments               []Attachment      `json:"attachments,omitempty"`

	// CustomFields maps 1-based slot numbers to values.
	CustomFields map[int]string `json:"custom_fields,omitempty"`

	CallbackState CallbackState `json:"callback_state,omitempty"`

	Planned  time.Time `json:"planned,omitzero"`
	Received time.Time `json:"received,omitzero"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("task name is required: %w", domain.ErrInvalidArgument)
	}
	if r.WorkbasketID == "" && (r.WorkbasketKey == "" || r.Domain == "") {
		return fmt.Errorf("workbasket id or key+domain is required: %w", domain.ErrInvalidArgument)
	}
	if r.ClassificationKey == "" {
		return fmt.Errorf("classification key is required: %w", domain.ErrInvalidArgument)
	}
	if err := r.PrimaryObjectReference.Validate(); err != nil {
		return err
	}
	for n := range r.CustomFields {
		if n < 1 || n > CustomFieldCount {
			return fmt.Errorf("custom field %d out of range: %w", n, domain.ErrInvalidArgument)
		}
	}
	if r.CallbackState != "" && !ValidCallbackStates[r.CallbackState] {
		return fmt.Errorf("callback state %q is unknown: %w", r.CallbackState, domain.ErrInvalidArgument)
	}
	return nil
}
