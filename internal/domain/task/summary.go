package task

import "time"

// Summary is the immutable read-only projection of Task returned by queries.
// It is constructed from task state at read time and never mutated.
type Summary struct {
	ID                string                   `json:"id"`
	ExternalID        string                   `json:"external_id,omitempty"`
	Name              string                   `json:"name"`
	Note              string                   `json:"note,omitempty"`
	Priority          int                      `json:"priority"`
	State             State                    `json:"state"`
	Owner             string                   `json:"owner,omitempty"`
	WorkbasketID      string                   `json:"workbasket_id"`
	ClassificationKey string                   `json:"classification_key"`
	Domain            string                   `json:"domain"`
	ObjectReference   ObjectReference          `json:"primary_object_reference"`
	CustomFields      [CustomFieldCount]string `json:"custom_fields"`
	Read              bool                     `json:"read"`
	Transferred       bool                     `json:"transferred"`
	Created           time.Time                `json:"created"`
	Claimed           time.Time                `json:"claimed,omitzero"`
	Completed         time.Time                `json:"completed,omitzero"`
	Modified          time.Time                `json:"modified"`
	Planned           time.Time                `json:"planned,omitzero"`
	Due               time.Time                `json:"due,omitzero"`
}

// Summary builds the query projection from the task's current state.
func (t *Task) Summary() Summary {
	return Summary{
		ID:                t.ID,
		ExternalID:        t.ExternalID,
		Name:              t.Name,
		Note:              t.Note,
		Priority:          t.Priority,
		State:             t.State,
		Owner:             t.Owner,
		WorkbasketID:      t.WorkbasketID,
		ClassificationKey: t.ClassificationKey,
		Domain:            t.Domain,
		ObjectReference:   t.PrimaryObjectReference,
		CustomFields:      t.CustomFields,
		Read:              t.Read,
		Transferred:       t.Transferred,
		Created:           t.Created,
		Claimed:           t.Claimed,
		Completed:         t.Completed,
		Modified:          t.Modified,
		Planned:           t.Planned,
		Due:               t.Due,
	}
}
