// Package workbasket defines the Workbasket domain entity and its
// permission model.
package workbasket

import (
	"errors"
	"strings"
	"time"
)

// Type categorizes a workbasket.
type Type string

const (
	TypeGroup     Type = "group"
	TypePersonal  Type = "personal"
	TypeTopic     Type = "topic"
	TypeClearance Type = "clearance"
)

// ValidTypes is the set of all valid workbasket types.
var ValidTypes = map[Type]bool{
	TypeGroup:     true,
	TypePersonal:  true,
	TypeTopic:     true,
	TypeClearance: true,
}

// Workbasket is a named, permissioned queue holding tasks. The (key, domain)
// pair is an alternate unique identity, compared case-insensitively; the id
// is globally unique and immutable once assigned.
type Workbasket struct {
	ID          string `json:"id"`
	Key         string `json:"key"`
	Domain      string `json:"domain"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
	Owner       string `json:"owner,omitempty"`

	OrgLevel1 string `json:"org_level_1,omitempty"`
	OrgLevel2 string `json:"org_level_2,omitempty"`
	OrgLevel3 string `json:"org_level_3,omitempty"`
	OrgLevel4 string `json:"org_level_4,omitempty"`

	Custom1 string `json:"custom_1,omitempty"`
	Custom2 string `json:"custom_2,omitempty"`
	Custom3 string `json:"custom_3,omitempty"`
	Custom4 string `json:"custom_4,omitempty"`

	// MarkedForDeletion is set when a delete was requested while the
	// workbasket still held unfinished tasks. A marked workbasket accepts
	// no new tasks and is removed once it drains.
	MarkedForDeletion bool `json:"marked_for_deletion"`

	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`
}

// CreateRequest holds the fields needed to create a new workbasket.
type CreateRequest struct {
	Key         string `json:"key"`
	Domain      string `json:"domain"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Type        Type   `json:"type"`
	Owner       string `json:"owner,omitempty"`
	OrgLevel1   string `json:"org_level_1,omitempty"`
	OrgLevel2   string `json:"org_level_2,omitempty"`
	OrgLevel3   string `json:"org_level_3,omitempty"`
	OrgLevel4   string `json:"org_level_4,omitempty"`
	Custom1     string `json:"custom_1,omitempty"`
	Custom2     string `json:"custom_2,omitempty"`
	Custom3     string `json:"custom_3,omitempty"`
	Custom4     string `json:"custom_4,omitempty"`
}

// Validate checks that the CreateRequest has all required fields.
func (r *CreateRequest) Validate() error {
	if r.Key == "" {
		return errors.New("key is required")
	}
	if r.Domain == "" {
		return errors.New("domain is required")
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	if !ValidTypes[r.Type] {
		return errors.New("invalid type: must be group, personal, topic, or clearance")
	}
	return nil
}

// Summary is the read-only projection of Workbasket returned by queries.
type Summary struct {
	ID                string `json:"id"`
	Key               string `json:"key"`
	Domain            string `json:"domain"`
	Name              string `json:"name"`
	Description       string `json:"description,omitempty"`
	Type              Type   `json:"type"`
	Owner             string `json:"owner,omitempty"`
	OrgLevel1         string `json:"org_level_1,omitempty"`
	OrgLevel2         string `json:"org_level_2,omitempty"`
	OrgLevel3         string `json:"org_level_3,omitempty"`
	OrgLevel4         string `json:"org_level_4,omitempty"`
	Custom1           string `json:"custom_1,omitempty"`
	Custom2           string `json:"custom_2,omitempty"`
	Custom3           string `json:"custom_3,omitempty"`
	Custom4           string `json:"custom_4,omitempty"`
	MarkedForDeletion bool   `json:"marked_for_deletion"`
}

// Summary builds the query projection from the workbasket's current state.
func (w *Workbasket) Summary() Summary {
	return Summary{
		ID:                w.ID,
		Key:               w.Key,
		Domain:            w.Domain,
		Name:              w.Name,
		Description:       w.Description,
		Type:              w.Type,
		Owner:             w.Owner,
		OrgLevel1:         w.OrgLevel1,
		OrgLevel2:         w.OrgLevel2,
		OrgLevel3:         w.OrgLevel3,
		OrgLevel4:         w.OrgLevel4,
		Custom1:           w.Custom1,
		Custom2:           w.Custom2,
		Custom3:           w.Custom3,
		Custom4:           w.Custom4,
		MarkedForDeletion: w.MarkedForDeletion,
	}
}

// SameKey reports whether the workbasket is identified by the given
// key+domain pair. Comparison is case-insensitive.
func (w *Workbasket) SameKey(key, domain string) bool {
	return strings.EqualFold(w.Key, key) && strings.EqualFold(w.Domain, domain)
}
