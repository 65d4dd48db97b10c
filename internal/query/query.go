// Package query implements the dynamic query builders for task and
// workbasket summaries. A builder accumulates predicate groups and sort
// directives into a plain, serializable specification that the storage
// gateway interprets; the builder itself never touches storage.
//
// Within a predicate group, values are combined with OR; across groups,
// predicates are combined with AND. Builders are immutable: every call
// returns a new accumulated value, so partially built queries can be
// shared and extended without aliasing.
package query

import (
	"fmt"
	"time"

	"github.com/taskdesk/taskdesk/internal/domain"
)

// Kind distinguishes the predicate group semantics on one attribute.
type Kind int

const (
	// KindIn matches rows whose attribute equals any of the values.
	KindIn Kind = iota
	// KindNotIn excludes rows whose attribute equals any of the values.
	KindNotIn
	// KindLike matches rows whose attribute matches any of the SQL-style
	// patterns (% and _ wildcards), case-insensitively.
	KindLike
	// KindNotLike excludes rows matching any of the patterns.
	KindNotLike
	// KindWithin matches rows whose time attribute falls inside any of the
	// half-open intervals.
	KindWithin
	// KindNotWithin excludes rows whose time attribute falls inside any of
	// the intervals.
	KindNotWithin
	// KindWildcard OR-matches one pattern against an explicit set of
	// string attributes.
	KindWildcard
)

// Direction orders a sort attribute.
type Direction string

const (
	Ascending  Direction = "ASC"
	Descending Direction = "DESC"
)

// Interval is a half-open time range [From, To). A zero bound leaves that
// side unconstrained.
type Interval struct {
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	if !iv.From.IsZero() && t.Before(iv.From) {
		return false
	}
	if !iv.To.IsZero() && !t.Before(iv.To) {
		return false
	}
	return true
}

// Filter is one predicate group on one attribute.
type Filter struct {
	Attribute string     `json:"attribute"`
	Kind      Kind       `json:"kind"`
	Values    []string   `json:"values,omitempty"`
	Intervals []Interval `json:"intervals,omitempty"`
	// Fields is the explicit attribute set of a wildcard search.
	Fields []string `json:"fields,omitempty"`
}

// Sort is one (attribute, direction) pair of the ordered sort list.
type Sort struct {
	Attribute string    `json:"attribute"`
	Direction Direction `json:"direction"`
}

// AccessFilter is the implicit permission predicate intersected with every
// list/count query: results are restricted to workbaskets on which at least
// one of the access ids holds READ. A nil AccessIDs slice means the caller
// is an administrator and the restriction is skipped.
type AccessFilter struct {
	AccessIDs []string `json:"access_ids,omitempty"`
}

// Unrestricted reports whether the filter applies no restriction.
func (f AccessFilter) Unrestricted() bool {
	return f.AccessIDs == nil
}

// Page bounds one result page. A negative offset clamps to zero; a limit of
// zero or less yields an empty page.
type Page struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Normalize applies the clamping rules.
func (p Page) Normalize() Page {
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Empty reports whether the page can contain no rows at all.
func (p Page) Empty() bool {
	return p.Limit <= 0
}

// builder is the shared accumulator embedded in both query builders.
// The zero value is an empty query. The first construction error is
// latched and surfaced when the specification is built, before any
// execution reaches the storage gateway.
type builder struct {
	filters []Filter
	sorts   []Sort
	err     error
}

// clone copies the accumulated state so that extending one builder value
// never mutates another.
func (b builder) clone() builder {
	out := builder{err: b.err}
	if len(b.filters) > 0 {
		out.filters = make([]Filter, len(b.filters))
		copy(out.filters, b.filters)
	}
	if len(b.sorts) > 0 {
		out.sorts = make([]Sort, len(b.sorts))
		copy(out.sorts, b.sorts)
	}
	return out
}

func (b builder) fail(err error) builder {
	out := b.clone()
	if out.err == nil {
		out.err = err
	}
	return out
}

func (b builder) addValues(attr string, kind Kind, values []string) builder {
	if len(values) == 0 {
		return b.fail(fmt.Errorf("predicate on %s requires at least one value: %w",
			attr, domain.ErrInvalidArgument))
	}
	out := b.clone()
	out.filters = append(out.filters, Filter{Attribute: attr, Kind: kind, Values: values})
	return out
}

func (b builder) addIntervals(attr string, kind Kind, intervals []Interval) builder {
	if len(intervals) == 0 {
		return b.fail(fmt.Errorf("predicate on %s requires at least one interval: %w",
			attr, domain.ErrInvalidArgument))
	}
	out := b.clone()
	out.filters = append(out.filters, Filter{Attribute: attr, Kind: kind, Intervals: intervals})
	return out
}

func (b builder) addWildcard(pattern string, fields []string) builder {
	if pattern == "" {
		return b.fail(fmt.Errorf("wildcard search requires a pattern: %w",
			domain.ErrInvalidArgument))
	}
	if len(fields) == 0 {
		return b.fail(fmt.Errorf("wildcard search requires an explicit field set: %w",
			domain.ErrInvalidArgument))
	}
	out := b.clone()
	out.filters = append(out.filters, Filter{
		Kind:   KindWildcard,
		Values: []string{pattern},
		Fields: fields,
	})
	return out
}

// addSort appends a sort attribute with the default ascending direction.
// Sorting twice on the same attribute is an invalid request.
func (b builder) addSort(attr string) builder {
	for _, s := range b.sorts {
		if s.Attribute == attr {
			return b.fail(fmt.Errorf("duplicate sort on %s: %w",
				attr, domain.ErrInvalidRequest))
		}
	}
	out := b.clone()
	out.sorts = append(out.sorts, Sort{Attribute: attr, Direction: Ascending})
	return out
}

// setDirection sets the direction of the most recently added sort attribute.
// Calling it before any sort attribute is chosen is an invalid request.
func (b builder) setDirection(dir Direction) builder {
	if len(b.sorts) == 0 {
		return b.fail(fmt.Errorf("sort direction set before any sort attribute: %w",
			domain.ErrInvalidRequest))
	}
	out := b.clone()
	out.sorts[len(out.sorts)-1].Direction = dir
	return out
}

// customAttr maps a 1-based custom field selector to its attribute name.
func customAttr(prefix string, n, max int) (string, error) {
	if n < 1 || n > max {
		return "", fmt.Errorf("custom field %d out of range 1..%d: %w",
			n, max, domain.ErrInvalidArgument)
	}
	return fmt.Sprintf("%s%d", prefix, n), nil
}
