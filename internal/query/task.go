package query

// Task attribute names shared between the builder and the storage gateway.
const (
	TaskAttrID                = "id"
	TaskAttrExternalID        = "external_id"
	TaskAttrName              = "name"
	TaskAttrNote              = "note"
	TaskAttrDescription       = "description"
	TaskAttrPriority          = "priority"
	TaskAttrState             = "state"
	TaskAttrOwner             = "owner"
	TaskAttrWorkbasketID      = "workbasket_id"
	TaskAttrClassificationKey = "classification_key"
	TaskAttrDomain            = "domain"
	TaskAttrCompany           = "por_company"
	TaskAttrSystem            = "por_system"
	TaskAttrSystemInstance    = "por_system_instance"
	TaskAttrType              = "por_type"
	TaskAttrValue             = "por_value"
	TaskAttrCallbackState     = "callback_state"
	TaskAttrCreated           = "created"
	TaskAttrClaimed           = "claimed"
	TaskAttrCompleted         = "completed"
	TaskAttrModified          = "modified"
	TaskAttrPlanned           = "planned"
	TaskAttrDue               = "due"
	// custom fields are task_custom_1 .. task_custom_16
	taskCustomPrefix = "custom_"
	taskCustomMax    = 16
)

// TaskQuery accumulates predicates and sort directives over task summaries.
// The zero value is an empty query matching all tasks the caller may read.
type TaskQuery struct {
	b builder
}

// NewTaskQuery returns an empty task query.
func NewTaskQuery() TaskQuery {
	return TaskQuery{}
}

// TaskSpec is the plain specification handed to the storage gateway.
type TaskSpec struct {
	Filters []Filter     `json:"filters,omitempty"`
	Sorts   []Sort       `json:"sorts,omitempty"`
	Access  AccessFilter `json:"access"`
}

// Spec finalizes the query. It returns the first construction error, so a
// malformed query never reaches the storage gateway.
func (q TaskQuery) Spec() (TaskSpec, error) {
	if q.b.err != nil {
		return TaskSpec{}, q.b.err
	}
	return TaskSpec{Filters: q.b.filters, Sorts: q.b.sorts}, nil
}

func (q TaskQuery) values(attr string, kind Kind, values []string) TaskQuery {
	return TaskQuery{b: q.b.addValues(attr, kind, values)}
}

func (q TaskQuery) intervals(attr string, kind Kind, ivs []Interval) TaskQuery {
	return TaskQuery{b: q.b.addIntervals(attr, kind, ivs)}
}

// --- exact-set predicates ---

func (q TaskQuery) IDIn(ids ...string) TaskQuery {
	return q.values(TaskAttrID, KindIn, ids)
}

func (q TaskQuery) IDNotIn(ids ...string) TaskQuery {
	return q.values(TaskAttrID, KindNotIn, ids)
}

func (q TaskQuery) ExternalIDIn(ids ...string) TaskQuery {
	return q.values(TaskAttrExternalID, KindIn, ids)
}

func (q TaskQuery) NameIn(names ...string) TaskQuery {
	return q.values(TaskAttrName, KindIn, names)
}

func (q TaskQuery) OwnerIn(owners ...string) TaskQuery {
	return q.values(TaskAttrOwner, KindIn, owners)
}

func (q TaskQuery) OwnerNotIn(owners ...string) TaskQuery {
	return q.values(TaskAttrOwner, KindNotIn, owners)
}

func (q TaskQuery) StateIn(states ...string) TaskQuery {
	return q.values(TaskAttrState, KindIn, states)
}

func (q TaskQuery) StateNotIn(states ...string) TaskQuery {
	return q.values(TaskAttrState, KindNotIn, states)
}

func (q TaskQuery) WorkbasketIDIn(ids ...string) TaskQuery {
	return q.values(TaskAttrWorkbasketID, KindIn, ids)
}

func (q TaskQuery) WorkbasketIDNotIn(ids ...string) TaskQuery {
	return q.values(TaskAttrWorkbasketID, KindNotIn, ids)
}

func (q TaskQuery) ClassificationKeyIn(keys ...string) TaskQuery {
	return q.values(TaskAttrClassificationKey, KindIn, keys)
}

func (q TaskQuery) ClassificationKeyNotIn(keys ...string) TaskQuery {
	return q.values(TaskAttrClassificationKey, KindNotIn, keys)
}

func (q TaskQuery) DomainIn(domains ...string) TaskQuery {
	return q.values(TaskAttrDomain, KindIn, domains)
}

func (q TaskQuery) PriorityIn(priorities ...string) TaskQuery {
	return q.values(TaskAttrPriority, KindIn, priorities)
}

func (q TaskQuery) CallbackStateIn(states ...string) TaskQuery {
	return q.values(TaskAttrCallbackState, KindIn, states)
}

// Primary object reference predicates.

func (q TaskQuery) CompanyIn(companies ...string) TaskQuery {
	return q.values(TaskAttrCompany, KindIn, companies)
}

func (q TaskQuery) SystemIn(systems ...string) TaskQuery {
	return q.values(TaskAttrSystem, KindIn, systems)
}

func (q TaskQuery) TypeIn(types ...string) TaskQuery {
	return q.values(TaskAttrType, KindIn, types)
}

func (q TaskQuery) ValueIn(values ...string) TaskQuery {
	return q.values(TaskAttrValue, KindIn, values)
}

// --- pattern predicates ---

func (q TaskQuery) NameLike(patterns ...string) TaskQuery {
	return q.values(TaskAttrName, KindLike, patterns)
}

func (q TaskQuery) NameNotLike(patterns ...string) TaskQuery {
	return q.values(TaskAttrName, KindNotLike, patterns)
}

func (q TaskQuery) NoteLike(patterns ...string) TaskQuery {
	return q.values(TaskAttrNote, KindLike, patterns)
}

func (q TaskQuery) DescriptionLike(patterns ...string) TaskQuery {
	return q.values(TaskAttrDescription, KindLike, patterns)
}

func (q TaskQuery) OwnerLike(patterns ...string) TaskQuery {
	return q.values(TaskAttrOwner, KindLike, patterns)
}

func (q TaskQuery) ClassificationKeyLike(patterns ...string) TaskQuery {
	return q.values(TaskAttrClassificationKey, KindLike, patterns)
}

func (q TaskQuery) ValueLike(patterns ...string) TaskQuery {
	return q.values(TaskAttrValue, KindLike, patterns)
}

// --- custom field predicates (16 generic slots, 1-based selector) ---

func (q TaskQuery) customField(n int, kind Kind, values []string) TaskQuery {
	attr, err := customAttr(taskCustomPrefix, n, taskCustomMax)
	if err != nil {
		return TaskQuery{b: q.b.fail(err)}
	}
	return q.values(attr, kind, values)
}

func (q TaskQuery) CustomFieldIn(n int, values ...string) TaskQuery {
	return q.customField(n, KindIn, values)
}

func (q TaskQuery) CustomFieldNotIn(n int, values ...string) TaskQuery {
	return q.customField(n, KindNotIn, values)
}

func (q TaskQuery) CustomFieldLike(n int, patterns ...string) TaskQuery {
	return q.customField(n, KindLike, patterns)
}

func (q TaskQuery) CustomFieldNotLike(n int, patterns ...string) TaskQuery {
	return q.customField(n, KindNotLike, patterns)
}

// --- time-range predicates ---

func (q TaskQuery) CreatedWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrCreated, KindWithin, intervals)
}

func (q TaskQuery) CreatedNotWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrCreated, KindNotWithin, intervals)
}

func (q TaskQuery) ClaimedWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrClaimed, KindWithin, intervals)
}

func (q TaskQuery) CompletedWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrCompleted, KindWithin, intervals)
}

func (q TaskQuery) ModifiedWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrModified, KindWithin, intervals)
}

func (q TaskQuery) PlannedWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrPlanned, KindWithin, intervals)
}

func (q TaskQuery) PlannedNotWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrPlanned, KindNotWithin, intervals)
}

func (q TaskQuery) DueWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrDue, KindWithin, intervals)
}

func (q TaskQuery) DueNotWithin(intervals ...Interval) TaskQuery {
	return q.intervals(TaskAttrDue, KindNotWithin, intervals)
}

// --- wildcard search ---

// WildcardSearch OR-matches one pattern against an explicit set of string
// attributes. The field set must be non-empty.
func (q TaskQuery) WildcardSearch(pattern string, fields ...string) TaskQuery {
	return TaskQuery{b: q.b.addWildcard(pattern, fields)}
}

// --- sorting ---

func (q TaskQuery) sort(attr string) TaskQuery {
	return TaskQuery{b: q.b.addSort(attr)}
}

func (q TaskQuery) OrderByName() TaskQuery         { return q.sort(TaskAttrName) }
func (q TaskQuery) OrderByPriority() TaskQuery     { return q.sort(TaskAttrPriority) }
func (q TaskQuery) OrderByState() TaskQuery        { return q.sort(TaskAttrState) }
func (q TaskQuery) OrderByOwner() TaskQuery        { return q.sort(TaskAttrOwner) }
func (q TaskQuery) OrderByWorkbasketID() TaskQuery { return q.sort(TaskAttrWorkbasketID) }
func (q TaskQuery) OrderByCreated() TaskQuery      { return q.sort(TaskAttrCreated) }
func (q TaskQuery) OrderByClaimed() TaskQuery      { return q.sort(TaskAttrClaimed) }
func (q TaskQuery) OrderByCompleted() TaskQuery    { return q.sort(TaskAttrCompleted) }
func (q TaskQuery) OrderByModified() TaskQuery     { return q.sort(TaskAttrModified) }
func (q TaskQuery) OrderByPlanned() TaskQuery      { return q.sort(TaskAttrPlanned) }
func (q TaskQuery) OrderByDue() TaskQuery          { return q.sort(TaskAttrDue) }

// OrderByCustomField sorts on custom field n (1-based).
func (q TaskQuery) OrderByCustomField(n int) TaskQuery {
	attr, err := customAttr(taskCustomPrefix, n, taskCustomMax)
	if err != nil {
		return TaskQuery{b: q.b.fail(err)}
	}
	return q.sort(attr)
}

// Ascending sets the direction of the most recently added sort attribute.
func (q TaskQuery) Ascending() TaskQuery {
	return TaskQuery{b: q.b.setDirection(Ascending)}
}

// Descending sets the direction of the most recently added sort attribute.
func (q TaskQuery) Descending() TaskQuery {
	return TaskQuery{b: q.b.setDirection(Descending)}
}
