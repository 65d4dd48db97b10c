package query

// Workbasket attribute names shared between the builder and the storage
// gateway.
const (
	WorkbasketAttrID          = "id"
	WorkbasketAttrKey         = "key"
	WorkbasketAttrDomain      = "domain"
	WorkbasketAttrName        = "name"
	WorkbasketAttrDescription = "description"
	WorkbasketAttrType        = "type"
	WorkbasketAttrOwner       = "owner"
	WorkbasketAttrCreated     = "created"
	WorkbasketAttrModified    = "modified"
	// org levels are org_level_1 .. org_level_4, custom fields custom_1 .. custom_4
	workbasketOrgPrefix    = "org_level_"
	workbasketCustomPrefix = "custom_"
	workbasketCustomMax    = 4
	workbasketOrgMax       = 4
)

// WorkbasketQuery accumulates predicates and sort directives over workbasket
// summaries. The zero value matches all workbaskets the caller may read.
type WorkbasketQuery struct {
	b builder
}

// NewWorkbasketQuery returns an empty workbasket query.
func NewWorkbasketQuery() WorkbasketQuery {
	return WorkbasketQuery{}
}

// WorkbasketSpec is the plain specification handed to the storage gateway.
type WorkbasketSpec struct {
	Filters []Filter     `json:"filters,omitempty"`
	Sorts   []Sort       `json:"sorts,omitempty"`
	Access  AccessFilter `json:"access"`
}

// Spec finalizes the query, surfacing the first construction error.
func (q WorkbasketQuery) Spec() (WorkbasketSpec, error) {
	if q.b.err != nil {
		return WorkbasketSpec{}, q.b.err
	}
	return WorkbasketSpec{Filters: q.b.filters, Sorts: q.b.sorts}, nil
}

func (q WorkbasketQuery) values(attr string, kind Kind, values []string) WorkbasketQuery {
	return WorkbasketQuery{b: q.b.addValues(attr, kind, values)}
}

func (q WorkbasketQuery) intervals(attr string, kind Kind, ivs []Interval) WorkbasketQuery {
	return WorkbasketQuery{b: q.b.addIntervals(attr, kind, ivs)}
}

// --- exact-set predicates ---

func (q WorkbasketQuery) IDIn(ids ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrID, KindIn, ids)
}

func (q WorkbasketQuery) KeyIn(keys ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrKey, KindIn, keys)
}

func (q WorkbasketQuery) DomainIn(domains ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrDomain, KindIn, domains)
}

func (q WorkbasketQuery) NameIn(names ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrName, KindIn, names)
}

func (q WorkbasketQuery) TypeIn(types ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrType, KindIn, types)
}

func (q WorkbasketQuery) OwnerIn(owners ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrOwner, KindIn, owners)
}

func (q WorkbasketQuery) OwnerNotIn(owners ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrOwner, KindNotIn, owners)
}

// --- pattern predicates ---

func (q WorkbasketQuery) KeyLike(patterns ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrKey, KindLike, patterns)
}

func (q WorkbasketQuery) NameLike(patterns ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrName, KindLike, patterns)
}

func (q WorkbasketQuery) NameNotLike(patterns ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrName, KindNotLike, patterns)
}

func (q WorkbasketQuery) DescriptionLike(patterns ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrDescription, KindLike, patterns)
}

func (q WorkbasketQuery) OwnerLike(patterns ...string) WorkbasketQuery {
	return q.values(WorkbasketAttrOwner, KindLike, patterns)
}

// --- org level and custom field predicates ---

func (q WorkbasketQuery) orgLevel(n int, kind Kind, values []string) WorkbasketQuery {
	attr, err := customAttr(workbasketOrgPrefix, n, workbasketOrgMax)
	if err != nil {
		return WorkbasketQuery{b: q.b.fail(err)}
	}
	return q.values(attr, kind, values)
}

func (q WorkbasketQuery) OrgLevelIn(n int, values ...string) WorkbasketQuery {
	return q.orgLevel(n, KindIn, values)
}

func (q WorkbasketQuery) OrgLevelLike(n int, patterns ...string) WorkbasketQuery {
	return q.orgLevel(n, KindLike, patterns)
}

func (q WorkbasketQuery) customField(n int, kind Kind, values []string) WorkbasketQuery {
	attr, err := customAttr(workbasketCustomPrefix, n, workbasketCustomMax)
	if err != nil {
		return WorkbasketQuery{b: q.b.fail(err)}
	}
	return q.values(attr, kind, values)
}

func (q WorkbasketQuery) CustomFieldIn(n int, values ...string) WorkbasketQuery {
	return q.customField(n, KindIn, values)
}

func (q WorkbasketQuery) CustomFieldNotIn(n int, values ...string) WorkbasketQuery {
	return q.customField(n, KindNotIn, values)
}

func (q WorkbasketQuery) CustomFieldLike(n int, patterns ...string) WorkbasketQuery {
	return q.customField(n, KindLike, patterns)
}

func (q WorkbasketQuery) CustomFieldNotLike(n int, patterns ...string) WorkbasketQuery {
	return q.customField(n, KindNotLike, patterns)
}

// --- time-range predicates ---

func (q WorkbasketQuery) CreatedWithin(intervals ...Interval) WorkbasketQuery {
	return q.intervals(WorkbasketAttrCreated, KindWithin, intervals)
}

func (q WorkbasketQuery) ModifiedWithin(intervals ...Interval) WorkbasketQuery {
	return q.intervals(WorkbasketAttrModified, KindWithin, intervals)
}

func (q WorkbasketQuery) ModifiedNotWithin(intervals ...Interval) WorkbasketQuery {
	return q.intervals(WorkbasketAttrModified, KindNotWithin, intervals)
}

// --- sorting ---

func (q WorkbasketQuery) sort(attr string) WorkbasketQuery {
	return WorkbasketQuery{b: q.b.addSort(attr)}
}

func (q WorkbasketQuery) OrderByKey() WorkbasketQuery    { return q.sort(WorkbasketAttrKey) }
func (q WorkbasketQuery) OrderByDomain() WorkbasketQuery { return q.sort(WorkbasketAttrDomain) }
func (q WorkbasketQuery) OrderByName() WorkbasketQuery   { return q.sort(WorkbasketAttrName) }
func (q WorkbasketQuery) OrderByOwner() WorkbasketQuery  { return q.sort(WorkbasketAttrOwner) }
func (q WorkbasketQuery) OrderByType() WorkbasketQuery   { return q.sort(WorkbasketAttrType) }

// Ascending sets the direction of the most recently added sort attribute.
func (q WorkbasketQuery) Ascending() WorkbasketQuery {
	return WorkbasketQuery{b: q.b.setDirection(Ascending)}
}

// Descending sets the direction of the most recently added sort attribute.
func (q WorkbasketQuery) Descending() WorkbasketQuery {
	return WorkbasketQuery{b: q.b.setDirection(Descending)}
}
