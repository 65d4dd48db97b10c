package postgres

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/taskdesk/taskdesk/internal/domain"
	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/query"
)

// column describes how one query attribute maps onto SQL.
type column struct {
	expr    string
	numeric bool // values arrive as strings and need an int cast
}

var taskColumns = map[string]column{
	query.TaskAttrID:                {expr: "id"},
	query.TaskAttrExternalID:        {expr: "external_id"},
	query.TaskAttrName:              {expr: "name"},
	query.TaskAttrNote:              {expr: "note"},
	query.TaskAttrDescription:       {expr: "description"},
	query.TaskAttrPriority:          {expr: "priority", numeric: true},
	query.TaskAttrState:             {expr: "state"},
	query.TaskAttrOwner:             {expr: "owner"},
	query.TaskAttrWorkbasketID:      {expr: "workbasket_id"},
	query.TaskAttrClassificationKey: {expr: "classification_key"},
	query.TaskAttrDomain:            {expr: "domain"},
	query.TaskAttrCompany:           {expr: "por_company"},
	query.TaskAttrSystem:            {expr: "por_system"},
	query.TaskAttrSystemInstance:    {expr: "por_system_instance"},
	query.TaskAttrType:              {expr: "por_type"},
	query.TaskAttrValue:             {expr: "por_value"},
	query.TaskAttrCallbackState:     {expr: "callback_state"},
	query.TaskAttrCreated:           {expr: "created"},
	query.TaskAttrClaimed:           {expr: "claimed"},
	query.TaskAttrCompleted:         {expr: "completed"},
	query.TaskAttrModified:          {expr: "modified"},
	query.TaskAttrPlanned:           {expr: "planned"},
	query.TaskAttrDue:               {expr: "due"},
}

var workbasketColumns = map[string]column{
	query.WorkbasketAttrID:          {expr: "id"},
	query.WorkbasketAttrKey:         {expr: "key"},
	query.WorkbasketAttrDomain:      {expr: "domain"},
	query.WorkbasketAttrName:        {expr: "name"},
	query.WorkbasketAttrDescription: {expr: "description"},
	query.WorkbasketAttrType:        {expr: "type"},
	query.WorkbasketAttrOwner:       {expr: "owner"},
	query.WorkbasketAttrCreated:     {expr: "created"},
	query.WorkbasketAttrModified:    {expr: "modified"},
}

func init() {
	// Generic slots: tasks carry 16 custom fields in a text array,
	// workbaskets have 4 dedicated columns plus 4 org levels.
	for i := 1; i <= 16; i++ {
		taskColumns["custom_"+strconv.Itoa(i)] = column{expr: fmt.Sprintf("custom_fields[%d]", i)}
	}
	for i := 1; i <= 4; i++ {
		workbasketColumns["custom_"+strconv.Itoa(i)] = column{expr: "custom_" + strconv.Itoa(i)}
		workbasketColumns["org_level_"+strconv.Itoa(i)] = column{expr: "org_level_" + strconv.Itoa(i)}
	}
}

// argList accumulates positional SQL arguments.
type argList struct {
	args []any
}

func (a *argList) add(v any) string {
	a.args = append(a.args, v)
	return "$" + strconv.Itoa(len(a.args))
}

func resolveColumn(cols map[string]column, attr string) (column, error) {
	c, ok := cols[attr]
	if !ok {
		return column{}, fmt.Errorf("unknown query attribute %q: %w", attr, domain.ErrInvalidArgument)
	}
	return c, nil
}

// filterCond renders one predicate group as a SQL condition.
func filterCond(f query.Filter, cols map[string]column, a *argList) (string, error) {
	if f.Kind == query.KindWildcard {
		return wildcardCond(f, cols, a)
	}

	c, err := resolveColumn(cols, f.Attribute)
	if err != nil {
		return "", err
	}

	switch f.Kind {
	case query.KindIn, query.KindNotIn:
		cond := c.expr + " = ANY(" + a.add(f.Values) + arrayCast(c) + ")"
		if f.Kind == query.KindNotIn {
			cond = "NOT (" + cond + ")"
		}
		return cond, nil

	case query.KindLike, query.KindNotLike:
		parts := make([]string, len(f.Values))
		for i, pattern := range f.Values {
			parts[i] = c.expr + " ILIKE " + a.add(pattern)
		}
		cond := "(" + strings.Join(parts, " OR ") + ")"
		if f.Kind == query.KindNotLike {
			cond = "NOT " + cond
		}
		return cond, nil

	case query.KindWithin, query.KindNotWithin:
		cond := intervalsCond(c.expr, f.Intervals, a)
		if f.Kind == query.KindNotWithin {
			cond = "NOT " + cond
		}
		return cond, nil

	default:
		return "", fmt.Errorf("unknown filter kind %d: %w", f.Kind, domain.ErrInvalidArgument)
	}
}

func arrayCast(c column) string {
	if c.numeric {
		return "::int[]"
	}
	return ""
}

// intervalsCond ORs the half-open time ranges of one interval filter.
func intervalsCond(expr string, intervals []query.Interval, a *argList) string {
	parts := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		switch {
		case !iv.From.IsZero() && !iv.To.IsZero():
			parts = append(parts, "("+expr+" >= "+a.add(iv.From)+" AND "+expr+" < "+a.add(iv.To)+")")
		case !iv.From.IsZero():
			parts = append(parts, expr+" >= "+a.add(iv.From))
		case !iv.To.IsZero():
			parts = append(parts, expr+" < "+a.add(iv.To))
		default:
			// An unbounded interval matches every row.
			parts = append(parts, "TRUE")
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// wildcardCond OR-matches one pattern against the filter's explicit fields.
func wildcardCond(f query.Filter, cols map[string]column, a *argList) (string, error) {
	pattern := a.add(f.Values[0])
	parts := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		c, err := resolveColumn(cols, field)
		if err != nil {
			return "", err
		}
		parts = append(parts, c.expr+" ILIKE "+pattern)
	}
	return "(" + strings.Join(parts, " OR ") + ")", nil
}

// accessCond renders the implicit permission intersection: the row's
// workbasket must grant READ to at least one of the caller's access ids.
// An unrestricted filter (administrator) yields no condition.
func accessCond(access query.AccessFilter, workbasketIDExpr string, a *argList) string {
	if access.Unrestricted() {
		return ""
	}
	ids := access.AccessIDs
	if len(ids) == 0 {
		// No identity at all: nothing is visible.
		return "FALSE"
	}
	mask := int64(1) << uint(workbasket.PermRead)
	return "EXISTS (SELECT 1 FROM workbasket_access_items ai" +
		" WHERE ai.workbasket_id = " + workbasketIDExpr +
		" AND ai.access_id = ANY(" + a.add(ids) + ")" +
		" AND (ai.permissions & " + a.add(mask) + ") <> 0)"
}

// orderClause renders the ordered sort list, with a trailing id tiebreak so
// pagination is deterministic.
func orderClause(sorts []query.Sort, cols map[string]column) (string, error) {
	parts := make([]string, 0, len(sorts)+1)
	for _, s := range sorts {
		c, err := resolveColumn(cols, s.Attribute)
		if err != nil {
			return "", err
		}
		parts = append(parts, c.expr+" "+string(s.Direction))
	}
	parts = append(parts, "id ASC")
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// buildTaskSQL assembles a full SELECT over tasks from a compiled task
// specification. A nil page omits ordering and pagination (for counts).
func buildTaskSQL(selectList string, spec query.TaskSpec, page *query.Page) (string, []any, error) {
	return buildSQL(selectList, "tasks", taskColumns, spec.Filters, spec.Sorts, spec.Access, page)
}

// buildWorkbasketSQL assembles a full SELECT over workbaskets.
func buildWorkbasketSQL(selectList string, spec query.WorkbasketSpec, page *query.Page) (string, []any, error) {
	return buildSQL(selectList, "workbaskets", workbasketColumns, spec.Filters, spec.Sorts, spec.Access, page)
}

func buildSQL(selectList, table string, cols map[string]column, filters []query.Filter, sorts []query.Sort, access query.AccessFilter, page *query.Page) (string, []any, error) {
	a := &argList{}
	conds := make([]string, 0, len(filters)+1)

	for _, f := range filters {
		cond, err := filterCond(f, cols, a)
		if err != nil {
			return "", nil, err
		}
		conds = append(conds, cond)
	}

	workbasketIDExpr := table + ".workbasket_id"
	if table == "workbaskets" {
		workbasketIDExpr = "workbaskets.id"
	}
	if cond := accessCond(access, workbasketIDExpr, a); cond != "" {
		conds = append(conds, cond)
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + selectList + " FROM " + table)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}

	if page != nil {
		order, err := orderClause(sorts, cols)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(order)
		sb.WriteString(" LIMIT " + a.add(page.Limit) + " OFFSET " + a.add(page.Offset))
	}

	return sb.String(), a.args, nil
}
