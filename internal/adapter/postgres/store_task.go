package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/taskdesk/taskdesk/internal/domain/task"
	"github.com/taskdesk/taskdesk/internal/query"
)

const taskCols = `id, external_id, name, description, note, priority, state, owner,
	workbasket_id, classification_key, domain,
	por_company, por_system, por_system_instance, por_type, por_value,
	secondary_object_refs, custom_fields, is_read, is_transferred, callback_state,
	created, claimed, completed, modified, planned, due, received`

func scanTask(row scannable) (*task.Task, error) {
	var (
		t             task.Task
		secondaryJSON []byte
		customFields  []string
		claimed       *time.Time
		completed     *time.Time
		planned       *time.Time
		due           *time.Time
		received      *time.Time
	)
	err := row.Scan(
		&t.ID, &t.ExternalID, &t.Name, &t.Description, &t.Note, &t.Priority, &t.State, &t.Owner,
		&t.WorkbasketID, &t.ClassificationKey, &t.Domain,
		&t.PrimaryObjectReference.Company, &t.PrimaryObjectReference.System,
		&t.PrimaryObjectReference.SystemInstance, &t.PrimaryObjectReference.Type,
		&t.PrimaryObjectReference.Value,
		&secondaryJSON, &customFields, &t.Read, &t.Transferred, &t.CallbackState,
		&t.Created, &claimed, &completed, &t.Modified, &planned, &due, &received,
	)
	if err != nil {
		return nil, err
	}

	if len(secondaryJSON) > 0 {
		if err := json.Unmarshal(secondaryJSON, &t.SecondaryObjectReferences); err != nil {
			return nil, fmt.Errorf("decode secondary object references: %w", err)
		}
	}
	copy(t.CustomFields[:], customFields)
	t.Claimed = timeOrZero(claimed)
	t.Completed = timeOrZero(completed)
	t.Planned = timeOrZero(planned)
	t.Due = timeOrZero(due)
	t.Received = timeOrZero(received)
	return &t, nil
}

// encodeObjectRefs marshals object references, normalizing nil to [].
func encodeObjectRefs(refs []task.ObjectReference) ([]byte, error) {
	if refs == nil {
		refs = []task.ObjectReference{}
	}
	return json.Marshal(refs)
}

// --- Tasks ---

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskCols+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}

	attachments, err := s.listAttachments(ctx, id)
	if err != nil {
		return nil, err
	}
	t.Attachments = attachments
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, t *task.Task) error {
	secondaryJSON, err := encodeObjectRefs(t.SecondaryObjectReferences)
	if err != nil {
		return fmt.Errorf("encode secondary object references: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create task: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO tasks (`+taskCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
			 $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`,
		t.ID, t.ExternalID, t.Name, t.Description, t.Note, t.Priority, t.State, t.Owner,
		t.WorkbasketID, t.ClassificationKey, t.Domain,
		t.PrimaryObjectReference.Company, t.PrimaryObjectReference.System,
		t.PrimaryObjectReference.SystemInstance, t.PrimaryObjectReference.Type,
		t.PrimaryObjectReference.Value,
		secondaryJSON, t.CustomFields[:], t.Read, t.Transferred, t.CallbackState,
		t.Created, nullTime(t.Claimed), nullTime(t.Completed), t.Modified,
		nullTime(t.Planned), nullTime(t.Due), nullTime(t.Received),
	)
	if err != nil {
		return fmt.Errorf("create task %s: %w", t.ID, err)
	}

	if err := insertAttachments(ctx, tx, t.ID, t.Attachments); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) UpdateTask(ctx context.Context, t *task.Task, readModified time.Time) error {
	secondaryJSON, err := encodeObjectRefs(t.SecondaryObjectReferences)
	if err != nil {
		return fmt.Errorf("encode secondary object references: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin update task: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx,
		`UPDATE tasks SET
			name = $1, description = $2, note = $3, priority = $4, state = $5, owner = $6,
			workbasket_id = $7, classification_key = $8, domain = $9,
			por_company = $10, por_system = $11, por_system_instance = $12,
			por_type = $13, por_value = $14,
			secondary_object_refs = $15, custom_fields = $16,
			is_read = $17, is_transferred = $18, callback_state = $19,
			claimed = $20, completed = $21, modified = $22,
			planned = $23, due = $24, received = $25
		 WHERE id = $26 AND modified = $27`,
		t.Name, t.Description, t.Note, t.Priority, t.State, t.Owner,
		t.WorkbasketID, t.ClassificationKey, t.Domain,
		t.PrimaryObjectReference.Company, t.PrimaryObjectReference.System,
		t.PrimaryObjectReference.SystemInstance, t.PrimaryObjectReference.Type,
		t.PrimaryObjectReference.Value,
		secondaryJSON, t.CustomFields[:], t.Read, t.Transferred, t.CallbackState,
		nullTime(t.Claimed), nullTime(t.Completed), t.Modified,
		nullTime(t.Planned), nullTime(t.Due), nullTime(t.Received),
		t.ID, readModified,
	)
	if err != nil {
		return fmt.Errorf("update task %s: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return checkStaleUpdate(ctx, tx, "tasks", t.ID, "task")
	}

	// Attachments are replaced wholesale with the updated task.
	if _, err := tx.Exec(ctx, `DELETE FROM task_attachments WHERE task_id = $1`, t.ID); err != nil {
		return fmt.Errorf("clear attachments for task %s: %w", t.ID, err)
	}
	if err := insertAttachments(ctx, tx, t.ID, t.Attachments); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete task %s", id)
}

const taskSummaryCols = `id, external_id, name, note, priority, state, owner,
	workbasket_id, classification_key, domain,
	por_company, por_system, por_system_instance, por_type, por_value,
	custom_fields, is_read, is_transferred,
	created, claimed, completed, modified, planned, due`

func scanTaskSummary(row scannable) (task.Summary, error) {
	var (
		t            task.Summary
		customFields []string
		claimed      *time.Time
		completed    *time.Time
		planned      *time.Time
		due          *time.Time
	)
	err := row.Scan(
		&t.ID, &t.ExternalID, &t.Name, &t.Note, &t.Priority, &t.State, &t.Owner,
		&t.WorkbasketID, &t.ClassificationKey, &t.Domain,
		&t.ObjectReference.Company, &t.ObjectReference.System,
		&t.ObjectReference.SystemInstance, &t.ObjectReference.Type, &t.ObjectReference.Value,
		&customFields, &t.Read, &t.Transferred,
		&t.Created, &claimed, &completed, &t.Modified, &planned, &due,
	)
	if err != nil {
		return t, err
	}
	copy(t.CustomFields[:], customFields)
	t.Claimed = timeOrZero(claimed)
	t.Completed = timeOrZero(completed)
	t.Planned = timeOrZero(planned)
	t.Due = timeOrZero(due)
	return t, nil
}

func (s *Store) QueryTasks(ctx context.Context, spec query.TaskSpec, page query.Page) ([]task.Summary, error) {
	sql, args, err := buildTaskSQL(taskSummaryCols, spec, &page)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var result []task.Summary
	for rows.Next() {
		t, err := scanTaskSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task summary: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) CountTasks(ctx context.Context, spec query.TaskSpec) (int64, error) {
	sql, args, err := buildTaskSQL("COUNT(*)", spec, nil)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return count, nil
}

// --- Attachments ---

func (s *Store) listAttachments(ctx context.Context, taskID string) ([]task.Attachment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, task_id, classification_key, channel, object_reference, received, created, modified
		 FROM task_attachments WHERE task_id = $1 ORDER BY created, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list attachments for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var attachments []task.Attachment
	for rows.Next() {
		var (
			a        task.Attachment
			refJSON  []byte
			received *time.Time
		)
		if err := rows.Scan(&a.ID, &a.TaskID, &a.ClassificationKey, &a.Channel,
			&refJSON, &received, &a.Created, &a.Modified); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		if len(refJSON) > 0 {
			if err := json.Unmarshal(refJSON, &a.ObjectReference); err != nil {
				return nil, fmt.Errorf("decode attachment object reference: %w", err)
			}
		}
		a.Received = timeOrZero(received)
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

func insertAttachments(ctx context.Context, tx pgx.Tx, taskID string, attachments []task.Attachment) error {
	for _, a := range attachments {
		refJSON, err := json.Marshal(a.ObjectReference)
		if err != nil {
			return fmt.Errorf("encode attachment object reference: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO task_attachments
				(id, task_id, classification_key, channel, object_reference, received, created, modified)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			a.ID, taskID, a.ClassificationKey, a.Channel, refJSON,
			nullTime(a.Received), a.Created, a.Modified); err != nil {
			return fmt.Errorf("insert attachment %s: %w", a.ID, err)
		}
	}
	return nil
}

// --- Comments ---

const commentCols = `id, task_id, creator, text_value, created, modified`

func scanComment(row scannable) (*task.Comment, error) {
	var c task.Comment
	if err := row.Scan(&c.ID, &c.TaskID, &c.Creator, &c.Text, &c.Created, &c.Modified); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetComment(ctx context.Context, id string) (*task.Comment, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+commentCols+` FROM task_comments WHERE id = $1`, id)
	c, err := scanComment(row)
	if err != nil {
		return nil, notFoundWrap(err, "get comment %s", id)
	}
	return c, nil
}

func (s *Store) ListComments(ctx context.Context, taskID string) ([]task.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+commentCols+` FROM task_comments
		 WHERE task_id = $1 ORDER BY created, id`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments for task %s: %w", taskID, err)
	}
	defer rows.Close()

	var comments []task.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *c)
	}
	return comments, rows.Err()
}

func (s *Store) CreateComment(ctx context.Context, c *task.Comment) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO task_comments (`+commentCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.TaskID, c.Creator, c.Text, c.Created, c.Modified)
	if err != nil {
		return fmt.Errorf("create comment %s: %w", c.ID, err)
	}
	return nil
}

func (s *Store) UpdateComment(ctx context.Context, c *task.Comment, readModified time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE task_comments SET text_value = $1, modified = $2
		 WHERE id = $3 AND modified = $4`,
		c.Text, c.Modified, c.ID, readModified)
	if err != nil {
		return fmt.Errorf("update comment %s: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return checkStaleUpdate(ctx, s.pool, "task_comments", c.ID, "comment")
	}
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM task_comments WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete comment %s", id)
}
