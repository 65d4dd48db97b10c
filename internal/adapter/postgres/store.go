package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskdesk/taskdesk/internal/domain/workbasket"
	"github.com/taskdesk/taskdesk/internal/query"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const workbasketCols = `id, key, domain, name, description, type, owner,
	org_level_1, org_level_2, org_level_3, org_level_4,
	custom_1, custom_2, custom_3, custom_4,
	marked_for_deletion, created, modified`

func scanWorkbasket(row scannable) (*workbasket.Workbasket, error) {
	var w workbasket.Workbasket
	err := row.Scan(
		&w.ID, &w.Key, &w.Domain, &w.Name, &w.Description, &w.Type, &w.Owner,
		&w.OrgLevel1, &w.OrgLevel2, &w.OrgLevel3, &w.OrgLevel4,
		&w.Custom1, &w.Custom2, &w.Custom3, &w.Custom4,
		&w.MarkedForDeletion, &w.Created, &w.Modified,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// --- Workbaskets ---

func (s *Store) GetWorkbasket(ctx context.Context, id string) (*workbasket.Workbasket, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+workbasketCols+` FROM workbaskets WHERE id = $1`, id)
	w, err := scanWorkbasket(row)
	if err != nil {
		return nil, notFoundWrap(err, "get workbasket %s", id)
	}
	return w, nil
}

func (s *Store) GetWorkbasketByKey(ctx context.Context, key, domain string) (*workbasket.Workbasket, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+workbasketCols+` FROM workbaskets
		 WHERE LOWER(key) = LOWER($1) AND LOWER(domain) = LOWER($2)`, key, domain)
	w, err := scanWorkbasket(row)
	if err != nil {
		return nil, notFoundWrap(err, "get workbasket %s/%s", key, domain)
	}
	return w, nil
}

func (s *Store) CreateWorkbasket(ctx context.Context, w *workbasket.Workbasket) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workbaskets (`+workbasketCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		w.ID, w.Key, w.Domain, w.Name, w.Description, w.Type, w.Owner,
		w.OrgLevel1, w.OrgLevel2, w.OrgLevel3, w.OrgLevel4,
		w.Custom1, w.Custom2, w.Custom3, w.Custom4,
		w.MarkedForDeletion, w.Created, w.Modified,
	)
	if err != nil {
		return fmt.Errorf("create workbasket %s: %w", w.ID, err)
	}
	return nil
}

func (s *Store) UpdateWorkbasket(ctx context.Context, w *workbasket.Workbasket, readModified time.Time) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE workbaskets SET
			name = $1, description = $2, type = $3, owner = $4,
			org_level_1 = $5, org_level_2 = $6, org_level_3 = $7, org_level_4 = $8,
			custom_1 = $9, custom_2 = $10, custom_3 = $11, custom_4 = $12,
			marked_for_deletion = $13, modified = $14
		 WHERE id = $15 AND modified = $16`,
		w.Name, w.Description, w.Type, w.Owner,
		w.OrgLevel1, w.OrgLevel2, w.OrgLevel3, w.OrgLevel4,
		w.Custom1, w.Custom2, w.Custom3, w.Custom4,
		w.MarkedForDeletion, w.Modified,
		w.ID, readModified,
	)
	if err != nil {
		return fmt.Errorf("update workbasket %s: %w", w.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return checkStaleUpdate(ctx, s.pool, "workbaskets", w.ID, "workbasket")
	}
	return nil
}

func (s *Store) DeleteWorkbasket(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM workbaskets WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete workbasket %s", id)
}

const workbasketSummaryCols = `id, key, domain, name, description, type, owner,
	org_level_1, org_level_2, org_level_3, org_level_4,
	custom_1, custom_2, custom_3, custom_4, marked_for_deletion`

func scanWorkbasketSummary(row scannable) (workbasket.Summary, error) {
	var w workbasket.Summary
	err := row.Scan(
		&w.ID, &w.Key, &w.Domain, &w.Name, &w.Description, &w.Type, &w.Owner,
		&w.OrgLevel1, &w.OrgLevel2, &w.OrgLevel3, &w.OrgLevel4,
		&w.Custom1, &w.Custom2, &w.Custom3, &w.Custom4,
		&w.MarkedForDeletion,
	)
	return w, err
}

func (s *Store) QueryWorkbaskets(ctx context.Context, spec query.WorkbasketSpec, page query.Page) ([]workbasket.Summary, error) {
	sql, args, err := buildWorkbasketSQL(workbasketSummaryCols, spec, &page)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query workbaskets: %w", err)
	}
	defer rows.Close()

	var result []workbasket.Summary
	for rows.Next() {
		w, err := scanWorkbasketSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workbasket summary: %w", err)
		}
		result = append(result, w)
	}
	return result, rows.Err()
}

func (s *Store) CountWorkbaskets(ctx context.Context, spec query.WorkbasketSpec) (int64, error) {
	sql, args, err := buildWorkbasketSQL("COUNT(*)", spec, nil)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := s.pool.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count workbaskets: %w", err)
	}
	return count, nil
}

// --- Access items ---

const accessItemCols = `id, workbasket_id, access_id, access_name, permissions, created, modified`

func scanAccessItem(row scannable) (*workbasket.AccessItem, error) {
	var (
		item  workbasket.AccessItem
		perms int64
	)
	err := row.Scan(&item.ID, &item.WorkbasketID, &item.AccessID, &item.AccessName,
		&perms, &item.Created, &item.Modified)
	if err != nil {
		return nil, err
	}
	item.Permissions = workbasket.PermissionSet(perms)
	return &item, nil
}

func (s *Store) GetAccessItem(ctx context.Context, id string) (*workbasket.AccessItem, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+accessItemCols+` FROM workbasket_access_items WHERE id = $1`, id)
	item, err := scanAccessItem(row)
	if err != nil {
		return nil, notFoundWrap(err, "get access item %s", id)
	}
	return item, nil
}

func (s *Store) ListAccessItems(ctx context.Context, workbasketID string) ([]workbasket.AccessItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+accessItemCols+` FROM workbasket_access_items
		 WHERE workbasket_id = $1 ORDER BY access_id`, workbasketID)
	if err != nil {
		return nil, fmt.Errorf("list access items for %s: %w", workbasketID, err)
	}
	defer rows.Close()

	var items []workbasket.AccessItem
	for rows.Next() {
		item, err := scanAccessItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *Store) CreateAccessItem(ctx context.Context, item *workbasket.AccessItem) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workbasket_access_items (`+accessItemCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		item.ID, item.WorkbasketID, item.AccessID, item.AccessName,
		int64(item.Permissions), item.Created, item.Modified,
	)
	if err != nil {
		return fmt.Errorf("create access item %s: %w", item.ID, err)
	}
	return nil
}

func (s *Store) UpdateAccessItem(ctx context.Context, item *workbasket.AccessItem) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE workbasket_access_items
		 SET access_name = $1, permissions = $2, modified = $3
		 WHERE id = $4`,
		item.AccessName, int64(item.Permissions), item.Modified, item.ID,
	)
	return execExpectOne(tag, err, "update access item %s", item.ID)
}

func (s *Store) DeleteAccessItem(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM workbasket_access_items WHERE id = $1`, id)
	return execExpectOne(tag, err, "delete access item %s", id)
}

// --- Distribution targets ---

func (s *Store) ListDistributionTargets(ctx context.Context, workbasketID string) ([]workbasket.Summary, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT w.id, w.key, w.domain, w.name, w.description, w.type, w.owner,
			w.org_level_1, w.org_level_2, w.org_level_3, w.org_level_4,
			w.custom_1, w.custom_2, w.custom_3, w.custom_4, w.marked_for_deletion
		 FROM workbasket_distribution_targets dt
		 JOIN workbaskets w ON w.id = dt.target_id
		 WHERE dt.source_id = $1
		 ORDER BY w.key`, workbasketID)
	if err != nil {
		return nil, fmt.Errorf("list distribution targets for %s: %w", workbasketID, err)
	}
	defer rows.Close()

	var targets []workbasket.Summary
	for rows.Next() {
		w, err := scanWorkbasketSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan distribution target: %w", err)
		}
		targets = append(targets, w)
	}
	return targets, rows.Err()
}

func (s *Store) AddDistributionTarget(ctx context.Context, sourceID, targetID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workbasket_distribution_targets (source_id, target_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`, sourceID, targetID)
	if err != nil {
		return fmt.Errorf("add distribution target %s -> %s: %w", sourceID, targetID, err)
	}
	return nil
}

func (s *Store) RemoveDistributionTarget(ctx context.Context, sourceID, targetID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM workbasket_distribution_targets
		 WHERE source_id = $1 AND target_id = $2`, sourceID, targetID)
	if err != nil {
		return fmt.Errorf("remove distribution target %s -> %s: %w", sourceID, targetID, err)
	}
	return nil
}

func (s *Store) SetDistributionTargets(ctx context.Context, sourceID string, targetIDs []string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin set distribution targets: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`DELETE FROM workbasket_distribution_targets WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("clear distribution targets for %s: %w", sourceID, err)
	}
	for _, targetID := range targetIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO workbasket_distribution_targets (source_id, target_id)
			 VALUES ($1, $2) ON CONFLICT DO NOTHING`, sourceID, targetID); err != nil {
			return fmt.Errorf("set distribution target %s -> %s: %w", sourceID, targetID, err)
		}
	}
	return tx.Commit(ctx)
}
