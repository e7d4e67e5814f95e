package sqlstore

import (
	"context"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-dispatcher/core"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ActivityStore persists dispatch audit entries. It never stores callbacks;
// entries describe what happened to a code, not who was waiting on it.
type ActivityStore struct {
	db   *bun.DB
	repo repository.Repository[*activityEntryRecord]
	now  func() time.Time
}

func NewActivityStore(db *bun.DB) (*ActivityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*activityEntryRecord](db, activityHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid activity repository wiring: %w", err)
		}
	}
	return &ActivityStore{db: db, repo: repo, now: time.Now}, nil
}

func (s *ActivityStore) Record(ctx context.Context, entry core.ActivityEntry) error {
	if s == nil || s.repo == nil {
		return fmt.Errorf("sqlstore: activity store is not configured")
	}
	space := core.NormalizeSpace(entry.Space)
	if space == "" {
		return fmt.Errorf("sqlstore: activity entry requires a space")
	}

	id := strings.TrimSpace(entry.ID)
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := entry.CreatedAt.UTC()
	if entry.CreatedAt.IsZero() {
		createdAt = s.now().UTC()
	}
	record := &activityEntryRecord{
		ID:        id,
		Space:     space,
		Code:      entry.Code,
		Action:    strings.TrimSpace(string(entry.Action)),
		Status:    strings.TrimSpace(string(entry.Status)),
		Metadata:  copyAnyMap(entry.Metadata),
		CreatedAt: createdAt,
	}
	if record.Action == "" {
		record.Action = string(core.ActivityActionDeliver)
	}
	if record.Status == "" {
		record.Status = string(core.ActivityStatusOK)
	}

	_, err := s.repo.Create(ctx, record)
	return err
}

func (s *ActivityStore) List(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error) {
	if s == nil || s.repo == nil {
		return core.ActivityPage{}, fmt.Errorf("sqlstore: activity store is not configured")
	}
	filter = core.NormalizeActivityFilter(filter)
	offset := (filter.Page - 1) * filter.PerPage

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(filter.PerPage, offset),
	}
	if filter.Space != "" {
		selectors = append(selectors, repository.SelectBy("space", "=", filter.Space))
	}
	if filter.Action != "" {
		selectors = append(selectors, repository.SelectBy("action", "=", string(filter.Action)))
	}
	if filter.Status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", string(filter.Status)))
	}
	if filter.Code != nil {
		code := *filter.Code
		selectors = append(selectors, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("code = ?", code)
		}))
	}
	if filter.From != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", ">=", filter.From.UTC()))
	}
	if filter.To != nil {
		selectors = append(selectors, repository.SelectByTimetz("created_at", "<=", filter.To.UTC()))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.ActivityPage{}, err
	}
	items := make([]core.ActivityEntry, 0, len(records))
	for _, record := range records {
		items = append(items, activityRecordToDomain(record))
	}
	hasNext := offset+len(items) < total
	nextCursor := ""
	if hasNext {
		nextCursor = strconv.Itoa(offset + len(items))
	}
	return core.ActivityPage{
		Items:      items,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		Total:      total,
		HasNext:    hasNext,
		NextCursor: nextCursor,
	}, nil
}

func (s *ActivityStore) Prune(ctx context.Context, policy core.ActivityRetentionPolicy) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: activity store is not configured")
	}
	deleted := 0

	if policy.TTL > 0 {
		cutoff := s.now().UTC().Add(-policy.TTL)
		res, err := s.db.NewDelete().
			Model((*activityEntryRecord)(nil)).
			Where("created_at < ?", cutoff).
			Exec(ctx)
		if err != nil {
			return deleted, err
		}
		affected, _ := res.RowsAffected()
		deleted += int(affected)
	}

	if policy.RowCap > 0 {
		total, err := s.db.NewSelect().Model((*activityEntryRecord)(nil)).Count(ctx)
		if err != nil {
			return deleted, err
		}
		excess := total - policy.RowCap
		if excess > 0 {
			res, err := s.db.NewRaw(
				"DELETE FROM dispatch_activity_entries WHERE id IN (SELECT id FROM dispatch_activity_entries ORDER BY created_at ASC LIMIT ?)",
				excess,
			).Exec(ctx)
			if err != nil {
				return deleted, err
			}
			affected, _ := res.RowsAffected()
			deleted += int(affected)
		}
	}

	return deleted, nil
}

// CountByAction returns the number of recorded entries per action. An
// empty space counts across both spaces.
func (s *ActivityStore) CountByAction(ctx context.Context, space string) (map[string]int, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: activity store is not configured")
	}
	var rows []actionCountRow
	query := s.db.NewSelect().
		Model((*activityEntryRecord)(nil)).
		Column("action").
		ColumnExpr("COUNT(*) AS total").
		GroupExpr("action")
	if name := core.NormalizeSpace(space); name != "" {
		query = query.Where("space = ?", name)
	}
	if err := query.Scan(ctx, &rows); err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Action] = row.Total
	}
	return counts, nil
}

func activityRecordToDomain(record *activityEntryRecord) core.ActivityEntry {
	if record == nil {
		return core.ActivityEntry{}
	}
	return core.ActivityEntry{
		ID:        record.ID,
		Space:     record.Space,
		Code:      record.Code,
		Action:    core.ActivityAction(record.Action),
		Status:    core.ActivityStatus(record.Status),
		Metadata:  copyAnyMap(record.Metadata),
		CreatedAt: record.CreatedAt,
	}
}

func copyAnyMap(input map[string]any) map[string]any {
	out := make(map[string]any, len(input))
	maps.Copy(out, input)
	return out
}
