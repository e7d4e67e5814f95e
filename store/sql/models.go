package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type activityEntryRecord struct {
	bun.BaseModel `bun:"table:dispatch_activity_entries,alias:dae"`

	ID        string         `bun:"id,pk"`
	Space     string         `bun:"space,notnull"`
	Code      int            `bun:"code,notnull"`
	Action    string         `bun:"action,notnull"`
	Status    string         `bun:"status,notnull"`
	Metadata  map[string]any `bun:"metadata,type:jsonb,notnull"`
	CreatedAt time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

type actionCountRow struct {
	Action string `bun:"action"`
	Total  int    `bun:"total"`
}
