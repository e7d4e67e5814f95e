package sqlstore

import "github.com/goliatone/go-dispatcher/core"

var (
	_ core.ActivitySink            = (*ActivityStore)(nil)
	_ core.ActivityRetentionPruner = (*ActivityStore)(nil)
	_ ActionCounter                = (*ActivityStore)(nil)
	_ ActionCounter                = (*CachedActivityCounter)(nil)
	_ core.ActivitySink            = (*CachedActivityCounter)(nil)
	_ core.ActivityRetentionPruner = (*CachedActivityCounter)(nil)
)
