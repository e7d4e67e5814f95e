package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-dispatcher/core"
)

var (
	_ gocmd.Querier[IsPendingMessage, bool]                 = (*IsPendingQuery)(nil)
	_ gocmd.Querier[SpaceStatsMessage, core.SpaceStats]     = (*SpaceStatsQuery)(nil)
	_ gocmd.Querier[ListActivityMessage, core.ActivityPage] = (*ListActivityQuery)(nil)
	_ gocmd.Querier[ActivityCountsMessage, map[string]int]  = (*ActivityCountsQuery)(nil)
)
