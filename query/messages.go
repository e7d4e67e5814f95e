package query

import (
	"strings"

	"github.com/goliatone/go-dispatcher/core"
)

const (
	TypeIsPending      = "dispatcher.query.code.pending"
	TypeSpaceStats     = "dispatcher.query.space.stats"
	TypeListActivity   = "dispatcher.query.activity.list"
	TypeActivityCounts = "dispatcher.query.activity.counts"
)

type IsPendingMessage struct {
	Space string
	Code  int
}

func (IsPendingMessage) Type() string { return TypeIsPending }

func (m IsPendingMessage) Validate() error {
	if strings.TrimSpace(m.Space) == "" {
		return queryValidationError("space", "space is required")
	}
	return nil
}

type SpaceStatsMessage struct {
	Space string
}

func (SpaceStatsMessage) Type() string { return TypeSpaceStats }

func (m SpaceStatsMessage) Validate() error {
	if strings.TrimSpace(m.Space) == "" {
		return queryValidationError("space", "space is required")
	}
	return nil
}

type ListActivityMessage struct {
	Filter core.ActivityFilter
}

func (ListActivityMessage) Type() string { return TypeListActivity }

func (m ListActivityMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	if m.Filter.From != nil && m.Filter.To != nil && m.Filter.From.After(*m.Filter.To) {
		return queryValidationError("from", "from must not be after to")
	}
	return nil
}

// ActivityCountsMessage asks for per-action totals. Space may be empty.
type ActivityCountsMessage struct {
	Space string
}

func (ActivityCountsMessage) Type() string { return TypeActivityCounts }

func (m ActivityCountsMessage) Validate() error {
	return nil
}
