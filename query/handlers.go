package query

import (
	"context"

	"github.com/goliatone/go-dispatcher/core"
)

type PendingReader interface {
	IsPending(ctx context.Context, space string, code int) (bool, error)
}

type SpaceStatsReader interface {
	SpaceStats(ctx context.Context, space string) (core.SpaceStats, error)
}

type ActivityReader interface {
	ListActivity(ctx context.Context, filter core.ActivityFilter) (core.ActivityPage, error)
}

// ActivityCounter reports recorded entries per action; an empty space
// counts both spaces.
type ActivityCounter interface {
	CountByAction(ctx context.Context, space string) (map[string]int, error)
}

type IsPendingQuery struct {
	reader PendingReader
}

func NewIsPendingQuery(reader PendingReader) *IsPendingQuery {
	return &IsPendingQuery{reader: reader}
}

func (q *IsPendingQuery) Query(ctx context.Context, msg IsPendingMessage) (bool, error) {
	if q == nil || q.reader == nil {
		return false, queryDependencyError("query: pending reader is required")
	}
	return q.reader.IsPending(ctx, msg.Space, msg.Code)
}

type SpaceStatsQuery struct {
	reader SpaceStatsReader
}

func NewSpaceStatsQuery(reader SpaceStatsReader) *SpaceStatsQuery {
	return &SpaceStatsQuery{reader: reader}
}

func (q *SpaceStatsQuery) Query(ctx context.Context, msg SpaceStatsMessage) (core.SpaceStats, error) {
	if q == nil || q.reader == nil {
		return core.SpaceStats{}, queryDependencyError("query: space stats reader is required")
	}
	return q.reader.SpaceStats(ctx, msg.Space)
}

type ListActivityQuery struct {
	reader ActivityReader
}

func NewListActivityQuery(reader ActivityReader) *ListActivityQuery {
	return &ListActivityQuery{reader: reader}
}

func (q *ListActivityQuery) Query(ctx context.Context, msg ListActivityMessage) (core.ActivityPage, error) {
	if q == nil || q.reader == nil {
		return core.ActivityPage{}, queryDependencyError("query: activity reader is required")
	}
	return q.reader.ListActivity(ctx, msg.Filter)
}

type ActivityCountsQuery struct {
	counter ActivityCounter
}

func NewActivityCountsQuery(counter ActivityCounter) *ActivityCountsQuery {
	return &ActivityCountsQuery{counter: counter}
}

func (q *ActivityCountsQuery) Query(ctx context.Context, msg ActivityCountsMessage) (map[string]int, error) {
	if q == nil || q.counter == nil {
		return nil, queryDependencyError("query: activity counter is required")
	}
	return q.counter.CountByAction(ctx, msg.Space)
}
