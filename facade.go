package dispatcher

import (
	"fmt"

	dispatchcommand "github.com/goliatone/go-dispatcher/command"
	dispatchquery "github.com/goliatone/go-dispatcher/query"
)

type CommandQueryService interface {
	dispatchcommand.DeliveryService
	dispatchcommand.ReclaimService
	dispatchquery.PendingReader
	dispatchquery.SpaceStatsReader
}

type Commands struct {
	DeliverActivityResult   *dispatchcommand.DeliverActivityResultCommand
	DeliverPermissionResult *dispatchcommand.DeliverPermissionResultCommand
	ReclaimCode             *dispatchcommand.ReclaimCodeCommand
}

type Queries struct {
	IsPending    *dispatchquery.IsPendingQuery
	SpaceStats   *dispatchquery.SpaceStatsQuery
	ListActivity *dispatchquery.ListActivityQuery

	// ActivityCounts fails with a dependency error unless a counter is set.
	ActivityCounts *dispatchquery.ActivityCountsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	activityReader  dispatchquery.ActivityReader
	activityCounter dispatchquery.ActivityCounter
}

// WithActivityReader serves the activity query from reader instead of the
// service, e.g. straight from a SQL activity store.
func WithActivityReader(reader dispatchquery.ActivityReader) FacadeOption {
	return func(options *facadeOptions) {
		options.activityReader = reader
	}
}

// WithActivityCounter backs the activity counts query, e.g. with a cached
// SQL counter.
func WithActivityCounter(counter dispatchquery.ActivityCounter) FacadeOption {
	return func(options *facadeOptions) {
		options.activityCounter = counter
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("dispatcher: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.activityReader
	if reader == nil {
		reader, _ = service.(dispatchquery.ActivityReader)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		DeliverActivityResult:   dispatchcommand.NewDeliverActivityResultCommand(service),
		DeliverPermissionResult: dispatchcommand.NewDeliverPermissionResultCommand(service),
		ReclaimCode:             dispatchcommand.NewReclaimCodeCommand(service),
	}
	facade.queries = Queries{
		IsPending:      dispatchquery.NewIsPendingQuery(service),
		SpaceStats:     dispatchquery.NewSpaceStatsQuery(service),
		ListActivity:   dispatchquery.NewListActivityQuery(reader),
		ActivityCounts: dispatchquery.NewActivityCountsQuery(cfg.activityCounter),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}

var _ CommandQueryService = (*Service)(nil)
