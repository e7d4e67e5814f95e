package fxmodule

import (
	"context"

	dispatcher "github.com/goliatone/go-dispatcher"
	"github.com/goliatone/go-dispatcher/adapters/gocommand"
	promadapter "github.com/goliatone/go-dispatcher/adapters/prometheus"
	"github.com/goliatone/go-dispatcher/core"
	sqlstore "github.com/goliatone/go-dispatcher/store/sql"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/bun"
	"go.uber.org/fx"
)

const (
	// OptionGroup collects core.Option values contributed by other modules.
	OptionGroup = "dispatcher_options"
	// FacadeOptionGroup collects dispatcher.FacadeOption values.
	FacadeOptionGroup = "dispatcher_facade_options"
)

type serviceParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Options   []core.Option `group:"dispatcher_options"`
}

type facadeParams struct {
	fx.In

	Service *core.Service
	Options []dispatcher.FacadeOption `group:"dispatcher_facade_options"`
}

// Module provides one shared *core.Service, its two spaces and the
// *dispatcher.Facade. The service is closed when the app stops.
func Module(cfg core.Config, opts ...core.Option) fx.Option {
	return fx.Module("dispatcher",
		fx.Provide(
			func(params serviceParams) (*core.Service, error) {
				all := append(append([]core.Option{}, opts...), params.Options...)
				svc, err := core.NewService(cfg, all...)
				if err != nil {
					return nil, err
				}
				params.Lifecycle.Append(fx.Hook{
					OnStop: func(context.Context) error {
						svc.Close()
						return nil
					},
				})
				return svc, nil
			},
			func(svc *core.Service) *core.Space[core.ActivityResult] {
				return svc.Activities()
			},
			func(svc *core.Service) *core.Space[core.PermissionResult] {
				return svc.Permissions()
			},
			func(params facadeParams) (*dispatcher.Facade, error) {
				return dispatcher.NewFacade(params.Service, params.Options...)
			},
		),
	)
}

// AsOption annotates constructor so its core.Option result joins OptionGroup.
func AsOption(constructor any) any {
	return fx.Annotate(constructor, fx.ResultTags(`group:"dispatcher_options"`))
}

// AsFacadeOption annotates constructor so its dispatcher.FacadeOption result
// joins FacadeOptionGroup.
func AsFacadeOption(constructor any) any {
	return fx.Annotate(constructor, fx.ResultTags(`group:"dispatcher_facade_options"`))
}

// CommandBus subscribes the facade handlers on the go-command dispatcher at
// start and unsubscribes them at stop. opts configure the bus, for example
// gocommand.WithQueueRegistry to mirror the handlers into a go-job queue.
func CommandBus(opts ...gocommand.BusOption) fx.Option {
	return fx.Invoke(func(lc fx.Lifecycle, facade *dispatcher.Facade) {
		var subscriptions gocommand.Subscriptions
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				commands := facade.Commands()
				queries := facade.Queries()
				bus, err := gocommand.NewBus(nil, opts...)
				if err != nil {
					return err
				}
				wired, err := bus.Wire(gocommand.Handlers{
					DeliverActivityResult:   commands.DeliverActivityResult,
					DeliverPermissionResult: commands.DeliverPermissionResult,
					ReclaimCode:             commands.ReclaimCode,
					IsPending:               queries.IsPending,
					SpaceStats:              queries.SpaceStats,
					ListActivity:            queries.ListActivity,
					ActivityCounts:          queries.ActivityCounts,
				})
				if err != nil {
					return err
				}
				if err := bus.Initialize(); err != nil {
					wired.Unsubscribe()
					return err
				}
				subscriptions = wired
				return nil
			},
			OnStop: func(context.Context) error {
				subscriptions.Unsubscribe()
				return nil
			},
		})
	})
}

// Prometheus provides a recorder registered on registerer, feeds it to the
// service and exports the pending callbacks collector.
func Prometheus(registerer prom.Registerer) fx.Option {
	return fx.Options(
		fx.Provide(
			func() (*promadapter.Recorder, error) {
				recorder := promadapter.NewRecorder()
				if err := recorder.Register(registerer); err != nil {
					return nil, err
				}
				return recorder, nil
			},
			AsOption(func(recorder *promadapter.Recorder) core.Option {
				return core.WithMetricsRecorder(recorder)
			}),
		),
		fx.Invoke(func(svc *core.Service) error {
			if registerer == nil {
				registerer = prom.DefaultRegisterer
			}
			return registerer.Register(promadapter.NewPendingCollector(svc))
		}),
	)
}

// SQLActivity persists activity entries in db through a cached counter. The
// entries are only recorded when the service config enables activity. A nil
// cacheService uses the go-repository-cache defaults.
func SQLActivity(db *bun.DB, cacheService repositorycache.CacheService) fx.Option {
	return fx.Options(
		fx.Provide(
			func() (*sqlstore.ActivityStore, error) {
				return sqlstore.NewActivityStore(db)
			},
			func(store *sqlstore.ActivityStore) (*sqlstore.CachedActivityCounter, error) {
				service := cacheService
				if service == nil {
					created, err := repositorycache.NewCacheService(repositorycache.DefaultConfig())
					if err != nil {
						return nil, err
					}
					service = created
				}
				return sqlstore.NewCachedActivityCounter(store, service)
			},
			AsOption(func(counter *sqlstore.CachedActivityCounter) core.Option {
				return core.WithActivitySink(counter)
			}),
			AsFacadeOption(func(counter *sqlstore.CachedActivityCounter) dispatcher.FacadeOption {
				return dispatcher.WithActivityCounter(counter)
			}),
		),
	)
}
