package gocommand

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	dispatchcommand "github.com/goliatone/go-dispatcher/command"
	"github.com/goliatone/go-dispatcher/core"
	dispatchquery "github.com/goliatone/go-dispatcher/query"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
)

const (
	// TypeNamespace prefixes every message type the bus accepts.
	TypeNamespace = "dispatcher."

	// QueueResolverKey names the registry resolver that mirrors wired
	// commands into a go-job queue registry.
	QueueResolverKey = "dispatcher.queue"
)

// Handlers is the set of dispatch handlers exposed on the command bus. Nil
// handlers are skipped.
type Handlers struct {
	DeliverActivityResult   command.Commander[dispatchcommand.DeliverActivityResultMessage]
	DeliverPermissionResult command.Commander[dispatchcommand.DeliverPermissionResultMessage]
	ReclaimCode             command.Commander[dispatchcommand.ReclaimCodeMessage]
	IsPending               command.Querier[dispatchquery.IsPendingMessage, bool]
	SpaceStats              command.Querier[dispatchquery.SpaceStatsMessage, core.SpaceStats]
	ListActivity            command.Querier[dispatchquery.ListActivityMessage, core.ActivityPage]
	ActivityCounts          command.Querier[dispatchquery.ActivityCountsMessage, map[string]int]
}

type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

type BusOption func(*Bus) error

// WithQueueRegistry mirrors every command wired on the bus into
// queueRegistry when the bus is initialized, so hosts can enqueue results
// for the gojob delivery worker instead of delivering inline.
func WithQueueRegistry(queueRegistry *jobqueuecommand.Registry) BusOption {
	return func(b *Bus) error {
		if queueRegistry == nil {
			return fmt.Errorf("gocommand: queue registry is required")
		}
		return b.registry.AddResolver(QueueResolverKey, jobqueuecommand.QueueResolver(queueRegistry))
	}
}

// Bus registers dispatch handlers in a go-command registry and subscribes
// them on the go-command dispatcher. A message type can be wired once per
// bus and must sit under TypeNamespace.
type Bus struct {
	registry *command.Registry

	mu    sync.Mutex
	types map[string]struct{}
}

func NewBus(registry *command.Registry, opts ...BusOption) (*Bus, error) {
	if registry == nil {
		registry = command.NewRegistry()
	}
	bus := &Bus{
		registry: registry,
		types:    map[string]struct{}{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(bus); err != nil {
			return nil, err
		}
	}
	return bus, nil
}

// Initialize runs the registry resolvers over every wired handler.
func (b *Bus) Initialize() error {
	if b == nil || b.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return b.registry.Initialize()
}

// Wire subscribes every handler in set, checking each message type before
// its handler is subscribed. On failure the subscriptions made so far are
// released and the bus should be discarded.
func (b *Bus) Wire(set Handlers, runnerOpts ...runner.Option) (Subscriptions, error) {
	if b == nil || b.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	steps := []func() (commanddispatcher.Subscription, error){}
	if set.DeliverActivityResult != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return Subscribe(b, set.DeliverActivityResult, runnerOpts...)
		})
	}
	if set.DeliverPermissionResult != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return Subscribe(b, set.DeliverPermissionResult, runnerOpts...)
		})
	}
	if set.ReclaimCode != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return Subscribe(b, set.ReclaimCode, runnerOpts...)
		})
	}
	if set.IsPending != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return SubscribeQuery(b, set.IsPending, runnerOpts...)
		})
	}
	if set.SpaceStats != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return SubscribeQuery(b, set.SpaceStats, runnerOpts...)
		})
	}
	if set.ListActivity != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return SubscribeQuery(b, set.ListActivity, runnerOpts...)
		})
	}
	if set.ActivityCounts != nil {
		steps = append(steps, func() (commanddispatcher.Subscription, error) {
			return SubscribeQuery(b, set.ActivityCounts, runnerOpts...)
		})
	}

	subscriptions := Subscriptions{}
	for _, step := range steps {
		subscription, err := step()
		if err != nil {
			subscriptions.Unsubscribe()
			return nil, err
		}
		subscriptions = append(subscriptions, subscription)
	}
	return subscriptions, nil
}

// Subscribe registers cmd and subscribes it on the dispatcher.
func Subscribe[T any](b *Bus, cmd command.Commander[T], runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
	if b == nil || b.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	messageType, err := b.claim(messageTypeOf[T]())
	if err != nil {
		return nil, err
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := b.registry.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		b.release(messageType)
		return nil, err
	}
	return subscription, nil
}

// SubscribeQuery registers qry and subscribes it on the dispatcher.
func SubscribeQuery[T any, R any](b *Bus, qry command.Querier[T, R], runnerOpts ...runner.Option) (commanddispatcher.Subscription, error) {
	if b == nil || b.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if qry == nil {
		return nil, fmt.Errorf("gocommand: query is required")
	}
	messageType, err := b.claim(messageTypeOf[T]())
	if err != nil {
		return nil, err
	}
	subscription := commanddispatcher.SubscribeQuery(qry, runnerOpts...)
	if err := b.registry.RegisterCommand(qry); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		b.release(messageType)
		return nil, err
	}
	return subscription, nil
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

func (b *Bus) claim(messageType string, err error) (string, error) {
	if err != nil {
		return "", err
	}
	messageType = strings.TrimSpace(messageType)
	if messageType == "" {
		return "", fmt.Errorf("gocommand: message type is required")
	}
	if !strings.HasPrefix(messageType, TypeNamespace) {
		return "", fmt.Errorf("gocommand: message type %q must start with %q", messageType, TypeNamespace)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, taken := b.types[messageType]; taken {
		return "", fmt.Errorf("gocommand: message type %q is already wired", messageType)
	}
	b.types[messageType] = struct{}{}
	return messageType, nil
}

func (b *Bus) release(messageType string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.types, messageType)
}

// messageTypeOf reads Type() from the zero value of T, allocating one when T
// is a pointer so value receivers do not dereference nil.
func messageTypeOf[T any]() (string, error) {
	var zero T
	value := any(zero)
	if typ := reflect.TypeOf(zero); typ != nil && typ.Kind() == reflect.Pointer {
		value = reflect.New(typ.Elem()).Interface()
	}
	msg, ok := value.(command.Message)
	if !ok {
		return "", fmt.Errorf("gocommand: %T must implement Type() string", zero)
	}
	return msg.Type(), nil
}
