package adapters_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	"github.com/goliatone/go-dispatcher/adapters/gocommand"
	"github.com/goliatone/go-dispatcher/adapters/gojob"
	"github.com/goliatone/go-dispatcher/adapters/gologger"
	"github.com/goliatone/go-dispatcher/core"
	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"
	glog "github.com/goliatone/go-logger/glog"
)

func TestRuntimeCompatibility_GoJobGoCommandGoLogger(t *testing.T) {
	ctx := context.Background()

	provider := &compatProvider{logger: compatLogger{}}
	loggers := gologger.ResolveForJob("dispatcher", provider, nil)
	if loggers.JobProvider == nil || loggers.JobLogger == nil {
		t.Fatalf("expected go-job logger bridges")
	}

	enqueued := &compatEnqueuer{}
	enqueueAdapter := gojob.NewEnqueuerAdapter(enqueued)
	if err := enqueueAdapter.Enqueue(ctx, core.Delivery{
		Space:      core.SpaceActivity,
		Code:       1200,
		ResultCode: core.ResultOK,
		Data:       []byte("frame"),
	}); err != nil {
		t.Fatalf("enqueue via gojob adapter: %v", err)
	}
	if len(enqueued.messages) != 1 || enqueued.messages[0].JobID != gojob.JobIDDeliverActivityResult {
		t.Fatalf("expected go-job message mapping through enqueuer adapter")
	}

	queueRegistry := jobqueuecommand.NewRegistry()
	bus, err := gocommand.NewBus(command.NewRegistry(), gocommand.WithQueueRegistry(queueRegistry))
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	sub, err := gocommand.Subscribe(bus, command.CommandFunc[compatMessage](func(context.Context, compatMessage) error {
		return nil
	}))
	if err != nil {
		t.Fatalf("subscribe command: %v", err)
	}
	defer sub.Unsubscribe()
	if err := bus.Initialize(); err != nil {
		t.Fatalf("initialize command registry: %v", err)
	}
	if _, ok := queueRegistry.Get("dispatcher.compat.command"); !ok {
		t.Fatalf("expected command resolver hook to mirror command into go-job queue registry")
	}
}

// A command handler that defers delivery to a queue, drained by the
// delivery worker into the service.
func TestRuntimeCompatibility_CommandEnqueuesAndWorkerDelivers(t *testing.T) {
	ctx := context.Background()
	svc, err := core.NewService(core.DefaultConfig(), core.WithLogger(compatLogger{}))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	granted := make(chan bool, 1)
	code, err := svc.RegisterPermissionCallback(ctx, func(_ context.Context, result core.PermissionResult) {
		granted <- result.Granted
	})
	if err != nil {
		t.Fatalf("register permission callback: %v", err)
	}

	recorded := &compatEnqueuer{}
	enqueuer := gojob.NewEnqueuerAdapter(recorded)
	bus, err := gocommand.NewBus(command.NewRegistry())
	if err != nil {
		t.Fatalf("new bus: %v", err)
	}
	sub, err := gocommand.Subscribe(bus, command.CommandFunc[queuedPermissionMessage](func(ctx context.Context, msg queuedPermissionMessage) error {
		return enqueuer.Enqueue(ctx, core.Delivery{
			Space:        core.SpacePermission,
			Code:         msg.Code,
			GrantResults: msg.GrantResults,
		})
	}))
	if err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	if err := bus.Initialize(); err != nil {
		t.Fatalf("initialize bus: %v", err)
	}

	msg := queuedPermissionMessage{Code: code, GrantResults: []int{core.PermissionGranted, core.PermissionGranted}}
	if err := gocommand.Dispatch(ctx, msg); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if pending, err := svc.IsPending(ctx, core.SpacePermission, code); err != nil || !pending {
		t.Fatalf("expected code to stay pending until the worker runs, pending=%v err=%v", pending, err)
	}

	consumer := gojob.NewDeliveryWorker(svc, gojob.WithLoggerProvider(&compatProvider{logger: compatLogger{}}))
	for _, queued := range recorded.messages {
		outcome, err := consumer.Process(ctx, &compatDelivery{msg: queued})
		if err != nil {
			t.Fatalf("process: %v", err)
		}
		if !outcome.Delivered {
			t.Fatalf("expected queued result to reach the callback")
		}
	}
	select {
	case value := <-granted:
		if !value {
			t.Fatalf("expected all-granted reduction to be true")
		}
	default:
		t.Fatalf("expected permission callback to run")
	}
}

type compatMessage struct{}

func (compatMessage) Type() string { return "dispatcher.compat.command" }

type queuedPermissionMessage struct {
	Code         int
	GrantResults []int
}

func (queuedPermissionMessage) Type() string { return "dispatcher.compat.permission.enqueue" }

type compatEnqueuer struct {
	messages []*job.ExecutionMessage
}

func (e *compatEnqueuer) Enqueue(_ context.Context, msg *job.ExecutionMessage) error {
	e.messages = append(e.messages, msg)
	return nil
}

type compatDelivery struct {
	msg   *job.ExecutionMessage
	acked bool
}

func (d *compatDelivery) Message() *job.ExecutionMessage { return d.msg }

func (d *compatDelivery) Ack(context.Context) error {
	d.acked = true
	return nil
}

func (d *compatDelivery) Nack(context.Context, queue.NackOptions) error { return nil }

type compatProvider struct {
	logger glog.Logger
}

func (p *compatProvider) GetLogger(string) glog.Logger {
	if p == nil || p.logger == nil {
		return glog.Nop()
	}
	return p.logger
}

type compatLogger struct{}

func (compatLogger) Trace(string, ...any)                    {}
func (compatLogger) Debug(string, ...any)                    {}
func (compatLogger) Info(string, ...any)                     {}
func (compatLogger) Warn(string, ...any)                     {}
func (compatLogger) Error(string, ...any)                    {}
func (compatLogger) Fatal(string, ...any)                    {}
func (compatLogger) WithContext(context.Context) glog.Logger { return compatLogger{} }
