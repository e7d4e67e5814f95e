package gojob

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-dispatcher/adapters/gologger"
	"github.com/goliatone/go-dispatcher/core"

	job "github.com/goliatone/go-job"
	"github.com/goliatone/go-job/queue"
	"github.com/goliatone/go-job/queue/worker"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	JobIDDeliverActivityResult   = "dispatcher.activity_result.deliver"
	JobIDDeliverPermissionResult = "dispatcher.permission_result.deliver"
)

const (
	ParamSpace        = "space"
	ParamCode         = "code"
	ParamResultCode   = "result_code"
	ParamData         = "data"
	ParamGranted      = "granted"
	ParamGrantResults = "grant_results"
)

// ErrMalformedMessage marks execution messages that can never be delivered.
var ErrMalformedMessage = errors.New("gojob: malformed delivery message")

// Deliverer routes a decoded result into its correlation space.
type Deliverer interface {
	Deliver(ctx context.Context, delivery core.Delivery) (core.DeliveryOutcome, error)
}

// RetryPolicy defines queue retry bounds to avoid unbounded retry loops.
type RetryPolicy struct {
	MaxAttempts     int
	MaxDelay        time.Duration
	DeadLetterOnMax bool
}

// NormalizeAttempt enforces bounded retry behavior for a nack operation.
func (p RetryPolicy) NormalizeAttempt(opts queue.NackOptions, attempt int) queue.NackOptions {
	out := opts
	out.Reason = strings.TrimSpace(out.Reason)
	if out.Delay < 0 {
		out.Delay = 0
	}
	if p.MaxDelay > 0 && out.Delay > p.MaxDelay {
		out.Delay = p.MaxDelay
	}
	if out.DeadLetter {
		out.Requeue = false
	}
	if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
		out.Requeue = false
		if p.DeadLetterOnMax || out.DeadLetter {
			out.DeadLetter = true
		}
	}
	if !out.Requeue && !out.DeadLetter {
		out.Requeue = true
	}
	return out
}

// JobIDForSpace returns the job id carrying results for space.
func JobIDForSpace(space string) (string, error) {
	switch core.NormalizeSpace(space) {
	case core.SpaceActivity:
		return JobIDDeliverActivityResult, nil
	case core.SpacePermission:
		return JobIDDeliverPermissionResult, nil
	default:
		return "", &core.UnknownSpaceError{Space: space}
	}
}

// ToExecutionMessage encodes a delivery as a go-job execution message.
// Parameters only hold JSON-safe values so the message survives any queue
// storage backend.
func ToExecutionMessage(delivery core.Delivery) (*job.ExecutionMessage, error) {
	jobID, err := JobIDForSpace(delivery.Space)
	if err != nil {
		return nil, err
	}
	params := map[string]any{
		ParamSpace: core.NormalizeSpace(delivery.Space),
		ParamCode:  delivery.Code,
	}
	switch jobID {
	case JobIDDeliverActivityResult:
		params[ParamResultCode] = delivery.ResultCode
		if delivery.Data != nil {
			params[ParamData] = base64.StdEncoding.EncodeToString(delivery.Data)
		}
	case JobIDDeliverPermissionResult:
		params[ParamGranted] = delivery.Granted
		// An empty vector still resolves the request, so only nil is omitted.
		if delivery.GrantResults != nil {
			params[ParamGrantResults] = append(make([]int, 0, len(delivery.GrantResults)), delivery.GrantResults...)
		}
	}
	return &job.ExecutionMessage{
		JobID:      jobID,
		ScriptPath: jobID,
		Parameters: params,
	}, nil
}

// FromExecutionMessage decodes a go-job execution message into a delivery.
// Failures wrap ErrMalformedMessage.
func FromExecutionMessage(msg *job.ExecutionMessage) (core.Delivery, error) {
	if msg == nil {
		return core.Delivery{}, fmt.Errorf("%w: message is required", ErrMalformedMessage)
	}
	space := core.NormalizeSpace(stringParam(msg.Parameters, ParamSpace))
	if space == "" {
		switch strings.TrimSpace(msg.JobID) {
		case JobIDDeliverActivityResult:
			space = core.SpaceActivity
		case JobIDDeliverPermissionResult:
			space = core.SpacePermission
		}
	}
	if _, err := JobIDForSpace(space); err != nil {
		return core.Delivery{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	code, ok := intParam(msg.Parameters, ParamCode)
	if !ok {
		return core.Delivery{}, fmt.Errorf("%w: code is required", ErrMalformedMessage)
	}

	delivery := core.Delivery{Space: space, Code: code}
	switch space {
	case core.SpaceActivity:
		resultCode, ok := intParam(msg.Parameters, ParamResultCode)
		if !ok {
			return core.Delivery{}, fmt.Errorf("%w: result_code is required", ErrMalformedMessage)
		}
		delivery.ResultCode = resultCode
		data, err := bytesParam(msg.Parameters, ParamData)
		if err != nil {
			return core.Delivery{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		delivery.Data = data
	case core.SpacePermission:
		delivery.Granted = boolParam(msg.Parameters, ParamGranted)
		results, err := intsParam(msg.Parameters, ParamGrantResults)
		if err != nil {
			return core.Delivery{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		delivery.GrantResults = results
	}
	return delivery, nil
}

type EnqueuerAdapter struct {
	enqueuer queue.Enqueuer
}

func NewEnqueuerAdapter(enqueuer queue.Enqueuer) *EnqueuerAdapter {
	return &EnqueuerAdapter{enqueuer: enqueuer}
}

// Enqueue publishes a result for asynchronous delivery.
func (a *EnqueuerAdapter) Enqueue(ctx context.Context, delivery core.Delivery) error {
	if a == nil || a.enqueuer == nil {
		return fmt.Errorf("gojob: enqueuer is not configured")
	}
	msg, err := ToExecutionMessage(delivery)
	if err != nil {
		return err
	}
	return a.enqueuer.Enqueue(ctx, msg)
}

type WorkerOption func(*DeliveryWorker)

func WithRetryPolicy(policy RetryPolicy) WorkerOption {
	return func(w *DeliveryWorker) {
		w.policy = policy
	}
}

func WithLogger(logger glog.Logger) WorkerOption {
	return func(w *DeliveryWorker) {
		w.logger = logger
	}
}

func WithLoggerProvider(provider glog.LoggerProvider) WorkerOption {
	return func(w *DeliveryWorker) {
		w.loggerProvider = provider
	}
}

// DeliveryWorker consumes queued results and hands them to a Deliverer.
type DeliveryWorker struct {
	deliverer      Deliverer
	policy         RetryPolicy
	logger         glog.Logger
	loggerProvider glog.LoggerProvider
}

func NewDeliveryWorker(deliverer Deliverer, opts ...WorkerOption) *DeliveryWorker {
	w := &DeliveryWorker{deliverer: deliverer}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	loggers := gologger.ResolveForJob(gologger.DefaultJobLoggerName, w.loggerProvider, w.logger)
	w.loggerProvider = loggers.Provider
	w.logger = loggers.Logger
	return w
}

func (w *DeliveryWorker) Policy() RetryPolicy {
	if w == nil {
		return RetryPolicy{}
	}
	return w.policy
}

// Process delivers one queued result on its first attempt.
func (w *DeliveryWorker) Process(ctx context.Context, delivery queue.Delivery) (core.DeliveryOutcome, error) {
	return w.ProcessAttempt(ctx, delivery, 1)
}

// ProcessAttempt decodes, delivers and acks. A delivery for a code that is no
// longer pending is acked like any other. Malformed messages are dead
// lettered; deliverer failures are nacked through the retry policy.
func (w *DeliveryWorker) ProcessAttempt(ctx context.Context, delivery queue.Delivery, attempt int) (core.DeliveryOutcome, error) {
	if w == nil || w.deliverer == nil {
		return core.DeliveryOutcome{}, fmt.Errorf("gojob: deliverer is not configured")
	}
	if delivery == nil {
		return core.DeliveryOutcome{}, fmt.Errorf("gojob: delivery is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	msg := delivery.Message()
	decoded, err := FromExecutionMessage(msg)
	if err != nil {
		w.logger.Warn("queued result rejected", "job_id", jobID(msg), "attempt", attempt, "error", err)
		nackErr := delivery.Nack(ctx, w.policy.NormalizeAttempt(queue.NackOptions{
			DeadLetter: true,
			Reason:     err.Error(),
		}, attempt))
		return core.DeliveryOutcome{}, errors.Join(err, nackErr)
	}

	outcome, err := w.deliverer.Deliver(ctx, decoded)
	if err != nil {
		w.logger.Error("queued result delivery failed", "job_id", jobID(msg), "space", decoded.Space, "code", decoded.Code, "attempt", attempt, "error", err)
		nackErr := delivery.Nack(ctx, w.policy.NormalizeAttempt(queue.NackOptions{
			Requeue: true,
			Reason:  err.Error(),
		}, attempt))
		return core.DeliveryOutcome{}, errors.Join(err, nackErr)
	}
	if err := delivery.Ack(ctx); err != nil {
		return outcome, err
	}
	w.logger.Debug("queued result processed", "job_id", jobID(msg), "space", outcome.Space, "code", outcome.Code, "delivered", outcome.Delivered)
	return outcome, nil
}

// ProcessNext dequeues and processes a single message.
func (w *DeliveryWorker) ProcessNext(ctx context.Context, dequeuer queue.Dequeuer) (core.DeliveryOutcome, error) {
	if dequeuer == nil {
		return core.DeliveryOutcome{}, fmt.Errorf("gojob: dequeuer is not configured")
	}
	delivery, err := dequeuer.Dequeue(ctx)
	if err != nil {
		return core.DeliveryOutcome{}, err
	}
	return w.Process(ctx, delivery)
}

// WorkerHookAdapter reports go-job worker lifecycle events through the
// dispatcher logger and metrics recorder.
type WorkerHookAdapter struct {
	logger  glog.Logger
	metrics core.MetricsRecorder
}

func NewWorkerHookAdapter(logger glog.Logger, metrics core.MetricsRecorder) *WorkerHookAdapter {
	_, resolved := gologger.Resolve(gologger.DefaultJobLoggerName, nil, logger)
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &WorkerHookAdapter{logger: resolved, metrics: metrics}
}

func (a *WorkerHookAdapter) OnStart(ctx context.Context, event worker.Event) {
	a.observe(ctx, "start", event)
}

func (a *WorkerHookAdapter) OnSuccess(ctx context.Context, event worker.Event) {
	a.observe(ctx, "success", event)
}

func (a *WorkerHookAdapter) OnFailure(ctx context.Context, event worker.Event) {
	a.observe(ctx, "failure", event)
}

func (a *WorkerHookAdapter) OnRetry(ctx context.Context, event worker.Event) {
	a.observe(ctx, "retry", event)
}

func (a *WorkerHookAdapter) observe(ctx context.Context, phase string, event worker.Event) {
	if a == nil {
		return
	}
	message := event.Message
	if message == nil && event.Delivery != nil {
		message = event.Delivery.Message()
	}
	id := jobID(message)
	args := []any{
		"job_id", id,
		"attempt", event.Attempt,
		"duration_ms", core.DurationMillis(event.Duration),
	}
	if event.Delay > 0 {
		args = append(args, "delay_ms", core.DurationMillis(event.Delay))
	}
	if event.Err != nil {
		args = append(args, "error", event.Err.Error())
	}

	switch phase {
	case "failure":
		a.logger.Error("dispatcher job failed", args...)
	case "retry":
		a.logger.Warn("dispatcher job retrying", args...)
	default:
		a.logger.Debug("dispatcher job "+phase, args...)
	}

	tags := map[string]string{"job_id": id, "phase": phase}
	a.metrics.IncCounter(ctx, "dispatcher.job."+phase+".total", 1, tags)
	if phase == "success" || phase == "failure" {
		a.metrics.ObserveHistogram(ctx, "dispatcher.job.duration_ms", core.DurationMillis(event.Duration), tags)
	}
}

func jobID(msg *job.ExecutionMessage) string {
	if msg == nil {
		return ""
	}
	return strings.TrimSpace(msg.JobID)
}

func stringParam(params map[string]any, key string) string {
	value, ok := params[key]
	if !ok || value == nil {
		return ""
	}
	if text, ok := value.(string); ok {
		return text
	}
	return fmt.Sprint(value)
}

func intParam(params map[string]any, key string) (int, bool) {
	value, ok := params[key]
	if !ok || value == nil {
		return 0, false
	}
	return toInt(value)
}

func toInt(value any) (int, bool) {
	switch typed := value.(type) {
	case int:
		return typed, true
	case int32:
		return int(typed), true
	case int64:
		return int(typed), true
	case float64:
		if typed != float64(int(typed)) {
			return 0, false
		}
		return int(typed), true
	case json.Number:
		parsed, err := typed.Int64()
		if err != nil {
			return 0, false
		}
		return int(parsed), true
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(typed))
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

func boolParam(params map[string]any, key string) bool {
	switch typed := params[key].(type) {
	case bool:
		return typed
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(typed))
		return parsed
	default:
		return false
	}
}

func bytesParam(params map[string]any, key string) ([]byte, error) {
	switch typed := params[key].(type) {
	case nil:
		return nil, nil
	case []byte:
		return append([]byte(nil), typed...), nil
	case string:
		data, err := base64.StdEncoding.DecodeString(typed)
		if err != nil {
			return nil, fmt.Errorf("%s is not base64: %w", key, err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%s has unsupported type %T", key, typed)
	}
}

func intsParam(params map[string]any, key string) ([]int, error) {
	switch typed := params[key].(type) {
	case nil:
		return nil, nil
	case []int:
		return append(make([]int, 0, len(typed)), typed...), nil
	case []any:
		out := make([]int, 0, len(typed))
		for _, item := range typed {
			value, ok := toInt(item)
			if !ok {
				return nil, fmt.Errorf("%s holds non-integer %v", key, item)
			}
			out = append(out, value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s has unsupported type %T", key, typed)
	}
}

var (
	_ Deliverer   = (*core.Service)(nil)
	_ worker.Hook = (*WorkerHookAdapter)(nil)
)
