package core

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type spaceEvent struct {
	space     string
	code      int
	action    ActivityAction
	startedAt time.Time
	err       error
	recovered any
}

type spaceObserver interface {
	observeSpaceEvent(ctx context.Context, event spaceEvent)
}

// Space is the dispatch facade for one correlation space. P is the payload
// shape delivered to callbacks registered in this space.
type Space[P any] struct {
	registry *CallbackRegistry[Callback[P]]
	observer spaceObserver
}

func NewSpace[P any](name string, bound int, generator Generator) (*Space[P], error) {
	registry, err := NewCallbackRegistry[Callback[P]](name, bound, generator)
	if err != nil {
		return nil, err
	}
	return &Space[P]{registry: registry}, nil
}

// RegisterCallback stores callback and returns the request code the caller
// must thread through the asynchronous operation. The only runtime failure
// is an exhausted space.
func (s *Space[P]) RegisterCallback(ctx context.Context, callback Callback[P]) (int, error) {
	if s == nil || s.registry == nil {
		return 0, fmt.Errorf("core: dispatch space is not configured")
	}
	if callback == nil {
		return 0, badInputError("core: callback is required", map[string]any{"space": s.registry.Name()})
	}
	startedAt := time.Now().UTC()
	code, err := s.registry.Register(callback)
	if err != nil {
		action := ActivityActionRegister
		if errors.Is(err, ErrSpaceExhausted) {
			action = ActivityActionExhausted
		}
		s.notify(ctx, spaceEvent{space: s.registry.Name(), code: -1, action: action, startedAt: startedAt, err: err})
		return 0, err
	}
	s.notify(ctx, spaceEvent{space: s.registry.Name(), code: code, action: ActivityActionRegister, startedAt: startedAt})
	return code, nil
}

// Deliver resolves code with payload. Unknown, already delivered and
// reclaimed codes are ignored; Deliver never fails. The result reports
// whether a callback ran.
func (s *Space[P]) Deliver(ctx context.Context, code int, payload P) bool {
	if s == nil || s.registry == nil {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	startedAt := time.Now().UTC()
	callback, ok := s.registry.Consume(code)
	if !ok {
		s.notify(ctx, spaceEvent{space: s.registry.Name(), code: code, action: ActivityActionMiss, startedAt: startedAt})
		return false
	}

	if recovered := invokeCallback(ctx, callback, payload); recovered != nil {
		s.notify(ctx, spaceEvent{
			space:     s.registry.Name(),
			code:      code,
			action:    ActivityActionPanic,
			startedAt: startedAt,
			err:       fmt.Errorf("core: callback panicked: %v", recovered),
			recovered: recovered,
		})
		return true
	}
	s.notify(ctx, spaceEvent{space: s.registry.Name(), code: code, action: ActivityActionDeliver, startedAt: startedAt})
	return true
}

// Reclaim abandons code without running its callback, for callers that
// give up waiting on a result.
func (s *Space[P]) Reclaim(ctx context.Context, code int) bool {
	if s == nil || s.registry == nil {
		return false
	}
	startedAt := time.Now().UTC()
	reclaimed := s.registry.Reclaim(code)
	if reclaimed {
		s.notify(ctx, spaceEvent{space: s.registry.Name(), code: code, action: ActivityActionReclaim, startedAt: startedAt})
	}
	return reclaimed
}

func (s *Space[P]) Pending(code int) bool {
	if s == nil {
		return false
	}
	return s.registry.Occupied(code)
}

func (s *Space[P]) Stats() SpaceStats {
	if s == nil || s.registry == nil {
		return SpaceStats{}
	}
	return SpaceStats{
		Space:   s.registry.Name(),
		Bound:   s.registry.Bound(),
		Pending: s.registry.Len(),
	}
}

func (s *Space[P]) Name() string {
	if s == nil {
		return ""
	}
	return s.registry.Name()
}

func (s *Space[P]) notify(ctx context.Context, event spaceEvent) {
	if s.observer == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	s.observer.observeSpaceEvent(ctx, event)
}

func invokeCallback[P any](ctx context.Context, callback Callback[P], payload P) (recovered any) {
	defer func() {
		recovered = recover()
	}()
	callback(ctx, payload)
	return nil
}
