package core

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// CallbackRegistry maps live request codes of one correlation space to the
// callbacks waiting on them. A code is live from Register until it is
// consumed or reclaimed; it never maps to more than one callback.
type CallbackRegistry[C any] struct {
	mu        sync.Mutex
	name      string
	bound     int
	generator Generator
	entries   map[int]C
}

func NewCallbackRegistry[C any](name string, bound int, generator Generator) (*CallbackRegistry[C], error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("core: registry name is required")
	}
	if bound <= 0 {
		return nil, ErrInvalidBound
	}
	if generator == nil {
		generator = NewRandomGenerator(DefaultMaxDrawAttempts)
	}
	return &CallbackRegistry[C]{
		name:      name,
		bound:     bound,
		generator: generator,
		entries:   map[int]C{},
	}, nil
}

// Register reserves a fresh code and stores callback under it. Generation
// runs under the same lock as the insert, so two concurrent registrations
// can never be handed the same code.
func (r *CallbackRegistry[C]) Register(callback C) (int, error) {
	if r == nil {
		return 0, fmt.Errorf("core: callback registry is not configured")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	code, err := r.generator.Generate(func(code int) bool {
		_, ok := r.entries[code]
		return ok
	}, r.bound)
	if err != nil {
		if errors.Is(err, ErrSpaceExhausted) {
			return 0, &SpaceExhaustedError{Space: r.name, Bound: r.bound}
		}
		return 0, err
	}
	if code < 0 || code >= r.bound {
		return 0, fmt.Errorf("core: generator returned code %d outside [0, %d)", code, r.bound)
	}
	if _, taken := r.entries[code]; taken {
		return 0, fmt.Errorf("core: generator returned occupied code %d", code)
	}
	r.entries[code] = callback
	return code, nil
}

// Consume removes and returns the callback for code. The second result is
// false when nothing was registered under code.
func (r *CallbackRegistry[C]) Consume(code int) (C, bool) {
	var zero C
	if r == nil {
		return zero, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	callback, ok := r.entries[code]
	if !ok {
		return zero, false
	}
	delete(r.entries, code)
	return callback, true
}

// Reclaim drops the callback for code without invoking it.
func (r *CallbackRegistry[C]) Reclaim(code int) bool {
	_, ok := r.Consume(code)
	return ok
}

func (r *CallbackRegistry[C]) Occupied(code int) bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[code]
	return ok
}

func (r *CallbackRegistry[C]) Len() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *CallbackRegistry[C]) Bound() int {
	if r == nil {
		return 0
	}
	return r.bound
}

func (r *CallbackRegistry[C]) Name() string {
	if r == nil {
		return ""
	}
	return r.name
}
