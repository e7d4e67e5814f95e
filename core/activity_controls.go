package core

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// OperationalActivitySink hands activity entries to a background writer so
// a register or deliver call never waits on the primary sink.
//
// Entries that cannot be handed over go to the fallback sink: the queue is
// full, the sink is closed, or the primary rejected the entry. Without a
// fallback they are counted by Dropped and discarded.
type OperationalActivitySink struct {
	primary  ActivitySink
	fallback ActivitySink
	policy   ActivityRetentionPolicy
	pruner   ActivityRetentionPruner
	now      func() time.Time

	// mu guards closed and the queue send; Close holds it exclusively so no
	// Record can send on a closed queue.
	mu     sync.RWMutex
	closed bool
	queue  chan ActivityEntry
	done   chan struct{}

	dropped atomic.Int64
}

func NewOperationalActivitySink(
	primary ActivitySink,
	fallback ActivitySink,
	policy ActivityRetentionPolicy,
	bufferSize int,
) (*OperationalActivitySink, error) {
	if primary == nil {
		return nil, fmt.Errorf("core: primary activity sink is required")
	}
	if bufferSize <= 0 {
		bufferSize = DefaultActivityBufferSize
	}

	sink := &OperationalActivitySink{
		primary:  primary,
		fallback: fallback,
		policy:   policy,
		now:      time.Now,
		queue:    make(chan ActivityEntry, bufferSize),
		done:     make(chan struct{}),
	}
	if pruner, ok := primary.(ActivityRetentionPruner); ok {
		sink.pruner = pruner
	}

	go sink.writer()
	return sink, nil
}

func (s *OperationalActivitySink) Record(ctx context.Context, entry ActivityEntry) error {
	if s == nil || s.primary == nil {
		return fmt.Errorf("core: operational activity sink is not configured")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	if s.enqueue(entry) {
		return nil
	}
	return s.divert(ctx, entry)
}

func (s *OperationalActivitySink) enqueue(entry ActivityEntry) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false
	}
	select {
	case s.queue <- entry:
		return true
	default:
		return false
	}
}

func (s *OperationalActivitySink) divert(ctx context.Context, entry ActivityEntry) error {
	if s.fallback == nil {
		s.dropped.Add(1)
		return nil
	}
	return s.fallback.Record(ctx, entry)
}

// Dropped reports how many entries were discarded because neither the
// primary nor a fallback sink could take them.
func (s *OperationalActivitySink) Dropped() int64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

func (s *OperationalActivitySink) List(ctx context.Context, filter ActivityFilter) (ActivityPage, error) {
	if s == nil || s.primary == nil {
		return ActivityPage{}, fmt.Errorf("core: operational activity sink is not configured")
	}
	return s.primary.List(ctx, filter)
}

func (s *OperationalActivitySink) EnforceRetention(ctx context.Context) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: operational activity sink is not configured")
	}
	if s.pruner == nil {
		return 0, nil
	}
	return s.pruner.Prune(ctx, s.policy)
}

// Close flushes queued entries to the primary and returns once the writer
// has exited. Records after Close go straight to the fallback.
func (s *OperationalActivitySink) Close() {
	if s == nil {
		return
	}
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	<-s.done
}

func (s *OperationalActivitySink) writer() {
	defer close(s.done)
	for entry := range s.queue {
		if err := s.primary.Record(context.Background(), entry); err != nil {
			_ = s.divert(context.Background(), entry)
		}
	}
}
