package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultActivityPerPage        = 25
	defaultMemoryActivityCapacity = 1024
)

// MemoryActivitySink keeps the most recent entries in process. It is the
// default primary sink when activity recording is enabled without a store.
type MemoryActivitySink struct {
	mu       sync.Mutex
	entries  []ActivityEntry
	capacity int
	Now      func() time.Time
}

func NewMemoryActivitySink(capacity int) *MemoryActivitySink {
	if capacity <= 0 {
		capacity = defaultMemoryActivityCapacity
	}
	return &MemoryActivitySink{
		capacity: capacity,
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

func (s *MemoryActivitySink) Record(_ context.Context, entry ActivityEntry) error {
	if s == nil {
		return fmt.Errorf("core: memory activity sink is not configured")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}
	entry.Metadata = cloneFields(entry.Metadata)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	if overflow := len(s.entries) - s.capacity; overflow > 0 {
		s.entries = append([]ActivityEntry(nil), s.entries[overflow:]...)
	}
	return nil
}

// List returns matching entries newest first.
func (s *MemoryActivitySink) List(_ context.Context, filter ActivityFilter) (ActivityPage, error) {
	if s == nil {
		return ActivityPage{}, fmt.Errorf("core: memory activity sink is not configured")
	}
	filter = NormalizeActivityFilter(filter)

	s.mu.Lock()
	matched := make([]ActivityEntry, 0, len(s.entries))
	for index := len(s.entries) - 1; index >= 0; index-- {
		if entryMatches(s.entries[index], filter) {
			matched = append(matched, s.entries[index])
		}
	}
	s.mu.Unlock()

	offset := (filter.Page - 1) * filter.PerPage
	total := len(matched)
	if offset > total {
		offset = total
	}
	end := min(offset+filter.PerPage, total)
	items := make([]ActivityEntry, 0, end-offset)
	for _, entry := range matched[offset:end] {
		entry.Metadata = cloneFields(entry.Metadata)
		items = append(items, entry)
	}

	hasNext := end < total
	nextCursor := ""
	if hasNext {
		nextCursor = strconv.Itoa(end)
	}
	return ActivityPage{
		Items:      items,
		Page:       filter.Page,
		PerPage:    filter.PerPage,
		Total:      total,
		HasNext:    hasNext,
		NextCursor: nextCursor,
	}, nil
}

func (s *MemoryActivitySink) Prune(_ context.Context, policy ActivityRetentionPolicy) (int, error) {
	if s == nil {
		return 0, fmt.Errorf("core: memory activity sink is not configured")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.entries)
	if policy.TTL > 0 {
		cutoff := s.now().Add(-policy.TTL)
		kept := s.entries[:0]
		for _, entry := range s.entries {
			if !entry.CreatedAt.Before(cutoff) {
				kept = append(kept, entry)
			}
		}
		s.entries = kept
	}
	if policy.RowCap > 0 && len(s.entries) > policy.RowCap {
		s.entries = append([]ActivityEntry(nil), s.entries[len(s.entries)-policy.RowCap:]...)
	}
	return before - len(s.entries), nil
}

func (s *MemoryActivitySink) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryActivitySink) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NormalizeActivityFilter applies paging defaults and canonical space names.
func NormalizeActivityFilter(filter ActivityFilter) ActivityFilter {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = DefaultActivityPerPage
	}
	filter.Space = NormalizeSpace(filter.Space)
	filter.Action = ActivityAction(strings.TrimSpace(string(filter.Action)))
	filter.Status = ActivityStatus(strings.TrimSpace(string(filter.Status)))
	return filter
}

func entryMatches(entry ActivityEntry, filter ActivityFilter) bool {
	if filter.Space != "" && entry.Space != filter.Space {
		return false
	}
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.Status != "" && entry.Status != filter.Status {
		return false
	}
	if filter.Code != nil && entry.Code != *filter.Code {
		return false
	}
	if filter.From != nil && entry.CreatedAt.Before(filter.From.UTC()) {
		return false
	}
	if filter.To != nil && entry.CreatedAt.After(filter.To.UTC()) {
		return false
	}
	return true
}
