package core

import (
	"context"
	"testing"
	"time"
)

func TestOperationalActivitySink_NonBlockingFallbackWhenQueueIsFull(t *testing.T) {
	primary := &blockingActivitySink{block: make(chan struct{})}
	fallback := &bufferCapturingActivitySink{}
	sink, err := NewOperationalActivitySink(primary, fallback, ActivityRetentionPolicy{}, 1)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer func() {
		close(primary.block)
		sink.Close()
	}()

	if err := sink.Record(context.Background(), ActivityEntry{ID: "a", Action: ActivityActionRegister}); err != nil {
		t.Fatalf("record first: %v", err)
	}

	start := time.Now()
	for _, id := range []string{"b", "c"} {
		if err := sink.Record(context.Background(), ActivityEntry{ID: id, Action: ActivityActionDeliver}); err != nil {
			t.Fatalf("record %s: %v", id, err)
		}
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("expected non-blocking fallback write")
	}

	waitFor(t, func() bool { return len(fallback.snapshot()) > 0 }, "expected fallback sink to capture saturated write")
}

func TestOperationalActivitySink_FallbackOnPrimaryError(t *testing.T) {
	fallback := &bufferCapturingActivitySink{}
	sink, err := NewOperationalActivitySink(errorActivitySink{}, fallback, ActivityRetentionPolicy{}, 4)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()

	if err := sink.Record(context.Background(), ActivityEntry{ID: "x", Action: ActivityActionMiss}); err != nil {
		t.Fatalf("record: %v", err)
	}
	waitFor(t, func() bool { return len(fallback.snapshot()) == 1 }, "expected fallback write after primary failure")
}

func TestOperationalActivitySink_CloseDrainsQueue(t *testing.T) {
	primary := &bufferCapturingActivitySink{}
	sink, err := NewOperationalActivitySink(primary, nil, ActivityRetentionPolicy{}, 8)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	for range 5 {
		if err := sink.Record(context.Background(), ActivityEntry{Action: ActivityActionRegister}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	sink.Close()
	sink.Close()

	entries := primary.snapshot()
	if len(entries) != 5 {
		t.Fatalf("expected queued entries to be flushed on close, got %d", len(entries))
	}
	for _, entry := range entries {
		if entry.CreatedAt.IsZero() {
			t.Fatalf("expected created_at to be stamped")
		}
	}
}

func TestOperationalActivitySink_RecordAfterCloseRoutesToFallback(t *testing.T) {
	primary := &bufferCapturingActivitySink{}
	fallback := &bufferCapturingActivitySink{}
	sink, err := NewOperationalActivitySink(primary, fallback, ActivityRetentionPolicy{}, 64)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	sink.Close()

	for index := range 50 {
		if err := sink.Record(context.Background(), ActivityEntry{Code: index, Action: ActivityActionDeliver}); err != nil {
			t.Fatalf("record %d after close: %v", index, err)
		}
	}

	if got := len(fallback.snapshot()); got != 50 {
		t.Fatalf("expected all 50 entries on the fallback after close, got %d", got)
	}
	if got := len(primary.snapshot()); got != 0 {
		t.Fatalf("expected primary to receive nothing after close, got %d", got)
	}
}

func TestOperationalActivitySink_DroppedCountsEntriesWithoutFallback(t *testing.T) {
	primary := &bufferCapturingActivitySink{}
	sink, err := NewOperationalActivitySink(primary, nil, ActivityRetentionPolicy{}, 4)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	sink.Close()

	for range 3 {
		if err := sink.Record(context.Background(), ActivityEntry{Action: ActivityActionMiss}); err != nil {
			t.Fatalf("record after close: %v", err)
		}
	}
	if sink.Dropped() != 3 {
		t.Fatalf("expected dropped=3, got %d", sink.Dropped())
	}
	if len(primary.snapshot()) != 0 {
		t.Fatalf("expected primary to stay empty")
	}
}

func TestOperationalActivitySink_RecordHonorsCanceledContext(t *testing.T) {
	fallback := &bufferCapturingActivitySink{}
	sink, err := NewOperationalActivitySink(&bufferCapturingActivitySink{}, fallback, ActivityRetentionPolicy{}, 4)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Record(ctx, ActivityEntry{Action: ActivityActionRegister}); err == nil {
		t.Fatalf("expected canceled context error")
	}
	if len(fallback.snapshot()) != 0 {
		t.Fatalf("expected canceled record to skip the fallback")
	}
}

func TestOperationalActivitySink_EnforceRetention(t *testing.T) {
	pruner := &stubPruner{deleted: 7}
	sink, err := NewOperationalActivitySink(pruner, nil, ActivityRetentionPolicy{
		TTL:    24 * time.Hour,
		RowCap: 100,
	}, 4)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}
	defer sink.Close()

	deleted, err := sink.EnforceRetention(context.Background())
	if err != nil {
		t.Fatalf("enforce retention: %v", err)
	}
	if deleted != 7 {
		t.Fatalf("expected deleted=7, got %d", deleted)
	}
	if pruner.lastPolicy.RowCap != 100 || pruner.lastPolicy.TTL != 24*time.Hour {
		t.Fatalf("expected policy propagation")
	}
}

func TestOperationalActivitySink_RequiresPrimary(t *testing.T) {
	if _, err := NewOperationalActivitySink(nil, nil, ActivityRetentionPolicy{}, 0); err == nil {
		t.Fatalf("expected primary sink to be required")
	}
}

func TestMemoryActivitySink_ListFiltersAndPages(t *testing.T) {
	sink := NewMemoryActivitySink(0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for index := range 6 {
		action := ActivityActionRegister
		if index%2 == 1 {
			action = ActivityActionDeliver
		}
		space := SpaceActivity
		if index >= 4 {
			space = SpacePermission
		}
		err := sink.Record(context.Background(), ActivityEntry{
			Space:     space,
			Code:      index,
			Action:    action,
			Status:    ActivityStatusOK,
			CreatedAt: base.Add(time.Duration(index) * time.Minute),
		})
		if err != nil {
			t.Fatalf("record %d: %v", index, err)
		}
	}

	page, err := sink.List(context.Background(), ActivityFilter{Space: SpaceActivity, PerPage: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 4 || len(page.Items) != 2 || !page.HasNext || page.NextCursor != "2" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if page.Items[0].Code != 3 || page.Items[0].ID == "" {
		t.Fatalf("expected newest first with generated id, got %+v", page.Items[0])
	}

	code := 1
	page, err = sink.List(context.Background(), ActivityFilter{Code: &code, Action: ActivityActionDeliver})
	if err != nil {
		t.Fatalf("list by code: %v", err)
	}
	if page.Total != 1 || page.PerPage != DefaultActivityPerPage {
		t.Fatalf("unexpected code page: %+v", page)
	}

	from := base.Add(4 * time.Minute)
	page, err = sink.List(context.Background(), ActivityFilter{From: &from})
	if err != nil {
		t.Fatalf("list by time: %v", err)
	}
	if page.Total != 2 {
		t.Fatalf("expected two entries at or after from, got %d", page.Total)
	}

	page, err = sink.List(context.Background(), ActivityFilter{Page: 9})
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(page.Items) != 0 || page.HasNext {
		t.Fatalf("expected empty page past the end, got %+v", page)
	}
}

func TestMemoryActivitySink_CapacityAndPrune(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sink := NewMemoryActivitySink(4)
	sink.Now = func() time.Time { return now }

	for index := range 6 {
		_ = sink.Record(context.Background(), ActivityEntry{
			Code:      index,
			CreatedAt: now.Add(-time.Duration(6-index) * time.Hour),
		})
	}
	if sink.Len() != 4 {
		t.Fatalf("expected capacity to cap entries at 4, got %d", sink.Len())
	}

	deleted, err := sink.Prune(context.Background(), ActivityRetentionPolicy{TTL: 3 * time.Hour})
	if err != nil {
		t.Fatalf("prune ttl: %v", err)
	}
	if deleted != 1 || sink.Len() != 3 {
		t.Fatalf("expected ttl prune to drop one entry, deleted=%d len=%d", deleted, sink.Len())
	}

	deleted, err = sink.Prune(context.Background(), ActivityRetentionPolicy{RowCap: 1})
	if err != nil {
		t.Fatalf("prune row cap: %v", err)
	}
	if deleted != 2 || sink.Len() != 1 {
		t.Fatalf("expected row cap prune to keep one entry, deleted=%d len=%d", deleted, sink.Len())
	}
	page, _ := sink.List(context.Background(), ActivityFilter{})
	if page.Items[0].Code != 5 {
		t.Fatalf("expected newest entry to survive, got %+v", page.Items[0])
	}
}
