package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/meridianfx/meridian/pkg/common"
)

func TestBusRouter_Post(t *testing.T) {
	r := NewRouter(10)

	err := r.Post(TickEvent, common.Tick{})
	if err != nil {
		t.Errorf("Post failed: %v", err)
	}

	if r.postCount.Load() != 1 {
		t.Errorf("Expected postCount=1, got %d", r.postCount.Load())
	}
}

func TestBusRouter_PostCapacityReached(t *testing.T) {
	r := NewRouter(1)

	err := r.Post(TickEvent, common.Tick{})
	if err != nil {
		t.Errorf("First Post failed: %v", err)
	}

	err = r.Post(TickEvent, common.Tick{})
	if err == nil {
		t.Error("Expected error when capacity reached")
	}

	if r.postFails.Load() != 1 {
		t.Errorf("Expected postFails=1, got %d", r.postFails.Load())
	}
}

func TestBusRouter_Exec(t *testing.T) {
	r := NewRouter(10)

	var mu sync.Mutex
	var tickHandled bool
	r.OnTick = func(ctx context.Context, tick common.Tick) {
		mu.Lock()
		tickHandled = true
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.Exec(ctx)

	if err := r.Post(TickEvent, common.Tick{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if !tickHandled {
		t.Error("Expected tick handler to be invoked")
	}
}

func TestBusRouter_ExecContextCanceled(t *testing.T) {
	r := NewRouter(10)

	ctx, cancel := context.WithCancel(context.Background())
	errChan := r.Exec(ctx)
	cancel()

	select {
	case err := <-errChan:
		if err != context.Canceled {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Expected done channel to yield after cancel")
	}
}

func TestBusRouter_DispatchWrongType(t *testing.T) {
	r := NewRouter(10)

	err := r.dispatch(context.Background(), event{id: TickEvent, data: "not a tick"})
	if err == nil {
		t.Error("Expected type assertion error")
	}
}

func TestBusRouter_DispatchAllEvents(t *testing.T) {
	r := NewRouter(10)

	var handled []EventId
	r.OnTick = func(context.Context, common.Tick) { handled = append(handled, TickEvent) }
	r.OnCandle = func(context.Context, common.Candle) { handled = append(handled, CandleEvent) }
	r.OnOrderUpdate = func(context.Context, common.Order) { handled = append(handled, OrderUpdateEvent) }
	r.OnPositionUpdate = func(context.Context, common.Position) { handled = append(handled, PositionUpdateEvent) }
	r.OnMetrics = func(context.Context, common.AccountMetrics) { handled = append(handled, MetricsEvent) }
	r.OnLedgerEntry = func(context.Context, common.LedgerEntry) { handled = append(handled, LedgerEvent) }

	ctx := context.Background()
	events := []event{
		{TickEvent, common.Tick{}},
		{CandleEvent, common.Candle{}},
		{OrderUpdateEvent, common.Order{}},
		{PositionUpdateEvent, common.Position{}},
		{MetricsEvent, common.AccountMetrics{}},
		{LedgerEvent, common.LedgerEntry{}},
	}

	for _, ev := range events {
		if err := r.dispatch(ctx, ev); err != nil {
			t.Errorf("dispatch(%d) failed: %v", ev.id, err)
		}
	}

	if len(handled) != len(events) {
		t.Errorf("Expected %d handled events, got %d", len(events), len(handled))
	}
}

func TestBusRouter_MergeHandlers(t *testing.T) {
	var calls int
	h := MergeHandlers(
		func(context.Context, common.Tick) { calls++ },
		func(context.Context, common.Tick) { calls++ },
	)

	h(context.Background(), common.Tick{})

	if calls != 2 {
		t.Errorf("Expected 2 calls, got %d", calls)
	}
}

func TestBusRouter_Statistics(t *testing.T) {
	r := NewRouter(1)
	r.startTime = time.Now().Add(-time.Second)

	if err := r.Post(TickEvent, common.Tick{}); err != nil {
		t.Errorf("Post failed: %v", err)
	}
	// Buffer full, this one is dropped.
	if err := r.Post(TickEvent, common.Tick{}); err == nil {
		t.Error("Expected error when capacity reached")
	}

	s := r.Statistics()
	if s.Posted != 1 {
		t.Errorf("Expected Posted=1, got %d", s.Posted)
	}
	if s.Dropped != 1 {
		t.Errorf("Expected Dropped=1, got %d", s.Dropped)
	}
	if s.Uptime <= 0 {
		t.Errorf("Expected positive uptime, got %v", s.Uptime)
	}
	if s.EventsPerSecond <= 0 {
		t.Errorf("Expected positive events per second, got %f", s.EventsPerSecond)
	}
}
