package router

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor polls cond until it holds or a second has passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestRouterDispatch(t *testing.T) {
	rt := New()
	var got []string
	record := func(name string) HandlerFunc {
		return func(_ context.Context, _ Event) error {
			got = append(got, name)
			return nil
		}
	}
	rt.OnCommand("/Start", record("start"))
	rt.OnCallback("delete_", record("delete"))
	rt.OnCallback("del", record("del"))
	rt.OnMessage(func(ev Event) bool { return ev.ChatType == ChatPrivate }, record("private"))
	rt.OnMessage(nil, record("any"))

	ctx := context.Background()
	for _, ev := range []Event{
		{Type: EventCommand, Command: "start"},
		{Type: EventCommand, Command: "unknown"},
		{Type: EventCallback, CallbackData: "delete_12"},
		{Type: EventCallback, CallbackData: "delay"},
		{Type: EventCallback, CallbackData: "other"},
		{Type: EventMessage, ChatType: ChatPrivate},
		{Type: EventMessage, ChatType: ChatGroup},
	} {
		if err := rt.Dispatch(ctx, ev); err != nil {
			t.Fatalf("Dispatch(%+v): %v", ev, err)
		}
	}

	want := []string{"start", "delete", "del", "private", "any"}
	if !slices.Equal(got, want) {
		t.Errorf("handled %v, want %v", got, want)
	}
}

func TestEventKey(t *testing.T) {
	if got := (Event{SenderID: "u1", ChatID: "c1"}).Key(); got != "u1" {
		t.Errorf("Key() = %q, want sender", got)
	}
	if got := (Event{ChatID: "c1"}).Key(); got != "c1" {
		t.Errorf("Key() = %q, want chat", got)
	}
}

func TestPoolOrdersPerKey(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]int{}
	var wg sync.WaitGroup

	p := NewPool(4, time.Second, "test-order", func(_ context.Context, ev Event) error {
		defer wg.Done()
		time.Sleep(time.Millisecond)
		mu.Lock()
		seen[ev.SenderID] = append(seen[ev.SenderID], len(ev.Args))
		mu.Unlock()
		return nil
	})

	ctx := context.Background()
	for i := range 20 {
		for _, key := range []string{"a", "b", "c"} {
			wg.Add(1)
			if err := p.AddWork(ctx, key, Event{SenderID: key, Args: make([]string, i)}); err != nil {
				t.Fatalf("AddWork: %v", err)
			}
		}
	}
	wg.Wait()
	p.Shutdown()

	for _, key := range []string{"a", "b", "c"} {
		if len(seen[key]) != 20 {
			t.Fatalf("key %s ran %d tasks, want 20", key, len(seen[key]))
		}
		for i, n := range seen[key] {
			if n != i {
				t.Errorf("key %s out of order at %d: got task %d", key, i, n)
			}
		}
	}
}

func TestPoolRunsKeysConcurrently(t *testing.T) {
	release := make(chan struct{})
	var running atomic.Int32

	p := NewPool(2, time.Second, "test-concurrent", func(ctx context.Context, ev Event) error {
		running.Add(1)
		<-release
		return nil
	})

	ctx := context.Background()
	for _, key := range []string{"a", "b"} {
		if err := p.AddWork(ctx, key, Event{}); err != nil {
			t.Fatalf("AddWork(%s): %v", key, err)
		}
	}
	waitFor(t, "both keys running", func() bool { return running.Load() == 2 })

	close(release)
	p.Shutdown()
}

func TestPoolSurvivesHandlerFailures(t *testing.T) {
	var calls atomic.Int32
	p := NewPool(1, time.Second, "test-failures", func(_ context.Context, ev Event) error {
		calls.Add(1)
		if ev.Command == "panic" {
			panic("boom")
		}
		return errors.New("handler failed")
	})

	ctx := context.Background()
	for _, w := range []struct {
		key string
		ev  Event
	}{
		{"a", Event{Command: "panic"}},
		{"a", Event{}},
		{"b", Event{}},
	} {
		if err := p.AddWork(ctx, w.key, w.ev); err != nil {
			t.Fatalf("AddWork: %v", err)
		}
	}
	p.Shutdown()

	if n := calls.Load(); n != 3 {
		t.Errorf("handler ran %d times, want 3", n)
	}
	if err := p.AddWork(ctx, "a", Event{}); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("AddWork after Shutdown = %v, want ErrPoolClosed", err)
	}
}

func TestPoolTaskTimeout(t *testing.T) {
	done := make(chan error, 1)
	p := NewPool(1, 10*time.Millisecond, "test-timeout", func(ctx context.Context, _ Event) error {
		<-ctx.Done()
		done <- ctx.Err()
		return ctx.Err()
	})

	if err := p.AddWork(context.Background(), "a", Event{}); err != nil {
		t.Fatalf("AddWork: %v", err)
	}
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("task context error = %v, want deadline exceeded", err)
		}
	case <-time.After(time.Second):
		t.Fatal("task context was not bounded")
	}
	p.Shutdown()
}
