package poster

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yangwenmai/anonrelay/internal/model"
	"github.com/yangwenmai/anonrelay/internal/relay"
	"github.com/yangwenmai/anonrelay/internal/relay/relaytest"
)

type fakeGenerator struct {
	calls atomic.Int32
	fail  atomic.Int32 // number of leading calls that fail
	block chan struct{}
}

func (g *fakeGenerator) Generate(ctx context.Context) (string, error) {
	n := g.calls.Add(1)
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if n <= g.fail.Load() {
		return "", &model.BackendError{Backend: "generator", Err: errors.New("quota exceeded")}
	}
	return "hello from the poster", nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	subs []model.Submission
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, sub model.Submission) (model.PublishedArtifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return model.PublishedArtifact{}, p.err
	}
	p.subs = append(p.subs, sub)
	return model.PublishedArtifact{ArtifactID: "1", OwnerToken: "delete_1"}, nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// waitFor polls cond until it holds or two seconds have passed.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestDisabledWithoutGenerator(t *testing.T) {
	p := New(nil, &recordingPublisher{}, time.Millisecond, time.Millisecond)
	if p.State() != StateDisabled {
		t.Errorf("state = %s, want disabled", p.State())
	}
	if p.Job().Enabled {
		t.Errorf("job enabled without a generator")
	}

	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled poster did not return")
	}
	if got := p.Status().State; got != "disabled" {
		t.Errorf("status state = %q", got)
	}
}

func TestRunOncePublishesThroughRelay(t *testing.T) {
	sender := relaytest.NewSender()
	pub := relay.NewPublisher(sender, "chan")
	p := New(&fakeGenerator{}, pub, time.Hour, time.Hour)

	if err := p.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	sent := sender.Sent()
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}
	if sent[0].Target != "chan" || sent[0].Text != "hello from the poster" {
		t.Errorf("sent %+v", sent[0])
	}
	if p.State() != StateIdle {
		t.Errorf("state = %s, want idle", p.State())
	}
	if p.Status().LastPostAt.IsZero() {
		t.Errorf("last post time not recorded")
	}
}

func TestRunOnceGenerateFailure(t *testing.T) {
	gen := &fakeGenerator{}
	gen.fail.Store(1)
	pub := &recordingPublisher{}
	p := New(gen, pub, time.Hour, time.Hour)

	err := p.RunOnce(context.Background())
	var be *model.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("error = %v, want BackendError", err)
	}
	if n := pub.count(); n != 0 {
		t.Errorf("published %d posts", n)
	}
	if p.State() != StateIdle {
		t.Errorf("state = %s, want idle", p.State())
	}
	if n := p.Status().Failures; n != 1 {
		t.Errorf("failures = %d, want 1", n)
	}
	if info := p.buildErrorInfo(err); !strings.Contains(info, `"op":"generate"`) {
		t.Errorf("error info = %s", info)
	}
}

func TestRunOncePublishFailure(t *testing.T) {
	pub := &recordingPublisher{err: &model.TransportError{Op: "send text", Err: errors.New("forbidden")}}
	p := New(&fakeGenerator{}, pub, time.Hour, time.Hour)

	err := p.RunOnce(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if info := p.buildErrorInfo(err); !strings.Contains(info, `"op":"publish"`) {
		t.Errorf("error info = %s", info)
	}
	if got := p.Status().LastError; !strings.Contains(got, "forbidden") {
		t.Errorf("last error = %q", got)
	}
}

func TestStateDuringGeneration(t *testing.T) {
	gen := &fakeGenerator{block: make(chan struct{})}
	p := New(gen, &recordingPublisher{}, time.Hour, time.Hour)

	done := make(chan error, 1)
	go func() { done <- p.RunOnce(context.Background()) }()

	waitFor(t, "generating state", func() bool { return p.State() == StateGenerating })
	close(gen.block)
	if err := <-done; err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if p.State() != StateIdle {
		t.Errorf("state = %s, want idle", p.State())
	}
}

func TestStartRecoversAfterFailures(t *testing.T) {
	gen := &fakeGenerator{}
	gen.fail.Store(2)
	pub := &recordingPublisher{}
	p := New(gen, pub, 5*time.Millisecond, 5*time.Millisecond)

	var jitterCalls atomic.Int32
	p.jitter = func(limit time.Duration) time.Duration {
		jitterCalls.Add(1)
		return limit
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	waitFor(t, "a published post", func() bool { return pub.count() >= 1 })
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poster did not stop on cancellation")
	}

	if n := gen.calls.Load(); n < 3 {
		t.Errorf("generator calls = %d, want at least 3", n)
	}
	// jitter is added after each failure only
	if n := jitterCalls.Load(); n != 2 {
		t.Errorf("jitter calls = %d, want 2", n)
	}
	if n := p.Status().Failures; n != 0 {
		t.Errorf("failures = %d after a success", n)
	}
}

func TestStartWaitsOneInterval(t *testing.T) {
	gen := &fakeGenerator{}
	p := New(gen, &recordingPublisher{}, time.Hour, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done
	if n := gen.calls.Load(); n != 0 {
		t.Errorf("generator called %d times before the first interval", n)
	}
	if p.Status().NextAttempt.IsZero() {
		t.Errorf("next attempt not recorded")
	}
}

func TestJitterBounded(t *testing.T) {
	p := New(&fakeGenerator{}, &recordingPublisher{}, time.Hour, time.Hour)
	for range 100 {
		if j := p.jitter(6 * time.Minute); j < 0 || j > 6*time.Minute {
			t.Fatalf("jitter = %v, want within [0, 6m]", j)
		}
	}
	if j := p.jitter(0); j != 0 {
		t.Errorf("jitter(0) = %v", j)
	}
}
