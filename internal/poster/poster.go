// Package poster runs the synthetic filler-post loop. Posts go straight to
// the publisher and never pass through moderation.
package poster

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yangwenmai/anonrelay/internal/model"
)

// State is the scheduler's current phase.
type State int32

const (
	StateDisabled State = iota
	StateIdle
	StateGenerating
	StatePublishing
)

func (s State) String() string {
	switch s {
	case StateDisabled:
		return "disabled"
	case StateIdle:
		return "idle"
	case StateGenerating:
		return "generating"
	case StatePublishing:
		return "publishing"
	}
	return "unknown"
}

// maxJitter is the largest fraction of the cooldown added after a failure.
const maxJitter = 0.10

// Generator produces the text of one synthetic post.
type Generator interface {
	Generate(ctx context.Context) (string, error)
}

// Publisher sends a submission to the channel.
type Publisher interface {
	Publish(ctx context.Context, sub model.Submission) (model.PublishedArtifact, error)
}

// Status is a point-in-time view of the poster for the ops endpoint.
type Status struct {
	State       string    `json:"state"`
	Interval    string    `json:"interval,omitempty"`
	LastPostAt  time.Time `json:"last_post_at,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Failures    int       `json:"consecutive_failures"`
	NextAttempt time.Time `json:"next_attempt,omitzero"`
}

// Poster periodically generates and publishes a post.
type Poster struct {
	gen   Generator
	pub   Publisher
	job   model.SyntheticPostJob
	state atomic.Int32
	log   *slog.Logger

	// jitter returns a random duration in [0, limit].
	jitter func(limit time.Duration) time.Duration

	mu          sync.Mutex
	lastPostAt  time.Time
	lastErr     string
	failures    int
	nextAttempt time.Time
}

// New creates a Poster. A nil gen yields a disabled poster whose Start
// returns immediately.
func New(gen Generator, pub Publisher, interval, cooldown time.Duration) *Poster {
	p := &Poster{
		gen: gen,
		pub: pub,
		job: model.SyntheticPostJob{
			Interval: interval,
			Cooldown: cooldown,
			Enabled:  gen != nil,
		},
		log: slog.Default().With("system", "poster"),
		jitter: func(limit time.Duration) time.Duration {
			if limit <= 0 {
				return 0
			}
			return rand.N(limit + 1)
		},
	}
	if p.job.Enabled {
		p.setState(StateIdle)
	}
	return p
}

// Job returns the schedule the poster was built with.
func (p *Poster) Job() model.SyntheticPostJob {
	return p.job
}

// State returns the current phase.
func (p *Poster) State() State {
	return State(p.state.Load())
}

func (p *Poster) setState(s State) {
	p.state.Store(int32(s))
	stateGauge.Set(float64(s))
}

// Status returns a snapshot for reporting.
func (p *Poster) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Status{
		State:       p.State().String(),
		LastPostAt:  p.lastPostAt,
		LastError:   p.lastErr,
		Failures:    p.failures,
		NextAttempt: p.nextAttempt,
	}
	if p.job.Enabled {
		st.Interval = p.job.Interval.String()
	}
	return st
}

// Start runs the loop until ctx is cancelled. The first post is attempted
// one interval after start. Failures never stop the loop.
func (p *Poster) Start(ctx context.Context) {
	if !p.job.Enabled {
		p.log.Info("poster disabled, no model backend configured")
		return
	}
	p.log.Info("poster started", "interval", p.job.Interval.String(), "cooldown", p.job.Cooldown.String())

	wait := p.job.Interval
	for {
		if !p.sleep(ctx, wait) {
			p.log.Info("poster stopped")
			return
		}

		if err := p.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				p.log.Info("poster stopped")
				return
			}
			wait = p.job.Cooldown + p.jitter(time.Duration(float64(p.job.Cooldown)*maxJitter))
			p.log.Error("synthetic post failed", "error_info", p.buildErrorInfo(err), "retry_in", wait.String())
			continue
		}
		wait = p.job.Interval
	}
}

// RunOnce generates and publishes a single post.
func (p *Poster) RunOnce(ctx context.Context) error {
	defer p.setState(StateIdle)

	p.setState(StateGenerating)
	text, err := p.gen.Generate(ctx)
	if err != nil {
		p.recordFailure(err)
		return err
	}

	p.setState(StatePublishing)
	artifact, err := p.pub.Publish(ctx, model.NewTextSubmission(text))
	if err != nil {
		p.recordFailure(err)
		return err
	}

	postCount.WithLabelValues("published").Inc()
	p.mu.Lock()
	p.lastPostAt = time.Now().UTC()
	p.lastErr = ""
	p.failures = 0
	p.mu.Unlock()
	p.log.Info("synthetic post published", "artifact_id", artifact.ArtifactID)
	return nil
}

func (p *Poster) recordFailure(err error) {
	postCount.WithLabelValues("failed").Inc()
	p.mu.Lock()
	p.lastErr = err.Error()
	p.failures++
	p.mu.Unlock()
}

func (p *Poster) sleep(ctx context.Context, d time.Duration) bool {
	p.mu.Lock()
	p.nextAttempt = time.Now().UTC().Add(d)
	p.mu.Unlock()

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *Poster) buildErrorInfo(err error) string {
	op := "unknown"
	var be *model.BackendError
	var te *model.TransportError
	switch {
	case errors.As(err, &be):
		op = "generate"
	case errors.As(err, &te):
		op = "publish"
	}
	info := model.ErrorInfo{
		Op:        op,
		Message:   err.Error(),
		Retryable: true,
		FailedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	return info.ToJSON()
}
