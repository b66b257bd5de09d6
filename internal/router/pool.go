package router

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrPoolClosed is returned by AddWork after Shutdown.
var ErrPoolClosed = errors.New("pool is shut down")

// Pool runs events on a fixed number of workers. Events with the same key
// run one at a time in the order they were added; different keys run in
// parallel.
type Pool struct {
	maxConcurrency int
	taskTimeout    time.Duration

	do HandlerFunc

	feeder chan *task
	out    chan struct{}

	lk     sync.Mutex
	active map[string][]*task
	closed bool

	ident string

	itemsAdded     prometheus.Counter
	itemsProcessed prometheus.Counter
	itemsFailed    prometheus.Counter
	itemsActive    prometheus.Gauge

	log *slog.Logger
}

type task struct {
	id      string
	key     string
	ev      Event
	control string
}

// NewPool starts workers goroutines that pass events to do. Each task gets
// its own context bounded by taskTimeout.
func NewPool(workers int, taskTimeout time.Duration, ident string, do HandlerFunc) *Pool {
	if workers < 1 {
		workers = 1
	}
	p := &Pool{
		maxConcurrency: workers,
		taskTimeout:    taskTimeout,

		do: do,

		feeder: make(chan *task),
		out:    make(chan struct{}),
		active: make(map[string][]*task),

		ident: ident,

		itemsAdded:     workItemsAdded.WithLabelValues(ident),
		itemsProcessed: workItemsProcessed.WithLabelValues(ident),
		itemsFailed:    workItemsFailed.WithLabelValues(ident),
		itemsActive:    workItemsActive.WithLabelValues(ident),

		log: slog.Default().With("system", "pool", "ident", ident),
	}

	for range workers {
		go p.worker()
	}
	workersActive.WithLabelValues(ident).Set(float64(workers))

	return p
}

// AddWork queues ev under key. It blocks until a worker accepts the task or
// another task with the same key is already queued.
func (p *Pool) AddWork(ctx context.Context, key string, ev Event) error {
	t := &task{id: uuid.NewString(), key: key, ev: ev}

	p.lk.Lock()
	if p.closed {
		p.lk.Unlock()
		return ErrPoolClosed
	}
	p.itemsAdded.Inc()

	if a, ok := p.active[key]; ok {
		p.active[key] = append(a, t)
		p.lk.Unlock()
		return nil
	}
	p.active[key] = []*task{}
	p.lk.Unlock()

	select {
	case p.feeder <- t:
		return nil
	case <-ctx.Done():
		p.lk.Lock()
		if rem := p.active[key]; len(rem) > 0 {
			p.log.Warn("dropping queued events", "count", len(rem)+1)
		}
		delete(p.active, key)
		p.lk.Unlock()
		return ctx.Err()
	}
}

// Shutdown stops accepting work, lets every worker finish the tasks it
// holds, and waits for them to exit.
func (p *Pool) Shutdown() {
	p.lk.Lock()
	if p.closed {
		p.lk.Unlock()
		return
	}
	p.closed = true
	p.lk.Unlock()

	p.log.Info("shutting down pool")
	for range p.maxConcurrency {
		p.feeder <- &task{control: "stop"}
	}
	for range p.maxConcurrency {
		<-p.out
	}
	workersActive.WithLabelValues(p.ident).Set(0)
	p.log.Info("pool shutdown complete")
}

func (p *Pool) worker() {
	for work := range p.feeder {
		for work != nil {
			if work.control == "stop" {
				p.out <- struct{}{}
				return
			}

			p.run(work)

			p.lk.Lock()
			rem, ok := p.active[work.key]
			if !ok {
				p.log.Error("should always have an 'active' entry if a worker is processing a job")
			}
			if len(rem) == 0 {
				delete(p.active, work.key)
				work = nil
			} else {
				work = rem[0]
				p.active[work.key] = rem[1:]
			}
			p.lk.Unlock()
		}
	}
}

func (p *Pool) run(t *task) {
	p.itemsActive.Inc()
	defer p.itemsActive.Dec()

	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()

	start := time.Now()
	err := p.safeDo(ctx, t.ev)
	p.itemsProcessed.Inc()
	if err != nil {
		p.itemsFailed.Inc()
		p.log.Error("event handler failed", "task", t.id, "event", t.ev.Type.String(), "err", err)
		return
	}
	p.log.Debug("event handled", "task", t.id, "event", t.ev.Type.String(), "took", time.Since(start))
}

func (p *Pool) safeDo(ctx context.Context, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("handler panic")
			p.log.Error("recovered from handler panic", "panic", r)
		}
	}()
	return p.do(ctx, ev)
}
