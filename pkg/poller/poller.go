package poller

import (
	"context"
	"sync"
	"time"
)

// FetchFunc retrieves the latest remote snapshot for one tick.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Snapshot is the most recent observation of the polled resource. Results are
// idempotent snapshots, not deltas; an occasional duplicate observation is fine.
type Snapshot[T any] struct {
	Data    T
	Err     error
	Loading bool
}

// Poller repeatedly fetches a remote resource at a fixed interval.
//
// A single goroutine drives the loop, so ticks never overlap: a slow fetch
// simply delays the next tick. The poller has no terminal-status awareness;
// stopping is the caller's responsibility, which keeps it generic across task
// shapes (asking tasks, recommended-questions tasks, response resources).
type Poller[T any] struct {
	fetch    FetchFunc[T]
	interval time.Duration
	onTick   func(Snapshot[T])

	mu       sync.RWMutex
	snapshot Snapshot[T]

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func New[T any](fetch FetchFunc[T], interval time.Duration) *Poller[T] {
	return &Poller[T]{
		fetch:    fetch,
		interval: interval,
		snapshot: Snapshot[T]{Loading: true},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// OnTick registers an observer invoked after every fetch, successful or not.
// Must be called before Start.
func (p *Poller[T]) OnTick(fn func(Snapshot[T])) {
	p.onTick = fn
}

// Start launches the polling loop. The first fetch happens immediately.
func (p *Poller[T]) Start(ctx context.Context) {
	go func() {
		defer close(p.done)

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.tick(ctx)
		for {
			select {
			case <-p.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.tick(ctx)
			}
		}
	}()
}

func (p *Poller[T]) tick(ctx context.Context) {
	data, err := p.fetch(ctx)

	p.mu.Lock()
	if err != nil {
		// A failed fetch is surfaced but not fatal; the next tick retries.
		p.snapshot.Err = err
	} else {
		p.snapshot = Snapshot[T]{Data: data, Loading: false}
	}
	snap := p.snapshot
	p.mu.Unlock()

	if p.onTick != nil {
		p.onTick(snap)
	}
}

// Snapshot returns the latest observation.
func (p *Poller[T]) Snapshot() Snapshot[T] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.snapshot
}

// Stop halts the loop. Safe to call more than once and from tick observers.
func (p *Poller[T]) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
}

// Done is closed once the polling goroutine has exited.
func (p *Poller[T]) Done() <-chan struct{} {
	return p.done
}
