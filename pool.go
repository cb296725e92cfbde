package sitesnap

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

// Pool sizing constants.
const (
	// MinPoolSize ensures at least one worker is available.
	MinPoolSize = 1

	// MaxPoolSize caps browser instances to limit memory (~200MB each).
	MaxPoolSize = 8

	// cpuDivisor leaves headroom for Chrome child processes.
	cpuDivisor = 2
)

// RendererPool maps worker slots to renderers. Each worker gets its own
// renderer, created lazily on first Acquire and reused for every record the
// worker handles. A slot is only ever touched by its own worker, so creation
// never races for the same slot.
type RendererPool struct {
	factory RendererFactory
	logger  zerolog.Logger
	size    int

	mu      sync.Mutex
	slots   []Renderer
	created int
	closed  bool
}

// NewRendererPool creates a pool with n worker slots. Renderers are created
// when acquired, not here.
func NewRendererPool(n int, factory RendererFactory, logger zerolog.Logger) *RendererPool {
	if n < 1 {
		n = 1
	}
	return &RendererPool{
		factory: factory,
		logger:  logger,
		size:    n,
		slots:   make([]Renderer, n),
	}
}

// Acquire returns the renderer of workerID, creating it on first use.
// A failed creation leaves the slot empty so a later call tries again.
func (p *RendererPool) Acquire(workerID int) (Renderer, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if workerID < 0 || workerID >= p.size {
		p.mu.Unlock()
		return nil, fmt.Errorf("worker %d out of range [0, %d)", workerID, p.size)
	}
	if r := p.slots[workerID]; r != nil {
		p.mu.Unlock()
		return r, nil
	}
	p.mu.Unlock()

	// Browser startup takes seconds; keep it outside the lock.
	r, err := p.factory(workerID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: factory returned no renderer", ErrBrowserConnect)
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		_ = r.Close()
		return nil, ErrPoolClosed
	}
	p.slots[workerID] = r
	p.created++
	p.mu.Unlock()

	p.logger.Debug().Int("worker", workerID).Msg("renderer started")
	return r, nil
}

// DisposeAll closes every created renderer exactly once. Empty slots (never
// used or failed to start) are skipped. Later calls are no-ops.
// Returns an aggregated error if several renderers fail to close.
func (p *RendererPool) DisposeAll() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	slots := p.slots
	p.slots = make([]Renderer, p.size)
	p.mu.Unlock()

	var errs []error
	for id, r := range slots {
		if r == nil {
			p.logger.Debug().Int("worker", id).Msg("no renderer to dispose")
			continue
		}
		if err := r.Close(); err != nil {
			p.logger.Warn().Err(err).Int("worker", id).Msg("closing renderer")
			errs = append(errs, fmt.Errorf("worker %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// Size returns the number of worker slots.
func (p *RendererPool) Size() int {
	return p.size
}

// Created returns how many renderers were started.
func (p *RendererPool) Created() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.created
}

// ResolvePoolSize determines the worker count.
// Priority: explicit workers > GOMAXPROCS-based calculation.
// Exported for use by CLIs.
func ResolvePoolSize(workers int) int {
	if workers > 0 {
		return workers
	}

	// GOMAXPROCS is adjusted by automaxprocs for containers.
	n := runtime.GOMAXPROCS(0) / cpuDivisor

	if n < MinPoolSize {
		return MinPoolSize
	}
	if n > MaxPoolSize {
		return MaxPoolSize
	}
	return n
}
