package catalog

import (
	"context"
	"sync"
	"time"

	"petrocore/internal/metrics"
)

// Searcher runs one catalog query; *Pipeline implements it.
type Searcher interface {
	Run(ctx context.Context, q Query) (Result, error)
}

// Session serialises the searches of one client. Every search gets a new
// generation; starting a search cancels the previous one, and a result that
// arrives after a newer search started is discarded with ErrSuperseded
// instead of overwriting the newer one.
type Session struct {
	searcher Searcher
	metrics  *metrics.Pipeline

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewSession(s Searcher, m *metrics.Pipeline) *Session {
	return &Session{searcher: s, metrics: m}
}

// Search runs q as the newest generation and returns that generation.
func (s *Session) Search(ctx context.Context, q Query) (Result, uint64, error) {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()
	defer cancel()

	res, err := s.searcher.Run(runCtx, q)
	if !s.IsCurrent(gen) {
		s.metrics.Superseded()
		return Result{}, gen, ErrSuperseded
	}
	return res, gen, err
}

// Latest is the generation of the most recently started search.
func (s *Session) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Session) IsCurrent(gen uint64) bool {
	return s.Latest() == gen
}

// Close cancels the in-flight search, if any. Later results are superseded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
}

// DefaultDebounce is the input silence required before a search is issued.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer runs only the last of a burst of calls, once wait has passed
// without a new call.
type Debouncer struct {
	wait time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = DefaultDebounce
	}
	return &Debouncer{wait: wait}
}

// Trigger schedules fn, replacing any call still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// Stop drops the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
