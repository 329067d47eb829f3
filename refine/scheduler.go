package refine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/notargets/yada/mesh"
	"github.com/notargets/yada/types"
)

// Result summarises a Run
type Result struct {
	Delta       int   // Net change in element count
	Refinements int64 // Seeds refined to completion
	Discarded   int64 // Stale, garbage or already good handles dropped from the worklist
	Degenerate  int64 // Seeds given up after repeated degenerate cavities
	Conflicts   int64 // Transaction attempts thrown away and retried
	Commits     int64
	Elapsed     time.Duration
}

func (r Result) Print() {
	fmt.Printf("Element delta           = %d\n", r.Delta)
	fmt.Printf("Refinements             = %d\n", r.Refinements)
	fmt.Printf("Discarded, degenerate   = %d, %d\n", r.Discarded, r.Degenerate)
	fmt.Printf("Commits, conflicts      = %d, %d\n", r.Commits, r.Conflicts)
	fmt.Printf("Elapsed time            = %v\n", r.Elapsed)
}

type Scheduler struct {
	mesh       *mesh.Mesh
	worklist   *Worklist
	logger     *slog.Logger
	maxRetries int

	delta       atomic.Int64
	refinements atomic.Int64
	discarded   atomic.Int64
	degenerate  atomic.Int64
}

type Option func(s *Scheduler)

// WithLogger sets the logger for worker diagnostics, which are discarded by default
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxRetries bounds how often a degenerate cavity is attempted again
func WithMaxRetries(n int) Option {
	return func(s *Scheduler) {
		s.maxRetries = n
	}
}

func NewScheduler(m *mesh.Mesh, opts ...Option) (s *Scheduler) {
	s = &Scheduler{
		mesh:       m,
		worklist:   NewWorklist(),
		logger:     slog.New(slog.DiscardHandler),
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return
}

func (s *Scheduler) Worklist() *Worklist { return s.worklist }

// Seed queues elements for refinement. Released handles are skipped.
func (s *Scheduler) Seed(ids ...types.ElementID) {
	items := make([]Item, 0, len(ids))
	for _, id := range ids {
		if e := s.mesh.Lookup(id); e != nil {
			items = append(items, Item{ID: id, Priority: e.Priority()})
		}
	}
	s.worklist.Push(items...)
}

/*
Run refines until the worklist is empty, using a fixed pool of workers. Each
worker takes the highest priority handle, drops it if it no longer names a live
bad element, refines it and queues the bad elements the refinement created.
Run returns once every worker is idle and nothing is queued.
*/
func (s *Scheduler) Run(workers int) (result Result) {
	var (
		wg     sync.WaitGroup
		start  = time.Now()
		before = s.mesh.Space().Stats()
	)
	if workers < 1 {
		workers = 1
	}
	s.delta.Store(0)
	s.refinements.Store(0)
	s.discarded.Store(0)
	s.degenerate.Store(0)
	s.logger.Info("refinement started", "workers", workers, "queued", s.worklist.Len(),
		"elements", s.mesh.Size())
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			s.work(worker)
		}(n)
	}
	wg.Wait()
	after := s.mesh.Space().Stats()
	result = Result{
		Delta:       int(s.delta.Load()),
		Refinements: s.refinements.Load(),
		Discarded:   s.discarded.Load(),
		Degenerate:  s.degenerate.Load(),
		Conflicts:   after.Conflicts - before.Conflicts,
		Commits:     after.Commits - before.Commits,
		Elapsed:     time.Since(start),
	}
	s.logger.Info("refinement finished", "delta", result.Delta, "refinements", result.Refinements,
		"conflicts", result.Conflicts, "elapsed", result.Elapsed)
	return
}

func (s *Scheduler) work(worker int) {
	var (
		region = NewRegion(s.mesh, s.maxRetries)
		count  int
	)
	for {
		it, ok := s.worklist.Take()
		if !ok {
			break
		}
		e := s.mesh.Lookup(it.ID)
		if e == nil || e.IsGarbage() || !e.IsBad() {
			s.discarded.Inc()
			s.worklist.Done()
			continue
		}
		delta, err := region.Refine(it.ID)
		s.delta.Add(int64(delta))
		switch {
		case errors.Is(err, ErrDegenerate):
			s.degenerate.Inc()
			s.logger.Warn("giving up on element", "worker", worker, "element", it.ID, "error", err)
		case err != nil:
			s.worklist.Done()
			panic(err)
		default:
			s.refinements.Inc()
			count++
		}
		s.worklist.Push(region.Bad()...)
		s.worklist.Done()
	}
	s.logger.LogAttrs(context.Background(), slog.LevelDebug, "worker idle",
		slog.Int("worker", worker), slog.Int("refinements", count),
		slog.Int("degenerateRetries", region.DegenerateRetries()))
}
