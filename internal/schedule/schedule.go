// Package schedule implements the bounded-parallelism job pool of the
// build engine: a FIFO (optionally shuffled) queue of jobs, run with
// golang.org/x/sync/errgroup collecting the first error while
// golang.org/x/sync/semaphore enforces the slot budget. It knows
// nothing about tasks, configs or templates — only about "things that
// reserve N slots and run".
//
// Slot reservation is pulled by the job, not pushed by the dispatch
// loop: a job first awaits whatever it depends on, then calls
// AcquireSlots before doing real work. Acquiring at dispatch time
// would let a job hold slots while blocked on an upstream job that
// can never get one.
package schedule

import (
	"context"
	"math/rand"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Job is one unit of scheduled work.
type Job interface {
	// Run executes the job. Its error, if any, is collected as the
	// scheduler's first error but never cancels sibling jobs:
	// cancellation propagates through dependency edges, not through
	// the scheduler. Run is responsible for calling AcquireSlots /
	// ReleaseSlots around its resource-consuming section.
	Run(ctx context.Context) error
}

// Scheduler runs Jobs added to it (including ones added after Run has
// started, supporting dynamically-grown task graphs) with at most
// capacity slots reserved at any instant. capacity <= 0 means
// unbounded.
type Scheduler struct {
	capacity int64
	shuffle  bool
	rng      *rand.Rand

	sem *semaphore.Weighted
	eg  *errgroup.Group

	mu      sync.Mutex
	queue   []Job
	pending int
	wake    chan struct{}
}

// New creates a Scheduler with the given capacity (slot budget) and
// shuffle mode. rngSeed seeds the shuffle order, so tests that need a
// reproducible order can pin it.
func New(capacity int, shuffle bool, rngSeed int64) *Scheduler {
	s := &Scheduler{
		capacity: int64(capacity),
		shuffle:  shuffle,
		rng:      rand.New(rand.NewSource(rngSeed)),
		eg:       &errgroup.Group{},
		wake:     make(chan struct{}, 1),
	}
	if capacity > 0 {
		s.sem = semaphore.NewWeighted(int64(capacity))
	}
	return s
}

// Add enqueues j. Safe to call concurrently, including from within a
// running Job's Run method, which is how dynamic task graphs grow.
func (s *Scheduler) Add(j Job) {
	s.mu.Lock()
	s.queue = append(s.queue, j)
	s.pending++
	s.mu.Unlock()
	s.signal()
}

func (s *Scheduler) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// popLocked removes and returns the next job per queue order, must be
// called with s.mu held.
func (s *Scheduler) popLocked() Job {
	if s.shuffle && len(s.queue) > 1 {
		i := s.rng.Intn(len(s.queue))
		j := s.queue[i]
		s.queue = append(s.queue[:i:i], s.queue[i+1:]...)
		return j
	}
	j := s.queue[0]
	s.queue = s.queue[1:]
	return j
}

// AcquireSlots reserves n slots, blocking until they are free. n is
// clamped to [1, capacity], so a job asking for more slots than the
// pool has reserves the whole pool and runs alone. The returned grant
// must be handed back to ReleaseSlots. With an unbounded pool the
// grant is zero and acquisition never blocks.
func (s *Scheduler) AcquireSlots(ctx context.Context, n int) (int64, error) {
	if s.sem == nil {
		return 0, nil
	}
	g := int64(n)
	if g < 1 {
		g = 1
	}
	if g > s.capacity {
		g = s.capacity
	}
	if err := s.sem.Acquire(ctx, g); err != nil {
		return 0, err
	}
	return g, nil
}

// ReleaseSlots returns a grant from AcquireSlots to the pool.
func (s *Scheduler) ReleaseSlots(grant int64) {
	if s.sem == nil || grant == 0 {
		return
	}
	s.sem.Release(grant)
}

// Run dispatches queued jobs until none remain pending (queued or
// in-flight) and no more are added, then waits for every dispatched
// job to finish. It returns the first job error, if any. Run returns
// early with ctx.Err() if ctx is cancelled while waiting for new
// work.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.pending == 0 {
			s.mu.Unlock()
			break
		}
		if len(s.queue) == 0 {
			s.mu.Unlock()
			select {
			case <-s.wake:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		j := s.popLocked()
		s.mu.Unlock()

		job := j
		s.eg.Go(func() error {
			defer s.finishOne()
			return job.Run(ctx)
		})
	}
	return s.eg.Wait()
}

func (s *Scheduler) finishOne() {
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
	s.signal()
}

// Pending reports the number of jobs queued or in flight, for tests
// and diagnostics.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}
