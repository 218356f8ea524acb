package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wellpath/medtrack/util"
)

// EnrollmentState is the recompute lifecycle of one enrollment.
type EnrollmentState int

const (
	StateFresh EnrollmentState = iota
	StateStale
	StateRecomputing
)

func (s EnrollmentState) String() string {
	switch s {
	case StateStale:
		return "stale"
	case StateRecomputing:
		return "recomputing"
	default:
		return "fresh"
	}
}

// RecomputeFunc performs one recompute for an enrollment.
type RecomputeFunc func(ctx context.Context, enrollmentID uint) error

// ListActiveFunc enumerates the enrollments the periodic sweep touches.
type ListActiveFunc func(ctx context.Context) ([]uint, error)

// SchedulerOptions tunes the worker pool. Zero values get defaults.
type SchedulerOptions struct {
	Workers          int           // concurrent recomputes across enrollments (default 4)
	SweepInterval    time.Duration // 0 disables the sweep (default 24h)
	RecomputeTimeout time.Duration // per-recompute deadline (default 30s)
	RetryBackoff     time.Duration // base delay before requeueing a failed recompute (default 5s)
	MaxRetries       int           // transient retries before giving up until the next trigger (default 5)
}

type enrollmentSlot struct {
	state    EnrollmentState
	pending  bool // a trigger arrived while recomputing; run once more
	attempts int
}

// Scheduler turns mutation triggers and the periodic sweep into recompute
// runs. Work is processed concurrently across enrollments, but per
// enrollment at most one recompute is ever in flight: triggers arriving
// mid-run collapse into a single pending rerun that starts after the current
// one commits, so the last completed recompute always reflects the most
// recent committed state.
type Scheduler struct {
	recompute  RecomputeFunc
	listActive ListActiveFunc
	opts       SchedulerOptions

	mu    sync.Mutex
	slots map[uint]*enrollmentSlot
	queue []uint
	cond  *sync.Cond

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

// NewScheduler wires a scheduler to its recompute and sweep-listing
// functions. The engine's RecomputeEnrollment and ListActiveEnrollmentIDs
// are the production pair; tests inject stubs.
func NewScheduler(recompute RecomputeFunc, listActive ListActiveFunc, opts SchedulerOptions) *Scheduler {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.SweepInterval < 0 {
		opts.SweepInterval = 0
	}
	if opts.RecomputeTimeout <= 0 {
		opts.RecomputeTimeout = 30 * time.Second
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 5 * time.Second
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 5
	}
	s := &Scheduler{
		recompute:  recompute,
		listActive: listActive,
		opts:       opts,
		slots:      make(map[uint]*enrollmentSlot),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the worker pool and, when configured, the periodic sweep.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.mu.Unlock()

	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	if s.opts.SweepInterval > 0 {
		s.wg.Add(1)
		go s.sweeper()
	}
}

// Stop drains the workers. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.cond.Broadcast()
	s.mu.Unlock()

	s.wg.Wait()
}

// MarkStale records that an enrollment's counters no longer reflect
// committed state. Duplicate triggers while the enrollment is already queued
// are no-ops; triggers during a recompute collapse into one pending rerun.
func (s *Scheduler) MarkStale(enrollmentID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot := s.slot(enrollmentID)
	switch slot.state {
	case StateFresh:
		slot.state = StateStale
		slot.attempts = 0
		s.queue = append(s.queue, enrollmentID)
		s.cond.Signal()
	case StateStale:
		// already queued
	case StateRecomputing:
		slot.pending = true
	}
}

// State exposes an enrollment's recompute state, mainly for observability.
func (s *Scheduler) State(enrollmentID uint) EnrollmentState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, ok := s.slots[enrollmentID]; ok {
		return slot.state
	}
	return StateFresh
}

func (s *Scheduler) slot(enrollmentID uint) *enrollmentSlot {
	if slot, ok := s.slots[enrollmentID]; ok {
		return slot
	}
	slot := &enrollmentSlot{}
	s.slots[enrollmentID] = slot
	return slot
}

func (s *Scheduler) worker() {
	defer s.wg.Done()
	for {
		s.mu.Lock()
		for len(s.queue) == 0 && s.started {
			s.cond.Wait()
		}
		if !s.started {
			s.mu.Unlock()
			return
		}
		id := s.queue[0]
		s.queue = s.queue[1:]
		slot := s.slot(id)
		slot.state = StateRecomputing
		s.mu.Unlock()

		s.run(id)
	}
}

func (s *Scheduler) run(enrollmentID uint) {
	ctx, cancel := context.WithTimeout(s.ctx, s.opts.RecomputeTimeout)
	err := s.recompute(ctx, enrollmentID)
	cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	slot := s.slot(enrollmentID)

	if err != nil {
		if isPermanentRecomputeErr(err) {
			// Configuration or data problem; retrying cannot fix it. Leave
			// the enrollment fresh so the rest of the batch proceeds and
			// the next mutation or sweep takes another look.
			slot.state = StateFresh
			slot.pending = false
			util.LogEngineEvent(util.EngineEvent{
				EventType:    util.EventRecomputeSkipped,
				EnrollmentID: enrollmentID,
				Message:      err.Error(),
			})
			return
		}

		slot.attempts++
		if slot.attempts > s.opts.MaxRetries {
			slot.state = StateFresh
			slot.pending = false
			util.LogEngineEvent(util.EngineEvent{
				EventType:    util.EventRecomputeFailed,
				EnrollmentID: enrollmentID,
				Message:      err.Error(),
				Details:      map[string]interface{}{"attempts": slot.attempts},
			})
			return
		}

		// Transient failure: free the serialization slot now and requeue
		// after a backoff proportional to the attempt count.
		slot.state = StateFresh
		delay := time.Duration(slot.attempts) * s.opts.RetryBackoff
		attempts := slot.attempts
		time.AfterFunc(delay, func() {
			s.retry(enrollmentID, attempts)
		})
		return
	}

	slot.attempts = 0
	if slot.pending {
		slot.pending = false
		slot.state = StateStale
		s.queue = append(s.queue, enrollmentID)
		s.cond.Signal()
		return
	}
	slot.state = StateFresh
}

// retry requeues a failed enrollment while preserving its attempt count so
// backoff keeps growing across consecutive failures.
func (s *Scheduler) retry(enrollmentID uint, attempts int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	slot := s.slot(enrollmentID)
	if slot.state != StateFresh {
		return // a newer trigger already queued it
	}
	slot.state = StateStale
	slot.attempts = attempts
	s.queue = append(s.queue, enrollmentID)
	s.cond.Signal()
}

// Sweep marks every active enrollment stale so overdue transitions driven
// purely by time passing get surfaced even with no new events. It is
// idempotent and safe to abort and rerun.
func (s *Scheduler) Sweep(ctx context.Context) error {
	ids, err := s.listActive(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		s.MarkStale(id)
	}
	util.LogEngineEvent(util.EngineEvent{
		EventType: util.EventSweepCompleted,
		Message:   "periodic sweep queued recomputes",
		Details:   map[string]interface{}{"enrollments": len(ids)},
	})
	return nil
}

func (s *Scheduler) sweeper() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(s.ctx); err != nil {
				util.LogEngineEvent(util.EngineEvent{
					EventType: util.EventRecomputeFailed,
					Message:   "sweep failed: " + err.Error(),
				})
			}
		}
	}
}

// isPermanentRecomputeErr separates configuration/data errors, which the
// scheduler skips, from transient ones it retries with backoff.
func isPermanentRecomputeErr(err error) bool {
	return errors.Is(err, ErrInconsistentWindow) ||
		errors.Is(err, ErrUnsupportedFrequency) ||
		errors.Is(err, ErrEnrollmentNotFound)
}
