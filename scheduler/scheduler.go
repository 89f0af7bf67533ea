package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"valuescout/models"

	"github.com/robfig/cron/v3"
)

// ErrSweepRunning is returned when a sweep is requested while one is in progress
var ErrSweepRunning = errors.New("price sweep already running")

// Runner executes one sweep
type Runner interface {
	Run(ctx context.Context, trigger string) (models.SweepRun, error)
}

// State is a point-in-time view of the scheduler
type State struct {
	Schedule    string           `json:"schedule"`
	Running     bool             `json:"running"`
	Current     *models.SweepRun `json:"current,omitempty"`
	Last        *models.SweepRun `json:"last,omitempty"`
	LastSkipped *models.SweepRun `json:"last_skipped,omitempty"`
	NextRun     *time.Time       `json:"next_run,omitempty"`
}

// Scheduler triggers sweeps on a cron schedule and never lets two overlap
type Scheduler struct {
	cron       *cron.Cron
	spec       string
	runner     Runner
	runOnStart bool

	mu          sync.Mutex
	running     bool
	current     *models.SweepRun
	last        *models.SweepRun
	lastSkipped *models.SweepRun
	entry       cron.EntryID

	baseCtx context.Context
	wg      sync.WaitGroup
}

// New validates the cron spec (six fields, seconds first) and builds a scheduler
func New(spec string, runner Runner, runOnStart bool) (*Scheduler, error) {
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}

	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron:       cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(logger))),
		spec:       spec,
		runner:     runner,
		runOnStart: runOnStart,
		baseCtx:    context.Background(),
	}, nil
}

// Start schedules the sweep. Cancelling ctx cancels sweeps in flight.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	id, err := s.cron.AddFunc(s.spec, func() { s.tick(ctx) })
	if err != nil {
		return fmt.Errorf("failed to schedule price sweep: %w", err)
	}

	s.mu.Lock()
	s.entry = id
	s.mu.Unlock()

	if s.runOnStart {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.tick(ctx)
		}()
	}

	s.cron.Start()
	log.Printf("Price sweep scheduled (%s)", s.spec)
	return nil
}

// Stop stops the schedule and waits for running sweeps to return
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.wg.Wait()
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.run(ctx, "scheduled"); err != nil {
		if errors.Is(err, ErrSweepRunning) {
			log.Println("⏭️ Previous price sweep still running, skipping this tick")
			return
		}
		log.Printf("Price sweep failed: %v", err)
	}
}

// RunNow runs a sweep in the caller's goroutine
func (s *Scheduler) RunNow(ctx context.Context) (models.SweepRun, error) {
	return s.run(ctx, "manual")
}

// Trigger starts a manual sweep in the background. It returns ErrSweepRunning
// right away if one is already in progress.
func (s *Scheduler) Trigger() error {
	if !s.acquire("manual") {
		return ErrSweepRunning
	}

	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := s.execute(ctx, "manual"); err != nil {
			log.Printf("Manual price sweep failed: %v", err)
		}
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context, trigger string) (models.SweepRun, error) {
	if !s.acquire(trigger) {
		return models.SweepRun{}, ErrSweepRunning
	}
	return s.execute(ctx, trigger)
}

// acquire claims the single sweep slot, recording a skipped run when it is taken
func (s *Scheduler) acquire(trigger string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		skipped := models.NewSweepRun(trigger)
		skipped.Status = models.SweepStatusSkipped
		skipped.CompletedAt = &skipped.StartedAt
		s.lastSkipped = skipped
		return false
	}

	// the runner assigns the run id, so the in-progress view carries none
	s.running = true
	s.current = &models.SweepRun{Trigger: trigger, Status: models.SweepStatusRunning, StartedAt: time.Now()}
	return true
}

// execute runs the sweep and always frees the slot, turning a panic into a failed run
func (s *Scheduler) execute(ctx context.Context, trigger string) (run models.SweepRun, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("price sweep panicked: %v", p)
			failed := models.NewSweepRun(trigger)
			failed.Fail(err)
			run = *failed
			log.Printf("❌ %v", err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		s.running = false
		s.current = nil
		last := run
		s.last = &last
	}()

	return s.runner.Run(ctx, trigger)
}

// Snapshot returns the scheduler state
func (s *Scheduler) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Schedule:    s.spec,
		Running:     s.running,
		Current:     copyRun(s.current),
		Last:        copyRun(s.last),
		LastSkipped: copyRun(s.lastSkipped),
	}
	if s.entry != 0 {
		if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
			state.NextRun = &next
		}
	}
	return state
}

func copyRun(r *models.SweepRun) *models.SweepRun {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
