package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// State tracks where a schedule's most recent run stands.
type State string

const (
	StateIdle      State = "idle"
	StateScheduled State = "scheduled"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateExpired   State = "expired"
)

// Schedule names one recurring background cadence.
type Schedule string

const (
	ScheduleHourly       Schedule = "hourly"
	ScheduleDailyMorning Schedule = "dailyMorning"
	ScheduleDailyEvening Schedule = "dailyEvening"
)

// RunFunc is one pipeline pass. A nil return is success; callers that treat
// dedup-skips as success map them to nil before registering.
type RunFunc func(ctx context.Context) error

type schedule struct {
	offset      time.Duration
	run         RunFunc
	state       State
	lastRun     State
	timer       *time.Timer
	nextAt      time.Time
	lastSuccess bool
}

// Coordinator owns the recurring schedules. Each firing re-arms the next
// occurrence before doing any work: background execution slots are scarce,
// so a failing run must never starve future runs.
type Coordinator struct {
	mu        sync.Mutex
	schedules map[Schedule]*schedule
	runBudget time.Duration
	now       func() time.Time
}

// NewCoordinator creates a coordinator. runBudget is the expiration
// deadline granted to each run; zero means 30 seconds. now is injectable
// for tests; pass nil for wall clock.
func NewCoordinator(runBudget time.Duration, now func() time.Time) *Coordinator {
	if runBudget <= 0 {
		runBudget = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		schedules: make(map[Schedule]*schedule),
		runBudget: runBudget,
		now:       now,
	}
}

// Register adds a schedule with its re-arm offset. Must be called before
// Start.
func (c *Coordinator) Register(name Schedule, offset time.Duration, run RunFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schedules[name] = &schedule{offset: offset, run: run, state: StateIdle}
}

// Start arms every registered schedule.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	names := make([]Schedule, 0, len(c.schedules))
	for name := range c.schedules {
		names = append(names, name)
	}
	c.mu.Unlock()

	for _, name := range names {
		c.arm(ctx, name)
	}
}

// Stop cancels all pending timers. In-flight runs finish on their own.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.schedules {
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}
	}
}

// Fire executes one occurrence of a schedule, the way the host invokes a
// background task. The next occurrence is armed before the run body starts,
// and the run is abandoned in place when the expiration deadline passes.
func (c *Coordinator) Fire(ctx context.Context, name Schedule) bool {
	c.mu.Lock()
	s, ok := c.schedules[name]
	if !ok {
		c.mu.Unlock()
		return false
	}
	run := s.run
	c.mu.Unlock()

	// Re-arm first, unconditionally.
	c.arm(ctx, name)

	c.setState(name, StateRunning)

	runCtx, cancel := context.WithTimeout(ctx, c.runBudget)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(runCtx) }()

	var success bool
	select {
	case err := <-done:
		success = err == nil
		if err != nil {
			log.Printf("scheduler: %s run failed: %v", name, err)
		}
		c.finish(name, StateCompleted, success)
	case <-runCtx.Done():
		log.Printf("scheduler: %s run expired before completion", name)
		c.finish(name, StateExpired, false)
	}
	return success
}

// StateOf returns the schedule's current state. Once a run finishes the
// schedule goes back to scheduled if its next timer is armed; the outcome
// of that run is available through LastRun.
func (c *Coordinator) StateOf(name Schedule) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schedules[name]; ok {
		return s.state
	}
	return StateIdle
}

// LastRun reports how the most recent run ended, StateCompleted or
// StateExpired. Idle until the schedule has fired once.
func (c *Coordinator) LastRun(name Schedule) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schedules[name]; ok && s.lastRun != "" {
		return s.lastRun
	}
	return StateIdle
}

// NextFiring returns when the schedule fires next.
func (c *Coordinator) NextFiring(name Schedule) (time.Time, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.schedules[name]
	if !ok || s.timer == nil {
		return time.Time{}, fmt.Errorf("schedule %q is not armed", name)
	}
	return s.nextAt, nil
}

// LastSuccess reports the outcome of the most recent completed run.
func (c *Coordinator) LastSuccess(name Schedule) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schedules[name]; ok {
		return s.lastSuccess
	}
	return false
}

func (c *Coordinator) arm(ctx context.Context, name Schedule) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.schedules[name]
	if !ok {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.state = StateScheduled
	s.nextAt = c.now().Add(s.offset)
	s.timer = time.AfterFunc(s.offset, func() {
		if ctx.Err() != nil {
			return
		}
		c.Fire(ctx, name)
	})
}

func (c *Coordinator) setState(name Schedule, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.schedules[name]; ok {
		s.state = state
	}
}

func (c *Coordinator) finish(name Schedule, outcome State, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.schedules[name]
	if !ok {
		return
	}
	s.lastRun = outcome
	s.lastSuccess = success
	// The next occurrence was armed before the run started, so the
	// schedule is already waiting again.
	if s.timer != nil {
		s.state = StateScheduled
	} else {
		s.state = outcome
	}
}
