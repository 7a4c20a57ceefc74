package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

// Job is a unit of scheduled work.
type Job interface {
	Run(ctx context.Context)
}

// FuncJob adapts a plain function to the Job interface.
type FuncJob func(ctx context.Context)

func (f FuncJob) Run(ctx context.Context) { f(ctx) }

// JobStatus is the transient, in-memory view of one scheduled job. There is
// no persisted job record; status resets on restart.
type JobStatus struct {
	Spec    string     `json:"spec"`
	LastRun *time.Time `json:"lastRun,omitempty"`
	NextRun time.Time  `json:"nextRun"`
}

// Scheduler wraps robfig/cron with a named-job registry so job timings can be
// inspected at runtime.
type Scheduler struct {
	c   *cron.Cron
	loc *time.Location

	mu      sync.RWMutex
	entries map[string]cron.EntryID
	specs   map[string]string
	lastRun map[string]time.Time
}

func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{
		c:       c,
		loc:     loc,
		entries: make(map[string]cron.EntryID),
		specs:   make(map[string]string),
		lastRun: make(map[string]time.Time),
	}
}

// Register adds a named job on a cron expression.
func (s *Scheduler) Register(name, spec string, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("job %q already registered", name)
	}

	id, err := s.c.AddFunc(spec, func() {
		start := time.Now()
		s.mu.Lock()
		s.lastRun[name] = start
		s.mu.Unlock()

		job.Run(context.Background())

		utils.Zlog.Debug("Scheduled job finished",
			zap.String("job", name),
			zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("failed to register job %q: %w", name, err)
	}

	s.entries[name] = id
	s.specs[name] = spec
	utils.Zlog.Info("Scheduled job registered",
		zap.String("job", name),
		zap.String("spec", spec))
	return nil
}

func (s *Scheduler) Start() { s.c.Start() }

func (s *Scheduler) Stop() {
	ctx := s.c.Stop()
	<-ctx.Done()
}

// Status returns the last and next run time for every registered job.
func (s *Scheduler) Status() map[string]JobStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]JobStatus, len(s.entries))
	for name, id := range s.entries {
		status := JobStatus{
			Spec:    s.specs[name],
			NextRun: s.c.Entry(id).Next,
		}
		if last, ok := s.lastRun[name]; ok {
			t := last
			status.LastRun = &t
		}
		out[name] = status
	}
	return out
}
