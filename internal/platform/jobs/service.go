package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	JobSessionSweep = "session_sweep"
	JobStoragePurge = "storage_purge"
)

type Func func(context.Context) (any, error)

type periodic struct {
	Type     string
	Interval time.Duration
	Run      Func
}

type job struct {
	Type string
	Run  Func
}

// Service runs periodic maintenance through a single worker queue.
type Service struct {
	logger   *slog.Logger
	queue    chan job
	mu       sync.Mutex
	periodic []periodic
	runs     map[string]int
}

func New(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger: logger,
		queue:  make(chan job, 128),
		runs:   map[string]int{},
	}
}

// Every registers fn to be enqueued on each tick. Intervals <= 0 are ignored.
func (s *Service) Every(jobType string, interval time.Duration, fn Func) {
	if interval <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periodic = append(s.periodic, periodic{Type: jobType, Interval: interval, Run: fn})
}

func (s *Service) Enqueue(jobType string, run Func) {
	select {
	case s.queue <- job{Type: jobType, Run: run}:
	default:
		s.logger.Warn("job queue full", "jobType", jobType)
	}
}

// Run blocks until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.mu.Lock()
	tasks := append([]periodic(nil), s.periodic...)
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.worker(ctx)
		return nil
	})
	for _, p := range tasks {
		g.Go(func() error {
			s.schedule(ctx, p)
			return nil
		})
	}
	return g.Wait()
}

// Runs reports how many times a job type has completed.
func (s *Service) Runs(jobType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs[jobType]
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				s.logger.Warn("job run failed", "jobType", j.Type, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	start := time.Now()
	details, err := j.Run(ctx)
	s.mu.Lock()
	s.runs[j.Type]++
	s.mu.Unlock()
	if err == nil {
		s.logger.Debug("job completed", "jobType", j.Type, "durationMs", time.Since(start).Milliseconds(), "details", details)
	}
	return details, err
}

func (s *Service) schedule(ctx context.Context, p periodic) {
	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Enqueue(p.Type, p.Run)
		}
	}
}
