package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/personacast-backend/pkg/logger"
	"github.com/angelmondragon/personacast-backend/pkg/metrics"
)

const defaultInterval = time.Minute

// ServiceParams configure the scheduler.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Metrics  *metrics.SchedulerJobMetrics
	Interval time.Duration
}

// Service runs registered jobs once on start and then on a fixed cadence
// until stopped. Start and Stop are idempotent.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	metrics  *metrics.SchedulerJobMetrics
	interval time.Duration

	mu      sync.Mutex
	running bool
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewService builds a scheduler service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Start launches the loop. It reports false when the loop was already running.
func (s *Service) Start(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.logg.Info(ctx, "scheduler.start.already_running")
		return false
	}
	s.running = true
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.loop(ctx, s.done)
	s.logg.Info(s.logg.WithField(ctx, "interval", s.interval.String()), "scheduler.started")
	return true
}

// Stop signals the loop and waits for an in-flight cycle to finish. Once it
// returns no further cycles run.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.done)
	s.mu.Unlock()

	s.wg.Wait()
	s.logg.Info(context.Background(), "scheduler.stopped")
}

// Running reports whether the loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Service) loop(ctx context.Context, done <-chan struct{}) {
	defer s.wg.Done()

	s.RunOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			s.logg.Info(ctx, "scheduler.context_canceled")
			return
		case <-ticker.C:
			// A tick racing Stop must not start another cycle.
			select {
			case <-done:
				return
			default:
			}
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every registered job once, in order.
func (s *Service) RunOnce(ctx context.Context) {
	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
}

func (s *Service) runJob(ctx context.Context, job Job) {
	jobCtx := s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "scheduler.job"})
	start := time.Now()
	err := safeRun(jobCtx, job)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "scheduler.job.failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Debug(jobCtx, "scheduler.job.completed")
	s.metrics.IncSuccess(job.Name())
}

func safeRun(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panic: %v", job.Name(), r)
		}
	}()
	return job.Run(ctx)
}
