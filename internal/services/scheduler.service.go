package services

import (
	"context"
	"sync"
	"time"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

type Schedule int

const (
	Hourly Schedule = iota
	Daily           // 02:00 UTC
)

// Timeout returns how long a single run may take before its context is cancelled.
func (s Schedule) Timeout() time.Duration {
	if s == Daily {
		return 30 * time.Minute
	}
	return 10 * time.Minute
}

// Job is a recurring maintenance task run by the scheduler.
type Job interface {
	Name() string
	Execute(ctx context.Context) error
	Schedule() Schedule
}

type SchedulerService struct {
	scheduler *gocron.Scheduler
	jobs      []Job
	log       logger.Logger
	started   bool
	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewSchedulerService() *SchedulerService {
	ctx, cancel := context.WithCancel(context.Background())

	return &SchedulerService{
		scheduler: gocron.NewScheduler(time.UTC),
		jobs:      make([]Job, 0),
		log:       logger.New("SchedulerService"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// executeJob gives every run its own trace id so the payment and request
// logs of one run can be followed together.
func (s *SchedulerService) executeJob(job Job, log logger.Logger) {
	ctx, cancel := context.WithTimeout(s.ctx, job.Schedule().Timeout())
	defer cancel()

	traceID := uuid.NewString()
	ctx = logger.ContextWithTraceID(ctx, traceID)

	start := time.Now()
	if err := job.Execute(ctx); err != nil {
		log.Er("job execution failed", err, "job", job.Name(), "traceID", traceID)
		return
	}
	log.Info("job finished", "job", job.Name(), "traceID", traceID, "duration", time.Since(start))
}

func (s *SchedulerService) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("AddJob")

	var err error
	switch job.Schedule() {
	case Daily:
		_, err = s.scheduler.Every(1).Day().At("02:00").SingletonMode().Do(func() {
			s.executeJob(job, log)
		})
	case Hourly:
		_, err = s.scheduler.Every(1).Hour().SingletonMode().Do(func() {
			s.executeJob(job, log)
		})
	default:
		return log.Error("unknown schedule", "job", job.Name(), "schedule", job.Schedule())
	}

	if err != nil {
		return log.Err("failed to register job with scheduler", err, "job", job.Name())
	}

	s.jobs = append(s.jobs, job)
	log.Info("job registered", "job", job.Name())

	return nil
}

func (s *SchedulerService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := s.log.Function("Start")

	if s.started {
		return nil
	}

	if len(s.jobs) == 0 {
		log.Info("no jobs registered, scheduler will not start")
		return nil
	}

	s.scheduler.StartAsync()
	s.started = true

	for _, job := range s.scheduler.Jobs() {
		log.Info("job scheduled", "nextRun", job.NextRun())
	}

	log.Info("scheduler started", "jobCount", len(s.jobs))
	return nil
}

// Stop cancels the context handed to running jobs and stops the scheduler.
func (s *SchedulerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	s.scheduler.Stop()
	s.started = false

	s.log.Function("Stop").Info("scheduler stopped")
	return nil
}

func (s *SchedulerService) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *SchedulerService) GetJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

func (s *SchedulerService) GetNextRunTime() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || len(s.scheduler.Jobs()) == 0 {
		return nil
	}

	nextRun := s.scheduler.Jobs()[0].NextRun()
	return &nextRun
}

// TriggerJobByName runs a registered job synchronously. Used by the admin
// maintenance endpoints.
func (s *SchedulerService) TriggerJobByName(ctx context.Context, jobName string) error {
	s.mu.Lock()
	var target Job
	for _, job := range s.jobs {
		if job.Name() == jobName {
			target = job
			break
		}
	}
	s.mu.Unlock()

	log := s.log.TraceFromContext(ctx).Function("TriggerJobByName")

	if target == nil {
		return log.Error("job not found", "job", jobName)
	}

	log.Info("manually triggering job", "job", jobName)
	if err := target.Execute(ctx); err != nil {
		return log.Err("manual job execution failed", err, "job", jobName)
	}

	return nil
}
