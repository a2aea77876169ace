package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Task is a unit of periodic background work.
type Task func(context.Context) error

// RunnerConfig tunes retry behaviour for a periodic task.
type RunnerConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Runner executes a named task on a fixed interval until stopped. Failed
// runs are retried a bounded number of times before waiting for the next
// tick; the runner never retries across ticks.
type Runner struct {
	name     string
	interval time.Duration
	task     Task

	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewRunner builds a runner for the given task.
func NewRunner(name string, interval time.Duration, task Task, cfg RunnerConfig) *Runner {
	if interval <= 0 {
		interval = time.Hour
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Runner{
		name:       name,
		interval:   interval,
		task:       task,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger,
	}
}

// Start launches the tick loop. Safe to call once.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go r.loop()
	r.started = true
	r.logger.Sugar().Infow("runner started", "runner", r.name, "interval", r.interval)
}

// Stop cancels the loop and waits for the current run to finish.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.mu.Unlock()
	r.wg.Wait()
	r.logger.Sugar().Infow("runner stopped", "runner", r.name)
}

// RunOnce executes the task immediately with retries, outside the tick loop.
func (r *Runner) RunOnce(ctx context.Context) error {
	return r.runWithRetries(ctx)
}

func (r *Runner) loop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			if err := r.runWithRetries(r.ctx); err != nil {
				r.logger.Sugar().Errorw("run exceeded retries", "runner", r.name, "error", err)
			}
		}
	}
}

func (r *Runner) runWithRetries(ctx context.Context) error {
	var err error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err = r.task(ctx); err == nil {
			return nil
		}
		r.logger.Sugar().Warnw("run failed", "runner", r.name, "attempt", attempt+1, "error", err)

		timer := time.NewTimer(r.retryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}
