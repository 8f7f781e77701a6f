// Package executor owns the asynchronous job lifecycle: a bounded worker pool
// pulls queued jobs off an in-process queue, runs the matching pipeline stage,
// and records progress and terminal status in the store. Progress updates fan
// out through the broker for live subscribers.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agthegodyt04-cmyk/clipper/internal/model"
	"github.com/agthegodyt04-cmyk/clipper/internal/pipeline"
	"github.com/agthegodyt04-cmyk/clipper/internal/store"
)

// queueCapacity bounds how many jobs may sit queued in process. Submissions
// beyond it fail fast rather than grow memory without bound.
const queueCapacity = 256

// ErrQueueFull is returned by Submit when the in-process queue is at capacity.
var ErrQueueFull = errors.New("job queue is full")

// errCancelled is the stage-abort signal the progress callback returns once a
// job's stored status turns cancelled.
var errCancelled = errors.New("job cancelled")

// Observer receives terminal job notifications, e.g. for metrics.
type Observer interface {
	JobFinished(jobType, status string, seconds float64)
}

// Executor runs jobs through their pipeline stages.
type Executor struct {
	store    store.Store
	stages   map[string]pipeline.Stage
	broker   *Broker
	logger   *slog.Logger
	observer Observer

	workers int
	queue   chan string
	wg      sync.WaitGroup
}

// New creates an executor with the given worker count. A nil observer is
// allowed.
func New(st store.Store, stages map[string]pipeline.Stage, broker *Broker, workers int, logger *slog.Logger, observer Observer) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		store:    st,
		stages:   stages,
		broker:   broker,
		logger:   logger,
		observer: observer,
		workers:  workers,
		queue:    make(chan string, queueCapacity),
	}
}

// Start launches the worker pool. Workers drain until ctx is cancelled; the
// job in flight finishes its current checkpoint before the worker exits.
func (e *Executor) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func(worker int) {
			defer e.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case id := <-e.queue:
					e.runJob(ctx, id)
				}
			}
		}(i)
	}
	e.logger.Info("executor started", "workers", e.workers)
}

// Wait blocks until all workers have exited.
func (e *Executor) Wait() {
	e.wg.Wait()
}

// Recover restores queue state after a restart: jobs still marked running
// belonged to a dead process and are failed, jobs marked queued are re-enqueued
// oldest first.
func (e *Executor) Recover(ctx context.Context) error {
	orphans, err := e.store.ListJobsByStatus(ctx, model.StatusRunning)
	if err != nil {
		return fmt.Errorf("list running jobs: %w", err)
	}
	for _, job := range orphans {
		msg := "interrupted by restart"
		if _, err := e.store.UpdateJob(ctx, job.ID, store.JobUpdate{
			Status: ptr(model.StatusError),
			Error:  &msg,
		}); err != nil {
			return fmt.Errorf("fail orphaned job %s: %w", job.ID, err)
		}
		e.logger.Warn("failed orphaned job from previous run", "job_id", job.ID, "type", job.Type)
	}

	queued, err := e.store.ListJobsByStatus(ctx, model.StatusQueued)
	if err != nil {
		return fmt.Errorf("list queued jobs: %w", err)
	}
	for _, job := range queued {
		select {
		case e.queue <- job.ID:
			e.logger.Info("requeued job", "job_id", job.ID, "type", job.Type)
		default:
			return ErrQueueFull
		}
	}
	return nil
}

// Submit validates params, persists a queued job, and enqueues it. Validation
// failures return a *pipeline.ValidationError and create no job.
func (e *Executor) Submit(ctx context.Context, projectID, jobType string, rawParams json.RawMessage) (*model.Job, error) {
	stage, ok := e.stages[jobType]
	if !ok {
		return nil, pipeline.Validation("unknown job type %q", jobType)
	}
	project, err := e.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	params, err := stage.Validate(ctx, project, rawParams)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	job := &model.Job{
		ID:        model.NewID(),
		ProjectID: project.ID,
		Type:      jobType,
		Status:    model.StatusQueued,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}

	select {
	case e.queue <- job.ID:
	default:
		msg := ErrQueueFull.Error()
		if _, uerr := e.store.UpdateJob(ctx, job.ID, store.JobUpdate{
			Status: ptr(model.StatusError),
			Error:  &msg,
		}); uerr != nil {
			e.logger.Error("mark overflowed job failed", "job_id", job.ID, "error", uerr)
		}
		return nil, ErrQueueFull
	}

	e.broker.Publish(Event{JobID: job.ID, Status: model.StatusQueued})
	e.logger.Info("job submitted", "job_id", job.ID, "type", jobType, "project_id", projectID)
	return job, nil
}

// Cancel requests cancellation of a job. It reports true when the job moved to
// cancelled and false when it was already terminal. Queued jobs cancel
// immediately; running jobs stop at their next progress checkpoint.
func (e *Executor) Cancel(ctx context.Context, jobID string) (bool, error) {
	job, err := e.store.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if model.Terminal(job.Status) {
		return false, nil
	}
	updated, err := e.store.UpdateJob(ctx, jobID, store.JobUpdate{Status: ptr(model.StatusCancelled)})
	if errors.Is(err, store.ErrInvalidTransition) {
		// Lost the race against a terminal write.
		return false, nil
	}
	if err != nil {
		return false, err
	}
	e.broker.Publish(Event{JobID: jobID, Status: updated.Status, Progress: updated.Progress, Stage: updated.Stage})
	e.broker.Close(jobID)
	e.logger.Info("job cancelled", "job_id", jobID, "type", job.Type)
	return true, nil
}

func (e *Executor) runJob(ctx context.Context, id string) {
	started := time.Now()

	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		e.logger.Error("load queued job", "job_id", id, "error", err)
		return
	}
	if job.Status != model.StatusQueued {
		// Cancelled while waiting in the queue.
		return
	}
	job, err = e.store.UpdateJob(ctx, id, store.JobUpdate{Status: ptr(model.StatusRunning)})
	if errors.Is(err, store.ErrInvalidTransition) {
		return
	}
	if err != nil {
		e.logger.Error("mark job running", "job_id", id, "error", err)
		return
	}
	e.broker.Publish(Event{JobID: id, Status: model.StatusRunning})

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("job panicked", "job_id", id, "type", job.Type, "panic", r)
			e.finish(ctx, job, started, nil, fmt.Errorf("internal: %v", r))
		}
	}()

	project, err := e.store.GetProject(ctx, job.ProjectID)
	if err != nil {
		e.finish(ctx, job, started, nil, fmt.Errorf("load project: %w", err))
		return
	}

	progress := func(pctx context.Context, stage string, percent int) error {
		cur, err := e.store.GetJob(pctx, id)
		if err == nil && cur.Status == model.StatusCancelled {
			return errCancelled
		}
		updated, err := e.store.UpdateJob(pctx, id, store.JobUpdate{Progress: &percent, Stage: &stage})
		if errors.Is(err, store.ErrInvalidTransition) {
			return errCancelled
		}
		if err != nil {
			return err
		}
		e.broker.Publish(Event{JobID: id, Status: updated.Status, Progress: updated.Progress, Stage: updated.Stage})
		return nil
	}

	result, err := e.stages[job.Type].Run(ctx, job, project, progress)
	e.finish(ctx, job, started, result, err)
}

// finish records the terminal status for a job and closes its event topic.
func (e *Executor) finish(ctx context.Context, job *model.Job, started time.Time, result json.RawMessage, runErr error) {
	var updated *model.Job
	var err error

	switch {
	case runErr == nil:
		updated, err = e.store.UpdateJob(ctx, job.ID, store.JobUpdate{
			Status:   ptr(model.StatusDone),
			Progress: ptr(100),
			Stage:    ptr("done"),
			Result:   result,
		})
		if err == nil {
			e.logger.Info("job done", "job_id", job.ID, "type", job.Type, "duration", time.Since(started))
		}
	case errors.Is(runErr, errCancelled):
		// Status was already written by Cancel; nothing further persists.
		e.logger.Info("job stopped at cancellation checkpoint", "job_id", job.ID, "type", job.Type)
		e.observe(job, model.StatusCancelled, started)
		return
	default:
		msg := runErr.Error()
		updated, err = e.store.UpdateJob(ctx, job.ID, store.JobUpdate{
			Status: ptr(model.StatusError),
			Error:  &msg,
		})
		if err == nil {
			e.logger.Error("job failed", "job_id", job.ID, "type", job.Type, "error", runErr)
		}
	}

	if errors.Is(err, store.ErrInvalidTransition) {
		// Cancelled between the last checkpoint and completion: cancellation wins.
		e.logger.Info("terminal write lost to cancellation", "job_id", job.ID)
		e.observe(job, model.StatusCancelled, started)
		return
	}
	if err != nil {
		e.logger.Error("record job outcome", "job_id", job.ID, "error", err)
		return
	}

	e.broker.Publish(Event{
		JobID:    job.ID,
		Status:   updated.Status,
		Progress: updated.Progress,
		Stage:    updated.Stage,
		Error:    updated.Error,
	})
	e.broker.Close(job.ID)
	e.observe(job, updated.Status, started)
}

func (e *Executor) observe(job *model.Job, status string, started time.Time) {
	if e.observer != nil {
		e.observer.JobFinished(job.Type, status, time.Since(started).Seconds())
	}
}

func ptr[T any](v T) *T { return &v }
