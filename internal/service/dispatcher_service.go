package service

import (
	"context"
	"fmt"
	"sync"

	"lab-compare-be/internal/dto"
	"lab-compare-be/internal/pkg/logger"
)

const dispatcherModule = "DispatcherService"

// IDispatcherService serializes events per user: one user's events are
// handled strictly in arrival order while different users run in parallel.
type IDispatcherService interface {
	// Submit queues the event and returns a channel that receives the
	// handler's result once the event has been processed.
	Submit(ctx context.Context, event dto.IntakeEvent, replier Replier) <-chan error
	// Wait blocks until every queued event has been processed.
	Wait()
}

type dispatchJob struct {
	ctx     context.Context
	event   dto.IntakeEvent
	replier Replier
	done    chan error
}

type userQueue struct {
	jobs []dispatchJob
}

type dispatcherService struct {
	intake IIntakeService
	logger logger.ILogger

	mu     sync.Mutex
	queues map[string]*userQueue
	wg     sync.WaitGroup
}

func NewDispatcherService(intake IIntakeService, log logger.ILogger) IDispatcherService {
	return &dispatcherService{
		intake: intake,
		logger: log,
		queues: make(map[string]*userQueue),
	}
}

func (d *dispatcherService) Submit(ctx context.Context, event dto.IntakeEvent, replier Replier) <-chan error {
	job := dispatchJob{ctx: ctx, event: event, replier: replier, done: make(chan error, 1)}

	d.mu.Lock()
	q, running := d.queues[event.UserID]
	if !running {
		q = &userQueue{}
		d.queues[event.UserID] = q
		d.wg.Add(1)
	}
	q.jobs = append(q.jobs, job)
	d.mu.Unlock()

	if !running {
		go d.drain(event.UserID, q)
	}
	return job.done
}

func (d *dispatcherService) Wait() {
	d.wg.Wait()
}

// drain runs the user's jobs one by one. The worker exits, and the queue is
// dropped, as soon as nothing is pending.
func (d *dispatcherService) drain(userID string, q *userQueue) {
	defer d.wg.Done()

	for {
		d.mu.Lock()
		if len(q.jobs) == 0 {
			delete(d.queues, userID)
			d.mu.Unlock()
			return
		}
		job := q.jobs[0]
		q.jobs = q.jobs[1:]
		d.mu.Unlock()

		job.done <- d.run(job)
		close(job.done)
	}
}

func (d *dispatcherService) run(job dispatchJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error(dispatcherModule, "Intake handler panicked", map[string]interface{}{
				"user_id": job.event.UserID,
				"kind":    job.event.Kind,
				"panic":   fmt.Sprint(r),
			})
			err = fmt.Errorf("intake handler panicked: %v", r)
		}
	}()

	if err := d.intake.Handle(job.ctx, job.event, job.replier); err != nil {
		d.logger.Warn(dispatcherModule, "Reply delivery failed", map[string]interface{}{
			"user_id": job.event.UserID,
			"kind":    job.event.Kind,
			"error":   err.Error(),
		})
		return err
	}
	return nil
}
