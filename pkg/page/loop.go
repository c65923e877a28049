package page

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// Task is a unit of work that runs on the page loop.
type Task func(ctx context.Context)

// loop is the page's serial task queue.
type loop struct {
	dispatchCh chan Task
	idle       chan struct{}
	inflight   atomic.Int64
	logger     *slog.Logger
}

func newLoop(size int, logger *slog.Logger) *loop {
	return &loop{
		dispatchCh: make(chan Task, size),
		idle:       make(chan struct{}, 1),
		logger:     logger,
	}
}

// Dispatch queues task to run on the loop. It is safe to call from any
// goroutine. When the queue is full the task is dropped and logged.
func (l *loop) Dispatch(task Task) {
	select {
	case l.dispatchCh <- task:
	default:
		l.logger.Warn("page task queue full, discarding task")
	}
}

// Go runs work on its own goroutine and queues the Task it returns. A nil
// Task queues nothing. Settle waits for work started with Go.
func (l *loop) Go(ctx context.Context, work func(ctx context.Context) Task) {
	l.inflight.Add(1)
	go func() {
		defer func() {
			if l.inflight.Add(-1) == 0 {
				select {
				case l.idle <- struct{}{}:
				default:
				}
			}
		}()

		task := l.safeWork(ctx, work)
		if task == nil {
			return
		}
		select {
		case l.dispatchCh <- task:
		case <-ctx.Done():
			l.logger.Debug("page continuation dropped", "error", ctx.Err())
		}
	}()
}

// Pending reports the number of Go calls whose work has not finished.
func (l *loop) Pending() int {
	return int(l.inflight.Load())
}

// Settle runs queued tasks until the queue is empty and no work started
// with Go is still in flight.
func (l *loop) Settle(ctx context.Context) error {
	for {
		select {
		case task := <-l.dispatchCh:
			l.runTask(ctx, task)
			continue
		default:
		}

		// Work queues its continuation before leaving the in-flight count,
		// so an empty queue seen after a zero count is final.
		if l.inflight.Load() == 0 {
			select {
			case task := <-l.dispatchCh:
				l.runTask(ctx, task)
				continue
			default:
				return nil
			}
		}

		select {
		case task := <-l.dispatchCh:
			l.runTask(ctx, task)
		case <-l.idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Run runs queued tasks until ctx is done.
func (l *loop) Run(ctx context.Context) error {
	for {
		select {
		case task := <-l.dispatchCh:
			l.runTask(ctx, task)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (l *loop) runTask(ctx context.Context, task Task) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("page task panicked", "panic", fmt.Sprint(p))
		}
	}()
	task(ctx)
}

func (l *loop) safeWork(ctx context.Context, work func(context.Context) Task) (task Task) {
	defer func() {
		if p := recover(); p != nil {
			l.logger.Error("page async work panicked", "panic", fmt.Sprint(p))
			task = nil
		}
	}()
	return work(ctx)
}
