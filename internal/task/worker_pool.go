package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrTaskPanicked wraps a panic recovered from a task.
var ErrTaskPanicked = errors.New("task panicked")

// WorkerPool manages a pool of worker goroutines that process tasks
// from a task queue until the queue is closed and drained or the pool's
// context is cancelled.
type WorkerPool struct {
	// taskQueue provides read access to the tasks to be processed
	taskQueue TaskQueueReader

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger

	// errorHandler is called when a task fails or panics.
	// If nil, errors are only logged.
	errorHandler func(task Task, err error)
}

// WorkerPoolConfig holds configuration options for the worker pool
type WorkerPoolConfig struct {
	// WorkerCount determines how many concurrent worker goroutines to start.
	// If zero or negative, defaults to 1.
	WorkerCount int
}

// DefaultWorkerPoolConfig returns a WorkerPoolConfig with reasonable defaults
func DefaultWorkerPoolConfig() WorkerPoolConfig {
	return WorkerPoolConfig{WorkerCount: 2}
}

// NewWorkerPool creates a worker pool bound to parent. Cancelling parent
// stops workers after their current task.
func NewWorkerPool(
	parent context.Context,
	taskQueue TaskQueueReader,
	config WorkerPoolConfig,
	logger *slog.Logger,
) *WorkerPool {
	if logger == nil {
		logger = slog.Default()
	}

	workerCount := config.WorkerCount
	if workerCount <= 0 {
		workerCount = 1
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
	}

	ctx, cancel := context.WithCancel(parent)

	return &WorkerPool{
		taskQueue:   taskQueue,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger,
	}
}

// SetErrorHandler sets the callback for task failures. Call before Start.
func (p *WorkerPool) SetErrorHandler(handler func(task Task, err error)) {
	p.errorHandler = handler
}

// Start launches the workers.
func (p *WorkerPool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Wait blocks until every worker has exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
	p.cancel()
}

// Stop cancels the pool and waits for workers to finish their current task.
func (p *WorkerPool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	tasks := p.taskQueue.GetChannel()
	for {
		// Prefer cancellation over picking up more work.
		select {
		case <-p.ctx.Done():
			return
		default:
		}

		select {
		case <-p.ctx.Done():
			return
		case t, ok := <-tasks:
			if !ok {
				return
			}
			p.process(t, id)
		}
	}
}

func (p *WorkerPool) process(t Task, workerID int) {
	err := p.execute(t)
	if err == nil {
		return
	}

	if p.errorHandler != nil {
		p.errorHandler(t, err)
		return
	}

	p.logger.Error("task execution failed",
		"task_id", t.ID(),
		"worker_id", workerID,
		"error", err)
}

func (p *WorkerPool) execute(t Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return t.Execute(p.ctx)
}

// RunAll executes tasks on a fresh pool of config.WorkerCount workers and
// returns once every task has finished or ctx is cancelled.
func RunAll(
	ctx context.Context,
	tasks []Task,
	config WorkerPoolConfig,
	logger *slog.Logger,
	onError func(task Task, err error),
) {
	if len(tasks) == 0 {
		return
	}

	queue := NewTaskQueue(len(tasks), logger)
	for _, t := range tasks {
		// Capacity equals len(tasks), so Enqueue cannot fail here.
		_ = queue.Enqueue(t)
	}
	queue.Close()

	if config.WorkerCount > len(tasks) {
		config.WorkerCount = len(tasks)
	}

	pool := NewWorkerPool(ctx, queue, config, logger)
	pool.SetErrorHandler(onError)
	pool.Start()
	pool.Wait()
}
