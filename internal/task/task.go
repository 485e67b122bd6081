package task

import "context"

// Task is a unit of work processed by a WorkerPool.
type Task interface {
	// ID identifies the task in logs and error reports.
	ID() string

	// Execute runs the task logic.
	Execute(ctx context.Context) error
}

// Func adapts a function to the Task interface.
type Func struct {
	Name string
	Fn   func(ctx context.Context) error
}

// ID implements Task.
func (f Func) ID() string { return f.Name }

// Execute implements Task.
func (f Func) Execute(ctx context.Context) error { return f.Fn(ctx) }

// TaskQueueReader provides read-only access to the task channel
// allowing workers to consume tasks without the ability to enqueue.
type TaskQueueReader interface {
	GetChannel() <-chan Task
}

// TaskQueueWriter provides write access to the task queue.
type TaskQueueWriter interface {
	// Enqueue adds a task to the queue.
	// Returns an error if the queue is full or closed.
	Enqueue(task Task) error

	// Close prevents further submission; workers drain what is queued.
	Close()
}
