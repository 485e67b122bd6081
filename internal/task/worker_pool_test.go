package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewWorkerPool_DefaultsWorkerCount(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(1, setupTestLogger())

	pool := NewWorkerPool(context.Background(), queue, WorkerPoolConfig{WorkerCount: 5}, setupTestLogger())
	assert.Equal(t, 5, pool.workerCount)

	pool = NewWorkerPool(context.Background(), queue, WorkerPoolConfig{WorkerCount: 0}, setupTestLogger())
	assert.Equal(t, 1, pool.workerCount)

	pool = NewWorkerPool(context.Background(), queue, WorkerPoolConfig{WorkerCount: -3}, nil)
	assert.Equal(t, 1, pool.workerCount)
	assert.NotNil(t, pool.logger)
}

func TestTaskQueue(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(1, setupTestLogger())
	noop := Func{Name: "noop", Fn: func(context.Context) error { return nil }}

	require.NoError(t, queue.Enqueue(noop))
	assert.ErrorIs(t, queue.Enqueue(noop), ErrQueueFull)

	queue.Close()
	queue.Close()
	assert.ErrorIs(t, queue.Enqueue(noop), ErrQueueClosed)

	got, ok := <-queue.GetChannel()
	require.True(t, ok)
	assert.Equal(t, "noop", got.ID())
	_, ok = <-queue.GetChannel()
	assert.False(t, ok)
}

func TestRunAll_RunsEveryTaskAndReportsFailures(t *testing.T) {
	t.Parallel()

	var ran atomic.Int32
	failure := errors.New("transport down")

	tasks := []Task{
		Func{Name: "ok-1", Fn: func(context.Context) error { ran.Add(1); return nil }},
		Func{Name: "fails", Fn: func(context.Context) error { ran.Add(1); return failure }},
		Func{Name: "panics", Fn: func(context.Context) error { ran.Add(1); panic("boom") }},
		Func{Name: "ok-2", Fn: func(context.Context) error { ran.Add(1); return nil }},
	}

	var mu sync.Mutex
	errs := map[string]error{}
	RunAll(context.Background(), tasks, WorkerPoolConfig{WorkerCount: 3}, setupTestLogger(), func(task Task, err error) {
		mu.Lock()
		defer mu.Unlock()
		errs[task.ID()] = err
	})

	assert.EqualValues(t, 4, ran.Load())
	require.Len(t, errs, 2)
	assert.ErrorIs(t, errs["fails"], failure)
	assert.ErrorIs(t, errs["panics"], ErrTaskPanicked)
	assert.Contains(t, errs["panics"].Error(), "boom")
}

func TestRunAll_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	var current, peak atomic.Int32
	tasks := make([]Task, 20)
	for i := range tasks {
		tasks[i] = Func{Name: "job", Fn: func(context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
			return nil
		}}
	}

	RunAll(context.Background(), tasks, WorkerPoolConfig{WorkerCount: 4}, setupTestLogger(), nil)

	assert.LessOrEqual(t, peak.Load(), int32(4))
	assert.GreaterOrEqual(t, peak.Load(), int32(1))
}

func TestWorkerPool_StopOnCancel(t *testing.T) {
	t.Parallel()

	queue := NewTaskQueue(10, setupTestLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, queue.Enqueue(Func{Name: "blocking", Fn: func(ctx context.Context) error {
		close(started)
		select {
		case <-ctx.Done():
		case <-release:
		}
		return ctx.Err()
	}}))

	pool := NewWorkerPool(context.Background(), queue, WorkerPoolConfig{WorkerCount: 1}, setupTestLogger())
	pool.SetErrorHandler(func(Task, error) {})
	pool.Start()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for task to start")
	}

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		close(release)
		t.Fatal("Stop did not return after cancellation")
	}
}

func TestRunAll_NoTasks(t *testing.T) {
	t.Parallel()
	RunAll(context.Background(), nil, DefaultWorkerPoolConfig(), nil, nil)
}
