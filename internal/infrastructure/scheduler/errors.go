package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when submitting to a pool that is not started or already stopped
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrQueueFull is returned when the task queue has no free slot
	ErrQueueFull = errors.New("task queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrTaskPanicked wraps a panic recovered from a task
	ErrTaskPanicked = errors.New("task panicked")
)
