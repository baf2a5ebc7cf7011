package market

import "errors"

var (
	// ErrWorkerUnavailable means the execution worker failed its health
	// probe; nothing was dispatched.
	ErrWorkerUnavailable = errors.New("execution worker unavailable")
	// ErrExecutionFailed carries a failure the worker itself reported.
	ErrExecutionFailed = errors.New("execution failed")
	// ErrStorageFailed means the result upload did not produce a locator.
	// The pending execution state stays retrievable for a manual retry.
	ErrStorageFailed = errors.New("result storage failed")
)
