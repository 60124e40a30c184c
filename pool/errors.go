package pool

import (
	"errors"
	"fmt"
)

var (
	ErrWorkerPoolClosed = errors.New("worker pool is not active")
	ErrInvalidPoolSize  = errors.New("worker pool size must be greater than zero")
	ErrNilJob           = errors.New("job must not be nil")
)

// WorkerPanicError is the panic value Close raises when a worker was ended
// by a job panic under WithPanicPropagation.
type WorkerPanicError struct {
	WorkerID int
	Value    any
	Stack    []byte
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("worker %d panicked: %v", e.WorkerID, e.Value)
}

func (e *WorkerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
