package pool

type Pool interface {
	// Execute queues a job and panics if the pool no longer accepts work.
	Execute(Job)

	// AddWork queues a job for the next idle worker. It returns
	// ErrWorkerPoolClosed once Close has been called.
	AddWork(Job) error

	// Size is the number of workers fixed at construction
	Size() int

	// Close sends one shutdown per worker and blocks until every worker
	// has exited. It is safe to call more than once.
	Close()
}
