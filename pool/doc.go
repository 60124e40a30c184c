// Package pool runs func() jobs on a fixed set of worker goroutines.
//
// Workers share one unbounded FIFO queue. A worker takes the queue's
// receive lock only long enough to claim one message, so a slow job never
// holds up the others. Close queues one shutdown message per worker behind
// the pending work and joins every worker before returning:
//
//	p := pool.NewWorkerPool(4, pool.WithLogger(logger))
//	for _, conn := range conns {
//		conn := conn
//		p.Execute(func() { serve(conn) })
//	}
//	p.Close()
//
// A job panic is recovered and reported as EventJobPanicked. With
// WithPanicPropagation the panic instead ends that worker, and Close
// re-panics with a *WorkerPanicError once all workers have been joined.
package pool
