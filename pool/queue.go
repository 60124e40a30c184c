package pool

import "sync"

// channel is an unbounded FIFO of messages. Sends never block; recv blocks
// until a message is available.
type channel struct {
	mu     sync.Mutex
	ready  *sync.Cond
	items  []message
	head   int
	closed bool
}

func newChannel() *channel {
	c := &channel{}
	c.ready = sync.NewCond(&c.mu)
	return c
}

func (c *channel) send(m message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrWorkerPoolClosed
	}

	c.items = append(c.items, m)
	c.ready.Signal()
	return nil
}

// closeWith appends n shutdown messages behind everything already queued and
// refuses further sends, in one step, so no work can slip in after them.
func (c *channel) closeWith(n int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	for i := 0; i < n; i++ {
		c.items = append(c.items, shutdown())
	}
	c.closed = true
	c.ready.Broadcast()
	return true
}

func (c *channel) recv() message {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.head == len(c.items) {
		c.ready.Wait()
	}

	m := c.items[c.head]
	c.items[c.head] = message{}
	c.head++

	// reclaim the consumed prefix once the queue drains
	if c.head == len(c.items) {
		c.items = c.items[:0]
		c.head = 0
	}

	return m
}

func (c *channel) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) - c.head
}

// receiver is the consumer side of the channel shared by every worker. Only
// one worker at a time may wait on it; the lock is released as soon as a
// message is taken, never held while a job runs.
type receiver struct {
	mu sync.Mutex
	ch *channel
}

func (r *receiver) claim() message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ch.recv()
}
