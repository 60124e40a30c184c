package pool

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannel_FIFO(t *testing.T) {
	c := newChannel()
	for i := 0; i < 10; i++ {
		i := i
		require.NoError(t, c.send(work(func() { _ = i })))
	}
	require.Equal(t, 10, c.len())

	for i := 0; i < 10; i++ {
		m := c.recv()
		require.Equal(t, workMessage, m.kind)
	}
	require.Equal(t, 0, c.len())
}

func TestChannel_RecvBlocksUntilSend(t *testing.T) {
	c := newChannel()
	got := make(chan message, 1)

	go func() {
		got <- c.recv()
	}()

	select {
	case <-got:
		t.Fatal("recv returned on an empty channel")
	case <-time.After(50 * time.Millisecond):
	}

	require.NoError(t, c.send(shutdown()))

	select {
	case m := <-got:
		require.Equal(t, shutdownMessage, m.kind)
	case <-time.After(5 * time.Second):
		t.Fatal("recv never woke up")
	}
}

func TestChannel_CloseWithQueuesShutdownsBehindWork(t *testing.T) {
	c := newChannel()
	require.NoError(t, c.send(work(func() {})))
	require.NoError(t, c.send(work(func() {})))

	require.True(t, c.closeWith(2))
	require.False(t, c.closeWith(2))
	require.ErrorIs(t, c.send(work(func() {})), ErrWorkerPoolClosed)

	kinds := []messageKind{workMessage, workMessage, shutdownMessage, shutdownMessage}
	for _, k := range kinds {
		require.Equal(t, k, c.recv().kind)
	}
	require.Equal(t, 0, c.len())
}

func TestReceiver_ClaimsEachMessageOnce(t *testing.T) {
	c := newChannel()
	r := &receiver{ch: c}

	const n = 500
	for i := 0; i < n; i++ {
		require.NoError(t, c.send(work(func() {})))
	}
	c.closeWith(4)

	claimed := make(chan int, 4)
	for i := 0; i < 4; i++ {
		go func() {
			count := 0
			for r.claim().kind == workMessage {
				count++
			}
			claimed <- count
		}()
	}

	total := 0
	for i := 0; i < 4; i++ {
		total += <-claimed
	}
	require.Equal(t, n, total)
}
