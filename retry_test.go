package litepool

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := NewRetry(3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return errors.New("busy")
		}
		return nil
	}).Do()

	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestRetry_ReturnsLastError(t *testing.T) {
	calls := 0
	err := NewRetry(2, time.Millisecond, func() error {
		calls++
		return errors.New("still busy")
	}).Do()

	require.EqualError(t, err, "still busy")
	require.Equal(t, 2, calls)
}
