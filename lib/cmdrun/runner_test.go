package cmdrun

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRunCapturesOutput(t *testing.T) {
	output, err := New().Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	require.Equal(t, "hello\n", string(output))
}

func TestRunFailureIncludesOutput(t *testing.T) {
	_, err := New().Run(context.Background(), "sh", "-c", "echo device busy >&2; exit 1")
	require.Error(t, err)
	require.Contains(t, err.Error(), "device busy")
}

func TestRunInterrupted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err := New().Run(ctx, "sleep", "10")
	require.ErrorIs(t, err, context.Canceled)
}
