package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	err   error
	calls [][]string
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{name}, args...))
	return nil, r.err
}

func TestUnsavedChanges(t *testing.T) {
	runner := &fakeRunner{}
	h := NewHost(runner)

	// exit 0 means the session has uncommitted changes
	require.True(t, h.UnsavedChanges(context.Background()))
	require.Equal(t, [][]string{{"cli-shell-api", "sessionChanged"}}, runner.calls)

	runner.err = errors.New("exit status 1")
	require.False(t, h.UnsavedChanges(context.Background()))
}

func TestTotalMemory(t *testing.T) {
	total, err := NewHost(&fakeRunner{}).TotalMemory()
	require.NoError(t, err)
	require.NotZero(t, total)
}
