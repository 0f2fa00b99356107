package cmdrun

import (
	"context"
	"fmt"
	"os/exec"
)

// Runner executes external commands. Destructive primitives (partitioning,
// mkfs, mount) all go through this interface so workflows can be exercised
// against a fake.
type Runner interface {
	// Run executes the command and returns its combined output. A non-zero
	// exit status is returned as an error that includes the output.
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

// New returns a Runner backed by os/exec.
func New() Runner {
	return execRunner{}
}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		// A command killed by cancellation reports "signal: killed"; callers
		// need the interrupt itself, not how the process died.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return output, fmt.Errorf("%s interrupted: %w", name, ctxErr)
		}
		return output, fmt.Errorf("%s failed: %w, output: %s", name, err, output)
	}
	return output, nil
}
