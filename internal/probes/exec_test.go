package probes

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandCapturesStdout(t *testing.T) {
	output, err := RunCommand("echo", []string{"hello"}, 5*time.Second, nil)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", output)
}

func TestRunCommandMissingBinary(t *testing.T) {
	_, err := RunCommand("definitely-not-a-command-xyz", nil, time.Second, nil)
	assert.Error(t, err)
}

func TestRunCommandBudgetExceeded(t *testing.T) {
	start := time.Now()
	_, err := RunCommand("sleep", []string{"30"}, 500*time.Millisecond, nil)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	// One wait slice to notice plus the termination exchange.
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunCommandStop(t *testing.T) {
	stopped := func() bool { return true }

	start := time.Now()
	_, err := RunCommand("sleep", []string{"30"}, time.Minute, stopped)
	assert.ErrorIs(t, err, ErrStopped)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestRunCommandNoBudget(t *testing.T) {
	output, err := RunCommand("echo", []string{"unbounded"}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, "unbounded\n", output)
}
