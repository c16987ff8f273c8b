// Package probes implements per-device checks driven by external commands.
package probes

import (
	"bytes"
	"errors"
	"os/exec"
	"time"

	"golang.org/x/sys/unix"
)

const (
	// waitSlice bounds how long a probe can go without polling its stop flag.
	waitSlice = time.Second
	// killGrace is how long a terminated process gets before SIGKILL.
	killGrace = 2 * time.Second
)

// ErrStopped reports that a stop request interrupted the external command.
var ErrStopped = errors.New("command stopped by request")

// ErrBudgetExceeded reports that the command outlived its wall-clock budget.
var ErrBudgetExceeded = errors.New("command exceeded time budget")

// RunCommand launches a command, collects its stdout, and waits for exit.
// The wait is decomposed into one-second slices; between slices the stop
// callback and the budget are checked. On stop or budget expiry the process
// receives SIGTERM, then SIGKILL after a short grace window, so a child is
// never leaked. A zero budget means no wall-clock bound.
func RunCommand(name string, args []string, budget time.Duration, stop func() bool) (string, error) {
	cmd := exec.Command(name, args...)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return "", err
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var deadline time.Time
	if budget > 0 {
		deadline = time.Now().Add(budget)
	}

	ticker := time.NewTicker(waitSlice)
	defer ticker.Stop()

	for {
		select {
		case err := <-done:
			return stdout.String(), err
		case <-ticker.C:
			if stop != nil && stop() {
				terminate(cmd, done)
				return stdout.String(), ErrStopped
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				terminate(cmd, done)
				return stdout.String(), ErrBudgetExceeded
			}
		}
	}
}

// terminate asks the process to exit and escalates to SIGKILL if it ignores
// the request past the grace window.
func terminate(cmd *exec.Cmd, done chan error) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Signal(unix.SIGTERM)
	select {
	case <-done:
	case <-time.After(killGrace):
		_ = cmd.Process.Kill()
		<-done
	}
}
