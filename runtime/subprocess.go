// runtime/subprocess.go
package runtime

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	goruntime "runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ProcessResult is the outcome of a finished command.
type ProcessResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

func shellCommand(ctx context.Context, cmd string) *exec.Cmd {
	if goruntime.GOOS == "windows" {
		return exec.CommandContext(ctx, "cmd", "/C", cmd)
	}
	return exec.CommandContext(ctx, "sh", "-c", cmd)
}

// RunCommand runs cmd through the system shell and waits for it.
// A non-zero exit is reported in ExitCode, not as an error.
func RunCommand(ctx context.Context, cmd string) (ProcessResult, error) {
	c := shellCommand(ctx, cmd)
	var stdout, stderr bytes.Buffer
	c.Stdout, c.Stderr = &stdout, &stderr
	err := c.Run()
	res := ProcessResult{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.ExitCode = exitErr.ExitCode()
	default:
		return res, err
	}
	return res, nil
}

// ProcessTable tracks processes started with Spawn so they can be reaped.
type ProcessTable struct {
	mu    sync.Mutex
	group errgroup.Group
	procs map[int]*exec.Cmd
}

func NewProcessTable() *ProcessTable {
	return &ProcessTable{procs: map[int]*exec.Cmd{}}
}

// Spawn starts cmd in the background and returns its pid.
func (t *ProcessTable) Spawn(cmd string) (int, error) {
	c := shellCommand(context.Background(), cmd)
	if err := c.Start(); err != nil {
		return 0, err
	}
	pid := c.Process.Pid
	t.mu.Lock()
	t.procs[pid] = c
	t.mu.Unlock()
	t.group.Go(func() error {
		err := c.Wait()
		t.mu.Lock()
		delete(t.procs, pid)
		t.mu.Unlock()
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil
		}
		return err
	})
	return pid, nil
}

// Running returns the number of spawned processes not yet reaped.
func (t *ProcessTable) Running() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.procs)
}

// Wait blocks until every spawned process has exited.
func (t *ProcessTable) Wait() error { return t.group.Wait() }

// WaitContext is Wait bounded by ctx. When ctx ends first, the remaining
// processes keep running and ctx.Err() is returned.
func (t *ProcessTable) WaitContext(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- t.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
