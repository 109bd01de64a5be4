// Package procpipe executes shell pipe chains (e.g. rtl_fm | sox | decoder)
// inside their own process group, so that a single termination signal reaches
// every stage of the chain.
package procpipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"syscall"
	"time"

	"github.com/sondewatch/client/pkg/log"
	"github.com/sondewatch/client/pkg/misc"
	"go.uber.org/zap"
)

const GracePeriodDefault = 5 * time.Second

type ProcessStuckError struct {
	PID int
}

func (m *ProcessStuckError) Error() string {
	return fmt.Sprintf("process group with pid %d was stuck", m.PID)
}

func (e *ProcessStuckError) Is(tgt error) bool {
	_, ok := tgt.(*ProcessStuckError)
	return ok
}

type ProcessNotStartedError struct {
	msg string
}

func (m *ProcessNotStartedError) Error() string {
	return m.msg
}

func (e *ProcessNotStartedError) Is(tgt error) bool {
	_, ok := tgt.(*ProcessNotStartedError)
	return ok
}

// Pipeline is a shell pipe chain running in its own process group.
type Pipeline struct {
	cmd               *exec.Cmd
	terminationSignal syscall.Signal
	gracePeriod       time.Duration

	// Closed by the waiter goroutine once cmd.Wait returned
	done chan error
}

// New prepares a pipeline from a shell command line. Nothing is started yet.
func New(script string) *Pipeline {
	cmd := exec.Command("/bin/sh", "-c", script)

	// This requests a process group from the system, all spawned children will belong to it
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid: true,
	}

	return &Pipeline{
		cmd:               cmd,
		terminationSignal: syscall.SIGTERM,
		gracePeriod:       GracePeriodDefault,
		done:              make(chan error, 1),
	}
}

// SetTerminationSignal overrides the graceful termination signal, some
// processes might need a specific one to exit cleanly
func (p *Pipeline) SetTerminationSignal(sig syscall.Signal) *Pipeline {
	p.terminationSignal = sig
	return p
}

// SetGracePeriod sets the amount of time that has to pass before the group is
// killed if it did not respond to the termination signal.
func (p *Pipeline) SetGracePeriod(period time.Duration) *Pipeline {
	p.gracePeriod = period
	return p
}

// Start launches the pipeline and returns a reader for its standard output.
func (p *Pipeline) Start() (io.ReadCloser, error) {
	stdout, err := p.cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}

	log.Debug("starting pipeline", zap.String("cmd", p.cmd.String()))

	if err := p.cmd.Start(); err != nil {
		return nil, &ProcessNotStartedError{err.Error()}
	}

	return stdout, nil
}

// Terminate signals the whole process group and reaps the pipeline.
// The caller must have stopped reading from the stdout pipe already.
func (p *Pipeline) Terminate() error {
	if p.cmd.Process == nil {
		return &ProcessNotStartedError{"pipeline was never started"}
	}

	// Use the negative PID so the signal reaches the whole group
	targetPID := -p.cmd.Process.Pid

	go func() {
		// This emits done as soon as every pipeline stage exited
		p.done <- p.cmd.Wait()
	}()

	log.Info("terminating process group", zap.Int("pid", targetPID), zap.String("signal", p.terminationSignal.String()))
	if err := syscall.Kill(targetPID, p.terminationSignal); err != nil {
		log.Warn("could not signal process group", zap.Int("pid", targetPID), zap.Error(err))
	}

	select {
	case err := <-p.done:
		log.Info("process group exited", zap.Int("pid", targetPID), zap.Error(err))
		// Termination on request is not an error worth bubbling up
		return nil
	case <-time.After(p.gracePeriod):
		log.Warn("grace period expired, killing stuck process group", zap.Int("pid", targetPID))

		if err := syscall.Kill(targetPID, syscall.SIGKILL); err != nil && errors.Is(err, syscall.ESRCH) {
			log.Panic("something is blocking cmd.Wait() from finishing")
		}

		<-p.done
		return &ProcessStuckError{targetPID}
	}
}

// Run executes a shell pipeline to completion inside its own process group and
// returns the exit code of its last stage. When the context expires before the
// pipeline finished, the group is terminated and a TimedOutError is returned.
func Run(ctx context.Context, script string) (int, error) {
	p := New(script)

	log.Debug("running command", zap.String("cmd", p.cmd.String()))

	if err := p.cmd.Start(); err != nil {
		return -1, &ProcessNotStartedError{err.Error()}
	}

	done := make(chan error, 1)
	go func() {
		done <- p.cmd.Wait()
	}()

	select {
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return exitErr.ExitCode(), nil
		}
		if err != nil {
			return -1, err
		}
		return 0, nil
	case <-ctx.Done():
		targetPID := -p.cmd.Process.Pid

		log.Warn("deadline reached, terminating process group", zap.Int("pid", targetPID))
		if err := syscall.Kill(targetPID, p.terminationSignal); err != nil {
			log.Warn("could not signal process group", zap.Int("pid", targetPID), zap.Error(err))
		}

		select {
		case <-done:
		case <-time.After(p.gracePeriod):
			_ = syscall.Kill(targetPID, syscall.SIGKILL)
			<-done
		}

		return -1, misc.NewTimedOutError("command timed out", p.gracePeriod)
	}
}
