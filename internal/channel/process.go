// Package channel owns the lifecycle of one encoding subprocess per channel.
package channel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/streamdock/streamdock/internal/events"
	"github.com/streamdock/streamdock/internal/ffmpeg"
)

// ExitCodeLaunchFailure is the sentinel code reported when the encoder
// never launched (missing executable, exec failure).
const ExitCodeLaunchFailure = -1

// exitCodeKilled is reported when the encoder had to be force-killed.
const exitCodeKilled = 137

// ExitFunc is called exactly once when the encoder process reaches a
// terminal state. requested is true when the exit followed a Stop call.
type ExitFunc func(code int, requested bool)

// Process manages one channel's encoder subprocess. It merges stdout
// and stderr into a single line stream, keeps stdin open for the
// graceful quit byte, and reports the terminal exit code through onExit.
type Process struct {
	name   string
	logger *slog.Logger
	bus    *events.Bus
	onExit ExitFunc

	gracefulTimeout time.Duration
	killTimeout     time.Duration

	mu            sync.Mutex
	cmd           *exec.Cmd
	stdin         io.WriteCloser
	exited        chan struct{}
	stopRequested bool
}

// NewProcess creates a process for the named channel. Output lines are
// logged through logger and published on the bus; onExit fires once per
// launched process.
func NewProcess(name string, logger *slog.Logger, bus *events.Bus, onExit ExitFunc) *Process {
	return &Process{
		name:            name,
		logger:          logger,
		bus:             bus,
		onExit:          onExit,
		gracefulTimeout: 5 * time.Second,
		killTimeout:     5 * time.Second,
	}
}

// SetTimeouts overrides the graceful and kill timeouts.
func (p *Process) SetTimeouts(graceful, kill time.Duration) {
	p.gracefulTimeout = graceful
	p.killTimeout = kill
}

// Running reports whether a subprocess is currently owned.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cmd != nil
}

// Start launches the encoder with the given argument vector (executable
// first). Output streaming and exit monitoring run on their own
// goroutines; Start returns as soon as the process is launched.
func (p *Process) Start(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("empty command")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("channel %s already has a process", p.name)
	}

	cmd := exec.Command(args[0], args[1:]...)
	cmd.SysProcAttr = sysProcAttr()

	// Merge stdout and stderr into one stream. The write side is
	// closed after Wait so the reader sees EOF and never blocks
	// teardown.
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	stdin, err := cmd.StdinPipe()
	if err != nil {
		pw.Close()
		return fmt.Errorf("stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		pw.Close()
		stdin.Close()
		p.logger.Error("Failed to launch encoder", "error", err)
		p.bus.Publish(events.ChannelExitedEvent{
			Channel:   p.name,
			ExitCode:  ExitCodeLaunchFailure,
			Requested: false,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
		if p.onExit != nil {
			go p.onExit(ExitCodeLaunchFailure, false)
		}
		return fmt.Errorf("launch encoder: %w", err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.stopRequested = false
	p.exited = make(chan struct{})

	p.logger.Info("Encoder started", "pid", cmd.Process.Pid)

	go p.streamOutput(pr)
	go p.monitor(cmd, pw, stdin, p.exited)

	return nil
}

// monitor waits for process exit, releases pipes and the handle, and
// reports the terminal status.
func (p *Process) monitor(cmd *exec.Cmd, pw *io.PipeWriter, stdin io.WriteCloser, exited chan struct{}) {
	waitErr := cmd.Wait()
	pw.Close()
	stdin.Close()

	code := exitCodeFromError(waitErr)
	if code == -1 {
		// Killed by signal before producing an exit code.
		code = exitCodeKilled
	}

	p.mu.Lock()
	requested := p.stopRequested
	p.cmd = nil
	p.stdin = nil
	p.mu.Unlock()

	p.logger.Info("Encoder exited", "exit_code", code, "requested", requested)
	p.bus.Publish(events.ChannelExitedEvent{
		Channel:   p.name,
		ExitCode:  code,
		Requested: requested,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})

	close(exited)

	if p.onExit != nil {
		p.onExit(code, requested)
	}
}

// Stop requests a graceful shutdown by writing the quit byte to the
// encoder's stdin, waits up to the grace period, then escalates to a
// forceful kill. Stopping an already stopped channel is a no-op.
// Blocks until the process is gone.
func (p *Process) Stop() {
	p.mu.Lock()
	cmd := p.cmd
	stdin := p.stdin
	exited := p.exited
	if cmd == nil {
		p.mu.Unlock()
		p.logger.Info("Stop requested but no encoder is running")
		return
	}
	// Set before writing the quit byte so a fast exit still reads as
	// operator-initiated.
	p.stopRequested = true
	p.mu.Unlock()

	graceful := true
	if _, err := io.WriteString(stdin, "q\n"); err != nil {
		p.logger.Warn("Quit write failed, killing encoder", "error", err)
		graceful = false
	}

	if graceful {
		select {
		case <-exited:
			return
		case <-time.After(p.gracefulTimeout):
			p.logger.Warn("Graceful shutdown timeout, forcing kill", "timeout", p.gracefulTimeout)
		}
	}

	if cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			p.logger.Warn("Failed to kill encoder", "error", err)
		}
	}

	select {
	case <-exited:
	case <-time.After(p.killTimeout):
		p.logger.Error("Encoder did not exit after kill signal")
	}
}

// streamOutput reads merged encoder output line by line until EOF,
// logging each line at its parsed level and publishing it on the bus.
// The read side is closed on return so a scanner error (an oversized
// line) cannot leave the writer blocked and wedge process teardown.
func (p *Process) streamOutput(pr *io.PipeReader) {
	defer pr.Close()

	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024)

	for scanner.Scan() {
		line := scanner.Text()
		level, msg := ffmpeg.ParseLogLevel(line)

		switch level {
		case "fatal", "error", "panic":
			p.logger.Error(msg)
		case "warning":
			p.logger.Warn(msg)
		case "debug", "trace", "verbose":
			p.logger.Debug(msg)
		default:
			p.logger.Info(msg)
		}

		p.bus.Publish(events.ChannelLogEvent{
			Channel: p.name,
			Level:   level,
			Line:    line,
		})
	}

	if err := scanner.Err(); err != nil {
		p.logger.Warn("Error reading encoder output", "error", err)
	}
}

// exitCodeFromError extracts the exit code from a Wait error.
// Returns 0 for nil, the exit code for ExitError, or 1 otherwise.
func exitCodeFromError(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return 1
}
