// Package mediaserver manages the shared segment-serving process that
// channels depend on. One instance serves all channels and is reference
// counted: it starts when the first channel starts and stops when the
// last one stops.
package mediaserver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/streamdock/streamdock/internal/events"
	"github.com/streamdock/streamdock/internal/logging"
)

// ErrUnavailable indicates the media server executable was not found.
var ErrUnavailable = errors.New("media server executable not found")

// Config describes how to run the media server.
type Config struct {
	// ExecutablePath is the server binary, e.g. nginx.exe.
	ExecutablePath string
	// WorkDir is the directory the server is launched in. The stop
	// command runs in the same directory so relative pid paths resolve.
	WorkDir string
	// StopArgs are appended to the executable to request a graceful
	// stop. Defaults to the nginx convention ["-s", "stop"].
	StopArgs []string
	// PidFile is where the server records its pid, relative to WorkDir
	// unless absolute. Defaults to the nginx convention logs/nginx.pid.
	// Used to force-kill a stray instance that ignores the stop verb.
	PidFile string
	// StopTimeout bounds the graceful stop before escalating to a kill.
	StopTimeout time.Duration
}

// Service is the reference-counted media server singleton.
type Service struct {
	cfg    Config
	bus    *events.Bus
	logger *slog.Logger

	mu   sync.Mutex
	refs int
	cmd  *exec.Cmd
	done chan error
}

// New creates the service. It does not start anything.
func New(cfg Config, bus *events.Bus) *Service {
	if len(cfg.StopArgs) == 0 {
		cfg.StopArgs = []string{"-s", "stop"}
	}
	if cfg.PidFile == "" {
		cfg.PidFile = filepath.Join("logs", "nginx.pid")
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = 5 * time.Second
	}
	return &Service{
		cfg:    cfg,
		bus:    bus,
		logger: logging.GetLogger("mediaserver"),
	}
}

// Refs returns the current reference count.
func (s *Service) Refs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refs
}

// Running reports whether the server process is currently alive.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reapLocked()
	return s.cmd != nil
}

// reapLocked clears the process handle if the owned server exited on
// its own, so the next Acquire relaunches instead of counting against
// a dead process. Caller holds s.mu.
func (s *Service) reapLocked() {
	if s.cmd == nil {
		return
	}
	select {
	case err := <-s.done:
		s.logger.Warn("Media server exited on its own", "error", err)
		s.cmd, s.done = nil, nil
	default:
	}
}

// Acquire ensures the server is running and takes one reference.
// A stray instance left over from a previous crash is stopped before
// launching fresh. Returns ErrUnavailable when the executable is
// missing; no reference is taken on error.
func (s *Service) Acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reapLocked()
	if s.cmd == nil {
		if _, err := os.Stat(s.cfg.ExecutablePath); err != nil {
			return fmt.Errorf("%w: %s", ErrUnavailable, s.cfg.ExecutablePath)
		}

		s.stopStray()

		cmd := exec.Command(s.cfg.ExecutablePath)
		cmd.Dir = s.cfg.WorkDir
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("launch media server: %w", err)
		}
		s.logger.Info("Media server started", "pid", cmd.Process.Pid, "workdir", s.cfg.WorkDir)

		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		s.cmd = cmd
		s.done = done
	}

	s.refs++
	s.publishState()
	return nil
}

// Release drops one reference and stops the server when the count
// reaches zero. Safe to call with no references held.
func (s *Service) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reapLocked()
	if s.refs > 0 {
		s.refs--
	}
	if s.refs > 0 || s.cmd == nil {
		s.publishState()
		return
	}

	s.stopLocked()
	s.publishState()
}

// Shutdown stops the server regardless of the reference count.
// Used during process-wide shutdown.
func (s *Service) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reapLocked()
	s.refs = 0
	if s.cmd != nil {
		s.stopLocked()
	}
	s.publishState()
}

// stopLocked runs the graceful stop command, waits out the timeout,
// then kills. Tolerates a server that already exited externally.
// Caller holds s.mu.
func (s *Service) stopLocked() {
	cmd, done := s.cmd, s.done
	s.cmd, s.done = nil, nil

	stop := exec.Command(s.cfg.ExecutablePath, s.cfg.StopArgs...)
	stop.Dir = s.cfg.WorkDir
	if err := stop.Run(); err != nil {
		s.logger.Warn("Graceful stop command failed", "error", err)
	}

	select {
	case err := <-done:
		s.logger.Info("Media server stopped", "error", err)
		return
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Warn("Media server did not stop gracefully, killing", "timeout", s.cfg.StopTimeout)
	}

	if cmd.Process != nil {
		if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			s.logger.Warn("Failed to kill media server", "error", err)
		}
	}

	select {
	case <-done:
	case <-time.After(s.cfg.StopTimeout):
		s.logger.Warn("Media server did not exit after kill")
	}
}

// stopStray terminates an instance left over from a previous run that
// this process does not own. The stop verb is tried first; a stray
// that survives it is force-killed by its recorded pid, falling back
// to the image name when no pid is discoverable.
func (s *Service) stopStray() {
	stop := exec.Command(s.cfg.ExecutablePath, s.cfg.StopArgs...)
	stop.Dir = s.cfg.WorkDir
	stopErr := stop.Run()

	pidPath := s.cfg.PidFile
	if !filepath.IsAbs(pidPath) {
		pidPath = filepath.Join(s.cfg.WorkDir, pidPath)
	}
	data, err := os.ReadFile(pidPath)
	if err != nil {
		if stopErr != nil {
			if killErr := forceKillByName(filepath.Base(s.cfg.ExecutablePath)); killErr != nil {
				s.logger.Debug("No stray media server to stop", "error", stopErr)
			}
		}
		return
	}

	// A pid file surviving the stop verb means the stray is hung or
	// never read the signal.
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err == nil && pid > 0 {
		if proc, err := os.FindProcess(pid); err == nil {
			if err := proc.Kill(); err == nil {
				s.logger.Warn("Force-killed stray media server", "pid", pid)
			}
		}
	}
	os.Remove(pidPath)
}

// publishState emits the current refcount. Caller holds s.mu.
func (s *Service) publishState() {
	if s.bus == nil {
		return
	}
	s.bus.Publish(events.MediaServerStateChangedEvent{
		Running:   s.cmd != nil,
		Refs:      s.refs,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
