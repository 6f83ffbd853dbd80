package channel

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/streamdock/streamdock/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type exitRecorder struct {
	mu        sync.Mutex
	fired     bool
	code      int
	requested bool
}

func (r *exitRecorder) record(code int, requested bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = true
	r.code = code
	r.requested = requested
}

func (r *exitRecorder) wait(t *testing.T, timeout time.Duration) (int, bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		r.mu.Lock()
		if r.fired {
			code, requested := r.code, r.requested
			r.mu.Unlock()
			return code, requested
		}
		r.mu.Unlock()
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("timeout waiting for process exit")
	return 0, false
}

func TestProcessGracefulStop(t *testing.T) {
	rec := &exitRecorder{}
	p := NewProcess("test", discardLogger(), events.New(), rec.record)

	// Exits cleanly as soon as a line arrives on stdin.
	if err := p.Start([]string{"sh", "-c", "read line; exit 0"}); err != nil {
		t.Fatal(err)
	}

	p.Stop()

	code, requested := rec.wait(t, 2*time.Second)
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
	if !requested {
		t.Error("exit should be marked as requested")
	}
	if p.Running() {
		t.Error("process handle should be released after stop")
	}
}

func TestProcessForceKill(t *testing.T) {
	rec := &exitRecorder{}
	p := NewProcess("test", discardLogger(), events.New(), rec.record)
	p.SetTimeouts(100*time.Millisecond, 2*time.Second)

	// Ignores the quit byte and has to be killed.
	if err := p.Start([]string{"sh", "-c", "exec sleep 60"}); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	p.Stop()
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Errorf("stop took too long: %v", elapsed)
	}

	code, requested := rec.wait(t, 2*time.Second)
	if code != exitCodeKilled {
		t.Errorf("exit code = %d, want %d", code, exitCodeKilled)
	}
	if !requested {
		t.Error("exit should be marked as requested")
	}
}

func TestProcessSpontaneousExit(t *testing.T) {
	rec := &exitRecorder{}
	p := NewProcess("test", discardLogger(), events.New(), rec.record)

	if err := p.Start([]string{"sh", "-c", "exit 3"}); err != nil {
		t.Fatal(err)
	}

	code, requested := rec.wait(t, 2*time.Second)
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if requested {
		t.Error("spontaneous exit should not be marked as requested")
	}
}

func TestProcessOutputLines(t *testing.T) {
	bus := events.New()

	var mu sync.Mutex
	var lines []string
	unsub := bus.Subscribe(func(e events.ChannelLogEvent) {
		mu.Lock()
		lines = append(lines, e.Line)
		mu.Unlock()
	})
	defer unsub()

	rec := &exitRecorder{}
	p := NewProcess("test", discardLogger(), bus, rec.record)

	if err := p.Start([]string{"sh", "-c", "echo one; echo two 1>&2; exit 0"}); err != nil {
		t.Fatal(err)
	}
	rec.wait(t, 2*time.Second)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(lines)
		mu.Unlock()
		if n >= 2 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(lines) != 2 {
		t.Fatalf("expected 2 output lines, got %d: %v", len(lines), lines)
	}
	// stdout and stderr are merged, so ordering between the streams
	// is not guaranteed.
	seen := map[string]bool{lines[0]: true, lines[1]: true}
	if !seen["one"] || !seen["two"] {
		t.Errorf("unexpected lines: %v", lines)
	}
}

func TestProcessOversizedOutputLine(t *testing.T) {
	rec := &exitRecorder{}
	p := NewProcess("test", discardLogger(), events.New(), rec.record)

	// A single line past the scanner's limit aborts output streaming;
	// the exit must still be observed instead of wedging on the pipe.
	if err := p.Start([]string{"sh", "-c", "head -c 300000 /dev/zero | tr '\\0' 'a'; echo; exit 0"}); err != nil {
		t.Fatal(err)
	}

	_, requested := rec.wait(t, 5*time.Second)
	if requested {
		t.Error("spontaneous exit should not be marked as requested")
	}
	if p.Running() {
		t.Error("process handle should be released after exit")
	}
}

func TestProcessStopWhenIdle(t *testing.T) {
	p := NewProcess("test", discardLogger(), events.New(), nil)

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("idle stop should return immediately")
	}
}

func TestProcessLaunchFailure(t *testing.T) {
	rec := &exitRecorder{}
	p := NewProcess("test", discardLogger(), events.New(), rec.record)

	err := p.Start([]string{"/nonexistent/encoder-binary"})
	if err == nil {
		t.Fatal("expected launch error")
	}

	code, requested := rec.wait(t, 2*time.Second)
	if code != ExitCodeLaunchFailure {
		t.Errorf("exit code = %d, want %d", code, ExitCodeLaunchFailure)
	}
	if requested {
		t.Error("launch failure should not be marked as requested")
	}
	if p.Running() {
		t.Error("no process should be owned after a failed launch")
	}
}
