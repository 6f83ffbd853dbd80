package mediaserver

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeFakeServer creates a shell script that behaves like a pid-file
// based server: plain invocation records its pid and sleeps, "-s stop"
// kills the recorded pid.
func writeFakeServer(t *testing.T, dir string) string {
	t.Helper()
	script := `#!/bin/sh
if [ "$1" = "-s" ]; then
	[ -f server.pid ] || exit 1
	kill "$(cat server.pid)" 2>/dev/null
	rm -f server.pid
	exit 0
fi
echo $$ > server.pid
exec sleep 60
`
	path := filepath.Join(dir, "fakeserver")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	exe := writeFakeServer(t, dir)
	svc := New(Config{
		ExecutablePath: exe,
		WorkDir:        dir,
		PidFile:        "server.pid",
		StopTimeout:    2 * time.Second,
	}, nil)
	t.Cleanup(svc.Shutdown)
	return svc
}

func TestServiceRefcount(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}
	if svc.Refs() != 2 {
		t.Fatalf("refs = %d, want 2", svc.Refs())
	}
	if !svc.Running() {
		t.Fatal("server should be running with references held")
	}

	svc.Release()
	if !svc.Running() {
		t.Fatal("server stopped while a reference was still held")
	}

	svc.Release()
	if svc.Running() {
		t.Fatal("server still running after last release")
	}
	if svc.Refs() != 0 {
		t.Fatalf("refs = %d, want 0", svc.Refs())
	}
}

func TestServiceReleaseWithoutAcquire(t *testing.T) {
	svc := newTestService(t)

	// Must not panic or go negative.
	svc.Release()
	if svc.Refs() != 0 {
		t.Fatalf("refs = %d, want 0", svc.Refs())
	}

	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}
	if svc.Refs() != 1 {
		t.Fatalf("refs = %d, want 1", svc.Refs())
	}
}

func TestServiceMissingExecutable(t *testing.T) {
	svc := New(Config{
		ExecutablePath: "/nonexistent/server",
		WorkDir:        t.TempDir(),
	}, nil)

	err := svc.Acquire()
	if err == nil {
		t.Fatal("expected error for missing executable")
	}
	if svc.Refs() != 0 {
		t.Fatalf("refs = %d after failed acquire, want 0", svc.Refs())
	}
}

func TestServiceRelaunchAfterSelfExit(t *testing.T) {
	dir := t.TempDir()
	script := `#!/bin/sh
if [ "$1" = "-s" ]; then exit 0; fi
echo launch >> launches.log
exit 0
`
	exe := filepath.Join(dir, "flakyserver")
	if err := os.WriteFile(exe, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	svc := New(Config{
		ExecutablePath: exe,
		WorkDir:        dir,
		PidFile:        "server.pid",
		StopTimeout:    time.Second,
	}, nil)
	t.Cleanup(svc.Shutdown)

	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && svc.Running() {
		time.Sleep(10 * time.Millisecond)
	}
	if svc.Running() {
		t.Fatal("server that exited on its own still reported running")
	}

	// The next acquire must notice the dead process and relaunch.
	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}
	if svc.Refs() != 2 {
		t.Errorf("refs = %d, want 2", svc.Refs())
	}

	deadline = time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		data, _ := os.ReadFile(filepath.Join(dir, "launches.log"))
		if strings.Count(string(data), "launch") == 2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	data, _ := os.ReadFile(filepath.Join(dir, "launches.log"))
	t.Fatalf("launches = %d, want 2 (dead server not relaunched)", strings.Count(string(data), "launch"))
}

// writeStubbornServer creates a server that records its pid but
// refuses the stop verb.
func writeStubbornServer(t *testing.T, dir string) string {
	t.Helper()
	script := `#!/bin/sh
if [ "$1" = "-s" ]; then
	exit 1
fi
echo $$ > server.pid
exec sleep 60
`
	path := filepath.Join(dir, "stubbornserver")
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestServiceForceKillsStubbornStray(t *testing.T) {
	dir := t.TempDir()
	exe := writeStubbornServer(t, dir)

	stray := exec.Command(exe)
	stray.Dir = dir
	if err := stray.Start(); err != nil {
		t.Fatal(err)
	}
	strayDone := make(chan error, 1)
	go func() { strayDone <- stray.Wait() }()

	pidPath := filepath.Join(dir, "server.pid")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(pidPath); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	svc := New(Config{
		ExecutablePath: exe,
		WorkDir:        dir,
		PidFile:        "server.pid",
		StopTimeout:    time.Second,
	}, nil)
	t.Cleanup(svc.Shutdown)

	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}

	// The stray ignores the stop verb, so acquire must have killed it
	// by its recorded pid before launching fresh.
	select {
	case <-strayDone:
	case <-time.After(3 * time.Second):
		t.Fatal("stray that ignores the stop verb was not force-killed")
	}
}

func TestServiceShutdown(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Acquire(); err != nil {
		t.Fatal(err)
	}

	svc.Shutdown()
	if svc.Running() {
		t.Fatal("server still running after shutdown")
	}
	if svc.Refs() != 0 {
		t.Fatalf("refs = %d after shutdown, want 0", svc.Refs())
	}
}
