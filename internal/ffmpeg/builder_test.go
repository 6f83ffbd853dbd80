package ffmpeg

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func writeFakeFFmpeg(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		t.Fatalf("flag %s not found in %v", flag, args)
	}
	return args[i+1]
}

func TestBuildCommandDerivedValues(t *testing.T) {
	exe := writeFakeFFmpeg(t)
	args, err := BuildCommand(exe, Params{
		VideoDevice: "cam",
		AudioDevice: "mic",
		Framerate:   30,
		VideoKbps:   1200,
		AudioKbps:   128,
	}, "/tmp/out")
	if err != nil {
		t.Fatal(err)
	}

	if got := argValue(t, args, "-g"); got != "60" {
		t.Errorf("keyframe interval = %s, want 60", got)
	}
	if got := argValue(t, args, "-keyint_min"); got != "60" {
		t.Errorf("keyint_min = %s, want 60", got)
	}
	if got := argValue(t, args, "-bufsize"); got != "2400k" {
		t.Errorf("bufsize = %s, want 2400k", got)
	}
	if got := argValue(t, args, "-ar"); got != "44100" {
		t.Errorf("sample rate = %s, want 44100", got)
	}
	if got := argValue(t, args, "-hls_time"); got != "2" {
		t.Errorf("hls_time = %s, want 2", got)
	}
	if got := argValue(t, args, "-hls_list_size"); got != "6" {
		t.Errorf("hls_list_size = %s, want 6", got)
	}
	if got := argValue(t, args, "-i"); got != "video=cam:audio=mic" {
		t.Errorf("input = %s", got)
	}
	if got := argValue(t, args, "-hls_flags"); got != "delete_segments+program_date_time+independent_segments" {
		t.Errorf("hls_flags = %s", got)
	}
}

func TestBuildCommandScaling(t *testing.T) {
	exe := writeFakeFFmpeg(t)

	args, err := BuildCommand(exe, Params{VideoDevice: "cam", AudioDevice: "mic", Framerate: 25, VideoKbps: 800, AudioKbps: 96, FrameSize: "1280x720"}, "/tmp/out")
	if err != nil {
		t.Fatal(err)
	}
	if got := argValue(t, args, "-vf"); got != "scale=1280x720:flags=lanczos" {
		t.Errorf("scale filter = %s", got)
	}

	args, err = BuildCommand(exe, Params{VideoDevice: "cam", AudioDevice: "mic", Framerate: 25, VideoKbps: 800, AudioKbps: 96}, "/tmp/out")
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(args, "-vf") {
		t.Error("scale filter present without a frame size")
	}
}

func TestBuildCommandMissingExecutable(t *testing.T) {
	_, err := BuildCommand("/nonexistent/ffmpeg", Params{VideoDevice: "cam", AudioDevice: "mic"}, "/tmp/out")
	if !errors.Is(err, ErrMissingExecutable) {
		t.Fatalf("expected ErrMissingExecutable, got %v", err)
	}
}
