package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Channel 1", "channel1"},
		{"Lobby Cam", "lobbycam"},
		{"already", "already"},
		{"  Spaced  Out  ", "spacedout"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestChannelValidate(t *testing.T) {
	valid := Channel{Name: "cam", Framerate: 30, VideoKbps: 1200, AudioKbps: 128}
	if err := valid.Validate(); err != nil {
		t.Errorf("valid channel rejected: %v", err)
	}

	for _, ch := range []Channel{
		{Name: "", Framerate: 30, VideoKbps: 1200, AudioKbps: 128},
		{Name: "  ", Framerate: 30, VideoKbps: 1200, AudioKbps: 128},
		{Name: "cam", Framerate: 0, VideoKbps: 1200, AudioKbps: 128},
		{Name: "cam", Framerate: 30, VideoKbps: 0, AudioKbps: 128},
		{Name: "cam", Framerate: 30, VideoKbps: 1200, AudioKbps: 0},
	} {
		if err := ch.Validate(); err == nil {
			t.Errorf("expected validation error for %+v", ch)
		}
	}
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope.toml"))

	f, err := store.Load()
	if err != nil {
		t.Fatalf("missing file should yield defaults, got %v", err)
	}
	if f.Version != 1 {
		t.Errorf("version = %d, want 1", f.Version)
	}
	if len(f.Channels) != 0 {
		t.Errorf("expected no channels, got %d", len(f.Channels))
	}
}

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "sub", "streamdock.toml"))

	in := &File{
		Version: 1,
		Paths: Paths{
			FFmpeg:      "/opt/ffmpeg/ffmpeg",
			MediaServer: "/opt/nginx/nginx",
			OutputRoot:  "/srv/hls",
		},
		Channels: []Channel{
			{Name: "Channel 1", VideoDeviceID: "vid-1", AudioDeviceID: "aud-1",
				VideoDeviceLabel: "Cam", AudioDeviceLabel: "Mic",
				FrameSize: "1280x720", Framerate: 30, VideoKbps: 1200, AudioKbps: 128, AutoStart: true},
			{Name: "Channel 2", Framerate: 25, VideoKbps: 800, AudioKbps: 96},
		},
	}
	if err := store.Save(in); err != nil {
		t.Fatal(err)
	}

	out, err := store.Load()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}

func TestStoreFixesLegacyOutputRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamdock.toml")
	data := `version = 1

[paths]
output_root = "/srv/hls/channel1"

[[channels]]
name = "Channel 1"
framerate = 30
video_bitrate_kbps = 1200
audio_bitrate_kbps = 128
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if f.Paths.OutputRoot != "/srv/hls" {
		t.Errorf("legacy output root not stripped: %q", f.Paths.OutputRoot)
	}
}

func TestStoreKeepsUnrelatedOutputRoot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "streamdock.toml")
	data := `version = 1

[paths]
output_root = "/srv/hls"

[[channels]]
name = "Channel 1"
framerate = 30
video_bitrate_kbps = 1200
audio_bitrate_kbps = 128
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewStore(path).Load()
	if err != nil {
		t.Fatal(err)
	}
	if f.Paths.OutputRoot != "/srv/hls" {
		t.Errorf("output root changed unexpectedly: %q", f.Paths.OutputRoot)
	}
}
