package devices

import (
	"context"
	"testing"
)

const sampleOutput = `[dshow @ 000001e5f0b0] DirectShow video devices (some may be both video and audio devices)
[dshow @ 000001e5f0b0]  "Integrated Camera"
[dshow @ 000001e5f0b0]     Alternative name "@device_pnp_\\?\usb#vid_04f2&pid_b604#6&e&0&0000#{65e8773d}\global"
[dshow @ 000001e5f0b0]  "USB Video Device"
[dshow @ 000001e5f0b0]     Alternative name "@device_pnp_\\?\usb#vid_046d&pid_0825#abc#{65e8773d}\global"
[dshow @ 000001e5f0b0] DirectShow audio devices
[dshow @ 000001e5f0b0]  "Microphone (Realtek Audio)"
[dshow @ 000001e5f0b0]     Alternative name "@device_cm_{33d9a762}\wave_{b0e}"
dummy: Immediate exit requested
`

func TestParseDeviceList(t *testing.T) {
	video, audio := ParseDeviceList(sampleOutput)

	if len(video) != 2 {
		t.Fatalf("expected 2 video devices, got %d", len(video))
	}
	if len(audio) != 1 {
		t.Fatalf("expected 1 audio device, got %d", len(audio))
	}

	if video[0].Name != "Integrated Camera" {
		t.Errorf("unexpected video name: %q", video[0].Name)
	}
	if video[0].AltID != `@device_pnp_\\?\usb#vid_04f2&pid_b604#6&e&0&0000#{65e8773d}\global` {
		t.Errorf("alternative name not applied: %q", video[0].AltID)
	}
	if audio[0].Name != "Microphone (Realtek Audio)" {
		t.Errorf("unexpected audio name: %q", audio[0].Name)
	}
	if audio[0].AltID != `@device_cm_{33d9a762}\wave_{b0e}` {
		t.Errorf("alternative name not applied: %q", audio[0].AltID)
	}
}

func TestParseDeviceListNoAlternativeName(t *testing.T) {
	raw := `[dshow] DirectShow video devices
[dshow]  "Plain Camera"
`
	video, _ := ParseDeviceList(raw)
	if len(video) != 1 {
		t.Fatalf("expected 1 video device, got %d", len(video))
	}
	if video[0].AltID != "Plain Camera" {
		t.Errorf("altId should default to name, got %q", video[0].AltID)
	}
}

func TestParseDeviceListIgnoresPreamble(t *testing.T) {
	raw := `ffmpeg version 6.1 Copyright
 "not a device" outside any section
[dshow] DirectShow audio devices
[dshow]  "Line In"
`
	video, audio := ParseDeviceList(raw)
	if len(video) != 0 {
		t.Errorf("expected no video devices, got %d", len(video))
	}
	if len(audio) != 1 || audio[0].Name != "Line In" {
		t.Errorf("unexpected audio devices: %+v", audio)
	}
}

func TestListMissingExecutable(t *testing.T) {
	catalog := NewCatalog("/nonexistent/ffmpeg-binary")

	video, audio, raw := catalog.List(context.Background())
	if len(video) != 0 || len(audio) != 0 {
		t.Errorf("expected empty lists, got %d video, %d audio", len(video), len(audio))
	}
	if raw == "" {
		t.Error("expected a diagnostic string")
	}
}
