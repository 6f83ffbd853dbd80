// Package devices enumerates DirectShow capture devices through the
// encoder executable.
package devices

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/streamdock/streamdock/internal/logging"
)

// Device is one capture input reported by the backend.
// Name is the human-readable label shown to operators. AltID is the
// stable identifier used to address the hardware; two devices are
// equal iff AltID matches.
type Device struct {
	Name  string `json:"name" example:"USB Video Device" doc:"Human-readable device label"`
	AltID string `json:"alt_id" example:"@device_pnp_\\\\?\\usb#vid_046d..." doc:"Stable device identifier"`
}

// Catalog queries the capture backend for available devices.
// It is stateless; every List call re-invokes the backend.
type Catalog struct {
	ffmpegPath string
	timeout    time.Duration
}

// NewCatalog creates a catalog that enumerates through the given
// encoder executable.
func NewCatalog(ffmpegPath string) *Catalog {
	return &Catalog{
		ffmpegPath: ffmpegPath,
		timeout:    10 * time.Second,
	}
}

// List invokes the backend in enumeration mode and parses its
// diagnostic output. Fails softly: a missing or misbehaving backend
// yields empty lists and a diagnostic string, never an error.
func (c *Catalog) List(ctx context.Context) (video, audio []Device, raw string) {
	logger := logging.GetLogger("devices")

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.ffmpegPath,
		"-hide_banner",
		"-list_devices", "true",
		"-f", "dshow",
		"-i", "dummy")

	// The backend writes the device list to stderr and exits non-zero
	// because "dummy" is not a real input. Both are expected.
	out, err := cmd.CombinedOutput()
	raw = string(out)

	if err != nil && len(out) == 0 {
		logger.Warn("Device enumeration failed", "error", err)
		return nil, nil, fmt.Sprintf("device enumeration failed: %v", err)
	}

	video, audio = ParseDeviceList(raw)
	logger.Debug("Enumerated devices", "video", len(video), "audio", len(audio))
	return video, audio, raw
}

type parseSection int

const (
	sectionNone parseSection = iota
	sectionVideo
	sectionAudio
)

// ParseDeviceList parses dshow enumeration output line by line.
//
// Section headers switch between video and audio scanning. A quoted
// device-name line opens a new record with AltID defaulting to the
// name; a following "Alternative name" line overwrites AltID on the
// most recently opened record. Malformed lines are skipped.
func ParseDeviceList(raw string) (video, audio []Device) {
	section := sectionNone

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case strings.Contains(line, "DirectShow video devices"):
			section = sectionVideo
			continue
		case strings.Contains(line, "DirectShow audio devices"):
			section = sectionAudio
			continue
		}
		if section == sectionNone {
			continue
		}

		quoted, ok := extractQuoted(line)
		if !ok {
			continue
		}

		if strings.Contains(line, "Alternative name") {
			switch section {
			case sectionVideo:
				if len(video) > 0 {
					video[len(video)-1].AltID = quoted
				}
			case sectionAudio:
				if len(audio) > 0 {
					audio[len(audio)-1].AltID = quoted
				}
			}
			continue
		}

		dev := Device{Name: quoted, AltID: quoted}
		switch section {
		case sectionVideo:
			video = append(video, dev)
		case sectionAudio:
			audio = append(audio, dev)
		}
	}

	return video, audio
}

// extractQuoted returns the first double-quoted substring of a line.
func extractQuoted(line string) (string, bool) {
	start := strings.Index(line, `"`)
	if start < 0 {
		return "", false
	}
	end := strings.Index(line[start+1:], `"`)
	if end < 0 {
		return "", false
	}
	return line[start+1 : start+1+end], true
}
