// Package ffmpeg builds encoder invocations and interprets encoder output.
package ffmpeg

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrMissingExecutable indicates the encoder binary was not found on disk.
var ErrMissingExecutable = errors.New("ffmpeg executable not found")

const (
	segmentDuration  = 2
	playlistSize     = 6
	audioSampleRate  = 44100
	defaultFramerate = 25
)

// Params carries everything needed to derive one channel's encoder command.
type Params struct {
	VideoDevice string // dshow identifier, alternative name preferred
	AudioDevice string
	FrameSize   string // "WxH", empty disables scaling
	Framerate   int
	VideoKbps   int
	AudioKbps   int
}

// BuildCommand derives the full argument vector for one channel's encoder,
// ffmpeg path first. The derivation is deterministic: keyframe interval is
// twice the framerate so segment boundaries land on keyframes, and the rate
// control buffer is twice the video bitrate.
func BuildCommand(ffmpegPath string, p Params, outputDir string) ([]string, error) {
	if _, err := os.Stat(ffmpegPath); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingExecutable, ffmpegPath)
	}

	fps := p.Framerate
	if fps <= 0 {
		fps = defaultFramerate
	}
	gop := fps * 2
	bufsize := p.VideoKbps * 2

	args := []string{
		ffmpegPath,
		"-hide_banner", "-loglevel", "info",
		"-f", "dshow",
		"-rtbufsize", "512M",
		"-framerate", fmt.Sprintf("%d", fps),
		"-thread_queue_size", "1024",
		"-i", fmt.Sprintf("video=%s:audio=%s", p.VideoDevice, p.AudioDevice),
		"-map", "0:v:0", "-map", "0:a:0",
		"-c:v", "libx264",
		"-preset", "superfast",
		"-tune", "zerolatency",
		"-profile:v", "baseline",
		"-level", "3.1",
		"-pix_fmt", "yuv420p",
		"-fps_mode", "cfr",
	}

	if p.FrameSize != "" {
		args = append(args, "-vf", fmt.Sprintf("scale=%s:flags=lanczos", p.FrameSize))
	}

	args = append(args,
		"-b:v", fmt.Sprintf("%dk", p.VideoKbps),
		"-maxrate", fmt.Sprintf("%dk", p.VideoKbps),
		"-bufsize", fmt.Sprintf("%dk", bufsize),
		"-g", fmt.Sprintf("%d", gop),
		"-keyint_min", fmt.Sprintf("%d", gop),

		"-c:a", "aac",
		"-b:a", fmt.Sprintf("%dk", p.AudioKbps),
		"-ar", fmt.Sprintf("%d", audioSampleRate),

		"-f", "hls",
		"-hls_time", fmt.Sprintf("%d", segmentDuration),
		"-hls_list_size", fmt.Sprintf("%d", playlistSize),
		"-hls_flags", "delete_segments+program_date_time+independent_segments",
		"-hls_segment_filename", filepath.Join(outputDir, "segment_%d.ts"),
		filepath.Join(outputDir, "index.m3u8"),
	)

	return args, nil
}
