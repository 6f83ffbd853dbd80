package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Channel is one persisted channel configuration.
type Channel struct {
	Name             string `toml:"name" json:"name"`
	VideoDeviceID    string `toml:"video_device_id,omitempty" json:"video_device_id,omitempty"`
	AudioDeviceID    string `toml:"audio_device_id,omitempty" json:"audio_device_id,omitempty"`
	VideoDeviceLabel string `toml:"video_device_label" json:"video_device_label"`
	AudioDeviceLabel string `toml:"audio_device_label" json:"audio_device_label"`
	FrameSize        string `toml:"frame_size,omitempty" json:"frame_size,omitempty"`
	Framerate        int    `toml:"framerate" json:"framerate"`
	VideoKbps        int    `toml:"video_bitrate_kbps" json:"video_bitrate_kbps"`
	AudioKbps        int    `toml:"audio_bitrate_kbps" json:"audio_bitrate_kbps"`
	AutoStart        bool   `toml:"auto_start" json:"auto_start"`
}

// Slug returns the filesystem and URL safe form of the channel name:
// lowercase with spaces removed. Slugs must be unique across channels.
func (c Channel) Slug() string {
	return Slugify(c.Name)
}

// Slugify derives a slug from a channel name.
func Slugify(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ""))
}

// Validate checks the invariants a channel must satisfy on its own.
func (c Channel) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("channel name cannot be empty")
	}
	if c.Framerate <= 0 {
		return fmt.Errorf("channel %s: framerate must be positive", c.Name)
	}
	if c.VideoKbps <= 0 {
		return fmt.Errorf("channel %s: video bitrate must be positive", c.Name)
	}
	if c.AudioKbps <= 0 {
		return fmt.Errorf("channel %s: audio bitrate must be positive", c.Name)
	}
	return nil
}

// Paths holds the external executables and the segment output root.
type Paths struct {
	FFmpeg         string `toml:"ffmpeg" json:"ffmpeg"`
	MediaServer    string `toml:"media_server" json:"media_server"`
	MediaServerDir string `toml:"media_server_dir" json:"media_server_dir"`
	OutputRoot     string `toml:"output_root" json:"output_root"`
}

// File is the complete persisted configuration.
type File struct {
	Version  int       `toml:"version" json:"version"`
	Paths    Paths     `toml:"paths" json:"paths"`
	Channels []Channel `toml:"channels" json:"channels"`
}

// Store persists the channel configuration file.
type Store struct {
	path string
}

// NewStore creates a store for the given TOML file path.
func NewStore(path string) *Store {
	if path == "" {
		path = "streamdock.toml"
	}
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the configuration. A missing file yields defaults, not an
// error. Older files that persisted the output root with a channel
// subfolder appended are repaired on load.
func (s *Store) Load() (*File, error) {
	f := &File{Version: 1}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return f, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if f.Version == 0 {
		f.Version = 1
	}

	f.Paths.OutputRoot = fixLegacyOutputRoot(f.Paths.OutputRoot, f.Channels)
	return f, nil
}

// Save writes the configuration atomically enough for a config file:
// parent directory is created if missing.
func (s *Store) Save(f *File) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	data, err := toml.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// fixLegacyOutputRoot strips a channel subfolder that older versions
// erroneously appended to the output root.
func fixLegacyOutputRoot(root string, channels []Channel) string {
	if root == "" {
		return root
	}
	trimmed := strings.TrimRight(root, `\/`)
	base := strings.ToLower(filepath.Base(trimmed))
	for _, ch := range channels {
		if ch.Slug() == base {
			return filepath.Dir(trimmed)
		}
	}
	return root
}
