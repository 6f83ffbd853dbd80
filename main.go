package main

import (
	"errors"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/danielgtaylor/huma/v2/humacli"

	"github.com/streamdock/streamdock/cmd"
	"github.com/streamdock/streamdock/internal/api"
	"github.com/streamdock/streamdock/internal/config"
	"github.com/streamdock/streamdock/internal/devices"
	"github.com/streamdock/streamdock/internal/events"
	"github.com/streamdock/streamdock/internal/ffmpeg"
	"github.com/streamdock/streamdock/internal/logging"
	"github.com/streamdock/streamdock/internal/mediaserver"
	"github.com/streamdock/streamdock/internal/metrics"
	"github.com/streamdock/streamdock/internal/supervisor"
)

const version = "1.0.0"

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"streamdock.toml"`

	// Server settings
	Port string `help:"Address to listen on" short:"p" default:":8090" toml:"server.port" env:"SERVER_PORT"`

	// External executables and output layout
	FfmpegPath      string `help:"Path to the encoder executable" default:"ffmpeg" toml:"paths.ffmpeg" env:"FFMPEG_PATH"`
	MediaServerPath string `help:"Path to the media server executable" default:"nginx" toml:"paths.media_server" env:"MEDIA_SERVER_PATH"`
	MediaServerDir  string `help:"Working directory for the media server (defaults to its parent directory)" toml:"paths.media_server_dir" env:"MEDIA_SERVER_DIR"`
	OutputRoot      string `help:"Root directory for channel output" default:"hls" toml:"paths.output_root" env:"OUTPUT_ROOT"`

	// Behavior
	WatchConfig bool `help:"Reload channel definitions when the config file changes" default:"true" toml:"watch_config" env:"WATCH_CONFIG"`

	// Auth settings
	AuthUsername string `help:"Basic auth username (empty disables auth)" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel  string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if err := config.LoadConfig(opts, nil); err != nil {
			slog.Warn("Failed to load config", "error", err)
		}

		loggingConfig := config.LoadLoggingConfig(opts.Config)
		loggingConfig.Level = opts.LoggingLevel
		loggingConfig.Format = opts.LoggingFormat
		logging.Initialize(loggingConfig)

		logger := logging.GetLogger("main")

		bus := events.New()
		logging.SetLogCallback(func(entry logging.LogEntry) {
			bus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		store := config.NewStore(opts.Config)
		file, err := store.Load()
		if err != nil {
			logger.Warn("Failed to load channel configuration, starting empty", "error", err)
			file = &config.File{Version: 1}
		}

		workDir := opts.MediaServerDir
		if workDir == "" {
			workDir = filepath.Dir(opts.MediaServerPath)
		}

		media := mediaserver.New(mediaserver.Config{
			ExecutablePath: opts.MediaServerPath,
			WorkDir:        workDir,
		}, bus)

		promMetrics := metrics.New()

		sup := supervisor.New(supervisor.Options{
			OutputRoot: opts.OutputRoot,
			Media:      media,
			Builder: func(ch config.Channel, dir string) ([]string, error) {
				return ffmpeg.BuildCommand(opts.FfmpegPath, ffmpeg.Params{
					VideoDevice: ch.VideoDeviceID,
					AudioDevice: ch.AudioDeviceID,
					FrameSize:   ch.FrameSize,
					Framerate:   ch.Framerate,
					VideoKbps:   ch.VideoKbps,
					AudioKbps:   ch.AudioKbps,
				}, dir)
			},
			Bus:     bus,
			Metrics: promMetrics,
		})

		if err := sup.Restore(file.Channels); err != nil {
			logger.Warn("Failed to restore channels", "error", err)
		}

		// Persist the live channel set back into the same file the
		// paths were loaded from.
		var saveMu sync.Mutex
		save := func() error {
			saveMu.Lock()
			defer saveMu.Unlock()
			file.Channels = sup.Snapshot()
			return store.Save(file)
		}

		server := api.NewServer(&api.Options{
			Supervisor:        sup,
			Catalog:           devices.NewCatalog(opts.FfmpegPath),
			Save:              save,
			PrometheusHandler: promMetrics.Handler(),
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Version:           version,
		})

		var watcher *config.Watcher[*config.File]
		if opts.WatchConfig {
			watcher = config.NewWatcher(opts.Config, func(path string) (*config.File, error) {
				return config.NewStore(path).Load()
			}, logging.GetLogger("config"))
			watcher.OnReload(func(f *config.File) {
				syncChannels(sup, f.Channels, logger)
			})
		}

		hooks.OnStart(func() {
			if watcher != nil {
				if err := watcher.Start(); err != nil {
					logger.Warn("Config watcher failed to start", "error", err)
				}
			}

			sup.StartAutoStartChannels()

			logger.Info("Starting HTTP server", "addr", opts.Port)
			if err := server.Start(opts.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed", "error", err)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			if err := server.Stop(); err != nil {
				logger.Error("Error stopping HTTP server", "error", err)
			}
			if watcher != nil {
				if err := watcher.Stop(); err != nil {
					logger.Warn("Error stopping config watcher", "error", err)
				}
			}
			sup.Shutdown()
		})
	})

	cli.Root().AddCommand(cmd.CreateDevicesCmd())
	cli.Root().AddCommand(cmd.CreateRunCmd())

	cli.Run()
}

// syncChannels reconciles the supervisor's channel set with a freshly
// loaded config file. Only idle channels are touched; anything active
// keeps running untouched.
func syncChannels(sup *supervisor.Supervisor, fromFile []config.Channel, logger *slog.Logger) {
	wanted := make(map[string]config.Channel, len(fromFile))
	for _, ch := range fromFile {
		wanted[ch.Slug()] = ch
	}

	for _, info := range sup.Channels() {
		fileCfg, stillWanted := wanted[info.Slug]
		switch {
		case !stillWanted:
			if err := sup.RemoveChannel(info.Config.Name); err != nil {
				logger.Warn("Cannot remove channel during reload", "channel", info.Config.Name, "error", err)
			}
		case fileCfg != info.Config:
			// Replace idle channels whose definition changed.
			if err := sup.RemoveChannel(info.Config.Name); err != nil {
				logger.Warn("Cannot update channel during reload", "channel", info.Config.Name, "error", err)
				delete(wanted, info.Slug)
				continue
			}
			if err := sup.AddChannel(fileCfg); err != nil {
				logger.Warn("Cannot re-add channel during reload", "channel", fileCfg.Name, "error", err)
			}
		}
		delete(wanted, info.Slug)
	}

	for _, ch := range wanted {
		if err := sup.AddChannel(ch); err != nil {
			logger.Warn("Cannot add channel during reload", "channel", ch.Name, "error", err)
		}
	}
}
