package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/streamdock/streamdock/internal/config"
	"github.com/streamdock/streamdock/internal/events"
	"github.com/streamdock/streamdock/internal/ffmpeg"
	"github.com/streamdock/streamdock/internal/logging"
	"github.com/streamdock/streamdock/internal/mediaserver"
	"github.com/streamdock/streamdock/internal/supervisor"
)

// CreateRunCmd creates the "run" subcommand, which starts a single
// configured channel in the foreground without the API server. Useful
// for validating a channel configuration interactively.
func CreateRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run <channel-name>",
		Short: "Run one channel in the foreground",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			logging.Initialize(config.LoadLoggingConfig(configPath))
			logger := logging.GetLogger("main")

			store := config.NewStore(configPath)
			file, err := store.Load()
			if err != nil {
				return err
			}

			workDir := file.Paths.MediaServerDir
			if workDir == "" {
				workDir = filepath.Dir(file.Paths.MediaServer)
			}

			bus := events.New()
			media := mediaserver.New(mediaserver.Config{
				ExecutablePath: file.Paths.MediaServer,
				WorkDir:        workDir,
			}, bus)

			sup := supervisor.New(supervisor.Options{
				OutputRoot: file.Paths.OutputRoot,
				Media:      media,
				Builder: func(ch config.Channel, dir string) ([]string, error) {
					return ffmpeg.BuildCommand(file.Paths.FFmpeg, ffmpeg.Params{
						VideoDevice: ch.VideoDeviceID,
						AudioDevice: ch.AudioDeviceID,
						FrameSize:   ch.FrameSize,
						Framerate:   ch.Framerate,
						VideoKbps:   ch.VideoKbps,
						AudioKbps:   ch.AudioKbps,
					}, dir)
				},
				Bus: bus,
			})

			if err := sup.Restore(file.Channels); err != nil {
				logger.Warn("Some channels failed to restore", "error", err)
			}

			exited := make(chan int, 1)
			bus.Subscribe(func(e events.ChannelExitedEvent) {
				if !e.Requested {
					select {
					case exited <- e.ExitCode:
					default:
					}
				}
			})

			if err := sup.StartChannel(name); err != nil {
				return fmt.Errorf("start channel %q: %w", name, err)
			}
			logger.Info("Channel running, press Ctrl+C to stop", "channel", name)

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			select {
			case <-sigChan:
				logger.Info("Shutting down")
			case code := <-exited:
				logger.Warn("Encoder exited", "exit_code", code)
			}

			sup.Shutdown()
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "streamdock.toml", "Path to configuration file")

	return cmd
}
