// Package cmd holds the auxiliary CLI subcommands.
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/streamdock/streamdock/internal/devices"
)

// CreateDevicesCmd creates the "devices" subcommand, which enumerates
// capture devices through the encoder backend and prints them.
func CreateDevicesCmd() *cobra.Command {
	var ffmpegPath string
	var showRaw bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List available capture devices",
		Long:  "Enumerates DirectShow video and audio capture devices through the encoder executable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := devices.NewCatalog(ffmpegPath)
			video, audio, raw := catalog.List(context.Background())

			if len(video) == 0 && len(audio) == 0 {
				fmt.Println("No capture devices found.")
				if showRaw {
					fmt.Println(raw)
				}
				return nil
			}

			fmt.Println("Video devices:")
			for i, d := range video {
				fmt.Printf("  %d. %s\n     %s\n", i+1, d.Name, d.AltID)
			}
			fmt.Println("Audio devices:")
			for i, d := range audio {
				fmt.Printf("  %d. %s\n     %s\n", i+1, d.Name, d.AltID)
			}
			if showRaw {
				fmt.Println("\nRaw backend output:")
				fmt.Println(raw)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "Path to the encoder executable")
	cmd.Flags().BoolVar(&showRaw, "raw", false, "Also print the raw enumeration output")

	return cmd
}
