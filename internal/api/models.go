package api

import (
	"github.com/streamdock/streamdock/internal/config"
	"github.com/streamdock/streamdock/internal/devices"
	"github.com/streamdock/streamdock/internal/logging"
)

// HealthResponse reports service liveness.
type HealthResponse struct {
	Body struct {
		Status  string `json:"status" example:"ok" doc:"Service status"`
		Version string `json:"version" example:"1.0.0" doc:"Service version"`
	}
}

// DeviceListResponse carries the enumerated capture devices.
type DeviceListResponse struct {
	Body struct {
		Video []devices.Device `json:"video" doc:"Video capture devices in enumeration order"`
		Audio []devices.Device `json:"audio" doc:"Audio capture devices in enumeration order"`
	}
}

// ChannelData is one channel's configuration plus runtime state.
type ChannelData struct {
	config.Channel
	Slug     string `json:"slug" example:"lobbycam" doc:"Output path slug derived from the name"`
	State    string `json:"state" example:"running" doc:"Current lifecycle state"`
	ExitCode int    `json:"exit_code,omitempty" doc:"Last encoder exit code"`
	PlayPath string `json:"play_path" example:"/lobbycam/index.m3u8" doc:"Playlist path relative to the media server root"`
}

// ChannelListResponse lists all configured channels.
type ChannelListResponse struct {
	Body struct {
		Channels []ChannelData `json:"channels"`
	}
}

// ChannelResponse carries a single channel.
type ChannelResponse struct {
	Body ChannelData
}

// ChannelNameInput identifies a channel by name in the URL path.
type ChannelNameInput struct {
	Name string `path:"name" example:"Lobby Cam" doc:"Channel name"`
}

// CreateChannelInput is the request body for adding a channel.
type CreateChannelInput struct {
	Body config.Channel
}

// ChannelLogsResponse returns the bounded tail of encoder output.
type ChannelLogsResponse struct {
	Body struct {
		Channel string   `json:"channel"`
		Lines   []string `json:"lines" doc:"Most recent encoder output lines"`
	}
}

// LogsResponse returns recent application log entries.
type LogsResponse struct {
	Body struct {
		Entries []logging.LogEntry `json:"entries"`
	}
}
