package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/streamdock/streamdock/internal/supervisor"
)

// registerChannelRoutes exposes channel CRUD and lifecycle control.
func (s *Server) registerChannelRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-channels",
		Method:      http.MethodGet,
		Path:        "/api/channels",
		Summary:     "List channels",
		Tags:        []string{"channels"},
	}, func(ctx context.Context, input *struct{}) (*ChannelListResponse, error) {
		resp := &ChannelListResponse{}
		for _, info := range s.opts.Supervisor.Channels() {
			resp.Body.Channels = append(resp.Body.Channels, toChannelData(info))
		}
		return resp, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-channel",
		Method:        http.MethodPost,
		Path:          "/api/channels",
		Summary:       "Add a channel",
		Tags:          []string{"channels"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *CreateChannelInput) (*ChannelResponse, error) {
		if err := s.opts.Supervisor.AddChannel(input.Body); err != nil {
			return nil, humaError(err)
		}
		s.save()

		info, err := s.opts.Supervisor.Channel(input.Body.Name)
		if err != nil {
			return nil, humaError(err)
		}
		return &ChannelResponse{Body: toChannelData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-channel",
		Method:      http.MethodGet,
		Path:        "/api/channels/{name}",
		Summary:     "Get a channel",
		Tags:        []string{"channels"},
	}, func(ctx context.Context, input *ChannelNameInput) (*ChannelResponse, error) {
		info, err := s.opts.Supervisor.Channel(input.Name)
		if err != nil {
			return nil, humaError(err)
		}
		return &ChannelResponse{Body: toChannelData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "delete-channel",
		Method:      http.MethodDelete,
		Path:        "/api/channels/{name}",
		Summary:     "Remove a channel",
		Description: "Refused while the channel is running; stop it first.",
		Tags:        []string{"channels"},
	}, func(ctx context.Context, input *ChannelNameInput) (*struct{}, error) {
		if err := s.opts.Supervisor.RemoveChannel(input.Name); err != nil {
			return nil, humaError(err)
		}
		s.save()
		return nil, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "start-channel",
		Method:      http.MethodPost,
		Path:        "/api/channels/{name}/start",
		Summary:     "Start a channel",
		Tags:        []string{"channels"},
	}, func(ctx context.Context, input *ChannelNameInput) (*ChannelResponse, error) {
		if err := s.opts.Supervisor.StartChannel(input.Name); err != nil {
			return nil, humaError(err)
		}
		info, err := s.opts.Supervisor.Channel(input.Name)
		if err != nil {
			return nil, humaError(err)
		}
		return &ChannelResponse{Body: toChannelData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "stop-channel",
		Method:      http.MethodPost,
		Path:        "/api/channels/{name}/stop",
		Summary:     "Stop a channel",
		Description: "Best effort; stopping an idle channel succeeds without effect.",
		Tags:        []string{"channels"},
	}, func(ctx context.Context, input *ChannelNameInput) (*ChannelResponse, error) {
		if err := s.opts.Supervisor.StopChannel(input.Name); err != nil {
			return nil, humaError(err)
		}
		info, err := s.opts.Supervisor.Channel(input.Name)
		if err != nil {
			return nil, humaError(err)
		}
		return &ChannelResponse{Body: toChannelData(info)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-channel-logs",
		Method:      http.MethodGet,
		Path:        "/api/channels/{name}/logs",
		Summary:     "Recent encoder output",
		Tags:        []string{"channels", "logs"},
	}, func(ctx context.Context, input *ChannelNameInput) (*ChannelLogsResponse, error) {
		info, err := s.opts.Supervisor.Channel(input.Name)
		if err != nil {
			return nil, humaError(err)
		}
		resp := &ChannelLogsResponse{}
		resp.Body.Channel = info.Config.Name
		resp.Body.Lines = info.LogTail
		return resp, nil
	})
}

func toChannelData(info supervisor.Info) ChannelData {
	return ChannelData{
		Channel:  info.Config,
		Slug:     info.Slug,
		State:    string(info.State),
		ExitCode: info.ExitCode,
		PlayPath: "/" + info.Slug + "/index.m3u8",
	}
}

// humaError maps supervisor error codes to HTTP statuses.
func humaError(err error) error {
	var se *supervisor.Error
	if !errors.As(err, &se) {
		return huma.Error500InternalServerError("internal error", err)
	}

	switch se.Code {
	case supervisor.CodeChannelNotFound:
		return huma.Error404NotFound(se.Message)
	case supervisor.CodeInvalidConfig:
		return huma.Error422UnprocessableEntity(se.Message)
	case supervisor.CodeDuplicateChannel, supervisor.CodeChannelBusy, supervisor.CodeDeviceInUse:
		return huma.Error409Conflict(se.Message)
	case supervisor.CodeMissingExecutable, supervisor.CodeServiceUnavailable:
		return huma.Error503ServiceUnavailable(se.Message)
	default:
		return huma.Error500InternalServerError(se.Message)
	}
}
