package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerDeviceRoutes exposes capture device enumeration.
func (s *Server) registerDeviceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-devices",
		Method:      http.MethodGet,
		Path:        "/api/devices",
		Summary:     "List capture devices",
		Description: "Enumerates DirectShow video and audio devices through the encoder backend. Soft-fails to empty lists when the backend is unavailable.",
		Tags:        []string{"devices"},
	}, func(ctx context.Context, input *struct{}) (*DeviceListResponse, error) {
		video, audio, _ := s.opts.Catalog.List(ctx)

		resp := &DeviceListResponse{}
		resp.Body.Video = video
		resp.Body.Audio = audio
		return resp, nil
	})
}
