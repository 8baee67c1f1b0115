package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/weiawesome/crowd-playback/internal/service"
	"github.com/weiawesome/crowd-playback/pkg/log"
	"github.com/weiawesome/crowd-playback/pkg/response"
)

// StreamHandler serves hourly recordings at the chunk locator path.
type StreamHandler struct {
	provider    *service.ContentProvider
	path        string
	allowUpload bool
}

// NewStreamHandler creates a stream handler mounted at path.
func NewStreamHandler(provider *service.ContentProvider, path string, allowUpload bool) *StreamHandler {
	return &StreamHandler{
		provider:    provider,
		path:        path,
		allowUpload: allowUpload,
	}
}

// RegisterRoutes registers the stream routes.
func (h *StreamHandler) RegisterRoutes(r *gin.Engine) {
	r.GET(h.path, h.Stream)
	r.HEAD(h.path, h.Stream)
	if h.allowUpload {
		r.PUT(h.path, h.Upload)
	}
}

// Stream serves the recording named by the camera and timestamp query
// parameters.
// Supports:
// - GET  {path}?camera=Cam1&timestamp=2024-03-15+07:00:00 - stream or redirect
// - HEAD {path}?camera=...&timestamp=... - availability check
func (h *StreamHandler) Stream(c *gin.Context) {
	camera := c.Query("camera")
	timestamp := c.Query("timestamp")

	err := h.provider.ServeRecording(c.Request.Context(), c.Writer, c.Request, camera, timestamp)
	if err != nil {
		respondError(c, err, "failed to serve recording")
		return
	}
}

// Upload stores the request body as the recording for camera and timestamp.
func (h *StreamHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	camera := c.Query("camera")

	key, err := h.provider.Store(ctx, camera, c.Query("timestamp"), c.Request.Body, c.Request.ContentLength)
	if err != nil {
		respondError(c, err, "failed to store recording")
		return
	}

	l := log.Ctx(ctx)
	l.Info().Str(log.FieldCamera, camera).Str("key", key).Msg("recording stored")
	response.Created(c, gin.H{"key": key})
}
