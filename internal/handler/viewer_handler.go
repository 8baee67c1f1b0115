package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/crowd-playback/internal/domain"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/internal/media"
	"github.com/weiawesome/crowd-playback/internal/player"
	"github.com/weiawesome/crowd-playback/internal/service"
	"github.com/weiawesome/crowd-playback/pkg/log"
	"github.com/weiawesome/crowd-playback/pkg/response"
)

// ViewerHandler exposes the playback navigator of mounted viewers over REST.
type ViewerHandler struct {
	playbackSvc *service.PlaybackService
}

// NewViewerHandler creates a new viewer handler.
func NewViewerHandler(playbackSvc *service.PlaybackService) *ViewerHandler {
	return &ViewerHandler{playbackSvc: playbackSvc}
}

// RegisterRoutes registers the viewer routes.
func (h *ViewerHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		viewers := api.Group("/viewers")
		{
			viewers.POST("", h.MountViewer)
			viewers.GET("/:id", h.withViewer, h.GetViewer)
			viewers.DELETE("/:id", h.UnmountViewer)
			viewers.POST("/:id/activate", h.withViewer, h.Activate)
			viewers.POST("/:id/camera", h.withViewer, h.SelectCamera)
			viewers.POST("/:id/navigate", h.withViewer, h.Navigate)
			viewers.POST("/:id/keys", h.withViewer, h.Key)
			viewers.POST("/:id/media", h.withViewer, h.MediaEvent)
			viewers.GET("/:id/playlist.m3u8", h.Playlist)
		}
	}
}

const viewerKey = "viewer"

// withViewer resolves the :id parameter.
func (h *ViewerHandler) withViewer(c *gin.Context) {
	id := c.Param("id")
	c.Set(log.FieldViewerID, id)
	c.Request = c.Request.WithContext(log.WithViewer(c.Request.Context(), id))

	v, err := h.playbackSvc.Get(id)
	if err != nil {
		respondError(c, err, "failed to get viewer")
		c.Abort()
		return
	}
	c.Set(viewerKey, v)
	c.Next()
}

func viewerFrom(c *gin.Context) *service.Viewer {
	return c.MustGet(viewerKey).(*service.Viewer)
}

// MountViewer creates a viewer with a headless surface.
func (h *ViewerHandler) MountViewer(c *gin.Context) {
	var req domain.MountViewerRequest
	// An empty body mounts on the default device.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	v := h.playbackSvc.Mount(service.MountOptions{DeviceID: req.DeviceID})
	c.Set(log.FieldViewerID, v.ID)

	snap, err := v.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to mount viewer")
		return
	}
	response.Created(c, domain.ViewerResponse{ViewerID: v.ID, DeviceID: v.DeviceID, Snapshot: snap})
}

// GetViewer returns the current view.
func (h *ViewerHandler) GetViewer(c *gin.Context) {
	v := viewerFrom(c)
	snap, err := v.Snapshot(c.Request.Context())
	if err != nil {
		respondError(c, err, "failed to get viewer")
		return
	}
	response.Success(c, domain.ViewerResponse{ViewerID: v.ID, DeviceID: v.DeviceID, Snapshot: snap})
}

// UnmountViewer closes the player and removes the viewer.
func (h *ViewerHandler) UnmountViewer(c *gin.Context) {
	id := c.Param("id")
	c.Set(log.FieldViewerID, id)

	if err := h.playbackSvc.Unmount(id); err != nil {
		respondError(c, err, "failed to unmount viewer")
		return
	}
	response.NoContent(c)
}

// Activate opens the camera grid for a clicked data point.
func (h *ViewerHandler) Activate(c *gin.Context) {
	ctx := c.Request.Context()
	v := viewerFrom(c)

	var req domain.ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	var (
		snap player.Snapshot
		err  error
	)
	if req.IsHourly() {
		snap, err = v.ActivateHourly(ctx, req.HourlyPoint())
	} else {
		ts, perr := req.Instant(h.playbackSvc.Location())
		if perr != nil {
			response.BadRequest(c, perr.Error())
			return
		}
		snap, err = v.Activate(ctx, ts, req.Count)
	}

	// No cameras is an empty grid, not a failure.
	if err != nil && !errors.Is(err, grid.ErrNoCameras) {
		respondError(c, err, "failed to open camera grid")
		return
	}
	response.Success(c, snap)
}

// SelectCamera starts a session on the open grid.
func (h *ViewerHandler) SelectCamera(c *gin.Context) {
	v := viewerFrom(c)

	var req domain.SelectCameraRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	snap, err := v.SelectCamera(c.Request.Context(), req.Camera)
	if err != nil {
		respondError(c, err, "failed to select camera")
		return
	}
	response.Success(c, snap)
}

// Navigate applies a navigation action.
func (h *ViewerHandler) Navigate(c *gin.Context) {
	v := viewerFrom(c)

	var req domain.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	snap, err := v.Navigate(c.Request.Context(), service.Action(req.Action), req.Seconds)
	if err != nil && !errors.Is(err, grid.ErrNoCameras) {
		respondError(c, err, "failed to navigate")
		return
	}
	response.Success(c, snap)
}

// Key dispatches a keyboard shortcut.
func (h *ViewerHandler) Key(c *gin.Context) {
	v := viewerFrom(c)

	var req domain.KeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	snap, handled, err := v.Key(c.Request.Context(), req.Key)
	if err != nil {
		respondError(c, err, "failed to handle key")
		return
	}
	response.Success(c, domain.KeyResponse{Handled: handled, Snapshot: snap})
}

// MediaEvent forwards a media event to the viewer.
func (h *ViewerHandler) MediaEvent(c *gin.Context) {
	v := viewerFrom(c)

	var req domain.MediaEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	ev, ok := mediaEventFromRequest(req)
	if !ok {
		response.BadRequest(c, "unknown media event kind: "+req.Kind)
		return
	}
	if !v.Post(ev) {
		response.NotFound(c, "viewer closed")
		return
	}
	response.Accepted(c, gin.H{"token": ev.Token, "kind": ev.Kind})
}

func mediaEventFromRequest(req domain.MediaEventRequest) (player.MediaEvent, bool) {
	ev := player.MediaEvent{
		Token:    req.Token,
		Kind:     player.MediaEventKind(req.Kind),
		Duration: req.Duration,
		Position: req.Position,
		Reason:   req.Reason,
	}
	switch ev.Kind {
	case player.MediaReady, player.MediaTimeUpdate, player.MediaPlaying, player.MediaPaused:
	case player.MediaFailed:
		if ev.Reason == "" {
			ev.Reason = media.ErrorReason(req.Code)
		}
	default:
		return player.MediaEvent{}, false
	}
	return ev, true
}

// Playlist renders the viewer's chunk window as an HLS playlist.
func (h *ViewerHandler) Playlist(c *gin.Context) {
	id := c.Param("id")
	c.Set(log.FieldViewerID, id)

	body, err := h.playbackSvc.Playlist(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "failed to build playlist")
		return
	}
	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Data(http.StatusOK, "application/vnd.apple.mpegurl", []byte(body))
}
