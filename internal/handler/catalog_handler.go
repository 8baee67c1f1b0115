package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/crowd-playback/internal/chunk"
	"github.com/weiawesome/crowd-playback/internal/domain"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/pkg/response"
)

// CatalogHandler serves stateless grid and chunk window lookups.
type CatalogHandler struct {
	selector      *grid.Selector
	builder       *chunk.Builder
	loc           *time.Location
	defaultDevice string
}

// NewCatalogHandler creates a new catalog handler.
func NewCatalogHandler(selector *grid.Selector, builder *chunk.Builder, loc *time.Location, defaultDevice string) *CatalogHandler {
	if loc == nil {
		loc = time.Local
	}
	return &CatalogHandler{
		selector:      selector,
		builder:       builder,
		loc:           loc,
		defaultDevice: defaultDevice,
	}
}

// RegisterRoutes registers the catalog routes.
func (h *CatalogHandler) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		api.GET("/grid", h.GetGrid)
		api.GET("/chunks", h.GetChunks)
	}
}

// GetGrid returns the cameras offered for a data point.
func (h *CatalogHandler) GetGrid(c *gin.Context) {
	var q domain.GridQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ts, err := chunk.ParseWallClock(q.Timestamp, h.loc)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	device := q.DeviceID
	if device == "" {
		device = h.defaultDevice
	}

	g, err := h.selector.Open(c.Request.Context(), device, ts, q.Count)
	if err != nil && !errors.Is(err, grid.ErrNoCameras) {
		respondError(c, err, "failed to open camera grid")
		return
	}
	response.Success(c, gin.H{
		"timestamp": chunk.FormatWallClock(g.Timestamp),
		"count":     g.Count,
		"cameras":   g.Cameras,
		"empty":     g.Empty(),
	})
}

// GetChunks returns the chunk window of a camera around a timestamp.
func (h *CatalogHandler) GetChunks(c *gin.Context) {
	var q domain.ChunksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ts, err := chunk.ParseWallClock(q.Timestamp, h.loc)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	chunks := h.builder.Build(q.Camera, ts)
	idx := chunk.ResolveIndex(chunks, ts)
	response.Success(c, domain.ChunksResponse{
		Camera:     q.Camera,
		Chunks:     chunks,
		Index:      idx,
		SeekOffset: chunk.OffsetWithinHour(ts, chunks[idx].StartTime),
	})
}
