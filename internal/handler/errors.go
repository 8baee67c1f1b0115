package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/crowd-playback/internal/domain"
	"github.com/weiawesome/crowd-playback/internal/grid"
	"github.com/weiawesome/crowd-playback/internal/player"
	"github.com/weiawesome/crowd-playback/internal/service"
	"github.com/weiawesome/crowd-playback/pkg/log"
	"github.com/weiawesome/crowd-playback/pkg/response"
	"github.com/weiawesome/crowd-playback/pkg/storage"
)

// classify maps a service error onto an HTTP status and error code. ok is
// false for unexpected errors.
func classify(err error) (status int, code string, ok bool) {
	switch {
	case errors.Is(err, service.ErrViewerNotFound), errors.Is(err, player.ErrControllerStopped):
		return http.StatusNotFound, "VIEWER_NOT_FOUND", true
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, response.CodeNotFound, true
	case errors.Is(err, player.ErrNoSession), errors.Is(err, player.ErrNoGrid):
		return http.StatusConflict, domain.ErrCodeConflict, true
	case errors.Is(err, grid.ErrUnknownCamera),
		errors.Is(err, grid.ErrNoActivity),
		errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, service.ErrInvalidRequest),
		errors.Is(err, storage.ErrInvalidKey),
		errors.Is(err, storage.ErrSizeMismatch),
		errors.Is(err, domain.ErrMissingTimestamp):
		return http.StatusBadRequest, domain.ErrCodeBadRequest, true
	default:
		return http.StatusInternalServerError, domain.ErrCodeInternal, false
	}
}

// respondError writes err in the standard envelope and logs unexpected errors.
func respondError(c *gin.Context, err error, msg string) {
	status, code, ok := classify(err)
	if !ok {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg(msg)
		response.InternalError(c, msg)
		return
	}
	response.Error(c, status, code, err.Error())
}
