// Package response writes the JSON envelope every REST endpoint returns.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope: data on success, error otherwise.
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo carries a machine-readable code and a message.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes shared by the helpers below.
const (
	CodeBadRequest  = "BAD_REQUEST"
	CodeNotFound    = "NOT_FOUND"
	CodeConflict    = "CONFLICT"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL_ERROR"
)

func write(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Success: true, Data: data})
}

// Success writes 200 with data.
func Success(c *gin.Context, data any) { write(c, http.StatusOK, data) }

// Created writes 201 with data.
func Created(c *gin.Context, data any) { write(c, http.StatusCreated, data) }

// Accepted writes 202 for work that completes asynchronously.
func Accepted(c *gin.Context, data any) { write(c, http.StatusAccepted, data) }

// NoContent writes a bare 204.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error writes a failure envelope.
func Error(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{
		Error: &ErrorInfo{Code: code, Message: message},
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	Error(c, http.StatusConflict, CodeConflict, message)
}

func ServiceUnavailable(c *gin.Context, message string) {
	Error(c, http.StatusServiceUnavailable, CodeUnavailable, message)
}

func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternal, message)
}
