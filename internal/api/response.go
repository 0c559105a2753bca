package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/rileyhilliard/vitals/internal/errors"
)

// envelope is the body of every JSON response and stream frame.
type envelope struct {
	Success      bool        `json:"success"`
	Data         interface{} `json:"data,omitempty"`
	ConnectionID string      `json:"connectionId,omitempty"`
	Message      string      `json:"message,omitempty"`
	Error        string      `json:"error,omitempty"`
	Code         string      `json:"code,omitempty"`
}

func failure(err error) envelope {
	return envelope{
		Success: false,
		Error:   errors.Message(err),
		Code:    errors.CodeOf(err),
	}
}

// statusFor maps an error code to an HTTP status.
func statusFor(err error) int {
	switch errors.CodeOf(err) {
	case errors.ErrInvalidInput:
		return http.StatusBadRequest
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrConnectionLost:
		return http.StatusGone
	case errors.ErrConnectFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusFor(err), failure(err))
}
