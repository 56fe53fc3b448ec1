package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/marmos91/webdisk/pkg/disk"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Code        int    `json:"code"`
	Error       string `json:"error"`
	Description string `json:"description"`
}

func abortWithError(c *gin.Context, status int, description string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Code:        status,
		Error:       http.StatusText(status),
		Description: description,
	})
}

// statusFor maps a Disk error onto an HTTP status and a client-safe message.
// Storage failures never leak their cause to the client.
func statusFor(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, "Upload exceeds the configured size limit"
	case errors.Is(err, disk.ErrInvalidName):
		return http.StatusBadRequest, "Invalid filename"
	case errors.Is(err, disk.ErrInvalidPattern):
		return http.StatusBadRequest, "Invalid search pattern"
	case errors.Is(err, disk.ErrNotFound):
		return http.StatusNotFound, "File not found"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

// fail records err on the gin context for the access log and answers with
// the mapped status.
func fail(c *gin.Context, err error) {
	_ = c.Error(err)
	status, description := statusFor(err)
	abortWithError(c, status, description)
}
