package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printvault/internal/adapters/auth"
	"printvault/internal/domain"
	"printvault/internal/logging"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

const codeUnauthorized = "UNAUTHORIZED"

// statusFor maps an error to an HTTP status. Transport failures are 500
// here; /health reports them as 503 through its own status.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrInvalid):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody renders err. Client errors carry their own message; server
// errors get a fixed message per code with the cause in Details.
func errorBody(err error, status int) ErrorResponse {
	code := string(domain.CodeOf(err))
	if errors.Is(err, auth.ErrUnauthorized) {
		code = codeUnauthorized
	}
	if status == http.StatusRequestEntityTooLarge {
		code = string(domain.CodeValidation)
	}
	if status < http.StatusInternalServerError {
		return ErrorResponse{Error: err.Error(), Code: code}
	}

	msg := "Internal server error"
	switch domain.ErrorCode(code) {
	case domain.CodeConnection:
		msg = "Storage backend unreachable"
	case domain.CodeTimeout:
		msg = "Storage backend timed out"
	case domain.CodeUploadFailed:
		msg = "Upload failed"
		var ue *domain.UploadError
		if errors.As(err, &ue) && ue.FileName != "" {
			msg = "Upload failed: " + ue.FileName
		}
	case domain.CodeDownload:
		msg = "Download failed"
	case domain.CodeDelete:
		msg = "Delete failed"
	}
	return ErrorResponse{Error: msg, Code: code, Details: err.Error()}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	logger := logging.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	} else {
		logger.Debug("request rejected", zap.Int("status", status), zap.Error(err))
	}
	c.Error(err)
	c.AbortWithStatusJSON(status, errorBody(err, status))
}
