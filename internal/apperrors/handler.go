package apperrors

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Handler writes errors as HTTP responses
type Handler struct {
	logger *zap.Logger
	debug  bool
}

// NewHandler creates an error handler. In debug mode the cause is included in the body.
func NewHandler(logger *zap.Logger, debug bool) *Handler {
	return &Handler{logger: logger, debug: debug}
}

// Handle logs err and sends the matching status with a plain-text body
func (h *Handler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	appErr := Wrap(err, "request failed")
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	fields := []zap.Field{
		zap.String("type", string(appErr.Type)),
		zap.Int("status", status),
		zap.String("path", r.URL.Path),
		zap.String("requestID", middleware.GetReqID(r.Context())),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(appErr.Message, fields...)
	} else {
		h.logger.Warn(appErr.Message, fields...)
	}

	msg := appErr.Message
	if h.debug && appErr.Cause != nil {
		msg = appErr.Error()
	}
	http.Error(w, msg, status)
}
