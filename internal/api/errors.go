package api

import (
	"errors"
	"net/http"

	"nxqueue/internal/queue"
)

// HTTPStatus maps a queue error to the HTTP status reported to clients.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, queue.ErrQueueNotFound), errors.Is(err, queue.ErrNoSuchContent):
		return http.StatusNotFound
	case errors.Is(err, queue.ErrDuplicateContent), errors.Is(err, queue.ErrBlacklisted):
		return http.StatusConflict
	case errors.Is(err, queue.ErrInvalidName), errors.Is(err, queue.ErrContentType):
		return http.StatusBadRequest
	case errors.Is(err, queue.ErrServerInactive):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
