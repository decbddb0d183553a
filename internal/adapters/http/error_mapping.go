package httpadapter

import (
	"net/http"

	"github.com/kirillkom/wildlife-rescue-ingest/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides internal detail behind 5xx responses.
func publicMessage(err error, status int) string {
	switch {
	case domain.IsKind(err, domain.ErrMisconfigured):
		return domain.ErrMisconfigured.Error()
	case status == http.StatusServiceUnavailable:
		return "temporarily unavailable"
	case status >= http.StatusInternalServerError:
		return "internal error"
	default:
		return err.Error()
	}
}
