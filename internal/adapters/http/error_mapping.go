package httpadapter

import (
	"net/http"

	"github.com/dakshin/partsquote/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrEntryNotFound),
		domain.IsKind(err, domain.ErrPartNotFound),
		domain.IsKind(err, domain.ErrImportNotFound),
		domain.IsKind(err, domain.ErrCustomerNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrInvalidTransition), domain.IsKind(err, domain.ErrConflict):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrOrchestratorOffline):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
