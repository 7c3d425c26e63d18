package httpserver

import (
	"errors"
	"net/http"

	"checkout-engine/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type errorResponse struct {
	Error       string              `json:"error"`
	Fields      domain.FieldErrors  `json:"fields,omitempty"`
	StockIssues []domain.StockIssue `json:"stockIssues,omitempty"`
}

// writeError maps the engine's error taxonomy onto HTTP statuses with
// enough structure for the UI to highlight the offending field or line.
func writeError(c *gin.Context, err error) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		c.JSON(http.StatusBadRequest, errorResponse{Error: verr.Err.Error(), Fields: verr.Fields})
		return
	}

	var serr *domain.StockError
	if errors.As(err, &serr) {
		c.JSON(http.StatusConflict, errorResponse{Error: domain.ErrStockChangedDuringCheckout.Error(), StockIssues: serr.Issues})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity),
		errors.Is(err, domain.ErrInvalidPromoCode),
		errors.Is(err, domain.ErrCartEmpty),
		errors.Is(err, domain.ErrInvalidTransition):
		c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrOutOfStock),
		errors.Is(err, domain.ErrQuantityExceedsStock):
		c.JSON(http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrNoActiveSession):
		c.JSON(http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Error: domain.ErrUpstreamUnavailable.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Msg("httpserver: unhandled error")
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}
