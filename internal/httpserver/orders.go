package httpserver

import (
	"net/http"

	"checkout-engine/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) getOrder(c *gin.Context) {
	order, err := h.deps.Orders.GetByID(c.Request.Context(), c.Param("orderID"))
	if err != nil {
		writeError(c, err)
		return
	}
	// Owners can only read their own orders.
	if order.OwnerID != ownerID(c) {
		writeError(c, domain.ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *handlers) listOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListByOwner(c.Request.Context(), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}
