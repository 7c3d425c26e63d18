package httpserver

import (
	"net/http"

	"checkout-engine/internal/domain"
	"github.com/gin-gonic/gin"
)

func (h *handlers) startCheckout(c *gin.Context) {
	session, err := h.deps.Checkout.Start(c.Request.Context(), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, h.sessionResponse(session))
}

func (h *handlers) getSession(c *gin.Context) {
	session, err := h.deps.Checkout.Session(ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *handlers) submitShipping(c *gin.Context) {
	var addr domain.ShippingAddress
	if err := c.ShouldBindJSON(&addr); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed shipping address"})
		return
	}

	session, err := h.deps.Checkout.SubmitShipping(c.Request.Context(), ownerID(c), addr)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *handlers) submitPayment(c *gin.Context) {
	var selection domain.PaymentSelection
	if err := c.ShouldBindJSON(&selection); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed payment selection"})
		return
	}

	session, err := h.deps.Checkout.SubmitPayment(c.Request.Context(), ownerID(c), selection)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *handlers) stepBack(c *gin.Context) {
	session, err := h.deps.Checkout.Back(ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.sessionResponse(session))
}

func (h *handlers) placeOrder(c *gin.Context) {
	order, err := h.deps.Checkout.PlaceOrder(c.Request.Context(), ownerID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"order": order})
}

func (h *handlers) abandonCheckout(c *gin.Context) {
	h.deps.Checkout.Abandon(ownerID(c))
	c.Status(http.StatusNoContent)
}

func (h *handlers) sessionResponse(session domain.CheckoutSession) gin.H {
	return gin.H{
		"session": session,
		"totals":  h.deps.Pricer.ComputeTotals(session.Cart),
	}
}
