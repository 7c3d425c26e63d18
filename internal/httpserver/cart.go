package httpserver

import (
	"net/http"

	"checkout-engine/internal/domain"
	"checkout-engine/internal/pricing"
	"github.com/gin-gonic/gin"
)

type handlers struct {
	deps Deps
}

type cartResponse struct {
	Cart   domain.Cart    `json:"cart"`
	Totals pricing.Totals `json:"totals"`
}

func (h *handlers) cartResponse(cart domain.Cart) cartResponse {
	return cartResponse{Cart: cart, Totals: h.deps.Pricer.ComputeTotals(cart)}
}

func (h *handlers) getCart(c *gin.Context) {
	cart := h.deps.Carts.Get(ownerID(c))
	c.JSON(http.StatusOK, h.cartResponse(cart))
}

// Quantity carries no binding tag: required-on-int cannot tell an
// explicit zero from an absent field, and the store's range check owns
// that error.
type addItemRequest struct {
	ProductID string `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

func (h *handlers) addItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "productId is required"})
		return
	}

	cart, err := h.deps.Carts.AddItem(c.Request.Context(), ownerID(c), req.ProductID, req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(cart))
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *handlers) updateQuantity(c *gin.Context) {
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return
	}

	cart, err := h.deps.Carts.UpdateQuantity(c.Request.Context(), ownerID(c), c.Param("productID"), req.Quantity)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(cart))
}

func (h *handlers) removeItem(c *gin.Context) {
	removed, cart := h.deps.Carts.RemoveItem(ownerID(c), c.Param("productID"))
	resp := gin.H{
		"cart":   cart,
		"totals": h.deps.Pricer.ComputeTotals(cart),
	}
	if removed != nil {
		resp["removed"] = removed
	}
	c.JSON(http.StatusOK, resp)
}

type promoCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *handlers) applyPromoCode(c *gin.Context) {
	var req promoCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "code is required"})
		return
	}

	cart, err := h.deps.Carts.ApplyPromoCode(c.Request.Context(), ownerID(c), req.Code)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.cartResponse(cart))
}
