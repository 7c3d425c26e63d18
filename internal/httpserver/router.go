package httpserver

import (
	"net/http"

	"checkout-engine/internal/cartstore"
	"checkout-engine/internal/checkout"
	"checkout-engine/internal/ledger"
	"checkout-engine/internal/pricing"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps are the engine components the handlers call into.
type Deps struct {
	Carts    *cartstore.Store
	Checkout *checkout.Manager
	Orders   ledger.Ledger
	Pricer   *pricing.Engine
}

const ownerIDKey = "ownerID"

// buildRouter wires routes for the API.
func buildRouter(db *pgxpool.Pool, deps Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), cors.Default())

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(db))

	h := &handlers{deps: deps}

	owned := router.Group("/", ownerIdentity())
	{
		owned.GET("/cart", h.getCart)
		owned.POST("/cart/items", h.addItem)
		owned.PATCH("/cart/items/:productID", h.updateQuantity)
		owned.DELETE("/cart/items/:productID", h.removeItem)
		owned.POST("/cart/promo-code", h.applyPromoCode)

		owned.POST("/checkout", h.startCheckout)
		owned.GET("/checkout", h.getSession)
		owned.POST("/checkout/shipping", h.submitShipping)
		owned.POST("/checkout/payment", h.submitPayment)
		owned.POST("/checkout/back", h.stepBack)
		owned.POST("/checkout/place-order", h.placeOrder)
		owned.DELETE("/checkout", h.abandonCheckout)

		owned.GET("/orders", h.listOrders)
		owned.GET("/orders/:orderID", h.getOrder)
	}

	return router
}

// ownerIdentity extracts the shopper identity supplied by the upstream
// identity collaborator. The engine does not authenticate; it trusts the
// header the gateway sets.
func ownerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		owner := c.GetHeader("X-Owner-ID")
		if owner == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing owner identity"})
			return
		}
		c.Set(ownerIDKey, owner)
		c.Next()
	}
}

func ownerID(c *gin.Context) string {
	return c.GetString(ownerIDKey)
}
