package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/service"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Handler contains HTTP handlers
type Handler struct {
	cartService     *service.CartService
	catalogService  *service.CatalogService
	checkoutService *service.CheckoutService
	accountService  *service.AccountService
	reviewService   *service.ReviewService
	jwtSecret       string
}

// NewHandler creates a new HTTP handler
func NewHandler(
	cartService *service.CartService,
	catalogService *service.CatalogService,
	checkoutService *service.CheckoutService,
	accountService *service.AccountService,
	reviewService *service.ReviewService,
	jwtSecret string,
) *Handler {
	return &Handler{
		cartService:     cartService,
		catalogService:  catalogService,
		checkoutService: checkoutService,
		accountService:  accountService,
		reviewService:   reviewService,
		jwtSecret:       jwtSecret,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	public := v1.Group("", authOptional(h.jwtSecret))
	{
		public.GET("/products", h.listProducts)
		public.GET("/products/:slug", h.getProduct)
		public.GET("/products/:slug/reviews", h.listReviews)
	}

	// Gateways call this back asynchronously; there is no session.
	v1.POST("/payments/:gateway/notify", h.paymentNotify)

	auth := v1.Group("", authRequired(h.jwtSecret))
	{
		auth.GET("/cart", h.listCart)
		auth.POST("/cart", h.addToCart)
		auth.POST("/cart/sync", h.syncCart)
		auth.PATCH("/cart/items/:productID", h.updateCartItem)
		auth.DELETE("/cart/items/:productID", h.removeCartItem)
		auth.DELETE("/cart", h.clearCart)

		auth.POST("/checkout", h.checkout)
		auth.GET("/orders", h.listOrders)
		auth.GET("/orders/:id", h.getOrder)

		auth.GET("/account", h.getAccount)
		auth.POST("/account/verify-age", h.verifyAge)

		auth.GET("/addresses", h.listAddresses)
		auth.POST("/addresses", h.createAddress)
		auth.PATCH("/addresses/:id/default", h.setDefaultAddress)
		auth.DELETE("/addresses/:id", h.deleteAddress)

		auth.GET("/wishlist", h.listWishlist)
		auth.POST("/wishlist", h.addToWishlist)
		auth.DELETE("/wishlist/:productID", h.removeFromWishlist)

		auth.POST("/reviews", h.createReview)
		auth.DELETE("/reviews/:productID", h.deleteReview)
	}

	admin := v1.Group("/admin", authRequired(h.jwtSecret), adminRequired())
	{
		admin.POST("/products", h.adminCreateProduct)
		admin.PUT("/products/:id", h.adminUpdateProduct)
		admin.DELETE("/products/:id", h.adminDeleteProduct)

		admin.GET("/stores", h.adminListStores)
		admin.POST("/stores", h.adminCreateStore)
		admin.DELETE("/stores/:id", h.adminDeleteStore)
		admin.GET("/stores/:id/inventory", h.adminListStoreInventory)

		admin.PUT("/inventory", h.adminUpsertInventory)
		admin.GET("/inventory/low-stock", h.adminListLowStock)

		admin.PATCH("/orders/:id/status", h.adminUpdateOrderStatus)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// viewer loads the full user record for a signed-in request, used for the
// per-request age recomputation. Guests (and lookup failures) are nil.
func (h *Handler) viewer(c *gin.Context) *models.User {
	userID := sessionUserID(c)
	if userID == 0 {
		return nil
	}
	user, err := h.accountService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		util.GetLogger().Warn("Failed to load viewer", zap.Int64("user_id", userID), zap.Error(err))
		return nil
	}
	return user
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// listProducts handles catalog listing and search
func (h *Handler) listProducts(c *gin.Context) {
	products, err := h.catalogService.ListProducts(
		c.Request.Context(),
		h.viewer(c),
		c.Query("search"),
		c.Query("category"),
		c.Query("featured") == "true",
	)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

// getProduct handles product detail by slug
func (h *Handler) getProduct(c *gin.Context) {
	product, totalStock, err := h.catalogService.GetProductBySlug(
		c.Request.Context(), h.viewer(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"product":     product,
		"total_stock": totalStock,
		"in_stock":    totalStock > 0,
	})
}

// listReviews lists reviews for a product
func (h *Handler) listReviews(c *gin.Context) {
	product, _, err := h.catalogService.GetProductBySlug(
		c.Request.Context(), h.viewer(c), c.Param("slug"))
	if err != nil {
		respondError(c, err)
		return
	}

	reviews, err := h.reviewService.ListReviews(c.Request.Context(), product.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// listCart returns the cart with product snapshots
func (h *Handler) listCart(c *gin.Context) {
	lines, err := h.cartService.ListItems(c.Request.Context(), sessionUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": lines})
}

type addToCartRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// addToCart adds quantity to the cart, merging with an existing row
func (h *Handler) addToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	quantity, err := h.cartService.AddItem(c.Request.Context(), sessionUserID(c), req.ProductID, req.Quantity)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "quantity": quantity})
}

// wireID is a product ID that binds from either a JSON string or a JSON
// number; storefront clients serialize IDs both ways.
type wireID int64

func (id *wireID) UnmarshalJSON(data []byte) error {
	v, err := strconv.ParseInt(strings.Trim(string(data), `"`), 10, 64)
	if err != nil {
		return err
	}
	*id = wireID(v)
	return nil
}

type syncCartItem struct {
	ProductID wireID `json:"productId" binding:"required"`
	Quantity  int    `json:"quantity"`
}

type syncCartRequest struct {
	Items []syncCartItem `json:"items"`
}

// syncCart makes the persisted cart exactly match the submitted item list
func (h *Handler) syncCart(c *gin.Context) {
	var req syncCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	desired := make([]models.CartQuantity, 0, len(req.Items))
	for _, item := range req.Items {
		desired = append(desired, models.CartQuantity{
			ProductID: int64(item.ProductID),
			Quantity:  item.Quantity,
		})
	}

	if err := h.cartService.Sync(c.Request.Context(), sessionUserID(c), desired); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// updateCartItem sets the absolute quantity; non-positive removes the row
func (h *Handler) updateCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productID")
	if !ok {
		return
	}

	var req updateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.cartService.UpdateItem(c.Request.Context(), sessionUserID(c), productID, req.Quantity); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// removeCartItem deletes a cart row; removing a missing row succeeds
func (h *Handler) removeCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productID")
	if !ok {
		return
	}

	if err := h.cartService.RemoveItem(c.Request.Context(), sessionUserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// clearCart deletes all cart rows for the user
func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cartService.Clear(c.Request.Context(), sessionUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// checkout creates an order from the cart snapshot
func (h *Handler) checkout(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.checkoutService.Checkout(c.Request.Context(), sessionUserID(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// listOrders lists the caller's orders
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.checkoutService.ListOrders(c.Request.Context(), sessionUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder returns an order with its item snapshots
func (h *Handler) getOrder(c *gin.Context) {
	orderID, ok := pathID(c, "id")
	if !ok {
		return
	}

	order, items, err := h.checkoutService.GetOrder(c.Request.Context(), sessionUserID(c), orderID, isAdmin(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order, "items": items})
}

type paymentNotifyRequest struct {
	Reference string `json:"reference" binding:"required"`
	Amount    int64  `json:"amount"`
	Success   bool   `json:"success"`
	Reason    string `json:"reason"`
}

// paymentNotify accepts an asynchronous gateway callback and republishes it
// as an event for the payment worker
func (h *Handler) paymentNotify(c *gin.Context) {
	var req paymentNotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	err := h.checkoutService.ResolveNotification(
		c.Request.Context(), c.Param("gateway"), req.Reference, req.Amount, req.Success, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
