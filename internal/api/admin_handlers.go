package api

import (
	"net/http"

	"storefront-service/internal/models"

	"github.com/gin-gonic/gin"
)

type productRequest struct {
	Slug          string   `json:"slug" binding:"required"`
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         int64    `json:"price" binding:"min=0"`
	DiscountPrice *int64   `json:"discount_price"`
	Category      string   `json:"category"`
	Strain        string   `json:"strain"`
	AgeRestricted bool     `json:"age_restricted"`
	Featured      bool     `json:"featured"`
	Images        []string `json:"images"`
}

func (r *productRequest) toModel() *models.Product {
	return &models.Product{
		Slug:          r.Slug,
		Name:          r.Name,
		Description:   r.Description,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		Category:      r.Category,
		Strain:        r.Strain,
		AgeRestricted: r.AgeRestricted,
		Featured:      r.Featured,
		Images:        r.Images,
	}
}

// adminCreateProduct creates a catalog product
func (h *Handler) adminCreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	product := req.toModel()
	if err := h.catalogService.CreateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": product})
}

// adminUpdateProduct replaces a product's mutable fields
func (h *Handler) adminUpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	product := req.toModel()
	product.ID = id
	if err := h.catalogService.UpdateProduct(c.Request.Context(), product); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": product})
}

// adminDeleteProduct removes a product
func (h *Handler) adminDeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// adminListStores lists store locations
func (h *Handler) adminListStores(c *gin.Context) {
	stores, err := h.catalogService.ListStores(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stores": stores})
}

type storeRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

// adminCreateStore creates a store location
func (h *Handler) adminCreateStore(c *gin.Context) {
	var req storeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	store := &models.Store{Name: req.Name, Address: req.Address}
	if err := h.catalogService.CreateStore(c.Request.Context(), store); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"store": store})
}

// adminDeleteStore removes a store location and its inventory
func (h *Handler) adminDeleteStore(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.DeleteStore(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// adminListStoreInventory lists inventory rows for one store
func (h *Handler) adminListStoreInventory(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	rows, err := h.catalogService.ListStoreInventory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows})
}

type upsertInventoryRequest struct {
	StoreID       int64 `json:"store_id" binding:"required"`
	ProductID     int64 `json:"product_id" binding:"required"`
	Quantity      int   `json:"quantity" binding:"min=0"`
	LowStockAlert int   `json:"low_stock_alert"`
}

// adminUpsertInventory sets the inventory row for a (store, product) pair
func (h *Handler) adminUpsertInventory(c *gin.Context) {
	var req upsertInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	inv := &models.StoreInventory{
		StoreID:       req.StoreID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		LowStockAlert: req.LowStockAlert,
	}
	if err := h.catalogService.UpsertInventory(c.Request.Context(), inv); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": inv})
}

// adminListLowStock lists inventory rows at or below their alert threshold
func (h *Handler) adminListLowStock(c *gin.Context) {
	rows, err := h.catalogService.ListLowStock(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inventory": rows})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// adminUpdateOrderStatus sets an order's status
func (h *Handler) adminUpdateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.checkoutService.UpdateOrderStatus(c.Request.Context(), id, req.Status); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
