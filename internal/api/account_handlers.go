package api

import (
	"net/http"
	"time"

	"storefront-service/internal/models"

	"github.com/gin-gonic/gin"
)

// getAccount returns the caller's profile
func (h *Handler) getAccount(c *gin.Context) {
	user, err := h.accountService.GetProfile(c.Request.Context(), sessionUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

type verifyAgeRequest struct {
	DateOfBirth string `json:"date_of_birth" binding:"required"`
}

// verifyAge stores the birth date and sets the one-time verified flag
func (h *Handler) verifyAge(c *gin.Context) {
	var req verifyAgeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	dateOfBirth, err := time.Parse("2006-01-02", req.DateOfBirth)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date_of_birth must be YYYY-MM-DD"})
		return
	}

	if err := h.accountService.VerifyAge(c.Request.Context(), sessionUserID(c), dateOfBirth); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// listAddresses lists the caller's addresses, default first
func (h *Handler) listAddresses(c *gin.Context) {
	addresses, err := h.accountService.ListAddresses(c.Request.Context(), sessionUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"addresses": addresses})
}

type createAddressRequest struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	IsDefault  bool   `json:"is_default"`
}

// createAddress adds an address for the caller
func (h *Handler) createAddress(c *gin.Context) {
	var req createAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	address := &models.Address{
		UserID:     sessionUserID(c),
		Line1:      req.Line1,
		Line2:      req.Line2,
		City:       req.City,
		Province:   req.Province,
		PostalCode: req.PostalCode,
		IsDefault:  req.IsDefault,
	}
	if err := h.accountService.CreateAddress(c.Request.Context(), address); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"address": address})
}

// setDefaultAddress marks one address default, unsetting all others
func (h *Handler) setDefaultAddress(c *gin.Context) {
	addressID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.accountService.SetDefaultAddress(c.Request.Context(), sessionUserID(c), addressID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteAddress removes the caller's address
func (h *Handler) deleteAddress(c *gin.Context) {
	addressID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.accountService.DeleteAddress(c.Request.Context(), sessionUserID(c), addressID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// listWishlist lists the caller's saved products
func (h *Handler) listWishlist(c *gin.Context) {
	products, err := h.accountService.ListWishlist(c.Request.Context(), sessionUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

type wishlistRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
}

// addToWishlist saves a product; duplicates are rejected with 409
func (h *Handler) addToWishlist(c *gin.Context) {
	var req wishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.accountService.AddToWishlist(c.Request.Context(), sessionUserID(c), req.ProductID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// removeFromWishlist removes a saved product
func (h *Handler) removeFromWishlist(c *gin.Context) {
	productID, ok := pathID(c, "productID")
	if !ok {
		return
	}

	if err := h.accountService.RemoveFromWishlist(c.Request.Context(), sessionUserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type createReviewRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Comment   string `json:"comment"`
}

// createReview adds a review; one per user per product
func (h *Handler) createReview(c *gin.Context) {
	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	review := &models.Review{
		UserID:    sessionUserID(c),
		ProductID: req.ProductID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.reviewService.CreateReview(c.Request.Context(), review); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

// deleteReview removes the caller's review of a product
func (h *Handler) deleteReview(c *gin.Context) {
	productID, ok := pathID(c, "productID")
	if !ok {
		return
	}

	if err := h.reviewService.DeleteReview(c.Request.Context(), sessionUserID(c), productID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
