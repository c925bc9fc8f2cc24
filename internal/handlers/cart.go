// internal/handlers/cart.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type CartHandler struct {
	cartService *services.CartService
}

func NewCartHandler(cartService *services.CartService) *CartHandler {
	return &CartHandler{
		cartService: cartService,
	}
}

// GET /cart
func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cart, err := h.cartService.Load(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, cart)
}

// POST /cart/items
func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.AddToCartRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.cartService.AddOrIncrement(c.Request.Context(), userID, req.ProductID, services.Variant{
		Size:  req.Size,
		Color: req.Color,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyCartItemAdded, item)
}

// PUT /cart/items/:key/quantity
// Accepts either an absolute quantity or a +/- delta.
func (h *CartHandler) UpdateQuantity(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateQuantityRequest
	if !bindJSON(c, &req) {
		return
	}

	var (
		item *models.CartItem
		err  error
	)
	switch {
	case req.Quantity != nil:
		item, err = h.cartService.SetQuantity(c.Request.Context(), userID, c.Param("key"), *req.Quantity)
	case req.Delta != nil:
		item, err = h.cartService.ChangeQuantity(c.Request.Context(), userID, c.Param("key"), *req.Delta)
	default:
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "quantity"), nil)
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyCartItemUpdated, item)
}

// PUT /cart/items/:key/variant
func (h *CartHandler) UpdateVariant(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateVariantRequest
	if !bindJSON(c, &req) {
		return
	}

	item, err := h.cartService.SetVariant(c.Request.Context(), userID, c.Param("key"), req.Field, req.Value)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyCartItemUpdated, item)
}

// DELETE /cart/items/:key
func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	if err := h.cartService.Remove(c.Request.Context(), userID, c.Param("key")); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyCartItemRemoved, nil)
}
