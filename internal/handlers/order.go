// internal/handlers/order.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const paymentProofField = "payment_proof"

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// POST /orders
// Accepts JSON, or multipart form data when a payment proof is attached.
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.PlaceOrderRequest
	if err := c.ShouldBind(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Validate request
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	var proof *services.PaymentProof
	if fileHeader, err := c.FormFile(paymentProofField); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyUploadFailed), err.Error())
			return
		}
		defer file.Close()

		proof = &services.PaymentProof{
			Filename: fileHeader.Filename,
			Size:     fileHeader.Size,
			Body:     file,
		}
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), userID, &req, proof)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedMessageResponse(c, i18n.KeyOrderPlaced, order)
}

// GET /orders
func (h *OrderHandler) GetMyOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	orders, total, err := h.orderService.ListMyOrders(c.Request.Context(), userID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// GET /orders/:id
// Returns the order with its per-provider contact links.
func (h *OrderHandler) GetOrder(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	orderID, ok := pathID(c, "id", "order")
	if !ok {
		return
	}

	confirmation, err := h.orderService.Confirmation(c.Request.Context(), userID, isAdmin(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, confirmation)
}

// GET /admin/orders?status=pending
func (h *OrderHandler) GetOrders(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	params := utils.GetPaginationParams(c)

	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "status"), nil)
		return
	}

	orders, total, err := h.orderService.ListOrders(c.Request.Context(), status, params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// PUT /admin/orders/:id/status
func (h *OrderHandler) UpdateOrderStatus(c *gin.Context) {
	orderID, ok := pathID(c, "id", "order")
	if !ok {
		return
	}

	var req services.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.UpdateStatus(c.Request.Context(), orderID, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyOrderStatusUpdated, order)
}

// GET /admin/orders/:id/proof
func (h *OrderHandler) GetPaymentProof(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	orderID, ok := pathID(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), userID, true, orderID)
	if err != nil {
		respondError(c, err)
		return
	}

	url, err := h.orderService.ProofURL(order)
	if err != nil {
		respondError(c, err)
		return
	}
	if url == "" {
		utils.NotFoundResponse(c, "order")
		return
	}

	utils.SuccessResponse(c, gin.H{"url": url})
}
