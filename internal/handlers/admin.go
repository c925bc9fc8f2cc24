// internal/handlers/admin.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/dashboard/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.adminService.GetDashboardStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/products/low-stock
func (h *AdminHandler) GetLowStockProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	products, total, err := h.adminService.GetLowStockProducts(c.Request.Context(), params)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}

// GET /admin/customers?search=
func (h *AdminHandler) GetCustomers(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	customers, total, err := h.adminService.GetCustomers(c.Request.Context(), services.AdminCustomerFilter{
		PaginationParams: params,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(customers, total, params))
}

// DELETE /admin/customers/:id
// Removes the customer together with their orders and cart.
func (h *AdminHandler) DeleteCustomer(c *gin.Context) {
	adminID, ok := currentUser(c)
	if !ok {
		return
	}

	customerID, ok := pathID(c, "id", "customer")
	if !ok {
		return
	}

	if err := h.adminService.DeleteCustomer(c.Request.Context(), customerID, adminID); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyCustomerDeleted, nil)
}
