// internal/handlers/product.go
package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// ProductHandler serves the catalog: products, categories and providers.
type ProductHandler struct {
	productService *services.ProductService
	storageService *services.StorageService
}

func NewProductHandler(productService *services.ProductService, storageService *services.StorageService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		storageService: storageService,
	}
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	searchParams := services.ProductSearchParams{
		PaginationParams: params,
	}

	if categoryIDStr := c.Query("category_id"); categoryIDStr != "" {
		if categoryID, err := uuid.Parse(categoryIDStr); err == nil {
			searchParams.CategoryID = &categoryID
		}
	}

	products, total, err := h.productService.SearchProducts(c.Request.Context(), searchParams)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(products, total, params))
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, product)
}

// GET /products/:id/related
func (h *ProductHandler) GetRelatedProducts(c *gin.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	products, err := h.productService.GetRelatedProducts(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, products)
}

// POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req services.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedMessageResponse(c, i18n.KeyProductCreated, product)
}

// PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	var req services.ProductRequest
	if !bindJSON(c, &req) {
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyProductUpdated, product)
}

// DELETE /admin/products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id", "product")
	if !ok {
		return
	}

	if err := h.productService.DeleteProduct(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyProductDeleted, nil)
}

// GET /categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, categories)
}

// GET /categories/:id
func (h *ProductHandler) GetCategory(c *gin.Context) {
	id, ok := pathID(c, "id", "category")
	if !ok {
		return
	}

	category, err := h.productService.GetCategory(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, category)
}

// GET /categories/:id/products
func (h *ProductHandler) GetCategoryProducts(c *gin.Context) {
	id, ok := pathID(c, "id", "category")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	category, products, total, err := h.productService.GetProductsByCategory(c.Request.Context(), id, params)
	if err != nil {
		respondError(c, err)
		return
	}

	result := utils.CreatePaginationResult(products, total, params)
	utils.SetPaginationHeaders(c, result)
	utils.SuccessResponseWithMeta(c, result.Data, gin.H{
		"category": category,
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

// POST /admin/categories
func (h *ProductHandler) CreateCategory(c *gin.Context) {
	var req services.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.productService.CreateCategory(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedMessageResponse(c, i18n.KeyCategoryCreated, category)
}

// PUT /admin/categories/:id
func (h *ProductHandler) UpdateCategory(c *gin.Context) {
	id, ok := pathID(c, "id", "category")
	if !ok {
		return
	}

	var req services.CategoryRequest
	if !bindJSON(c, &req) {
		return
	}

	category, err := h.productService.UpdateCategory(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyCategoryUpdated, category)
}

// DELETE /admin/categories/:id
func (h *ProductHandler) DeleteCategory(c *gin.Context) {
	id, ok := pathID(c, "id", "category")
	if !ok {
		return
	}

	if err := h.productService.DeleteCategory(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyCategoryDeleted, nil)
}

// GET /admin/providers
func (h *ProductHandler) GetProviders(c *gin.Context) {
	providers, err := h.productService.ListProviders(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, providers)
}

// GET /admin/providers/:id
func (h *ProductHandler) GetProvider(c *gin.Context) {
	id, ok := pathID(c, "id", "provider")
	if !ok {
		return
	}

	provider, err := h.productService.GetProvider(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessResponse(c, provider)
}

// POST /admin/providers
func (h *ProductHandler) CreateProvider(c *gin.Context) {
	var req services.ProviderRequest
	if !bindJSON(c, &req) {
		return
	}

	provider, err := h.productService.CreateProvider(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedMessageResponse(c, i18n.KeyProviderCreated, provider)
}

// PUT /admin/providers/:id
func (h *ProductHandler) UpdateProvider(c *gin.Context) {
	id, ok := pathID(c, "id", "provider")
	if !ok {
		return
	}

	var req services.ProviderRequest
	if !bindJSON(c, &req) {
		return
	}

	provider, err := h.productService.UpdateProvider(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyProviderUpdated, provider)
}

// DELETE /admin/providers/:id
func (h *ProductHandler) DeleteProvider(c *gin.Context) {
	id, ok := pathID(c, "id", "provider")
	if !ok {
		return
	}

	if err := h.productService.DeleteProvider(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	utils.SuccessMessageResponse(c, i18n.KeyProviderDeleted, nil)
}

// POST /admin/uploads?folder=products|categories
// Images are stored before the product or category that references them is
// saved. A batch with any rejected file is rolled back.
func (h *ProductHandler) UploadImages(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyUploadFailed), err.Error())
		return
	}

	files := form.File["images"]
	if len(files) == 0 {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyUploadMissing), nil)
		return
	}

	folder := c.DefaultQuery("folder", "products")
	if folder != "products" && folder != "categories" {
		folder = "products"
	}
	options := h.storageService.GetDefaultUploadOptions(folder)

	ctx := c.Request.Context()
	uploaded := make([]*services.UploadResult, 0, len(files))
	rollback := func() {
		for _, result := range uploaded {
			if err := h.storageService.Delete(ctx, result.Key); err != nil {
				logrus.WithError(err).WithField("key", result.Key).Warn("Failed to remove uploaded image")
			}
		}
	}

	for _, fileHeader := range files {
		file, err := fileHeader.Open()
		if err != nil {
			rollback()
			utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyUploadFailed), err.Error())
			return
		}

		if err := h.storageService.ValidateImage(file); err != nil {
			file.Close()
			rollback()
			respondError(c, err)
			return
		}

		result, err := h.storageService.UploadFile(ctx, file, fileHeader, options)
		file.Close()
		if err != nil {
			rollback()
			respondError(c, err)
			return
		}
		uploaded = append(uploaded, result)
	}

	utils.CreatedMessageResponse(c, i18n.KeyUploadSuccess, uploaded)
}
