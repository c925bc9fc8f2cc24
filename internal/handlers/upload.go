// internal/handlers/upload.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// UploadHandler serves files kept in the local upload directory when S3 is
// not configured.
type UploadHandler struct {
	storageService *services.StorageService
}

func NewUploadHandler(storageService *services.StorageService) *UploadHandler {
	return &UploadHandler{storageService: storageService}
}

// GET /uploads/*filepath
func (h *UploadHandler) ServeFile(c *gin.Context) {
	path, err := h.storageService.LocalFile(c.Param("filepath"), c.Query("token"))
	if err != nil {
		utils.NotFoundResponse(c, "file")
		return
	}

	c.Header("X-Content-Type-Options", "nosniff")
	c.File(path)
}
