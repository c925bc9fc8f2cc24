// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

var notFoundResources = []struct {
	err      error
	resource string
}{
	{services.ErrUserNotFound, "customer"},
	{services.ErrProductNotFound, "product"},
	{services.ErrCategoryNotFound, "category"},
	{services.ErrProviderNotFound, "provider"},
	{services.ErrCartItemNotFound, "cart_item"},
	{services.ErrOrderNotFound, "order"},
}

var badRequestKeys = []struct {
	err error
	key string
}{
	{services.ErrVariantRequired, i18n.KeyProductVariantRequired},
	{services.ErrInvalidVariant, i18n.KeyProductInvalidVariant},
	{services.ErrInvalidCartField, i18n.KeyCartInvalidField},
	{services.ErrImagesRequired, i18n.KeyProductImagesRequired},
	{services.ErrCartEmpty, i18n.KeyCartEmpty},
	{services.ErrShippingIncomplete, i18n.KeyOrderShippingIncomplete},
	{services.ErrInvalidPaymentMethod, i18n.KeyOrderPaymentMethodInvalid},
	{services.ErrPaymentProofRequired, i18n.KeyOrderProofRequired},
	{services.ErrProofTooLarge, i18n.KeyUploadTooLarge},
	{services.ErrFileTooLarge, i18n.KeyUploadTooLarge},
	{services.ErrFileTypeNotAllowed, i18n.KeyUploadInvalid},
	{services.ErrInvalidImage, i18n.KeyUploadInvalid},
}

var conflictKeys = []struct {
	err error
	key string
}{
	{services.ErrUserExists, i18n.KeyAuthUserExists},
	{services.ErrCategoryExists, i18n.KeyCategoryExists},
	{services.ErrCartChanged, i18n.KeyCartChanged},
	{services.ErrStatusConflict, i18n.KeyOrderStatusConflict},
	{services.ErrOutOfStock, i18n.KeyProductOutOfStock},
}

// respondError translates a service error into the API envelope. Anything
// unrecognised is logged and reported as an internal error.
func respondError(c *gin.Context, err error) {
	lang := utils.GetLangFromContext(c)

	var stockErr *services.InsufficientStockError
	if errors.As(err, &stockErr) {
		utils.ConflictResponse(c,
			i18n.T(lang, i18n.KeyProductInsufficientStock, strings.Join(stockErr.ProductNames(), ", ")),
			stockErr.Shortages)
		return
	}

	var transitionErr *services.TransitionError
	if errors.As(err, &transitionErr) {
		utils.ConflictResponse(c,
			i18n.T(lang, i18n.KeyOrderInvalidTransition, transitionErr.From, transitionErr.To), nil)
		return
	}

	for _, nf := range notFoundResources {
		if errors.Is(err, nf.err) {
			utils.NotFoundResponse(c, nf.resource)
			return
		}
	}

	for _, br := range badRequestKeys {
		if errors.Is(err, br.err) {
			utils.BadRequestResponse(c, i18n.T(lang, br.key), nil)
			return
		}
	}

	for _, cf := range conflictKeys {
		if errors.Is(err, cf.err) {
			utils.ConflictResponse(c, i18n.T(lang, cf.key), nil)
			return
		}
	}

	switch {
	case errors.Is(err, services.ErrAuthRequired):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthRequired))
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthInvalidCredentials))
	case errors.Is(err, services.ErrCannotDeleteAdmin):
		utils.ForbiddenResponse(c, i18n.T(lang, i18n.KeyCustomerCannotDeleteAdmin))
	case errors.Is(err, services.ErrPaymentUnverified):
		utils.ErrorResponse(c, http.StatusPaymentRequired, "PAYMENT_REQUIRED", i18n.T(lang, i18n.KeyOrderPaymentUnverified), nil)
	case errors.Is(err, services.ErrPaymentUnavailable):
		utils.ErrorResponse(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", i18n.T(lang, i18n.KeyPaymentUnavailable), nil)
	default:
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
		}).Error("Request failed")
		utils.InternalErrorResponse(c, "")
	}
}

// bindJSON decodes and validates a JSON body, writing the error response
// itself when the request is rejected.
func bindJSON(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)
	if err := c.ShouldBindJSON(req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id := utils.GetUserUUIDFromContext(c)
	if id == uuid.Nil {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return id, true
}

func isAdmin(c *gin.Context) bool {
	role, _ := utils.GetUserRoleFromContext(c)
	return role == string(models.UserRoleAdmin)
}

// pathID reads a uuid path parameter, answering 404 for malformed ids.
func pathID(c *gin.Context, name, resource string) (uuid.UUID, bool) {
	id, ok := utils.ParseUUIDParam(c, name)
	if !ok {
		utils.NotFoundResponse(c, resource)
	}
	return id, ok
}
