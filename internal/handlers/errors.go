// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/services"
	"github.com/ecocart/storefront-api/internal/utils"
)

// respondError maps service errors onto the HTTP error envelope.
// notFoundKey names the translation used for a 404.
func respondError(c *gin.Context, err error, notFoundKey string) {
	lang := utils.GetLangFromContext(c)

	var validationErr *services.ValidationError
	var storeErr *services.StoreError
	switch {
	case errors.As(err, &validationErr):
		utils.ValidationErrorResponse(c, validationErr.Fields)
	case errors.Is(err, services.ErrInvalidTransition):
		utils.ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", i18n.T(lang, i18n.KeyOrderInvalidTransition), err.Error())
	case errors.Is(err, services.ErrInvalidQuery):
		utils.InvalidQueryResponse(c)
	case errors.Is(err, services.ErrInsufficientStock):
		utils.ConflictResponse(c, i18n.T(lang, i18n.KeyProductNoStock))
	case errors.Is(err, services.ErrNotFound):
		utils.NotFoundResponse(c, notFoundKey)
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, "")
	case errors.As(err, &storeErr):
		logrus.WithError(err).WithField("op", storeErr.Op).Error("Store operation failed")
		utils.InternalErrorResponse(c, "")
	default:
		logrus.WithError(err).Error("Unhandled service error")
		utils.InternalErrorResponse(c, "")
	}
}

// parseID reads a uuid path parameter; a malformed id cannot resolve to a
// record, so it is answered like any other miss.
func parseID(c *gin.Context, notFoundKey string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.NotFoundResponse(c, notFoundKey)
		return uuid.Nil, false
	}
	return id, true
}

// currentUserID returns the authenticated caller, if any.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, exists := utils.GetUserIDFromContext(c)
	if !exists {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}
