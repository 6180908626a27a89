// internal/handlers/user.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/services"
	"github.com/ecocart/storefront-api/internal/utils"
)

type UserHandler struct {
	userService       *services.UserService
	motivationService *services.MotivationService
}

func NewUserHandler(userService *services.UserService, motivationService *services.MotivationService) *UserHandler {
	return &UserHandler{
		userService:       userService,
		motivationService: motivationService,
	}
}

// GET /users/own
func (h *UserHandler) GetOwnProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	user, err := h.userService.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err, i18n.KeyUserNotFound)
		return
	}

	c.JSON(http.StatusOK, user)
}

// PATCH /users/:id
func (h *UserHandler) UpdateUser(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, i18n.KeyUserNotFound)
	if !ok {
		return
	}
	callerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var fields models.UserFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), id, callerID, utils.IsAdmin(c), fields)
	if err != nil {
		respondError(c, err, i18n.KeyUserNotFound)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GET /motivation
//
// Always answers 200; when the profile cannot be read the fixed fallback
// message is served instead.
func (h *UserHandler) GetMotivation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	motivation, err := h.motivationService.Generate(c.Request.Context(), userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID.String()).Warn("Serving fallback motivation")
		motivation = &services.Motivation{Message: services.FallbackMotivation, Source: services.MotivationSourceFallback}
	}

	c.JSON(http.StatusOK, motivation)
}
