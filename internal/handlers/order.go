// internal/handlers/order.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/services"
	"github.com/ecocart/storefront-api/internal/utils"
)

type OrderHandler struct {
	orderService *services.OrderService
}

func NewOrderHandler(orderService *services.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// entityRef accepts either a bare id string or an object carrying "id".
type entityRef string

func (r *entityRef) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*r = entityRef(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*r = entityRef(obj.ID)
	return nil
}

func (r entityRef) UUID() (uuid.UUID, bool) {
	if strings.TrimSpace(string(r)) == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(string(r))
	return id, err == nil
}

type orderItemRequest struct {
	Product   entityRef `json:"product"`
	ProductID entityRef `json:"productId"`
	Quantity  int       `json:"quantity"`
}

// placeOrderRequest mirrors the checkout payload. totalAmount, totalItems
// and status are accepted for compatibility and ignored.
type placeOrderRequest struct {
	Items           []orderItemRequest `json:"items"`
	User            entityRef          `json:"user"`
	PaymentMethod   string             `json:"paymentMethod"`
	SelectedAddress models.JSONB       `json:"selectedAddress"`
	TotalAmount     float64            `json:"totalAmount"`
	TotalItems      int                `json:"totalItems"`
	Status          string             `json:"status"`
}

// POST /orders
func (h *OrderHandler) PlaceOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	callerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	// Admins may place an order on behalf of another user.
	userID := callerID
	if bodyUser, ok := req.User.UUID(); ok && bodyUser != callerID {
		if !utils.IsAdmin(c) {
			utils.ForbiddenResponse(c, "")
			return
		}
		userID = bodyUser
	}

	lines := make([]services.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		productID, ok := item.Product.UUID()
		if !ok {
			productID, _ = item.ProductID.UUID()
		}
		lines = append(lines, services.OrderLine{ProductID: productID, Quantity: item.Quantity})
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), services.PlaceOrderRequest{
		UserID:          userID,
		Items:           lines,
		PaymentMethod:   req.PaymentMethod,
		SelectedAddress: req.SelectedAddress,
	})
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	c.JSON(http.StatusCreated, order)
}

// GET /orders
func (h *OrderHandler) ListOrders(c *gin.Context) {
	list := utils.GetListParams(c)

	result, err := h.orderService.ListOrders(c.Request.Context(), services.ListOrdersParams{
		Sort:     list.Sort,
		Order:    list.Order,
		Paginate: list.Paginate,
		Page:     list.Page,
		Limit:    list.Limit,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to list orders")
		utils.SetTotalCountHeader(c, 0)
		c.JSON(http.StatusInternalServerError, []models.Order{})
		return
	}

	utils.SetTotalCountHeader(c, result.Total)
	c.JSON(http.StatusOK, result.Orders)
}

// GET /orders/own
func (h *OrderHandler) ListOwnOrders(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	result, err := h.orderService.ListUserOrders(c.Request.Context(), userID)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID.String()).Error("Failed to list user orders")
		utils.SetTotalCountHeader(c, 0)
		c.JSON(http.StatusInternalServerError, []models.Order{})
		return
	}

	utils.SetTotalCountHeader(c, result.Total)
	c.JSON(http.StatusOK, result.Orders)
}

// GET /orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := parseID(c, i18n.KeyOrderNotFound)
	if !ok {
		return
	}
	callerID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), id, callerID, utils.IsAdmin(c))
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	c.JSON(http.StatusOK, order)
}

// PATCH /orders/:id
func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, i18n.KeyOrderNotFound)
	if !ok {
		return
	}

	var update models.OrderUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	order, err := h.orderService.UpdateOrder(c.Request.Context(), id, update)
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	c.JSON(http.StatusOK, order)
}
