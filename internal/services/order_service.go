// internal/services/order_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

type OrderService struct {
	store    repository.Store
	notifier *NotificationService
	limits   config.CatalogConfig
	now      func() time.Time
}

type OrderLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// PlaceOrderRequest is everything placement needs. Totals are not part of
// it: they are always derived from the committed line items.
type PlaceOrderRequest struct {
	UserID          uuid.UUID
	Items           []OrderLine
	PaymentMethod   string
	SelectedAddress models.JSONB
}

type ListOrdersParams struct {
	UserID   *uuid.UUID
	Sort     string
	Order    string
	Paginate bool
	Page     int
	Limit    int
}

type OrderList struct {
	Orders []models.Order
	Total  int64
}

func NewOrderService(store repository.Store, notifier *NotificationService, limits config.CatalogConfig) *OrderService {
	return &OrderService{
		store:    store,
		notifier: notifier,
		limits:   limits,
		now:      time.Now,
	}
}

// PlaceOrder decrements stock for every line, persists the order and unions
// the products into the buyer's purchase history as one unit of work. Any
// failure leaves all three untouched. The order event is queued only after
// commit.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	if err := validateLines(req.Items); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.store.WithTransaction(ctx, func(tx repository.Tx) error {
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, line := range req.Items {
			product, err := tx.Products().DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return fmt.Errorf("product %s: %w", line.ProductID, err)
			}
			items = append(items, models.NewOrderItem(product, line.Quantity))
		}

		o, err := models.NewOrder(req.UserID, items, req.PaymentMethod, req.SelectedAddress, s.now())
		if err != nil {
			return err
		}
		if err := tx.Orders().Create(ctx, o); err != nil {
			return err
		}

		if err := tx.Users().AddPurchaseHistory(ctx, o.UserID, o.ProductIDs()); err != nil {
			return fmt.Errorf("user %s: %w", o.UserID, err)
		}

		order = o
		return nil
	})
	if err != nil {
		return nil, storeErr("place order", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":     order.ID.String(),
		"user_id":      order.UserID.String(),
		"total_amount": order.TotalAmount,
		"total_items":  order.TotalItems,
	}).Info("Order placed")

	if s.notifier != nil {
		s.notifier.Enqueue(NewOrderEvent(order))
	}

	return order, nil
}

func validateLines(lines []OrderLine) error {
	if len(lines) == 0 {
		return models.NewFieldError("items", "min", "items must contain at least one line")
	}
	for i, line := range lines {
		if line.ProductID == uuid.Nil {
			return models.NewFieldError(fmt.Sprintf("items[%d].product", i), "required", "product is required")
		}
		if line.Quantity < 1 {
			return models.NewFieldError(fmt.Sprintf("items[%d].quantity", i), "min", "quantity must be at least 1")
		}
	}
	return nil
}

// ListOrders lists every order, or one user's when params.UserID is set.
func (s *OrderService) ListOrders(ctx context.Context, params ListOrdersParams) (*OrderList, error) {
	filter := repository.OrderFilter{UserID: params.UserID}
	sort := catalog.ResolveSort(catalog.OrderSortFields, params.Sort, params.Order)

	var page *catalog.Page
	if params.Paginate {
		p := catalog.NewPage(params.Page, params.Limit, s.limits.DefaultLimit, s.limits.MaxLimit)
		page = &p
	}

	orders := s.store.Orders()
	total, err := orders.Count(ctx, filter)
	if err != nil {
		return nil, storeErr("count orders", err)
	}
	items, err := orders.Find(ctx, filter, sort, page)
	if err != nil {
		return nil, storeErr("find orders", err)
	}
	if items == nil {
		items = []models.Order{}
	}

	return &OrderList{Orders: items, Total: total}, nil
}

// ListUserOrders returns the user's orders, newest first.
func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID) (*OrderList, error) {
	return s.ListOrders(ctx, ListOrdersParams{
		UserID: &userID,
		Sort:   "createdAt",
		Order:  "desc",
	})
}

// GetOrder returns the order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, id, callerID uuid.UUID, admin bool) (*models.Order, error) {
	order, err := s.store.Orders().Get(ctx, id)
	if err != nil {
		return nil, storeErr("get order", err)
	}
	if !admin && order.UserID != callerID {
		return nil, ErrForbidden
	}
	return order, nil
}

// UpdateOrder applies an administrative status/payment/address change.
func (s *OrderService) UpdateOrder(ctx context.Context, id uuid.UUID, update models.OrderUpdate) (*models.Order, error) {
	var order *models.Order
	err := s.store.WithTransaction(ctx, func(tx repository.Tx) error {
		current, err := tx.Orders().Get(ctx, id)
		if err != nil {
			return err
		}
		if err := current.Apply(update, s.now()); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, current); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return nil, storeErr("update order", err)
	}

	logrus.WithFields(logrus.Fields{
		"order_id":       order.ID.String(),
		"status":         order.Status,
		"payment_status": order.PaymentStatus,
	}).Info("Order updated")

	return order, nil
}
