// internal/models/order.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// OrderItem is an immutable snapshot of a product at the moment it was ordered.
type OrderItem struct {
	ProductID     uuid.UUID `json:"productId" bson:"productId"`
	Title         string    `json:"title" bson:"title"`
	Thumbnail     string    `json:"thumbnail" bson:"thumbnail"`
	Brand         string    `json:"brand" bson:"brand"`
	EcoRating     string    `json:"Eco_Rating" bson:"Eco_Rating"`
	WaterRating   string    `json:"Water_Rating" bson:"Water_Rating"`
	Price         float64   `json:"price" bson:"price"`
	DiscountPrice *float64  `json:"discountPrice" bson:"discountPrice"`
	UnitPrice     float64   `json:"unitPrice" bson:"unitPrice"`
	Quantity      int       `json:"quantity" bson:"quantity" validate:"min=1"`
}

// OrderItems is persisted as a single jsonb column in PostgreSQL.
type OrderItems []OrderItem

func (items OrderItems) Value() (driver.Value, error) {
	if items == nil {
		return "[]", nil
	}
	b, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (items *OrderItems) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*items = nil
		return nil
	case []byte:
		return json.Unmarshal(v, items)
	case string:
		return json.Unmarshal([]byte(v), items)
	default:
		return errors.New("order items: unsupported scan source")
	}
}

type Order struct {
	BaseModel       `bson:",inline"`
	UserID          uuid.UUID     `json:"user" gorm:"type:uuid;not null;index" bson:"user"`
	Items           OrderItems    `json:"items" gorm:"type:jsonb" bson:"items" validate:"required,min=1,dive"`
	TotalAmount     float64       `json:"totalAmount" bson:"totalAmount"`
	TotalItems      int           `json:"totalItems" bson:"totalItems"`
	Status          OrderStatus   `json:"status" gorm:"type:varchar(20);default:'pending';index" bson:"status"`
	PaymentStatus   PaymentStatus `json:"paymentStatus" gorm:"type:varchar(20);default:'pending'" bson:"paymentStatus"`
	PaymentMethod   string        `json:"paymentMethod" gorm:"size:50" bson:"paymentMethod" validate:"required"`
	SelectedAddress JSONB         `json:"selectedAddress" gorm:"type:jsonb" bson:"selectedAddress"`
}

// OrderUpdate carries the administrative mutations an order accepts.
type OrderUpdate struct {
	Status          *OrderStatus   `json:"status"`
	PaymentStatus   *PaymentStatus `json:"paymentStatus"`
	SelectedAddress JSONB          `json:"selectedAddress"`
}

// NewOrderItem snapshots p for an order line.
func NewOrderItem(p *Product, quantity int) OrderItem {
	item := OrderItem{
		ProductID:   p.ID,
		Title:       p.Title,
		Thumbnail:   p.Thumbnail,
		Brand:       p.Brand,
		EcoRating:   p.EcoRating,
		WaterRating: p.WaterRating,
		Price:       p.Price,
		UnitPrice:   p.EffectivePrice(),
		Quantity:    quantity,
	}
	if p.DiscountPrice != nil {
		dp := *p.DiscountPrice
		item.DiscountPrice = &dp
	}
	return item
}

// NewOrder builds a pending order and derives its totals from the line items.
func NewOrder(userID uuid.UUID, items []OrderItem, paymentMethod string, address JSONB, now time.Time) (*Order, error) {
	if userID == uuid.Nil {
		return nil, NewFieldError("user", "required", "user is required")
	}

	order := &Order{
		UserID:          userID,
		Items:           append(OrderItems{}, items...),
		Status:          OrderStatusPending,
		PaymentStatus:   PaymentStatusPending,
		PaymentMethod:   paymentMethod,
		SelectedAddress: address.Clone(),
	}
	if err := validateModel(order); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, item := range order.Items {
		total = total.Add(decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity))))
		order.TotalItems += item.Quantity
	}
	order.TotalAmount = total.Round(2).InexactFloat64()
	order.Touch(now)

	return order, nil
}

// ProductIDs returns the distinct product ids in line order.
func (o *Order) ProductIDs() []string {
	seen := make(map[uuid.UUID]struct{}, len(o.Items))
	ids := make([]string, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID.String())
	}
	return ids
}

// Apply validates and applies an administrative update.
func (o *Order) Apply(u OrderUpdate, now time.Time) error {
	if u.Status != nil && *u.Status != o.Status {
		if !u.Status.Valid() {
			return NewFieldError("status", "oneof", "status must be one of pending, dispatched, delivered, cancelled")
		}
		if !o.Status.CanTransitionTo(*u.Status) {
			return fmt.Errorf("%w: status %s -> %s", ErrInvalidTransition, o.Status, *u.Status)
		}
	}
	if u.PaymentStatus != nil && *u.PaymentStatus != o.PaymentStatus {
		if !u.PaymentStatus.Valid() {
			return NewFieldError("paymentStatus", "oneof", "paymentStatus must be one of pending, received")
		}
		if !o.PaymentStatus.CanTransitionTo(*u.PaymentStatus) {
			return fmt.Errorf("%w: paymentStatus %s -> %s", ErrInvalidTransition, o.PaymentStatus, *u.PaymentStatus)
		}
	}

	if u.Status != nil {
		o.Status = *u.Status
	}
	if u.PaymentStatus != nil {
		o.PaymentStatus = *u.PaymentStatus
	}
	if u.SelectedAddress != nil {
		o.SelectedAddress = u.SelectedAddress.Clone()
	}
	o.UpdatedAt = now
	return nil
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusDispatched, OrderStatusCancelled},
	OrderStatusDispatched: {OrderStatusDelivered},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusDispatched, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPending || s == PaymentStatusReceived
}

func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	return s == PaymentStatusPending && next == PaymentStatusReceived
}
