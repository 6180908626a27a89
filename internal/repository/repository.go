// Package repository defines the persistence ports the services depend on.
// Adapters live in the postgres, mongo and memory subpackages.
package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ProductRepository reads and writes catalog records.
type ProductRepository interface {
	// Find returns the products matching pred in sort order. A nil page
	// returns every match.
	Find(ctx context.Context, pred catalog.Predicate, sort catalog.Sort, page *catalog.Page) ([]models.Product, error)
	// Count is independent of any page window.
	Count(ctx context.Context, pred catalog.Predicate) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	Create(ctx context.Context, p *models.Product) error
	Update(ctx context.Context, p *models.Product) error
	// DecrementStock subtracts qty only while stock >= qty and returns the
	// updated product. It fails with ErrNotFound or ErrInsufficientStock.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*models.Product, error)
	// Distinct lists the raw values of field across products that are not
	// soft-deleted, in no particular order.
	Distinct(ctx context.Context, field catalog.FacetField) ([]string, error)
}

// OrderFilter narrows order listings; a nil UserID lists every order.
type OrderFilter struct {
	UserID *uuid.UUID
}

type OrderRepository interface {
	Find(ctx context.Context, filter OrderFilter, sort catalog.Sort, page *catalog.Page) ([]models.Order, error)
	Count(ctx context.Context, filter OrderFilter) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Create(ctx context.Context, o *models.Order) error
	Update(ctx context.Context, o *models.Order) error
}

type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	// UpdateProfile persists the client-editable profile fields of u: name,
	// addresses, weights and price tolerance.
	UpdateProfile(ctx context.Context, u *models.User) error
	// AddPurchaseHistory unions productIDs into the user's purchase history.
	AddPurchaseHistory(ctx context.Context, id uuid.UUID, productIDs []string) error
	// AppendSearchHistory records query and keeps only the newest limit entries.
	AppendSearchHistory(ctx context.Context, id uuid.UUID, query string, limit int) error
}

// Tx exposes repositories bound to one unit of work.
type Tx interface {
	Products() ProductRepository
	Orders() OrderRepository
	Users() UserRepository
}

// Store is a Tx outside any transaction that can also open one. fn's writes
// commit together or not at all.
type Store interface {
	Tx
	WithTransaction(ctx context.Context, fn func(tx Tx) error) error
	Close(ctx context.Context) error
}
