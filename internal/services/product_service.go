// internal/services/product_service.go
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

type ProductService struct {
	store       repository.Store
	userService *UserService
	limits      config.CatalogConfig
	now         func() time.Time
}

// BrowseParams are the raw browse query parameters. The window applies only
// when Paginate is set, i.e. the client sent both _page and _limit.
type BrowseParams struct {
	Category string
	Brand    string
	Admin    bool
	Sort     string
	Order    string
	Paginate bool
	Page     int
	Limit    int
}

type SearchParams struct {
	Query  string
	Sort   string
	Order  string
	Page   int
	Limit  int
	UserID *uuid.UUID
}

// ProductList is one result window plus the total independent of it.
type ProductList struct {
	Products   []models.Product `json:"products"`
	Page       int              `json:"currentPage"`
	TotalPages int              `json:"totalPages"`
	Total      int64            `json:"totalResults"`
}

func NewProductService(store repository.Store, userService *UserService, limits config.CatalogConfig) *ProductService {
	return &ProductService{
		store:       store,
		userService: userService,
		limits:      limits,
		now:         time.Now,
	}
}

func (s *ProductService) Browse(ctx context.Context, params BrowseParams) (*ProductList, error) {
	pred := catalog.BuildCondition(catalog.Filter{
		Category: params.Category,
		Brand:    params.Brand,
		Admin:    params.Admin,
	})
	sort := catalog.ResolveSort(catalog.ProductSortFields, params.Sort, params.Order)

	var page *catalog.Page
	if params.Paginate {
		p := catalog.NewPage(params.Page, params.Limit, s.limits.DefaultLimit, s.limits.MaxLimit)
		page = &p
	}

	return s.list(ctx, pred, sort, page)
}

// Search runs a text query through the same ordering and windowing as
// Browse. An authenticated caller's query is recorded in their search
// history; that write never fails the search.
func (s *ProductService) Search(ctx context.Context, params SearchParams) (*ProductList, error) {
	pred, err := catalog.SearchCondition(params.Query)
	if err != nil {
		return nil, err
	}
	sort := catalog.ResolveSort(catalog.ProductSortFields, params.Sort, params.Order)
	page := catalog.NewPage(params.Page, params.Limit, s.limits.DefaultLimit, s.limits.MaxLimit)

	result, err := s.list(ctx, pred, sort, &page)
	if err != nil {
		return nil, err
	}

	if params.UserID != nil && s.userService != nil {
		if err := s.userService.RecordSearch(ctx, *params.UserID, params.Query); err != nil {
			logrus.WithError(err).WithField("user_id", params.UserID.String()).Warn("Failed to record search history")
		}
	}

	return result, nil
}

func (s *ProductService) list(ctx context.Context, pred catalog.Predicate, sort catalog.Sort, page *catalog.Page) (*ProductList, error) {
	products := s.store.Products()

	total, err := products.Count(ctx, pred)
	if err != nil {
		return nil, storeErr("count products", err)
	}

	items, err := products.Find(ctx, pred, sort, page)
	if err != nil {
		return nil, storeErr("find products", err)
	}
	if items == nil {
		items = []models.Product{}
	}

	result := &ProductList{Products: items, Total: total, Page: 1, TotalPages: 1}
	if page != nil {
		result.Page = page.Number
		result.TotalPages = catalog.TotalPages(total, page.Size)
	} else if total == 0 {
		result.TotalPages = 0
	}
	return result, nil
}

// GetProduct hides soft-deleted products from everyone but admins.
func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID, admin bool) (*models.Product, error) {
	product, err := s.store.Products().Get(ctx, id)
	if err != nil {
		return nil, storeErr("get product", err)
	}
	if product.Deleted && !admin {
		return nil, ErrNotFound
	}
	return product, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, fields models.ProductFields) (*models.Product, error) {
	product, err := models.NewProduct(fields, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.store.Products().Create(ctx, product); err != nil {
		return nil, storeErr("create product", err)
	}

	logrus.WithFields(logrus.Fields{
		"product_id": product.ID.String(),
		"category":   product.CategoryKey,
	}).Info("Product created")

	return product, nil
}

// UpdateProduct applies a partial update and recomputes every derived
// field, discountPrice included.
func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, fields models.ProductFields) (*models.Product, error) {
	var product *models.Product
	err := s.store.WithTransaction(ctx, func(tx repository.Tx) error {
		current, err := tx.Products().Get(ctx, id)
		if err != nil {
			return err
		}

		current.Apply(fields)
		if err := current.Prepare(s.now()); err != nil {
			return err
		}

		if err := tx.Products().Update(ctx, current); err != nil {
			return err
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, storeErr("update product", err)
	}
	return product, nil
}

// DeleteProduct flips the soft-delete flag. The record stays in the store
// and in historical orders.
func (s *ProductService) DeleteProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	deleted := true
	product, err := s.UpdateProduct(ctx, id, models.ProductFields{Deleted: &deleted})
	if err != nil {
		return nil, err
	}

	logrus.WithField("product_id", id.String()).Info("Product soft-deleted")
	return product, nil
}

// Facets lists the distinct values of field across live products as
// label/value filter options.
func (s *ProductService) Facets(ctx context.Context, field catalog.FacetField) ([]catalog.Facet, error) {
	values, err := s.store.Products().Distinct(ctx, field)
	if err != nil {
		return nil, storeErr("list "+field.Name+" facets", err)
	}
	return catalog.BuildFacets(values), nil
}
