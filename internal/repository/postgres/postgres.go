// Package postgres implements the repository ports on gorm + PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/database"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Products() repository.ProductRepository { return &productRepo{db: s.db} }
func (s *Store) Orders() repository.OrderRepository     { return &orderRepo{db: s.db} }
func (s *Store) Users() repository.UserRepository       { return &userRepo{db: s.db} }

func (s *Store) WithTransaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

func (s *Store) Close(ctx context.Context) error {
	database.Close(s.db)
	return nil
}

type productRepo struct {
	db *gorm.DB
}

func (r *productRepo) scope(ctx context.Context, pred catalog.Predicate) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if !pred.IncludeDeleted {
		query = query.Where("deleted IS NOT TRUE")
	}
	if len(pred.CategoryKeys) > 0 {
		query = query.Where("category_key IN ?", pred.CategoryKeys)
	}
	if len(pred.BrandKeys) > 0 {
		query = query.Where("brand_key IN ?", pred.BrandKeys)
	}
	if pred.Text != "" {
		needle := "%" + escapeLike(pred.Text) + "%"
		clauses := make([]string, 0, len(catalog.SearchFields))
		args := make([]interface{}, 0, len(catalog.SearchFields))
		for _, f := range catalog.SearchFields {
			clauses = append(clauses, fmt.Sprintf("LOWER(%s) LIKE ?", f.Column))
			args = append(args, needle)
		}
		query = query.Where("("+strings.Join(clauses, " OR ")+")", args...)
	}

	return query
}

func (r *productRepo) Find(ctx context.Context, pred catalog.Predicate, sort catalog.Sort, page *catalog.Page) ([]models.Product, error) {
	query := r.scope(ctx, pred)
	if order := productOrderClause(sort); order != "" {
		query = query.Order(order)
	}
	if page != nil {
		query = query.Offset(page.Offset()).Limit(page.Size)
	}

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	return products, nil
}

func (r *productRepo) Count(ctx context.Context, pred catalog.Predicate) (int64, error) {
	var total int64
	if err := r.scope(ctx, pred).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func (r *productRepo) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &product, nil
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	p.Touch(time.Now())
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	result := r.db.WithContext(ctx).Model(p).Select("*").Omit("created_at").Updates(p)
	if result.Error != nil {
		return fmt.Errorf("failed to update product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DecrementStock is a single guarded UPDATE so concurrent orders cannot
// oversell.
func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*models.Product, error) {
	db := r.db.WithContext(ctx)
	result := db.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", id, qty).
		Updates(map[string]interface{}{
			"stock":      gorm.Expr("stock - ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return nil, fmt.Errorf("failed to update inventory: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, repository.ErrInsufficientStock
	}
	return r.Get(ctx, id)
}

func (r *productRepo) Distinct(ctx context.Context, field catalog.FacetField) ([]string, error) {
	var values []string
	err := r.db.WithContext(ctx).Model(&models.Product{}).
		Where("deleted IS NOT TRUE").
		Distinct(field.Column).
		Pluck(field.Column, &values).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", field.Name, err)
	}
	return values, nil
}

// productOrderClause renders the rank ordering as SQL. Column names come
// from the catalog whitelist, never from the request.
func productOrderClause(s catalog.Sort) string {
	dir := s.Direction.String()
	switch s.Field.Kind {
	case catalog.SortEffectivePrice:
		return fmt.Sprintf("COALESCE(discount_price, price) %s, id ASC", dir)
	case catalog.SortGrade:
		var b strings.Builder
		fmt.Fprintf(&b, "CASE UPPER(TRIM(%s))", s.Field.Column)
		for _, g := range catalog.GradeRanks {
			fmt.Fprintf(&b, " WHEN '%s' THEN %d", g.Grade, g.Rank)
		}
		fmt.Fprintf(&b, " ELSE 0 END %s, id ASC", dir)
		return b.String()
	case catalog.SortPlain:
		return s.Field.Column + " " + dir
	}
	return ""
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

type orderRepo struct {
	db *gorm.DB
}

func (r *orderRepo) scope(ctx context.Context, filter repository.OrderFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	return query
}

func (r *orderRepo) Find(ctx context.Context, filter repository.OrderFilter, sort catalog.Sort, page *catalog.Page) ([]models.Order, error) {
	query := r.scope(ctx, filter)
	if !sort.IsNatural() {
		query = query.Order(sort.Field.Column + " " + sort.Direction.String())
	}
	if page != nil {
		query = query.Offset(page.Offset()).Limit(page.Size)
	}

	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepo) Count(ctx context.Context, filter repository.OrderFilter) (int64, error) {
	var total int64
	if err := r.scope(ctx, filter).Count(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

func (r *orderRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	o.Touch(time.Now())
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepo) Update(ctx context.Context, o *models.Order) error {
	result := r.db.WithContext(ctx).Model(o).
		Select("status", "payment_status", "selected_address", "updated_at").
		Updates(o)
	if result.Error != nil {
		return fmt.Errorf("failed to update order: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	u.Touch(time.Now())
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	result := r.db.WithContext(ctx).Model(u).
		Select("name", "addresses", "weight_carbon", "weight_water", "weight_rating", "price_tolerance", "updated_at").
		Updates(u)
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AddPurchaseHistory is a set union done in one statement.
func (r *userRepo) AddPurchaseHistory(ctx context.Context, id uuid.UUID, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET purchase_history = ARRAY(
			SELECT DISTINCT unnest(COALESCE(purchase_history, '{}'::text[]) || ?::text[])
		), updated_at = ? WHERE id = ?`,
		pq.StringArray(productIDs), time.Now(), id,
	)
	if result.Error != nil {
		return fmt.Errorf("failed to update purchase history: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) AppendSearchHistory(ctx context.Context, id uuid.UUID, query string, limit int) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE users SET search_history = (
			SELECT COALESCE(array_agg(q ORDER BY n), '{}'::text[]) FROM (
				SELECT q, n FROM unnest(array_append(COALESCE(search_history, '{}'::text[]), ?::text))
					WITH ORDINALITY AS h(q, n)
				ORDER BY n DESC LIMIT ?
			) recent
		), updated_at = ? WHERE id = ?`,
		query, limit, time.Now(), id,
	)
	if result.Error != nil {
		return fmt.Errorf("failed to update search history: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
