// Package memory is an in-process Store used for tests and local development.
// It honours the same predicate, ordering and transaction semantics as the
// database adapters.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

type state struct {
	products     map[uuid.UUID]models.Product
	productOrder []uuid.UUID
	orders       map[uuid.UUID]models.Order
	orderOrder   []uuid.UUID
	users        map[uuid.UUID]models.User
}

func newState() *state {
	return &state{
		products: make(map[uuid.UUID]models.Product),
		orders:   make(map[uuid.UUID]models.Order),
		users:    make(map[uuid.UUID]models.User),
	}
}

func (s *state) clone() *state {
	c := &state{
		products:     make(map[uuid.UUID]models.Product, len(s.products)),
		productOrder: append([]uuid.UUID(nil), s.productOrder...),
		orders:       make(map[uuid.UUID]models.Order, len(s.orders)),
		orderOrder:   append([]uuid.UUID(nil), s.orderOrder...),
		users:        make(map[uuid.UUID]models.User, len(s.users)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

type Store struct {
	mu   sync.Mutex
	data *state
	now  func() time.Time
}

func NewStore() *Store {
	return &Store{data: newState(), now: time.Now}
}

func (s *Store) Products() repository.ProductRepository { return &productRepo{store: s} }
func (s *Store) Orders() repository.OrderRepository     { return &orderRepo{store: s} }
func (s *Store) Users() repository.UserRepository       { return &userRepo{store: s} }

func (s *Store) Close(ctx context.Context) error { return nil }

// WithTransaction runs fn against a private copy of the data and publishes
// it only when fn succeeds. Transactions are serialized.
func (s *Store) WithTransaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.data.clone()
	if err := fn(&txView{store: s, data: working}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = working
	return nil
}

type txView struct {
	store *Store
	data  *state
}

func (t *txView) Products() repository.ProductRepository {
	return &productRepo{store: t.store, tx: t.data}
}
func (t *txView) Orders() repository.OrderRepository { return &orderRepo{store: t.store, tx: t.data} }
func (t *txView) Users() repository.UserRepository   { return &userRepo{store: t.store, tx: t.data} }

// with runs fn against the transaction state, or under the store lock when
// called outside a transaction.
func (s *Store) with(tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

type productRepo struct {
	store *Store
	tx    *state
}

func (r *productRepo) Find(ctx context.Context, pred catalog.Predicate, sort catalog.Sort, page *catalog.Page) ([]models.Product, error) {
	var out []models.Product
	err := r.store.with(r.tx, func(st *state) error {
		for _, id := range st.productOrder {
			p := st.products[id]
			if pred.Matches(&p) {
				out = append(out, cloneProduct(p))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	catalog.SortProducts(out, sort)
	if page != nil {
		start, end := page.Bounds(len(out))
		out = out[start:end]
	}
	return out, nil
}

func (r *productRepo) Count(ctx context.Context, pred catalog.Predicate) (int64, error) {
	var n int64
	err := r.store.with(r.tx, func(st *state) error {
		for _, p := range st.products {
			if pred.Matches(&p) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *productRepo) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var out *models.Product
	err := r.store.with(r.tx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneProduct(p)
		out = &c
		return nil
	})
	return out, err
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	return r.store.with(r.tx, func(st *state) error {
		p.Touch(r.store.now())
		if _, exists := st.products[p.ID]; !exists {
			st.productOrder = append(st.productOrder, p.ID)
		}
		st.products[p.ID] = cloneProduct(*p)
		return nil
	})
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	return r.store.with(r.tx, func(st *state) error {
		if _, ok := st.products[p.ID]; !ok {
			return repository.ErrNotFound
		}
		st.products[p.ID] = cloneProduct(*p)
		return nil
	})
}

func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*models.Product, error) {
	var out *models.Product
	err := r.store.with(r.tx, func(st *state) error {
		p, ok := st.products[id]
		if !ok {
			return repository.ErrNotFound
		}
		if p.Stock < qty {
			return repository.ErrInsufficientStock
		}
		p.Stock -= qty
		p.UpdatedAt = r.store.now()
		st.products[id] = p
		c := cloneProduct(p)
		out = &c
		return nil
	})
	return out, err
}

func (r *productRepo) Distinct(ctx context.Context, field catalog.FacetField) ([]string, error) {
	var out []string
	err := r.store.with(r.tx, func(st *state) error {
		seen := make(map[string]struct{})
		for _, id := range st.productOrder {
			p := st.products[id]
			if p.Deleted {
				continue
			}
			v := field.Value(&p)
			if _, dup := seen[v]; !dup {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
		return nil
	})
	return out, err
}

type orderRepo struct {
	store *Store
	tx    *state
}

func (r *orderRepo) Find(ctx context.Context, filter repository.OrderFilter, sort catalog.Sort, page *catalog.Page) ([]models.Order, error) {
	var out []models.Order
	err := r.store.with(r.tx, func(st *state) error {
		for _, id := range st.orderOrder {
			o := st.orders[id]
			if filter.UserID != nil && o.UserID != *filter.UserID {
				continue
			}
			out = append(out, cloneOrder(o))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	catalog.SortOrders(out, sort)
	if page != nil {
		start, end := page.Bounds(len(out))
		out = out[start:end]
	}
	return out, nil
}

func (r *orderRepo) Count(ctx context.Context, filter repository.OrderFilter) (int64, error) {
	var n int64
	err := r.store.with(r.tx, func(st *state) error {
		for _, o := range st.orders {
			if filter.UserID == nil || o.UserID == *filter.UserID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *orderRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var out *models.Order
	err := r.store.with(r.tx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneOrder(o)
		out = &c
		return nil
	})
	return out, err
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.store.with(r.tx, func(st *state) error {
		o.Touch(r.store.now())
		if _, exists := st.orders[o.ID]; !exists {
			st.orderOrder = append(st.orderOrder, o.ID)
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

func (r *orderRepo) Update(ctx context.Context, o *models.Order) error {
	return r.store.with(r.tx, func(st *state) error {
		if _, ok := st.orders[o.ID]; !ok {
			return repository.ErrNotFound
		}
		st.orders[o.ID] = cloneOrder(*o)
		return nil
	})
}

type userRepo struct {
	store *Store
	tx    *state
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var out *models.User
	err := r.store.with(r.tx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		c := cloneUser(u)
		out = &c
		return nil
	})
	return out, err
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	return r.store.with(r.tx, func(st *state) error {
		u.Touch(r.store.now())
		st.users[u.ID] = cloneUser(*u)
		return nil
	})
}

func (r *userRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	return r.store.with(r.tx, func(st *state) error {
		current, ok := st.users[u.ID]
		if !ok {
			return repository.ErrNotFound
		}
		current.Name = u.Name
		current.Addresses = u.Addresses
		current.Weights = u.Weights
		current.PriceTolerance = u.PriceTolerance
		current.UpdatedAt = r.store.now()
		st.users[u.ID] = cloneUser(current)
		return nil
	})
}

func (r *userRepo) AddPurchaseHistory(ctx context.Context, id uuid.UUID, productIDs []string) error {
	return r.store.with(r.tx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		history := append(pq.StringArray(nil), u.PurchaseHistory...)
		for _, pid := range productIDs {
			if !contains(history, pid) {
				history = append(history, pid)
			}
		}
		u.PurchaseHistory = history
		u.UpdatedAt = r.store.now()
		st.users[id] = u
		return nil
	})
}

func (r *userRepo) AppendSearchHistory(ctx context.Context, id uuid.UUID, query string, limit int) error {
	return r.store.with(r.tx, func(st *state) error {
		u, ok := st.users[id]
		if !ok {
			return repository.ErrNotFound
		}
		history := append(pq.StringArray(nil), u.SearchHistory...)
		history = append(history, query)
		if limit > 0 && len(history) > limit {
			history = history[len(history)-limit:]
		}
		u.SearchHistory = history
		u.UpdatedAt = r.store.now()
		st.users[id] = u
		return nil
	})
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}

func cloneProduct(p models.Product) models.Product {
	if p.DiscountPrice != nil {
		dp := *p.DiscountPrice
		p.DiscountPrice = &dp
	}
	p.Images = append(pq.StringArray(nil), p.Images...)
	p.Highlights = append(pq.StringArray(nil), p.Highlights...)
	return p
}

func cloneOrder(o models.Order) models.Order {
	o.Items = append(models.OrderItems(nil), o.Items...)
	o.SelectedAddress = o.SelectedAddress.Clone()
	return o
}

func cloneUser(u models.User) models.User {
	u.SearchHistory = append(pq.StringArray(nil), u.SearchHistory...)
	u.PurchaseHistory = append(pq.StringArray(nil), u.PurchaseHistory...)
	if u.Addresses != nil {
		addresses := make([]models.JSONB, len(u.Addresses))
		for i, a := range u.Addresses {
			addresses[i] = a.Clone()
		}
		u.Addresses = addresses
	}
	return u
}
