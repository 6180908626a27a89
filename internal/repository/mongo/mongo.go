// Package mongo implements the repository ports on MongoDB. Multi-document
// transactions need a replica set or sharded cluster.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	usersCollection    = "users"

	// rankField is a pipeline-only field; it never reaches a decoded record.
	rankField = "_rank"
)

type Store struct {
	db *mongo.Database
	// sc is set on stores handed to a transaction callback. Every operation
	// then runs on the session so it commits or aborts with the rest.
	sc mongo.SessionContext
}

func NewStore(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) Products() repository.ProductRepository {
	return &productRepo{store: s, coll: s.db.Collection(productsCollection)}
}

func (s *Store) Orders() repository.OrderRepository {
	return &orderRepo{store: s, coll: s.db.Collection(ordersCollection)}
}

func (s *Store) Users() repository.UserRepository {
	return &userRepo{store: s, coll: s.db.Collection(usersCollection)}
}

func (s *Store) WithTransaction(ctx context.Context, fn func(tx repository.Tx) error) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(&Store{db: s.db, sc: sc})
	})
	return err
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

// bind prefers the session context inside a transaction.
func (s *Store) bind(ctx context.Context) context.Context {
	if s.sc != nil {
		return s.sc
	}
	return ctx
}

type productRepo struct {
	store *Store
	coll  *mongo.Collection
}

func productFilter(pred catalog.Predicate) bson.M {
	filter := bson.M{}
	if !pred.IncludeDeleted {
		filter["deleted"] = bson.M{"$ne": true}
	}
	if len(pred.CategoryKeys) > 0 {
		filter["categoryKey"] = bson.M{"$in": pred.CategoryKeys}
	}
	if len(pred.BrandKeys) > 0 {
		filter["brandKey"] = bson.M{"$in": pred.BrandKeys}
	}
	if pred.Text != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(pred.Text), Options: "i"}
		or := make(bson.A, 0, len(catalog.SearchFields))
		for _, f := range catalog.SearchFields {
			or = append(or, bson.M{f.Document: pattern})
		}
		filter["$or"] = or
	}
	return filter
}

// productPipeline renders the rank ordering. Price and grade orderings
// project a computed rank first, then tie-break on _id.
func productPipeline(pred catalog.Predicate, s catalog.Sort, page *catalog.Page) mongo.Pipeline {
	pipeline := mongo.Pipeline{{{Key: "$match", Value: productFilter(pred)}}}

	switch s.Field.Kind {
	case catalog.SortEffectivePrice:
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.M{
				rankField: bson.M{"$ifNull": bson.A{"$discountPrice", "$price"}},
			}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: rankField, Value: int(s.Direction)}, {Key: "_id", Value: 1}}}},
		)
	case catalog.SortGrade:
		branches := make(bson.A, 0, len(catalog.GradeRanks))
		grade := bson.M{"$toUpper": bson.M{"$trim": bson.M{"input": bson.M{"$ifNull": bson.A{"$" + s.Field.Document, ""}}}}}
		for _, g := range catalog.GradeRanks {
			branches = append(branches, bson.M{"case": bson.M{"$eq": bson.A{grade, g.Grade}}, "then": g.Rank})
		}
		pipeline = append(pipeline,
			bson.D{{Key: "$addFields", Value: bson.M{
				rankField: bson.M{"$switch": bson.M{"branches": branches, "default": 0}},
			}}},
			bson.D{{Key: "$sort", Value: bson.D{{Key: rankField, Value: int(s.Direction)}, {Key: "_id", Value: 1}}}},
		)
	case catalog.SortPlain:
		pipeline = append(pipeline,
			bson.D{{Key: "$sort", Value: bson.D{{Key: s.Field.Document, Value: int(s.Direction)}}}},
		)
	}

	if page != nil {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64(page.Offset())}},
			bson.D{{Key: "$limit", Value: int64(page.Size)}},
		)
	}
	if s.Field.Kind == catalog.SortEffectivePrice || s.Field.Kind == catalog.SortGrade {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: rankField}})
	}
	return pipeline
}

func (r *productRepo) Find(ctx context.Context, pred catalog.Predicate, sort catalog.Sort, page *catalog.Page) ([]models.Product, error) {
	ctx = r.store.bind(ctx)
	cursor, err := r.coll.Aggregate(ctx, productPipeline(pred, sort, page))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (r *productRepo) Count(ctx context.Context, pred catalog.Predicate) (int64, error) {
	total, err := r.coll.CountDocuments(r.store.bind(ctx), productFilter(pred))
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return total, nil
}

func (r *productRepo) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := findOne(r.store.bind(ctx), r.coll, id, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepo) Create(ctx context.Context, p *models.Product) error {
	p.Touch(time.Now())
	if _, err := r.coll.InsertOne(r.store.bind(ctx), p); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

func (r *productRepo) Update(ctx context.Context, p *models.Product) error {
	return replaceOne(r.store.bind(ctx), r.coll, p.ID, p, "product")
}

// DecrementStock is a single guarded $inc so concurrent orders cannot
// oversell.
func (r *productRepo) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (*models.Product, error) {
	ctx = r.store.bind(ctx)
	filter := bson.M{"_id": id, "stock": bson.M{"$gte": qty}}
	update := bson.M{
		"$inc": bson.M{"stock": -qty},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product models.Product
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&product)
	if err == nil {
		return &product, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update inventory: %w", err)
	}
	if _, err := r.Get(ctx, id); err != nil {
		return nil, err
	}
	return nil, repository.ErrInsufficientStock
}

func (r *productRepo) Distinct(ctx context.Context, field catalog.FacetField) ([]string, error) {
	raw, err := r.coll.Distinct(r.store.bind(ctx), field.Document, bson.M{"deleted": bson.M{"$ne": true}})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s values: %w", field.Name, err)
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			values = append(values, s)
		}
	}
	return values, nil
}

type orderRepo struct {
	store *Store
	coll  *mongo.Collection
}

func orderFilter(filter repository.OrderFilter) bson.M {
	m := bson.M{}
	if filter.UserID != nil {
		m["user"] = *filter.UserID
	}
	return m
}

func (r *orderRepo) Find(ctx context.Context, filter repository.OrderFilter, sort catalog.Sort, page *catalog.Page) ([]models.Order, error) {
	ctx = r.store.bind(ctx)
	opts := options.Find()
	if !sort.IsNatural() {
		opts.SetSort(bson.D{{Key: sort.Field.Document, Value: int(sort.Direction)}})
	}
	if page != nil {
		opts.SetSkip(int64(page.Offset())).SetLimit(int64(page.Size))
	}

	cursor, err := r.coll.Find(ctx, orderFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (r *orderRepo) Count(ctx context.Context, filter repository.OrderFilter) (int64, error) {
	total, err := r.coll.CountDocuments(r.store.bind(ctx), orderFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return total, nil
}

func (r *orderRepo) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := findOne(r.store.bind(ctx), r.coll, id, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	o.Touch(time.Now())
	if _, err := r.coll.InsertOne(r.store.bind(ctx), o); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepo) Update(ctx context.Context, o *models.Order) error {
	update := bson.M{"$set": bson.M{
		"status":          o.Status,
		"paymentStatus":   o.PaymentStatus,
		"selectedAddress": o.SelectedAddress,
		"updatedAt":       o.UpdatedAt,
	}}
	result, err := r.coll.UpdateByID(r.store.bind(ctx), o.ID, update)
	if err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type userRepo struct {
	store *Store
	coll  *mongo.Collection
}

func (r *userRepo) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := findOne(r.store.bind(ctx), r.coll, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	u.Touch(time.Now())
	if _, err := r.coll.InsertOne(r.store.bind(ctx), u); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, u *models.User) error {
	u.UpdatedAt = time.Now()
	update := bson.M{"$set": bson.M{
		"name":            u.Name,
		"addresses":       u.Addresses,
		"weights":         u.Weights,
		"price_tolerance": u.PriceTolerance,
		"updatedAt":       u.UpdatedAt,
	}}
	return updateUser(r.store.bind(ctx), r.coll, u.ID, update, "user")
}

func (r *userRepo) AddPurchaseHistory(ctx context.Context, id uuid.UUID, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	update := bson.M{
		"$addToSet": bson.M{"purchase_history": bson.M{"$each": productIDs}},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	return updateUser(r.store.bind(ctx), r.coll, id, update, "purchase history")
}

func (r *userRepo) AppendSearchHistory(ctx context.Context, id uuid.UUID, query string, limit int) error {
	push := bson.M{"$each": bson.A{query}}
	if limit > 0 {
		push["$slice"] = -limit
	}
	update := bson.M{
		"$push": bson.M{"searchHistory": push},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	return updateUser(r.store.bind(ctx), r.coll, id, update, "search history")
}

func updateUser(ctx context.Context, coll *mongo.Collection, id uuid.UUID, update bson.M, what string) error {
	result, err := coll.UpdateByID(ctx, id, update)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func findOne(ctx context.Context, coll *mongo.Collection, id uuid.UUID, out interface{}) error {
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	return nil
}

func replaceOne(ctx context.Context, coll *mongo.Collection, id uuid.UUID, doc interface{}, what string) error {
	result, err := coll.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", what, err)
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}
