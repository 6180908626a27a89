package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository/memory"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages [][]byte
	received chan struct{}
	err      error
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{received: make(chan struct{}, 16)}
}

func (p *recordingPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	p.mu.Lock()
	p.messages = append(p.messages, payload)
	p.mu.Unlock()
	p.received <- struct{}{}
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type ServiceTestSuite struct {
	suite.Suite
	ctx       context.Context
	store     *memory.Store
	publisher *recordingPublisher
	notifier  *NotificationService
	users     *UserService
	products  *ProductService
	orders    *OrderService
	buyer     *models.User
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.store = memory.NewStore()
	suite.publisher = newRecordingPublisher()
	suite.notifier = NewNotificationService(suite.publisher, config.NotifierConfig{
		Channel:   "orders",
		QueueSize: 8,
		Workers:   2,
	})
	suite.notifier.Start()

	limits := config.CatalogConfig{DefaultLimit: 10, MaxLimit: 50, SearchHistoryLimit: 3}
	suite.users = NewUserService(suite.store, limits.SearchHistoryLimit)
	suite.products = NewProductService(suite.store, suite.users, limits)
	suite.orders = NewOrderService(suite.store, suite.notifier, limits)

	suite.buyer = &models.User{Email: "buyer@example.com", Role: models.UserRoleUser}
	require.NoError(suite.T(), suite.store.Users().Create(suite.ctx, suite.buyer))
}

func (suite *ServiceTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	suite.NoError(suite.notifier.Stop(ctx))
}

func (suite *ServiceTestSuite) createProduct(title string, price, pct float64, stock int) *models.Product {
	p, err := suite.products.CreateProduct(suite.ctx, models.ProductFields{
		Title:              &title,
		Price:              &price,
		DiscountPercentage: &pct,
		Stock:              &stock,
		Category:           strPtr("Bags"),
		Brand:              strPtr("EcoCo"),
	})
	require.NoError(suite.T(), err)
	return p
}

func strPtr(s string) *string { return &s }

func (suite *ServiceTestSuite) TestCreateAndUpdateRecomputeDiscountPrice() {
	p := suite.createProduct("Tote", 100, 20, 5)
	assert.Equal(suite.T(), 80.0, *p.DiscountPrice)

	pct := 50.0
	updated, err := suite.products.UpdateProduct(suite.ctx, p.ID, models.ProductFields{DiscountPercentage: &pct})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 50.0, *updated.DiscountPrice)

	stored, err := suite.products.GetProduct(suite.ctx, p.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 50.0, *stored.DiscountPrice)
}

func (suite *ServiceTestSuite) TestUpdateRejectsInvalidFieldsAndKeepsRecord() {
	p := suite.createProduct("Tote", 100, 20, 5)

	bad := 0.0
	_, err := suite.products.UpdateProduct(suite.ctx, p.ID, models.ProductFields{Price: &bad})
	var vErr *ValidationError
	require.True(suite.T(), errors.As(err, &vErr))
	assert.Contains(suite.T(), vErr.FieldNames(), "price")

	stored, err := suite.products.GetProduct(suite.ctx, p.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 100.0, stored.Price)
}

func (suite *ServiceTestSuite) TestUpdateMissingProduct() {
	_, err := suite.products.UpdateProduct(suite.ctx, uuid.New(), models.ProductFields{})
	assert.ErrorIs(suite.T(), err, ErrNotFound)
}

func (suite *ServiceTestSuite) TestDeleteHidesProductFromBrowse() {
	kept := suite.createProduct("Kept", 10, 0, 1)
	gone := suite.createProduct("Gone", 10, 0, 1)

	_, err := suite.products.DeleteProduct(suite.ctx, gone.ID)
	require.NoError(suite.T(), err)

	list, err := suite.products.Browse(suite.ctx, BrowseParams{})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list.Products, 1)
	assert.Equal(suite.T(), kept.ID, list.Products[0].ID)
	assert.Equal(suite.T(), int64(1), list.Total)

	admin, err := suite.products.Browse(suite.ctx, BrowseParams{Admin: true})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(2), admin.Total)

	_, err = suite.products.GetProduct(suite.ctx, gone.ID, false)
	assert.ErrorIs(suite.T(), err, ErrNotFound)
	_, err = suite.products.GetProduct(suite.ctx, gone.ID, true)
	assert.NoError(suite.T(), err)
}

func (suite *ServiceTestSuite) TestBrowsePaginatesOnlyWhenAsked() {
	for _, title := range []string{"a", "b", "c", "d", "e"} {
		suite.createProduct(title, 10, 0, 1)
	}

	all, err := suite.products.Browse(suite.ctx, BrowseParams{Page: 2, Limit: 2})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), all.Products, 5)

	page, err := suite.products.Browse(suite.ctx, BrowseParams{Paginate: true, Page: 3, Limit: 2, Sort: "title"})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), page.Products, 1)
	assert.Equal(suite.T(), "e", page.Products[0].Title)
	assert.Equal(suite.T(), int64(5), page.Total)
	assert.Equal(suite.T(), 3, page.TotalPages)
}

func (suite *ServiceTestSuite) TestSearchRecordsHistory() {
	suite.createProduct("Bamboo Toothbrush", 5, 0, 10)
	suite.createProduct("Steel Bottle", 20, 0, 10)

	list, err := suite.products.Search(suite.ctx, SearchParams{Query: "bamboo", UserID: &suite.buyer.ID})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list.Products, 1)
	assert.Equal(suite.T(), "Bamboo Toothbrush", list.Products[0].Title)
	assert.Equal(suite.T(), 1, list.Page)
	assert.Equal(suite.T(), 1, list.TotalPages)

	for _, q := range []string{"steel", "bottle", "eco"} {
		_, err := suite.products.Search(suite.ctx, SearchParams{Query: q, UserID: &suite.buyer.ID})
		require.NoError(suite.T(), err)
	}

	user, err := suite.users.GetUserByID(suite.ctx, suite.buyer.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"steel", "bottle", "eco"}, []string(user.SearchHistory))
}

func (suite *ServiceTestSuite) TestSearchRejectsBlankQuery() {
	_, err := suite.products.Search(suite.ctx, SearchParams{Query: "   "})
	assert.ErrorIs(suite.T(), err, ErrInvalidQuery)
}

func (suite *ServiceTestSuite) TestSearchSurvivesHistoryFailure() {
	suite.createProduct("Bamboo Toothbrush", 5, 0, 10)
	stranger := uuid.New()

	list, err := suite.products.Search(suite.ctx, SearchParams{Query: "bamboo", UserID: &stranger})
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list.Products, 1)
}

func (suite *ServiceTestSuite) TestPlaceOrderDecrementsStockAndRecordsPurchase() {
	p := suite.createProduct("Tote", 100, 20, 3)

	order, err := suite.orders.PlaceOrder(suite.ctx, PlaceOrderRequest{
		UserID:        suite.buyer.ID,
		Items:         []OrderLine{{ProductID: p.ID, Quantity: 2}},
		PaymentMethod: "card",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 160.0, order.TotalAmount)
	assert.Equal(suite.T(), 2, order.TotalItems)
	assert.Equal(suite.T(), models.OrderStatusPending, order.Status)

	stored, err := suite.products.GetProduct(suite.ctx, p.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, stored.Stock)

	user, err := suite.users.GetUserByID(suite.ctx, suite.buyer.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{p.ID.String()}, []string(user.PurchaseHistory))

	select {
	case <-suite.publisher.received:
	case <-time.After(time.Second):
		suite.FailNow("order event was not published")
	}
	var event OrderEvent
	suite.publisher.mu.Lock()
	require.NoError(suite.T(), json.Unmarshal(suite.publisher.messages[0], &event))
	suite.publisher.mu.Unlock()
	assert.Equal(suite.T(), EventOrderPlaced, event.Type)
	assert.Equal(suite.T(), order.ID, event.OrderID)
}

func (suite *ServiceTestSuite) TestRepeatPurchaseKeepsHistoryDistinct() {
	p := suite.createProduct("Tote", 10, 0, 10)
	req := PlaceOrderRequest{
		UserID:        suite.buyer.ID,
		Items:         []OrderLine{{ProductID: p.ID, Quantity: 1}, {ProductID: p.ID, Quantity: 1}},
		PaymentMethod: "card",
	}

	_, err := suite.orders.PlaceOrder(suite.ctx, req)
	require.NoError(suite.T(), err)
	_, err = suite.orders.PlaceOrder(suite.ctx, req)
	require.NoError(suite.T(), err)

	user, err := suite.users.GetUserByID(suite.ctx, suite.buyer.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{p.ID.String()}, []string(user.PurchaseHistory))
}

func (suite *ServiceTestSuite) TestInsufficientStockLeavesEverythingUntouched() {
	plenty := suite.createProduct("Plenty", 10, 0, 10)
	scarce := suite.createProduct("Scarce", 10, 0, 1)

	_, err := suite.orders.PlaceOrder(suite.ctx, PlaceOrderRequest{
		UserID: suite.buyer.ID,
		Items: []OrderLine{
			{ProductID: plenty.ID, Quantity: 4},
			{ProductID: scarce.ID, Quantity: 2},
		},
		PaymentMethod: "card",
	})
	assert.ErrorIs(suite.T(), err, ErrInsufficientStock)

	stored, err := suite.products.GetProduct(suite.ctx, plenty.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 10, stored.Stock)

	orders, err := suite.orders.ListOrders(suite.ctx, ListOrdersParams{})
	require.NoError(suite.T(), err)
	assert.Zero(suite.T(), orders.Total)

	user, err := suite.users.GetUserByID(suite.ctx, suite.buyer.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), user.PurchaseHistory)
	assert.Zero(suite.T(), suite.publisher.count())
}

func (suite *ServiceTestSuite) TestPlaceOrderRejectsBadInput() {
	p := suite.createProduct("Tote", 10, 0, 10)

	tests := []struct {
		name string
		req  PlaceOrderRequest
		err  error
	}{
		{"no items", PlaceOrderRequest{UserID: suite.buyer.ID, PaymentMethod: "card"}, nil},
		{"zero quantity", PlaceOrderRequest{UserID: suite.buyer.ID, PaymentMethod: "card",
			Items: []OrderLine{{ProductID: p.ID, Quantity: 0}}}, nil},
		{"missing payment method", PlaceOrderRequest{UserID: suite.buyer.ID,
			Items: []OrderLine{{ProductID: p.ID, Quantity: 1}}}, nil},
		{"unknown product", PlaceOrderRequest{UserID: suite.buyer.ID, PaymentMethod: "card",
			Items: []OrderLine{{ProductID: uuid.New(), Quantity: 1}}}, ErrNotFound},
		{"unknown user", PlaceOrderRequest{UserID: uuid.New(), PaymentMethod: "card",
			Items: []OrderLine{{ProductID: p.ID, Quantity: 1}}}, ErrNotFound},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.orders.PlaceOrder(suite.ctx, tt.req)
			require.Error(suite.T(), err)
			if tt.err != nil {
				assert.ErrorIs(suite.T(), err, tt.err)
				return
			}
			var vErr *ValidationError
			assert.True(suite.T(), errors.As(err, &vErr))
		})
	}

	stored, err := suite.products.GetProduct(suite.ctx, p.ID, false)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 10, stored.Stock)
}

func (suite *ServiceTestSuite) TestOrderAccessAndTransitions() {
	p := suite.createProduct("Tote", 10, 0, 10)
	order, err := suite.orders.PlaceOrder(suite.ctx, PlaceOrderRequest{
		UserID:        suite.buyer.ID,
		Items:         []OrderLine{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: "card",
	})
	require.NoError(suite.T(), err)

	_, err = suite.orders.GetOrder(suite.ctx, order.ID, uuid.New(), false)
	assert.ErrorIs(suite.T(), err, ErrForbidden)
	_, err = suite.orders.GetOrder(suite.ctx, order.ID, suite.buyer.ID, false)
	assert.NoError(suite.T(), err)
	_, err = suite.orders.GetOrder(suite.ctx, order.ID, uuid.New(), true)
	assert.NoError(suite.T(), err)

	dispatched := models.OrderStatusDispatched
	received := models.PaymentStatusReceived
	updated, err := suite.orders.UpdateOrder(suite.ctx, order.ID, models.OrderUpdate{
		Status:        &dispatched,
		PaymentStatus: &received,
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.OrderStatusDispatched, updated.Status)
	assert.Equal(suite.T(), models.PaymentStatusReceived, updated.PaymentStatus)

	cancelled := models.OrderStatusCancelled
	_, err = suite.orders.UpdateOrder(suite.ctx, order.ID, models.OrderUpdate{Status: &cancelled})
	assert.ErrorIs(suite.T(), err, ErrInvalidTransition)

	mine, err := suite.orders.ListUserOrders(suite.ctx, suite.buyer.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), mine.Orders, 1)
	assert.Equal(suite.T(), models.OrderStatusDispatched, mine.Orders[0].Status)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func TestNotificationQueueDropsWhenFull(t *testing.T) {
	publisher := newRecordingPublisher()
	notifier := NewNotificationService(publisher, config.NotifierConfig{Channel: "orders", QueueSize: 1, Workers: 1})

	// Not started: the single slot fills and the next event is dropped.
	assert.True(t, notifier.Enqueue(OrderEvent{OrderID: uuid.New()}))
	assert.False(t, notifier.Enqueue(OrderEvent{OrderID: uuid.New()}))

	notifier.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, notifier.Stop(ctx))

	assert.Equal(t, 1, publisher.count())
	assert.False(t, notifier.Enqueue(OrderEvent{OrderID: uuid.New()}))
}

func TestNotificationPublishErrorDoesNotStopWorkers(t *testing.T) {
	publisher := newRecordingPublisher()
	publisher.err = errors.New("redis down")
	notifier := NewNotificationService(publisher, config.NotifierConfig{Channel: "orders", QueueSize: 4, Workers: 1})
	notifier.Start()

	assert.True(t, notifier.Enqueue(OrderEvent{OrderID: uuid.New()}))
	assert.True(t, notifier.Enqueue(OrderEvent{OrderID: uuid.New()}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, notifier.Stop(ctx))
	assert.Equal(t, 2, publisher.count())
}

func TestStoreErrPassesSentinelsThrough(t *testing.T) {
	assert.Same(t, ErrNotFound, storeErr("op", ErrNotFound))

	wrapped := storeErr("load", errors.New("connection reset"))
	var sErr *StoreError
	require.True(t, errors.As(wrapped, &sErr))
	assert.Equal(t, "load", sErr.Op)
	assert.Equal(t, "load: connection reset", wrapped.Error())

	assert.Nil(t, storeErr("op", nil))
}
