package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/config"
	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository/memory"
	"github.com/ecocart/storefront-api/internal/services"
	"github.com/ecocart/storefront-api/internal/utils"
)

type errorEnvelope struct {
	Success bool `json:"success"`
	Error   struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

type RouterTestSuite struct {
	suite.Suite
	router     *gin.Engine
	store      *memory.Store
	notifier   *services.NotificationService
	admin      *models.User
	buyer      *models.User
	adminToken string
	buyerToken string
}

func (suite *RouterTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	require.NoError(suite.T(), i18n.Initialize("en"))
}

func (suite *RouterTestSuite) SetupTest() {
	cfg := &config.Config{
		Environment: "test",
		Store:       config.StoreConfig{Driver: config.StoreDriverMemory},
		Catalog:     config.CatalogConfig{DefaultLimit: 10, MaxLimit: 100, SearchHistoryLimit: 20},
		JWT:         config.JWTConfig{SecretKey: "test-secret", AccessTokenTTL: 1},
		CORS:        config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		AWS:         config.AWSConfig{UploadDir: suite.T().TempDir()},
	}

	suite.store = memory.NewStore()
	suite.notifier = services.NewNotificationService(services.LogPublisher{}, config.NotifierConfig{
		Channel: "order-events", QueueSize: 16, Workers: 1,
	})
	suite.notifier.Start()

	storage, err := services.NewStorageService(cfg.AWS)
	require.NoError(suite.T(), err)

	suite.router = Initialize(cfg, Dependencies{
		Store:    suite.store,
		Notifier: suite.notifier,
		Storage:  storage,
	})

	ctx := context.Background()
	suite.admin = &models.User{Email: "admin@example.com", Role: models.UserRoleAdmin}
	suite.buyer = &models.User{Email: "buyer@example.com", Role: models.UserRoleUser}
	require.NoError(suite.T(), suite.store.Users().Create(ctx, suite.admin))
	require.NoError(suite.T(), suite.store.Users().Create(ctx, suite.buyer))

	suite.adminToken, err = utils.GenerateJWT(suite.admin.ID, suite.admin.Email, string(models.UserRoleAdmin), 1)
	require.NoError(suite.T(), err)
	suite.buyerToken, err = utils.GenerateJWT(suite.buyer.ID, suite.buyer.Email, string(models.UserRoleUser), 1)
	require.NoError(suite.T(), err)
}

func (suite *RouterTestSuite) TearDownTest() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	suite.NoError(suite.notifier.Stop(ctx))
}

func (suite *RouterTestSuite) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(suite.T(), err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *RouterTestSuite) createProduct(body map[string]interface{}) models.Product {
	w := suite.do(http.MethodPost, "/products", suite.adminToken, body)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var p models.Product
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func (suite *RouterTestSuite) decodeError(w *httptest.ResponseRecorder) errorEnvelope {
	var env errorEnvelope
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &env))
	assert.False(suite.T(), env.Success)
	return env
}

func (suite *RouterTestSuite) TestHealthCheck() {
	w := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), "healthy")
}

func (suite *RouterTestSuite) TestBrowseReturnsArrayAndTotalHeader() {
	suite.createProduct(map[string]interface{}{"title": "Case A", "price": 30, "category": "Phone Case"})
	suite.createProduct(map[string]interface{}{"title": "Case B", "price": 10, "category": "phone-case"})
	suite.createProduct(map[string]interface{}{"title": "Bag", "price": 20, "category": "Bags"})

	w := suite.do(http.MethodGet, "/products?category=phone-case&_sort=price&_order=asc&_page=1&_limit=1", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "2", w.Header().Get(utils.TotalCountHeader))

	var products []models.Product
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(suite.T(), products, 1)
	assert.Equal(suite.T(), "Case B", products[0].Title)
}

func (suite *RouterTestSuite) TestBrowseSortsByEffectivePrice() {
	p1 := suite.createProduct(map[string]interface{}{"title": "P1", "price": 100, "discountPercentage": 50})
	p2 := suite.createProduct(map[string]interface{}{"title": "P2", "price": 60})

	w := suite.do(http.MethodGet, "/products?_sort=price&_order=asc", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var products []models.Product
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &products))
	require.Len(suite.T(), products, 2)
	assert.Equal(suite.T(), p1.ID, products[0].ID)
	assert.Equal(suite.T(), p2.ID, products[1].ID)
}

func (suite *RouterTestSuite) TestSearchShapeAndHistory() {
	suite.createProduct(map[string]interface{}{"title": "Bamboo Toothbrush", "price": 5})
	suite.createProduct(map[string]interface{}{"title": "Steel Bottle", "price": 25, "Material": "bamboo lid"})
	suite.createProduct(map[string]interface{}{"title": "Cotton Bag", "price": 15})

	w := suite.do(http.MethodGet, "/products/search?q=BAMBOO&page=1&limit=1", suite.buyerToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	var list services.ProductList
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(suite.T(), list.Products, 1)
	assert.Equal(suite.T(), 1, list.Page)
	assert.Equal(suite.T(), 2, list.TotalPages)
	assert.Equal(suite.T(), int64(2), list.Total)
	assert.Equal(suite.T(), "2", w.Header().Get(utils.TotalCountHeader))

	user, err := suite.store.Users().Get(context.Background(), suite.buyer.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), []string{"BAMBOO"}, []string(user.SearchHistory))
}

func (suite *RouterTestSuite) TestHugePageNumberIsEmptyWindow() {
	suite.createProduct(map[string]interface{}{"title": "Bamboo Toothbrush", "price": 5})
	suite.createProduct(map[string]interface{}{"title": "Bamboo Straw", "price": 3})

	w := suite.do(http.MethodGet, "/products?_page=9223372036854775807&_limit=10", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var products []models.Product
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &products))
	assert.Empty(suite.T(), products)
	assert.Equal(suite.T(), "2", w.Header().Get(utils.TotalCountHeader))

	w = suite.do(http.MethodGet, "/products/search?q=bamboo&page=9223372036854775807", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var list services.ProductList
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(suite.T(), list.Products)
	assert.Equal(suite.T(), int64(2), list.Total)
	assert.Equal(suite.T(), 1, list.TotalPages)
}

func (suite *RouterTestSuite) TestSearchRequiresQuery() {
	w := suite.do(http.MethodGet, "/products/search?q=%20%20", "", nil)
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "INVALID_QUERY", suite.decodeError(w).Error.Code)
}

func (suite *RouterTestSuite) TestProductWritesRequireAdmin() {
	body := map[string]interface{}{"title": "Tote", "price": 10}

	w := suite.do(http.MethodPost, "/products", "", body)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodPost, "/products", suite.buyerToken, body)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPost, "/products", "not-a-bearer-token", body)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

func (suite *RouterTestSuite) TestCreateProductValidation() {
	w := suite.do(http.MethodPost, "/products", suite.adminToken, map[string]interface{}{
		"title": "Tote", "price": 0, "Eco_Rating": "Z",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	env := suite.decodeError(w)
	assert.Equal(suite.T(), "VALIDATION_ERROR", env.Error.Code)

	var fields []utils.ValidationError
	require.NoError(suite.T(), json.Unmarshal(env.Error.Details, &fields))
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Field)
	}
	assert.ElementsMatch(suite.T(), []string{"price", "Eco_Rating"}, names)
}

func (suite *RouterTestSuite) TestUpdateRecomputesDiscountAndDeleteHides() {
	p := suite.createProduct(map[string]interface{}{"title": "Tote", "price": 100, "discountPercentage": 20, "discountPrice": 1})
	require.NotNil(suite.T(), p.DiscountPrice)
	assert.Equal(suite.T(), 80.0, *p.DiscountPrice)

	w := suite.do(http.MethodPatch, "/products/"+p.ID.String(), suite.adminToken, map[string]interface{}{"discountPercentage": 50})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var updated models.Product
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(suite.T(), 50.0, *updated.DiscountPrice)

	w = suite.do(http.MethodDelete, "/products/"+p.ID.String(), suite.adminToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/products/"+p.ID.String(), "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)

	w = suite.do(http.MethodGet, "/products/"+p.ID.String(), suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/products?admin=true", suite.buyerToken, nil)
	assert.Equal(suite.T(), "0", w.Header().Get(utils.TotalCountHeader))

	w = suite.do(http.MethodGet, "/products?admin=true", suite.adminToken, nil)
	assert.Equal(suite.T(), "1", w.Header().Get(utils.TotalCountHeader))
}

func (suite *RouterTestSuite) TestMalformedIDIsNotFound() {
	w := suite.do(http.MethodGet, "/products/not-a-uuid", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
	assert.Equal(suite.T(), "NOT_FOUND", suite.decodeError(w).Error.Code)
}

func (suite *RouterTestSuite) TestPlaceOrderFlow() {
	p := suite.createProduct(map[string]interface{}{"title": "Tote", "price": 100, "discountPercentage": 20, "stock": 3})

	order := map[string]interface{}{
		"items": []map[string]interface{}{
			{"product": map[string]interface{}{"id": p.ID.String()}, "quantity": 2},
		},
		"paymentMethod":   "card",
		"selectedAddress": map[string]interface{}{"city": "Lisbon"},
		"totalAmount":     1,
	}

	w := suite.do(http.MethodPost, "/orders", suite.buyerToken, order)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var placed models.Order
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &placed))
	assert.Equal(suite.T(), 160.0, placed.TotalAmount)
	assert.Equal(suite.T(), 2, placed.TotalItems)
	assert.Equal(suite.T(), suite.buyer.ID, placed.UserID)

	w = suite.do(http.MethodPost, "/orders", suite.buyerToken, order)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	stored, err := suite.store.Products().Get(context.Background(), p.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, stored.Stock)

	w = suite.do(http.MethodGet, "/orders/own", suite.buyerToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "1", w.Header().Get(utils.TotalCountHeader))

	w = suite.do(http.MethodGet, "/users/own", suite.buyerToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var profile models.User
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &profile))
	assert.Equal(suite.T(), []string{p.ID.String()}, []string(profile.PurchaseHistory))
}

func (suite *RouterTestSuite) TestPlaceOrderAuthorization() {
	p := suite.createProduct(map[string]interface{}{"title": "Tote", "price": 10, "stock": 5})
	order := map[string]interface{}{
		"items":         []map[string]interface{}{{"product": p.ID.String(), "quantity": 1}},
		"paymentMethod": "card",
		"user":          suite.admin.ID.String(),
	}

	w := suite.do(http.MethodPost, "/orders", "", order)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodPost, "/orders", suite.buyerToken, order)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	order["user"] = suite.buyer.ID.String()
	w = suite.do(http.MethodPost, "/orders", suite.adminToken, order)
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())

	var placed models.Order
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &placed))
	assert.Equal(suite.T(), suite.buyer.ID, placed.UserID)
}

func (suite *RouterTestSuite) TestPlaceOrderUnknownProduct() {
	w := suite.do(http.MethodPost, "/orders", suite.buyerToken, map[string]interface{}{
		"items":         []map[string]interface{}{{"product": uuid.New().String(), "quantity": 1}},
		"paymentMethod": "card",
	})
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestAdminOrderManagement() {
	p := suite.createProduct(map[string]interface{}{"title": "Tote", "price": 10, "stock": 5})
	w := suite.do(http.MethodPost, "/orders", suite.buyerToken, map[string]interface{}{
		"items":         []map[string]interface{}{{"productId": p.ID.String(), "quantity": 1}},
		"paymentMethod": "card",
	})
	require.Equal(suite.T(), http.StatusCreated, w.Code, w.Body.String())
	var placed models.Order
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &placed))
	orderPath := "/orders/" + placed.ID.String()

	w = suite.do(http.MethodGet, "/orders", suite.buyerToken, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodGet, "/orders", suite.adminToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "1", w.Header().Get(utils.TotalCountHeader))

	w = suite.do(http.MethodPatch, orderPath, suite.buyerToken, map[string]interface{}{"status": "dispatched"})
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPatch, orderPath, suite.adminToken, map[string]interface{}{"status": "delivered"})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPatch, orderPath, suite.adminToken, map[string]interface{}{"status": "dispatched", "paymentStatus": "received"})
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var updated models.Order
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(suite.T(), models.OrderStatusDispatched, updated.Status)
	assert.Equal(suite.T(), models.PaymentStatusReceived, updated.PaymentStatus)

	w = suite.do(http.MethodGet, orderPath, suite.buyerToken, nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	stranger, err := utils.GenerateJWT(uuid.New(), "stranger@example.com", string(models.UserRoleUser), 1)
	require.NoError(suite.T(), err)
	w = suite.do(http.MethodGet, orderPath, stranger, nil)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)
}

func (suite *RouterTestSuite) TestCategoryAndBrandFacets() {
	suite.createProduct(map[string]interface{}{"title": "A", "price": 5, "category": "Phone Case", "brand": "Eco Co"})
	suite.createProduct(map[string]interface{}{"title": "B", "price": 5, "category": "phone-case", "brand": ""})
	suite.createProduct(map[string]interface{}{"title": "C", "price": 5, "category": "Bags", "brand": "Leaf"})

	w := suite.do(http.MethodGet, "/categories", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var categories []catalog.Facet
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &categories))
	assert.Equal(suite.T(), []catalog.Facet{
		{Label: "Bags", Value: "bags"},
		{Label: "Phone Case", Value: "phone-case"},
	}, categories)

	w = suite.do(http.MethodGet, "/brands", "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var brands []catalog.Facet
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &brands))
	assert.Equal(suite.T(), []catalog.Facet{
		{Label: "Eco Co", Value: "eco-co"},
		{Label: "Leaf", Value: "leaf"},
	}, brands)

	w = suite.do(http.MethodGet, "/products?category="+categories[1].Value, "", nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Equal(suite.T(), "2", w.Header().Get(utils.TotalCountHeader))
}

func (suite *RouterTestSuite) TestUpdateUserProfile() {
	path := "/users/" + suite.buyer.ID.String()
	body := map[string]interface{}{
		"name":            "Mei",
		"weights":         map[string]float64{"carbon": 0.5, "water": 0.25, "rating": 0.25},
		"price_tolerance": 0.3,
		"addresses":       []map[string]string{{"city": "Taipei"}},
	}

	w := suite.do(http.MethodPatch, path, "", body)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	strangerToken, err := utils.GenerateJWT(uuid.New(), "stranger@example.com", string(models.UserRoleUser), 1)
	require.NoError(suite.T(), err)
	w = suite.do(http.MethodPatch, path, strangerToken, body)
	assert.Equal(suite.T(), http.StatusForbidden, w.Code)

	w = suite.do(http.MethodPatch, path, suite.buyerToken, body)
	require.Equal(suite.T(), http.StatusOK, w.Code, w.Body.String())
	var user models.User
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(suite.T(), "Mei", user.Name)
	assert.Equal(suite.T(), 0.5, user.Weights.Carbon)
	assert.Equal(suite.T(), 0.3, user.PriceTolerance)
	require.Len(suite.T(), user.Addresses, 1)
	assert.Equal(suite.T(), "Taipei", user.Addresses[0]["city"])

	w = suite.do(http.MethodPatch, path, suite.buyerToken, map[string]interface{}{"price_tolerance": 4})
	assert.Equal(suite.T(), http.StatusBadRequest, w.Code)
	assert.Equal(suite.T(), "VALIDATION_ERROR", suite.decodeError(w).Error.Code)

	w = suite.do(http.MethodPatch, path, suite.adminToken, map[string]interface{}{"name": "Set By Admin"})
	assert.Equal(suite.T(), http.StatusOK, w.Code)

	w = suite.do(http.MethodGet, "/users/own", suite.buyerToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &user))
	assert.Equal(suite.T(), "Set By Admin", user.Name)
	assert.Equal(suite.T(), 0.3, user.PriceTolerance)

	w = suite.do(http.MethodPatch, "/users/"+uuid.New().String(), suite.adminToken, body)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

func (suite *RouterTestSuite) TestMotivation() {
	w := suite.do(http.MethodGet, "/motivation", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)

	w = suite.do(http.MethodGet, "/motivation", suite.buyerToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	var m services.Motivation
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(suite.T(), services.MotivationSourceProfile, m.Source)
	assert.NotEmpty(suite.T(), m.Message)

	ghostToken, err := utils.GenerateJWT(uuid.New(), "ghost@example.com", string(models.UserRoleUser), 1)
	require.NoError(suite.T(), err)
	w = suite.do(http.MethodGet, "/motivation", ghostToken, nil)
	require.Equal(suite.T(), http.StatusOK, w.Code)
	require.NoError(suite.T(), json.Unmarshal(w.Body.Bytes(), &m))
	assert.Equal(suite.T(), services.MotivationSourceFallback, m.Source)
	assert.Equal(suite.T(), services.FallbackMotivation, m.Message)
}

func TestRouterTestSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
