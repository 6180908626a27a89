// internal/handlers/product.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/i18n"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/services"
	"github.com/ecocart/storefront-api/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
	storageService *services.StorageService
}

func NewProductHandler(productService *services.ProductService, storageService *services.StorageService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		storageService: storageService,
	}
}

// GET /products
//
// Responds with a bare JSON array; the match count travels in X-Total-Count.
// The admin flag is honoured only for admin callers.
func (h *ProductHandler) GetProducts(c *gin.Context) {
	list := utils.GetListParams(c)

	result, err := h.productService.Browse(c.Request.Context(), services.BrowseParams{
		Category: c.Query("category"),
		Brand:    c.Query("brand"),
		Admin:    c.Query("admin") == "true" && utils.IsAdmin(c),
		Sort:     list.Sort,
		Order:    list.Order,
		Paginate: list.Paginate,
		Page:     list.Page,
		Limit:    list.Limit,
	})
	if err != nil {
		logrus.WithError(err).Error("Failed to browse products")
		utils.SetTotalCountHeader(c, 0)
		c.JSON(http.StatusInternalServerError, []models.Product{})
		return
	}

	utils.SetTotalCountHeader(c, result.Total)
	c.JSON(http.StatusOK, result.Products)
}

// GET /products/search
func (h *ProductHandler) SearchProducts(c *gin.Context) {
	page, limit := utils.SearchPageParams(c)
	params := services.SearchParams{
		Query: c.Query("q"),
		Sort:  c.Query("_sort"),
		Order: c.DefaultQuery("_order", "asc"),
		Page:  page,
		Limit: limit,
	}
	if userID, ok := currentUserID(c); ok {
		params.UserID = &userID
	}

	result, err := h.productService.Search(c.Request.Context(), params)
	if err != nil {
		if errors.Is(err, services.ErrInvalidQuery) {
			utils.InvalidQueryResponse(c)
			return
		}
		logrus.WithError(err).Error("Failed to search products")
		utils.SetTotalCountHeader(c, 0)
		c.JSON(http.StatusInternalServerError, services.ProductList{Products: []models.Product{}, Page: 1})
		return
	}

	utils.SetTotalCountHeader(c, result.Total)
	c.JSON(http.StatusOK, result)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := parseID(c, i18n.KeyProductNotFound)
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id, utils.IsAdmin(c))
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	c.JSON(http.StatusOK, product)
}

// POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var fields models.ProductFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), fields)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	c.JSON(http.StatusCreated, product)
}

// PATCH /products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := parseID(c, i18n.KeyProductNotFound)
	if !ok {
		return
	}

	var fields models.ProductFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, fields)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	c.JSON(http.StatusOK, product)
}

// DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := parseID(c, i18n.KeyProductNotFound)
	if !ok {
		return
	}

	product, err := h.productService.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	c.JSON(http.StatusOK, product)
}

// POST /products/upload-images
func (h *ProductHandler) UploadImages(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "form"), err.Error())
		return
	}

	images, err := h.storageService.UploadProductImages(form.File["images"])
	if err != nil {
		respondError(c, err, i18n.KeyProductNotFound)
		return
	}

	c.JSON(http.StatusCreated, images)
}
