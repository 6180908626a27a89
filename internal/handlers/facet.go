// internal/handlers/facet.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ecocart/storefront-api/internal/catalog"
)

// GET /categories
func (h *ProductHandler) GetCategories(c *gin.Context) {
	h.listFacets(c, catalog.CategoryFacet)
}

// GET /brands
func (h *ProductHandler) GetBrands(c *gin.Context) {
	h.listFacets(c, catalog.BrandFacet)
}

// listFacets answers with a bare [{label, value}] array; value is the term
// the product filters accept.
func (h *ProductHandler) listFacets(c *gin.Context, field catalog.FacetField) {
	facets, err := h.productService.Facets(c.Request.Context(), field)
	if err != nil {
		logrus.WithError(err).WithField("facet", field.Name).Error("Failed to list facets")
		c.JSON(http.StatusInternalServerError, []catalog.Facet{})
		return
	}
	c.JSON(http.StatusOK, facets)
}
