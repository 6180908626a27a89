package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecocart/storefront-api/internal/models"
)

func TestFacetValue(t *testing.T) {
	tests := map[string]string{
		"Phone Case":     "phone-case",
		"  Eco   Co  ":   "eco-co",
		"Bags":           "bags",
		"Kids & Baby":    "kids-&-baby",
		"L'Occitane":     "l'occitane",
		"Zero-Waste 2.0": "zero-waste-2.0",
		"   ":            "",
	}

	for term, want := range tests {
		assert.Equal(t, want, FacetValue(term), term)
	}
}

func TestFacetValueResolvesToSameFilterKey(t *testing.T) {
	for _, label := range []string{"Phone Case", "Eco  Co", "Kids & Baby", "bags", "Zero-Waste 2.0", "phone-case"} {
		assert.Equal(t, models.CanonicalKey(label), models.CanonicalKey(FacetValue(label)), label)
	}
}

func TestBuildFacets(t *testing.T) {
	facets := BuildFacets([]string{"Phone Case", "", "  ", "bags", "phone case", "phone - case", "Bags ", "Apparel"})

	assert.Equal(t, []Facet{
		{Label: "Apparel", Value: "apparel"},
		{Label: "Bags", Value: "bags"},
		{Label: "Phone Case", Value: "phone-case"},
	}, facets)
}

func TestBuildFacetsEmpty(t *testing.T) {
	assert.Empty(t, BuildFacets(nil))
	assert.NotNil(t, BuildFacets(nil))
}

func TestFacetFieldValue(t *testing.T) {
	p := &models.Product{Category: "Bags", Brand: "Eco Co"}
	assert.Equal(t, "Bags", CategoryFacet.Value(p))
	assert.Equal(t, "Eco Co", BrandFacet.Value(p))
	assert.Equal(t, "", FacetField{}.Value(p))
}
