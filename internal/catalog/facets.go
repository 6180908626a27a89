package catalog

import (
	"sort"
	"strings"

	"github.com/ecocart/storefront-api/internal/models"
)

// FacetField is a product attribute offered as a browse filter.
type FacetField struct {
	Name     string
	Column   string
	Document string
	value    func(p *models.Product) string
}

var (
	CategoryFacet = FacetField{Name: "category", Column: "category", Document: "category",
		value: func(p *models.Product) string { return p.Category }}
	BrandFacet = FacetField{Name: "brand", Column: "brand", Document: "brand",
		value: func(p *models.Product) string { return p.Brand }}
)

// Value reads the field from p.
func (f FacetField) Value(p *models.Product) string {
	if f.value == nil {
		return ""
	}
	return f.value(p)
}

// Facet is one filter option: a display label and the term clients send
// back as the filter value.
type Facet struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// FacetValue turns a raw term into its filter value: lowercase with
// whitespace runs replaced by "-". CanonicalKey(FacetValue(t)) equals
// CanonicalKey(t), so the value always selects the products it came from.
func FacetValue(term string) string {
	return strings.Join(strings.Fields(strings.ToLower(term)), "-")
}

// BuildFacets skips blank terms, keeps one facet per canonical key and orders
// them by value. Among terms sharing a key the lexically first label wins.
func BuildFacets(terms []string) []Facet {
	labels := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			labels = append(labels, t)
		}
	}
	sort.Strings(labels)

	seen := make(map[string]struct{}, len(labels))
	facets := make([]Facet, 0, len(labels))
	for _, label := range labels {
		key := models.CanonicalKey(label)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		facets = append(facets, Facet{Label: label, Value: FacetValue(label)})
	}

	sort.Slice(facets, func(i, j int) bool { return facets[i].Value < facets[j].Value })
	return facets
}
