// Package catalog holds the store-independent query semantics for the
// product catalog: filter predicates, rank ordering and pagination windows.
// Each repository adapter translates these into its own query language.
package catalog

import (
	"strings"

	"github.com/ecocart/storefront-api/internal/models"
)

// Predicate is the normalized filter every catalog read goes through.
// Empty key lists do not constrain.
type Predicate struct {
	IncludeDeleted bool
	CategoryKeys   []string
	BrandKeys      []string
	// Text is a lower-cased substring matched against SearchFields.
	Text string
}

// Filter carries raw browse parameters as they arrive from the client.
type Filter struct {
	Category string
	Brand    string
	Admin    bool
}

// BuildCondition turns comma-separated category/brand terms into canonical
// keys. Non-admin callers never see soft-deleted products.
func BuildCondition(f Filter) Predicate {
	return Predicate{
		IncludeDeleted: f.Admin,
		CategoryKeys:   splitTerms(f.Category),
		BrandKeys:      splitTerms(f.Brand),
	}
}

// Matches evaluates the predicate against a single product.
func (p Predicate) Matches(prod *models.Product) bool {
	if !p.IncludeDeleted && prod.Deleted {
		return false
	}
	if len(p.CategoryKeys) > 0 && !containsKey(p.CategoryKeys, keyOrCanonical(prod.CategoryKey, prod.Category)) {
		return false
	}
	if len(p.BrandKeys) > 0 && !containsKey(p.BrandKeys, keyOrCanonical(prod.BrandKey, prod.Brand)) {
		return false
	}
	if p.Text != "" {
		for _, field := range searchValues(prod) {
			if strings.Contains(strings.ToLower(field), p.Text) {
				return true
			}
		}
		return false
	}
	return true
}

func splitTerms(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var keys []string
	seen := make(map[string]struct{})
	for _, term := range strings.Split(raw, ",") {
		key := models.CanonicalKey(term)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	return keys
}

func keyOrCanonical(key, raw string) string {
	if key != "" {
		return key
	}
	return models.CanonicalKey(raw)
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}
