package catalog

import (
	"errors"
	"strings"

	"github.com/ecocart/storefront-api/internal/models"
)

var ErrEmptyQuery = errors.New("search term is required")

// SearchField names a product attribute the text search scans, by SQL column
// and document key.
type SearchField struct {
	Column   string
	Document string
}

var SearchFields = []SearchField{
	{Column: "title", Document: "title"},
	{Column: "description", Document: "description"},
	{Column: "brand", Document: "brand"},
	{Column: "category", Document: "category"},
	{Column: "material", Document: "Material"},
}

// SearchCondition matches products whose title, description, brand, category
// or material contains q, case-insensitively. Blank q is rejected, but a
// non-blank q is matched as given, surrounding whitespace included.
// Soft-deleted products are excluded just like in browse.
func SearchCondition(q string) (Predicate, error) {
	if strings.TrimSpace(q) == "" {
		return Predicate{}, ErrEmptyQuery
	}
	return Predicate{Text: strings.ToLower(q)}, nil
}

func searchValues(p *models.Product) []string {
	return []string{p.Title, p.Description, p.Brand, p.Category, p.Material}
}
