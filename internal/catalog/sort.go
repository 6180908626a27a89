package catalog

import (
	"sort"
	"strings"
	"time"

	"github.com/ecocart/storefront-api/internal/models"
)

type SortKind int

const (
	// SortNatural leaves records in the store's own order.
	SortNatural SortKind = iota
	// SortPlain orders by the field's natural ordering.
	SortPlain
	// SortEffectivePrice orders by discountPrice, falling back to price.
	SortEffectivePrice
	// SortGrade orders by the letter-grade ordinal, unrated last.
	SortGrade
)

type Direction int

const (
	Asc  Direction = 1
	Desc Direction = -1
)

// ParseDirection treats anything but "desc" as ascending.
func ParseDirection(order string) Direction {
	if strings.EqualFold(strings.TrimSpace(order), "desc") {
		return Desc
	}
	return Asc
}

func (d Direction) String() string {
	if d == Desc {
		return "DESC"
	}
	return "ASC"
}

// SortField maps a client-facing sort name onto a SQL column and a document key.
type SortField struct {
	Name     string
	Column   string
	Document string
	Kind     SortKind
}

type Sort struct {
	Field     SortField
	Direction Direction
}

func (s Sort) IsNatural() bool {
	return s.Field.Kind == SortNatural
}

// Sortable product fields, keyed by the name clients send in _sort.
var ProductSortFields = map[string]SortField{
	"id":                 {Name: "id", Column: "id", Document: "_id", Kind: SortPlain},
	"title":              {Name: "title", Column: "title", Document: "title", Kind: SortPlain},
	"price":              {Name: "price", Column: "price", Document: "price", Kind: SortEffectivePrice},
	"discountPrice":      {Name: "discountPrice", Column: "discount_price", Document: "discountPrice", Kind: SortEffectivePrice},
	"discountPercentage": {Name: "discountPercentage", Column: "discount_percentage", Document: "discountPercentage", Kind: SortPlain},
	"rating":             {Name: "rating", Column: "rating", Document: "rating", Kind: SortPlain},
	"stock":              {Name: "stock", Column: "stock", Document: "stock", Kind: SortPlain},
	"brand":              {Name: "brand", Column: "brand", Document: "brand", Kind: SortPlain},
	"category":           {Name: "category", Column: "category", Document: "category", Kind: SortPlain},
	"createdAt":          {Name: "createdAt", Column: "created_at", Document: "createdAt", Kind: SortPlain},
	"Eco_Rating":         {Name: "Eco_Rating", Column: "eco_rating", Document: "Eco_Rating", Kind: SortGrade},
	"Water_Rating":       {Name: "Water_Rating", Column: "water_rating", Document: "Water_Rating", Kind: SortGrade},
}

// Sortable order fields for the admin listing.
var OrderSortFields = map[string]SortField{
	"id":            {Name: "id", Column: "id", Document: "_id", Kind: SortPlain},
	"totalAmount":   {Name: "totalAmount", Column: "total_amount", Document: "totalAmount", Kind: SortPlain},
	"totalItems":    {Name: "totalItems", Column: "total_items", Document: "totalItems", Kind: SortPlain},
	"status":        {Name: "status", Column: "status", Document: "status", Kind: SortPlain},
	"paymentStatus": {Name: "paymentStatus", Column: "payment_status", Document: "paymentStatus", Kind: SortPlain},
	"createdAt":     {Name: "createdAt", Column: "created_at", Document: "createdAt", Kind: SortPlain},
}

// ResolveSort looks name up in fields. Unknown or empty names resolve to
// the natural order.
func ResolveSort(fields map[string]SortField, name, order string) Sort {
	field, ok := fields[strings.TrimSpace(name)]
	if !ok {
		return Sort{}
	}
	return Sort{Field: field, Direction: ParseDirection(order)}
}

// GradeRank maps A+..D onto 5..1; anything else, including empty, is 0.
func GradeRank(grade string) int {
	switch models.NormalizeGrade(grade) {
	case "A+":
		return 5
	case "A":
		return 4
	case "B":
		return 3
	case "C":
		return 2
	case "D":
		return 1
	default:
		return 0
	}
}

// GradeRanks lists the graded values with their ordinals, best first.
var GradeRanks = []struct {
	Grade string
	Rank  int
}{
	{"A+", 5}, {"A", 4}, {"B", 3}, {"C", 2}, {"D", 1},
}

// SortProducts orders products in place. Price and grade sorts break ties by
// id ascending regardless of direction; plain sorts are stable.
func SortProducts(products []models.Product, s Sort) {
	if s.IsNatural() {
		return
	}
	sort.SliceStable(products, func(i, j int) bool {
		return CompareProducts(&products[i], &products[j], s) < 0
	})
}

// CompareProducts returns <0 when a sorts before b under s.
func CompareProducts(a, b *models.Product, s Sort) int {
	switch s.Field.Kind {
	case SortEffectivePrice:
		if c := compareValues(a.EffectivePrice(), b.EffectivePrice()) * int(s.Direction); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	case SortGrade:
		ra, rb := GradeRank(productGrade(a, s.Field.Name)), GradeRank(productGrade(b, s.Field.Name))
		if c := compareValues(ra, rb) * int(s.Direction); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	case SortPlain:
		return compareValues(productValue(a, s.Field.Name), productValue(b, s.Field.Name)) * int(s.Direction)
	default:
		return 0
	}
}

// SortOrders orders orders in place by a plain field.
func SortOrders(orders []models.Order, s Sort) {
	if s.IsNatural() {
		return
	}
	sort.SliceStable(orders, func(i, j int) bool {
		return compareValues(orderValue(&orders[i], s.Field.Name), orderValue(&orders[j], s.Field.Name))*int(s.Direction) < 0
	})
}

func productGrade(p *models.Product, field string) string {
	if field == "Water_Rating" {
		return p.WaterRating
	}
	return p.EcoRating
}

func productValue(p *models.Product, field string) interface{} {
	switch field {
	case "id":
		return p.ID.String()
	case "title":
		return p.Title
	case "discountPercentage":
		return p.DiscountPercentage
	case "rating":
		return p.Rating
	case "stock":
		return p.Stock
	case "brand":
		return p.Brand
	case "category":
		return p.Category
	case "createdAt":
		return p.CreatedAt
	}
	return nil
}

func orderValue(o *models.Order, field string) interface{} {
	switch field {
	case "id":
		return o.ID.String()
	case "totalAmount":
		return o.TotalAmount
	case "totalItems":
		return o.TotalItems
	case "status":
		return string(o.Status)
	case "paymentStatus":
		return string(o.PaymentStatus)
	case "createdAt":
		return o.CreatedAt
	}
	return nil
}

func compareValues(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(av, b.(string))
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case int:
		bv := b.(int)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
		return 0
	case time.Time:
		return av.Compare(b.(time.Time))
	}
	return 0
}
