// internal/models/product.go
package models

import (
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type Product struct {
	BaseModel          `bson:",inline"`
	ProductID          string         `json:"product_id" gorm:"size:100;index" bson:"product_id"`
	Title              string         `json:"title" gorm:"size:500" bson:"title"`
	Description        string         `json:"description" gorm:"type:text" bson:"description"`
	Price              float64        `json:"price" gorm:"not null" bson:"price" validate:"min=1,max=10000"`
	DiscountPercentage float64        `json:"discountPercentage" gorm:"default:0" bson:"discountPercentage" validate:"min=0,max=99"`
	DiscountPrice      *float64       `json:"discountPrice" gorm:"index" bson:"discountPrice"`
	Stock              int            `json:"stock" gorm:"default:0" bson:"stock" validate:"min=0"`
	Category           string         `json:"category" gorm:"size:255" bson:"category"`
	CategoryKey        string         `json:"-" gorm:"size:255;index" bson:"categoryKey"`
	Brand              string         `json:"brand" gorm:"size:255" bson:"brand"`
	BrandKey           string         `json:"-" gorm:"size:255;index" bson:"brandKey"`
	Material           string         `json:"Material" gorm:"size:255" bson:"Material"`
	EcoRating          string         `json:"Eco_Rating" gorm:"column:eco_rating;size:4" bson:"Eco_Rating" validate:"grade"`
	WaterRating        string         `json:"Water_Rating" gorm:"column:water_rating;size:4" bson:"Water_Rating" validate:"grade"`
	CarbonFootprint    float64        `json:"Carbon_Footprint_kgCO2e" gorm:"column:carbon_footprint;default:0" bson:"Carbon_Footprint_kgCO2e"`
	WaterUsage         float64        `json:"Water_Usage_Litres" gorm:"column:water_usage;default:0" bson:"Water_Usage_Litres"`
	Thumbnail          string         `json:"thumbnail" gorm:"size:1024" bson:"thumbnail"`
	Images             pq.StringArray `json:"images" gorm:"type:text[]" bson:"images"`
	Highlights         pq.StringArray `json:"highlights" gorm:"type:text[]" bson:"highlights"`
	Rating             float64        `json:"rating" gorm:"default:0" bson:"rating" validate:"min=0,max=5"`
	RatingCount        int64          `json:"rating_count" gorm:"default:0" bson:"rating_count"`
	IsBestSeller       bool           `json:"isBestSeller" gorm:"default:false" bson:"isBestSeller"`
	Deleted            bool           `json:"deleted" gorm:"default:false;index" bson:"deleted"`
}

// ProductFields is the client-writable subset of a product. A nil field is
// left untouched. discountPrice is deliberately absent: it is always derived.
type ProductFields struct {
	ProductID          *string   `json:"product_id"`
	Title              *string   `json:"title"`
	Description        *string   `json:"description"`
	Price              *float64  `json:"price"`
	DiscountPercentage *float64  `json:"discountPercentage"`
	Stock              *int      `json:"stock"`
	Category           *string   `json:"category"`
	Brand              *string   `json:"brand"`
	Material           *string   `json:"Material"`
	EcoRating          *string   `json:"Eco_Rating"`
	WaterRating        *string   `json:"Water_Rating"`
	CarbonFootprint    *float64  `json:"Carbon_Footprint_kgCO2e"`
	WaterUsage         *float64  `json:"Water_Usage_Litres"`
	Thumbnail          *string   `json:"thumbnail"`
	Images             *[]string `json:"images"`
	Highlights         *[]string `json:"highlights"`
	Rating             *float64  `json:"rating"`
	RatingCount        *int64    `json:"rating_count"`
	IsBestSeller       *bool     `json:"isBestSeller"`
	Deleted            *bool     `json:"deleted"`
}

// NewProduct builds a validated product from client fields.
func NewProduct(fields ProductFields, now time.Time) (*Product, error) {
	p := &Product{}
	p.Apply(fields)
	if err := p.Prepare(now); err != nil {
		return nil, err
	}
	return p, nil
}

// Apply copies every non-nil field onto the product.
func (p *Product) Apply(f ProductFields) {
	setString(&p.ProductID, f.ProductID)
	setString(&p.Title, f.Title)
	setString(&p.Description, f.Description)
	setString(&p.Category, f.Category)
	setString(&p.Brand, f.Brand)
	setString(&p.Material, f.Material)
	setString(&p.EcoRating, f.EcoRating)
	setString(&p.WaterRating, f.WaterRating)
	setString(&p.Thumbnail, f.Thumbnail)
	if f.Price != nil {
		p.Price = *f.Price
	}
	if f.DiscountPercentage != nil {
		p.DiscountPercentage = *f.DiscountPercentage
	}
	if f.Stock != nil {
		p.Stock = *f.Stock
	}
	if f.CarbonFootprint != nil {
		p.CarbonFootprint = *f.CarbonFootprint
	}
	if f.WaterUsage != nil {
		p.WaterUsage = *f.WaterUsage
	}
	if f.Images != nil {
		p.Images = append(pq.StringArray{}, (*f.Images)...)
	}
	if f.Highlights != nil {
		p.Highlights = append(pq.StringArray{}, (*f.Highlights)...)
	}
	if f.Rating != nil {
		p.Rating = *f.Rating
	}
	if f.RatingCount != nil {
		p.RatingCount = *f.RatingCount
	}
	if f.IsBestSeller != nil {
		p.IsBestSeller = *f.IsBestSeller
	}
	if f.Deleted != nil {
		p.Deleted = *f.Deleted
	}
}

// Prepare normalizes, validates and derives the computed fields. Every
// create and update goes through here before reaching a store.
func (p *Product) Prepare(now time.Time) error {
	p.EcoRating = NormalizeGrade(p.EcoRating)
	p.WaterRating = NormalizeGrade(p.WaterRating)
	if err := validateModel(p); err != nil {
		return err
	}
	p.CategoryKey = CanonicalKey(p.Category)
	p.BrandKey = CanonicalKey(p.Brand)
	price := ComputeDiscountPrice(p.Price, p.DiscountPercentage)
	p.DiscountPrice = &price
	p.Touch(now)
	return nil
}

// EffectivePrice is what a buyer pays per unit: discountPrice when known, else price.
func (p *Product) EffectivePrice() float64 {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// ComputeDiscountPrice returns round(price * (1 - pct/100)).
func ComputeDiscountPrice(price, pct float64) float64 {
	hundred := decimal.NewFromInt(100)
	factor := hundred.Sub(decimal.NewFromFloat(pct)).Div(hundred)
	return decimal.NewFromFloat(price).Mul(factor).Round(0).InexactFloat64()
}

// CanonicalKey folds case and treats hyphens and whitespace runs as one
// separator, so "phone-case", "Phone Case" and "PHONE  CASE" share a key.
func CanonicalKey(s string) string {
	s = strings.ToLower(strings.ReplaceAll(s, "-", " "))
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeGrade upper-cases and trims a letter grade.
func NormalizeGrade(g string) string {
	return strings.ToUpper(strings.TrimSpace(g))
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
