// internal/models/user.go
package models

import (
	"strings"

	"github.com/lib/pq"
)

type SustainabilityWeights struct {
	Carbon float64 `json:"carbon" gorm:"column:weight_carbon;default:0.4" bson:"carbon" validate:"gte=0,lte=1"`
	Water  float64 `json:"water" gorm:"column:weight_water;default:0.3" bson:"water" validate:"gte=0,lte=1"`
	Rating float64 `json:"rating" gorm:"column:weight_rating;default:0.3" bson:"rating" validate:"gte=0,lte=1"`
}

// User holds the fields the catalog and order core touch. Credentials live
// with the external auth service.
type User struct {
	BaseModel       `bson:",inline"`
	Email           string                `json:"email" gorm:"uniqueIndex;size:255" bson:"email"`
	Name            string                `json:"name" gorm:"size:255" bson:"name"`
	Role            UserRole              `json:"role" gorm:"type:varchar(20);default:'user'" bson:"role"`
	Addresses       []JSONB               `json:"addresses" gorm:"serializer:json;type:jsonb" bson:"addresses"`
	SearchHistory   pq.StringArray        `json:"searchHistory" gorm:"type:text[]" bson:"searchHistory"`
	PurchaseHistory pq.StringArray        `json:"purchase_history" gorm:"type:text[]" bson:"purchase_history"`
	Weights         SustainabilityWeights `json:"weights" gorm:"embedded" bson:"weights"`
	PriceTolerance  float64               `json:"price_tolerance" gorm:"default:0.2" bson:"price_tolerance"`
	EcoScore        float64               `json:"eco_score" gorm:"default:0" bson:"eco_score"`
	WaterScore      float64               `json:"water_score" gorm:"default:0" bson:"water_score"`
	CarbonSaved     float64               `json:"carbon_saved" gorm:"default:0" bson:"carbon_saved"`
	WaterSaved      float64               `json:"water_saved" gorm:"default:0" bson:"water_saved"`
}

// DefaultWeights mirrors the defaults new accounts start with.
func DefaultWeights() SustainabilityWeights {
	return SustainabilityWeights{Carbon: 0.4, Water: 0.3, Rating: 0.3}
}

// HasPurchased reports whether productID is in the purchase history.
func (u *User) HasPurchased(productID string) bool {
	for _, id := range u.PurchaseHistory {
		if id == productID {
			return true
		}
	}
	return false
}

// UserFields is a partial profile edit. Nil fields are left unchanged;
// identity, role and the history fields are not editable here.
type UserFields struct {
	Name           *string                `json:"name" validate:"omitempty,max=255"`
	Addresses      *[]JSONB               `json:"addresses"`
	Weights        *SustainabilityWeights `json:"weights"`
	PriceTolerance *float64               `json:"price_tolerance" validate:"omitempty,gte=0,lte=1"`
}

// ApplyProfile validates fields and copies them onto u. u is untouched when
// validation fails.
func (u *User) ApplyProfile(fields UserFields) error {
	if err := validateModel(fields); err != nil {
		return err
	}
	if fields.Name != nil {
		u.Name = strings.TrimSpace(*fields.Name)
	}
	if fields.Addresses != nil {
		u.Addresses = append([]JSONB{}, (*fields.Addresses)...)
	}
	if fields.Weights != nil {
		u.Weights = *fields.Weights
	}
	if fields.PriceTolerance != nil {
		u.PriceTolerance = *fields.PriceTolerance
	}
	return nil
}
