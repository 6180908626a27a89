// internal/services/motivation_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/google/uuid"

	"github.com/ecocart/storefront-api/internal/catalog"
	"github.com/ecocart/storefront-api/internal/models"
	"github.com/ecocart/storefront-api/internal/repository"
)

const (
	MotivationSourceProfile  = "profile"
	MotivationSourceFallback = "fallback"

	// FallbackMotivation is served when no profile can be assembled.
	FallbackMotivation = "Small steps make a big difference. Try one more eco-friendly switch today!"

	motivationWindow = 5
)

type Motivation struct {
	Message string `json:"message"`
	Source  string `json:"source"`
}

// MotivationProfile summarizes a shopper's recent sustainability record.
type MotivationProfile struct {
	EcoScore        float64
	WaterScore      float64
	CarbonSaved     float64
	WaterSaved      float64
	SearchHistory   []string
	PurchaseHistory []string
}

type MotivationService struct {
	store repository.Store
	pick  func(n int) int
}

func NewMotivationService(store repository.Store) *MotivationService {
	return &MotivationService{store: store, pick: rand.Intn}
}

// Generate picks one message for the user's profile.
func (s *MotivationService) Generate(ctx context.Context, userID uuid.UUID) (*Motivation, error) {
	profile, err := s.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	messages := MotivationMessages(profile)
	return &Motivation{Message: messages[s.pick(len(messages))], Source: MotivationSourceProfile}, nil
}

// Profile gathers the last five searches, the last five purchases and the
// eco and water scores. A score the user record leaves at zero is derived
// from the grades of the items in their five most recent orders.
func (s *MotivationService) Profile(ctx context.Context, userID uuid.UUID) (*MotivationProfile, error) {
	user, err := s.store.Users().Get(ctx, userID)
	if err != nil {
		return nil, storeErr("get user", err)
	}

	recent := catalog.Page{Number: 1, Size: motivationWindow}
	orders, err := s.store.Orders().Find(ctx, repository.OrderFilter{UserID: &userID},
		catalog.ResolveSort(catalog.OrderSortFields, "createdAt", "desc"), &recent)
	if err != nil {
		return nil, storeErr("list recent orders", err)
	}

	purchases, err := s.purchaseLabels(ctx, user, orders)
	if err != nil {
		return nil, err
	}

	profile := &MotivationProfile{
		EcoScore:        user.EcoScore,
		WaterScore:      user.WaterScore,
		CarbonSaved:     user.CarbonSaved,
		WaterSaved:      user.WaterSaved,
		SearchHistory:   lastN(user.SearchHistory, motivationWindow),
		PurchaseHistory: purchases,
	}
	if profile.EcoScore == 0 {
		profile.EcoScore = averageGradeScore(orders, func(it models.OrderItem) string { return it.EcoRating })
	}
	if profile.WaterScore == 0 {
		profile.WaterScore = averageGradeScore(orders, func(it models.OrderItem) string { return it.WaterRating })
	}
	return profile, nil
}

// purchaseLabels names the last purchased products, falling back to the
// line items of recent orders when the purchase history is empty.
func (s *MotivationService) purchaseLabels(ctx context.Context, user *models.User, orders []models.Order) ([]string, error) {
	if ids := lastN(user.PurchaseHistory, motivationWindow); len(ids) > 0 {
		labels := make([]string, 0, len(ids))
		for _, raw := range ids {
			id, err := uuid.Parse(raw)
			if err != nil {
				continue
			}
			p, err := s.store.Products().Get(ctx, id)
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, storeErr("get purchased product", err)
			}
			labels = append(labels, firstNonBlank(p.Title, p.ProductID, p.Brand, "product"))
		}
		return labels, nil
	}

	var labels []string
	for _, o := range orders {
		for _, it := range o.Items {
			labels = append(labels, firstNonBlank(it.Title, it.Brand, "product"))
		}
	}
	return labels, nil
}

// GradeScore converts a letter grade into a 0-100 score.
func GradeScore(grade string) float64 {
	switch models.NormalizeGrade(grade) {
	case "A+":
		return 100
	case "A":
		return 90
	case "B":
		return 75
	case "C":
		return 60
	case "D":
		return 45
	case "E":
		return 30
	}
	return 0
}

// averageGradeScore averages over graded items only; unrecognised grades
// count as zero.
func averageGradeScore(orders []models.Order, grade func(models.OrderItem) string) float64 {
	var sum float64
	var n int
	for _, o := range orders {
		for _, it := range o.Items {
			g := grade(it)
			if strings.TrimSpace(g) == "" {
				continue
			}
			sum += GradeScore(g)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return math.Round(sum / float64(n))
}

// MotivationMessages lists every message that fits p. It is never empty.
func MotivationMessages(p *MotivationProfile) []string {
	var msgs []string

	if c := p.CarbonSaved; c > 0 {
		msgs = append(msgs,
			fmt.Sprintf("You've already saved %.1f kg of CO2, about what %.0f trees absorb in a year.", c, c/21),
			fmt.Sprintf("Your choices prevented %.1f kg of CO2 emissions, enough to run a laptop for %.0f hours.", c, c*2),
			fmt.Sprintf("%.1f kg of CO2 saved! Imagine how clean the air feels because of you.", c),
		)
	}
	if w := p.WaterSaved; w > 0 {
		msgs = append(msgs,
			fmt.Sprintf("You've conserved %.0f liters of water. Every drop counts!", w),
			fmt.Sprintf("That's %.0f showers' worth of water saved.", w/200),
			fmt.Sprintf("%.0f liters of water saved. You're helping protect our rivers and lakes.", w),
		)
	}

	switch {
	case p.EcoScore >= 80:
		msgs = append(msgs,
			"Incredible! Your eco score puts you among the top eco-warriors.",
			"You're leading the green revolution with your eco-friendly habits.",
			"Eco Legend status unlocked. Your sustainable choices are inspiring!",
		)
	case p.EcoScore >= 50:
		msgs = append(msgs,
			"You're on the right track. Keep choosing sustainable options!",
			"Steady progress! Each eco choice adds up to a big change.",
			"Keep pushing. You're halfway to becoming a sustainability hero!",
		)
	default:
		msgs = append(msgs,
			FallbackMotivation,
			"Every choice matters. Start small, change the world.",
			"Even tiny eco-friendly changes ripple into a huge impact.",
		)
	}

	switch {
	case p.WaterScore >= 80:
		msgs = append(msgs,
			"You're a Water Hero! Your choices are saving precious water.",
			"Outstanding! You're leading the way in water conservation.",
		)
	case p.WaterScore >= 50:
		msgs = append(msgs,
			"Keep going. Your water-saving impact is growing strong!",
			"Nice work! You're halfway to becoming a Water Saver Champion.",
		)
	}

	if n := len(p.SearchHistory); n > 0 {
		last := p.SearchHistory[n-1]
		msgs = append(msgs,
			fmt.Sprintf("Since you searched for '%s', did you know eco alternatives could cut your footprint even more?", last),
			fmt.Sprintf("Looking for '%s'? Choose eco-friendly versions to make a real difference.", last),
		)
	}
	if n := len(p.PurchaseHistory); n > 0 {
		last := p.PurchaseHistory[n-1]
		msgs = append(msgs,
			fmt.Sprintf("Your purchase of '%s' was a sustainable win.", last),
			fmt.Sprintf("'%s' is a step toward a greener future. Keep going!", last),
		)
	}

	return msgs
}

func lastN(values []string, n int) []string {
	if len(values) > n {
		values = values[len(values)-n:]
	}
	return append([]string(nil), values...)
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
