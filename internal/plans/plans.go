// Package plans holds the static pricing plans and API tiers offered to tenants.
// Plans are lookup tables only; they never take part in permission decisions.
package plans

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrPlanNotFound indicates an unknown plan code.
	ErrPlanNotFound = errors.New("plans: plan not found")
	// ErrTierNotFound indicates an unknown API tier code.
	ErrTierNotFound = errors.New("plans: api tier not found")
)

// Plan describes a pricing plan.
type Plan struct {
	Code              string   `json:"code" validate:"required"`
	Name              string   `json:"name" validate:"required"`
	MonthlyPriceCents int64    `json:"monthly_price_cents" validate:"gte=0"`
	Tier              string   `json:"tier" validate:"required"`
	EligibleRoles     []string `json:"eligible_roles" validate:"required,min=1"`
}

// APITier describes API rate allowances attached to a plan.
type APITier struct {
	Code              string `json:"code" validate:"required"`
	RequestsPerMinute int    `json:"requests_per_minute" validate:"gt=0"`
	Burst             int    `json:"burst" validate:"gte=0"`
}

// Catalog is an immutable set of plans and tiers.
type Catalog struct {
	plans map[string]Plan
	tiers map[string]APITier
}

var validate = validator.New()

// NewCatalog validates plans and tiers and builds a Catalog.
func NewCatalog(plans []Plan, tiers []APITier) (*Catalog, error) {
	c := &Catalog{
		plans: make(map[string]Plan, len(plans)),
		tiers: make(map[string]APITier, len(tiers)),
	}
	for _, t := range tiers {
		if err := validate.Struct(t); err != nil {
			return nil, fmt.Errorf("plans: tier %q: %w", t.Code, err)
		}
		if _, dup := c.tiers[t.Code]; dup {
			return nil, fmt.Errorf("plans: duplicate tier %q", t.Code)
		}
		c.tiers[t.Code] = t
	}
	for _, p := range plans {
		if err := validate.Struct(p); err != nil {
			return nil, fmt.Errorf("plans: plan %q: %w", p.Code, err)
		}
		if _, dup := c.plans[p.Code]; dup {
			return nil, fmt.Errorf("plans: duplicate plan %q", p.Code)
		}
		if _, ok := c.tiers[p.Tier]; !ok {
			return nil, fmt.Errorf("plans: plan %q: %w: %s", p.Code, ErrTierNotFound, p.Tier)
		}
		p.EligibleRoles = append([]string(nil), p.EligibleRoles...)
		c.plans[p.Code] = p
	}
	return c, nil
}

// Default returns the plans offered on the platform.
func Default() *Catalog {
	c, err := NewCatalog(
		[]Plan{
			{Code: "community", Name: "Community", MonthlyPriceCents: 0, Tier: "basic", EligibleRoles: []string{"donor", "viewer", "contractor"}},
			{Code: "professional", Name: "Professional", MonthlyPriceCents: 49_00, Tier: "standard", EligibleRoles: []string{"contractor", "supplier", "freight_operator", "insurer", "project_manager", "inspector"}},
			{Code: "enterprise", Name: "Enterprise", MonthlyPriceCents: 499_00, Tier: "premium", EligibleRoles: []string{"super_admin", "admin", "governance_officer", "zoning_officer"}},
		},
		[]APITier{
			{Code: "basic", RequestsPerMinute: 60, Burst: 10},
			{Code: "standard", RequestsPerMinute: 600, Burst: 100},
			{Code: "premium", RequestsPerMinute: 6000, Burst: 1000},
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Plan returns the plan with code.
func (c *Catalog) Plan(code string) (Plan, error) {
	p, ok := c.plans[code]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, code)
	}
	p.EligibleRoles = append([]string(nil), p.EligibleRoles...)
	return p, nil
}

// Tier returns the API tier with code.
func (c *Catalog) Tier(code string) (APITier, error) {
	t, ok := c.tiers[code]
	if !ok {
		return APITier{}, fmt.Errorf("%w: %s", ErrTierNotFound, code)
	}
	return t, nil
}

// Plans returns every plan ordered by price, then code.
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, 0, len(c.plans))
	for code := range c.plans {
		p, _ := c.Plan(code)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].MonthlyPriceCents == out[j].MonthlyPriceCents {
			return out[i].Code < out[j].Code
		}
		return out[i].MonthlyPriceCents < out[j].MonthlyPriceCents
	})
	return out
}

// Tiers returns every tier ordered by allowance.
func (c *Catalog) Tiers() []APITier {
	out := make([]APITier, 0, len(c.tiers))
	for _, t := range c.tiers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RequestsPerMinute < out[j].RequestsPerMinute })
	return out
}

// PlansFor returns the plans a role may subscribe to.
func (c *Catalog) PlansFor(role string) []Plan {
	var out []Plan
	for _, p := range c.Plans() {
		for _, r := range p.EligibleRoles {
			if r == role {
				out = append(out, p)
				break
			}
		}
	}
	return out
}
