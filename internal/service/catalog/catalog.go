// internal/service/catalog/catalog.go
package catalog

import (
	"sort"

	"salescoach-service/internal/domain/billing"
)

// defaultPlans is the authoritative tier table. billing.Unlimited (-1) means no cap.
var defaultPlans = map[billing.PlanTier]billing.PlanLimits{
	billing.PlanFree: {
		Tier:                     billing.PlanFree,
		Name:                     "Free",
		MaxSeats:                 1,
		CallsPerMonth:            0,
		RoleplaySessionsPerMonth: 0,
		MonthlyPriceCents:        0,
		PriceReference:           "plan_free",
	},
	billing.PlanStarter: {
		Tier:                     billing.PlanStarter,
		Name:                     "Starter",
		MaxSeats:                 1,
		CallsPerMonth:            25,
		RoleplaySessionsPerMonth: 10,
		MonthlyPriceCents:        4900,
		PriceReference:           "plan_starter_monthly",
	},
	billing.PlanPro: {
		Tier:                     billing.PlanPro,
		Name:                     "Pro",
		MaxSeats:                 5,
		CallsPerMonth:            100,
		RoleplaySessionsPerMonth: 50,
		MonthlyPriceCents:        14900,
		PriceReference:           "plan_pro_monthly",
	},
	billing.PlanTeam: {
		Tier:                     billing.PlanTeam,
		Name:                     "Team",
		MaxSeats:                 15,
		CallsPerMonth:            500,
		RoleplaySessionsPerMonth: 250,
		MonthlyPriceCents:        49900,
		PriceReference:           "plan_team_monthly",
	},
	billing.PlanEnterprise: {
		Tier:                     billing.PlanEnterprise,
		Name:                     "Enterprise",
		MaxSeats:                 billing.Unlimited,
		CallsPerMonth:            billing.Unlimited,
		RoleplaySessionsPerMonth: billing.Unlimited,
		MonthlyPriceCents:        0,
		PriceReference:           "plan_enterprise_custom",
	},
}

// Catalog is a read-only lookup of plan tiers.
type Catalog struct {
	plans map[billing.PlanTier]billing.PlanLimits
}

// New returns the catalog backed by the built-in tier table.
func New() *Catalog {
	m := make(map[billing.PlanTier]billing.PlanLimits, len(defaultPlans))
	for k, v := range defaultPlans {
		m[k] = v
	}
	return &Catalog{plans: m}
}

// Lookup returns the limits for a tier and whether the tier is known.
func (c *Catalog) Lookup(tier billing.PlanTier) (billing.PlanLimits, bool) {
	p, ok := c.plans[tier]
	return p, ok
}

// Resolve returns the limits for a tier, falling back to the free tier
// for unknown tiers so that a bad tier value never grants quota.
func (c *Catalog) Resolve(tier billing.PlanTier) billing.PlanLimits {
	if p, ok := c.plans[tier]; ok {
		return p
	}
	return c.plans[billing.PlanFree]
}

// All returns every plan ordered by price, enterprise last.
func (c *Catalog) All() []billing.PlanLimits {
	plans := make([]billing.PlanLimits, 0, len(c.plans))
	for _, p := range c.plans {
		plans = append(plans, p)
	}
	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Tier == billing.PlanEnterprise {
			return false
		}
		if plans[j].Tier == billing.PlanEnterprise {
			return true
		}
		return plans[i].MonthlyPriceCents < plans[j].MonthlyPriceCents
	})
	return plans
}
