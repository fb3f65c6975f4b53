package domain

// NoExpiryDays is the sentinel duration meaning the plan never lapses.
// Plans at or above this duration are treated as perpetual by the resolver.
const NoExpiryDays = 3650

type Plan struct {
	ID           int64  `json:"id"`
	Code         string `json:"code"`
	Name         string `json:"name"`
	PriceCents   int64  `json:"price_cents"`
	Currency     string `json:"currency"`
	DurationDays int    `json:"duration_days"`
	GrantsAccess bool   `json:"grants_access"`

	DiscountFood        int `json:"discount_food"`
	DiscountWatersports int `json:"discount_watersports"`
	DiscountGiftShop    int `json:"discount_gift_shop"`
	DiscountSpa         int `json:"discount_spa"`

	Active bool `json:"active"`
}

// IsFreeTier reports whether the plan is the rewards-only free tier.
func (p *Plan) IsFreeTier(freeCode string) bool {
	return p.Code == freeCode
}

// IsPerpetual reports whether the plan duration carries the no-expiry sentinel.
func (p *Plan) IsPerpetual() bool {
	return p.DurationDays >= NoExpiryDays
}
