package entity

// AiService is an immutable catalog record supplied by the external
// catalog provider. Consumed read-only for price lookups.
type AiService struct {
	ID       string        `json:"id"`
	Name     string        `json:"name"`
	Category string        `json:"category"`
	Color    string        `json:"color"`
	Logo     string        `json:"logo"`
	Rating   float64       `json:"rating"`
	Tiers    []PricingTier `json:"tiers"`
}

// PricingTier is a single plan of a catalog service. PriceLabel is a
// free-form label ("$49/mo", "Free", "Custom"); only tiers with a leading
// dollar amount are purchasable at a numeric price.
type PricingTier struct {
	Name       string   `json:"name"`
	PriceLabel string   `json:"priceLabel"`
	Features   []string `json:"features"`
}
