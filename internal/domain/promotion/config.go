package promotion

import "github.com/shopspring/decimal"

// Config is the typed discount configuration of a promotion. Exactly one
// concrete variant exists per strategy that carries configuration; the
// calculator type-switches over the variants, which keeps the strategies
// without calculation logic visible as explicit zero branches instead of a
// silent string-switch fallthrough.
type Config interface {
	isConfig()
}

// BuyXGetYConfig configures the buy-X-get-Y-free strategy.
//
// EligibleProducts selects cart items by SKU and takes precedence over
// EligibleCategories; when both are empty every item is eligible.
type BuyXGetYConfig struct {
	BuyQuantity        int
	GetFreeQuantity    int
	EligibleProducts   []string
	EligibleCategories []string
}

// Tier is one step of a tiered discount: at MinQuantity and above,
// DiscountValue applies as a percentage of the base amount or as a flat
// amount.
type Tier struct {
	MinQuantity   int
	DiscountValue decimal.Decimal
	IsPercentage  bool
}

// TieredDiscountConfig configures the quantity-tiered strategy.
type TieredDiscountConfig struct {
	Tiers []Tier
}

// BundleConfig configures the fixed-price bundle strategy. Declared for
// schema compatibility; no calculation logic exists yet.
type BundleConfig struct {
	Products    []string
	BundlePrice decimal.Decimal
}

// LoyaltyCashbackConfig configures the loyalty cashback strategy. Declared
// for schema compatibility; no calculation logic exists yet.
type LoyaltyCashbackConfig struct {
	Percentage  decimal.Decimal
	MaxCashback decimal.Decimal
}

// CustomerSpecificConfig configures the customer-segment strategy. Declared
// for schema compatibility; no calculation logic exists yet.
type CustomerSpecificConfig struct {
	Segments      []string
	DiscountValue decimal.Decimal
	IsPercentage  bool
}

// PaymentMethodConfig configures the payment-method strategy. Declared for
// schema compatibility; no calculation logic exists yet.
type PaymentMethodConfig struct {
	Methods       []string
	DiscountValue decimal.Decimal
	IsPercentage  bool
}

// RewardPointsConfig configures the reward-points strategy. Declared for
// schema compatibility; no calculation logic exists yet.
type RewardPointsConfig struct {
	PointsPerCurrency decimal.Decimal
	MinPurchase       decimal.Decimal
}

func (*BuyXGetYConfig) isConfig()         {}
func (*TieredDiscountConfig) isConfig()   {}
func (*BundleConfig) isConfig()           {}
func (*LoyaltyCashbackConfig) isConfig()  {}
func (*CustomerSpecificConfig) isConfig() {}
func (*PaymentMethodConfig) isConfig()    {}
func (*RewardPointsConfig) isConfig()     {}
