package promotion

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func fixedEngine(at time.Time) *Engine {
	return NewEngine().WithClock(func() time.Time { return at })
}

func alwaysRule() []Rule {
	return []Rule{{Operator: CombineAnd}}
}

func activePromotion() *Promotion {
	return &Promotion{
		ID:        "promo-1",
		Name:      "Test promotion",
		Type:      TypeInvoiceDiscount,
		Status:    StatusActive,
		StartDate: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC),
		Rules:     alwaysRule(),
	}
}

func TestIsApplicableGateSequence(t *testing.T) {
	inWindow := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		at     time.Time
		mutate func(*Promotion)
		ctx    *Context
		want   bool
	}{
		{
			name:   "active promotion in window applies",
			at:     inWindow,
			mutate: func(*Promotion) {},
			ctx:    &Context{},
			want:   true,
		},
		{
			name:   "draft status fails",
			at:     inWindow,
			mutate: func(p *Promotion) { p.Status = StatusDraft },
			ctx:    &Context{},
			want:   false,
		},
		{
			name:   "scheduled status fails",
			at:     inWindow,
			mutate: func(p *Promotion) { p.Status = StatusScheduled },
			ctx:    &Context{},
			want:   false,
		},
		{
			name:   "active status with elapsed window fails",
			at:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			mutate: func(*Promotion) {},
			ctx:    &Context{},
			want:   false,
		},
		{
			name:   "evaluation exactly at end date applies",
			at:     time.Date(2024, 4, 30, 23, 59, 59, 0, time.UTC),
			mutate: func(*Promotion) {},
			ctx:    &Context{},
			want:   true,
		},
		{
			name:   "evaluation exactly at start date applies",
			at:     time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			mutate: func(*Promotion) {},
			ctx:    &Context{},
			want:   true,
		},
		{
			name:   "before start date fails",
			at:     time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC),
			mutate: func(*Promotion) {},
			ctx:    &Context{},
			want:   false,
		},
		{
			name: "promo code must be supplied",
			at:   inWindow,
			mutate: func(p *Promotion) {
				p.PromoCode = &PromoCode{Code: "TIRE4GET2", UsageLimit: 1000}
			},
			ctx:  &Context{},
			want: false,
		},
		{
			name: "matching promo code applies",
			at:   inWindow,
			mutate: func(p *Promotion) {
				p.PromoCode = &PromoCode{Code: "TIRE4GET2", UsageLimit: 1000}
			},
			ctx:  &Context{PromoCode: "TIRE4GET2"},
			want: true,
		},
		{
			name: "promo code match is exact",
			at:   inWindow,
			mutate: func(p *Promotion) {
				p.PromoCode = &PromoCode{Code: "TIRE4GET2"}
			},
			ctx:  &Context{PromoCode: "tire4get2"},
			want: false,
		},
		{
			name: "exhausted promo code fails even with matching code",
			at:   inWindow,
			mutate: func(p *Promotion) {
				p.PromoCode = &PromoCode{Code: "TIRE4GET2", UsageLimit: 10, UsedCount: 10}
			},
			ctx:  &Context{PromoCode: "TIRE4GET2"},
			want: false,
		},
		{
			name:   "failing trigger rule fails",
			at:     inWindow,
			mutate: func(p *Promotion) { p.Rules = []Rule{{Operator: CombineOr}} },
			ctx:    &Context{},
			want:   false,
		},
		{
			name:   "promotion without rules never applies",
			at:     inWindow,
			mutate: func(p *Promotion) { p.Rules = nil },
			ctx:    &Context{},
			want:   false,
		},
		{
			name: "only the first rule is consulted",
			at:   inWindow,
			mutate: func(p *Promotion) {
				p.Rules = []Rule{
					{Operator: CombineOr}, // false
					{Operator: CombineAnd}, // true, but inert
				}
			},
			ctx:  &Context{},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := activePromotion()
			tt.mutate(p)
			assert.Equal(t, tt.want, fixedEngine(tt.at).IsApplicable(p, tt.ctx))
		})
	}
}

func TestIsApplicableNilInputs(t *testing.T) {
	e := NewEngine()
	assert.False(t, e.IsApplicable(nil, &Context{}))
	assert.False(t, e.IsApplicable(activePromotion(), nil))
}

func TestDiscountReturnsZeroWhenNotApplicable(t *testing.T) {
	p := activePromotion()
	p.Type = TypeBuyXGetY
	p.Config = &BuyXGetYConfig{BuyQuantity: 1, GetFreeQuantity: 1}

	// Outside the validity window the gate rejects, so the discount must be
	// zero regardless of the configuration.
	e := fixedEngine(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	ctx := &Context{Items: []Item{{SKU: "TRS-001", Price: decimal.NewFromInt(180), Quantity: 5}}}
	assert.True(t, e.Discount(p, ctx).IsZero())
}

func TestDiscountUnimplementedStrategiesYieldZero(t *testing.T) {
	inWindow := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	e := fixedEngine(inWindow)
	ctx := &Context{
		Items: []Item{{SKU: "TRS-001", Price: decimal.NewFromInt(180), Quantity: 5}},
		Attrs: map[string]Value{"quantity": IntValue(5), "price": IntValue(180)},
	}

	configs := []Config{
		&BundleConfig{Products: []string{"TRS-001"}, BundlePrice: decimal.NewFromInt(500)},
		&LoyaltyCashbackConfig{Percentage: decimal.NewFromInt(5)},
		&CustomerSpecificConfig{Segments: []string{"wholesale"}, DiscountValue: decimal.NewFromInt(10), IsPercentage: true},
		&PaymentMethodConfig{Methods: []string{"cash"}, DiscountValue: decimal.NewFromInt(5)},
		&RewardPointsConfig{PointsPerCurrency: decimal.NewFromInt(1)},
		nil,
	}

	for _, cfg := range configs {
		p := activePromotion()
		p.Config = cfg

		assert.True(t, e.IsApplicable(p, ctx), "gate must pass for %T", cfg)
		assert.True(t, e.Discount(p, ctx).IsZero(), "discount must stay zero for %T", cfg)
	}
}
