package promotion

import (
	"time"

	"github.com/shopspring/decimal"
)

// Engine evaluates promotions against checkout contexts. It is stateless
// apart from the clock and safe for concurrent use.
type Engine struct {
	now func() time.Time
}

// NewEngine returns an Engine using the wall clock.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// WithClock returns a copy of the engine that uses the given clock. Intended
// for tests and for callers that must evaluate at a fixed instant.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// Now returns the engine's current evaluation time.
func (e *Engine) Now() time.Time {
	return e.now()
}

// IsApplicable reports whether the promotion applies to the context.
// The checks run in order and the first failure wins: the promotion must be
// active, the evaluation time must fall inside the validity window, an
// attached promo code must have uses left and match the context's code
// exactly, and the first trigger rule must evaluate true. A promotion with no
// rules never applies. The method has no side effects.
func (e *Engine) IsApplicable(p *Promotion, ctx *Context) bool {
	if p == nil || ctx == nil {
		return false
	}
	if p.Status != StatusActive {
		return false
	}
	if !p.InWindow(e.now()) {
		return false
	}
	if p.PromoCode != nil {
		if !p.PromoCode.Usable() {
			return false
		}
		if ctx.PromoCode != p.PromoCode.Code {
			return false
		}
	}
	if len(p.Rules) == 0 {
		return false
	}
	return p.Rules[0].Evaluate(ctx)
}

// Discount computes the discount the promotion yields for the context,
// rounded to 2 decimal places. Applicability is re-checked here rather than
// assumed from the caller; an inapplicable promotion yields zero. Strategies
// without calculation logic also yield zero even when applicable; absence of
// a discount is the signal, never an error.
func (e *Engine) Discount(p *Promotion, ctx *Context) decimal.Decimal {
	if !e.IsApplicable(p, ctx) {
		return decimal.Zero
	}

	switch cfg := p.Config.(type) {
	case *BuyXGetYConfig:
		return buyXGetYDiscount(cfg, ctx.Items)
	case *TieredDiscountConfig:
		return tieredDiscount(cfg, ctx)
	case *BundleConfig,
		*LoyaltyCashbackConfig,
		*CustomerSpecificConfig,
		*PaymentMethodConfig,
		*RewardPointsConfig:
		// Declared strategies without calculation logic.
		return decimal.Zero
	default:
		// Missing or unknown configuration block.
		return decimal.Zero
	}
}
