// Package checkout turns a cart into a promotion evaluation context and
// produces a priced quote.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"promosvc/internal/domain/promotion"
)

// Sentinel errors for quote validation.
var (
	ErrEmptyCart = fmt.Errorf("cart items required")
)

// InvalidQuantityError indicates a cart line has a non-positive quantity.
type InvalidQuantityError struct {
	SKU string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for %s", e.SKU)
}

// CartLine is one priced line of the cart being quoted.
type CartLine struct {
	SKU      string
	Category string
	Price    decimal.Decimal
	Quantity int
}

// QuoteRequest holds the input for quoting a cart.
//
// Attrs lets the caller supply or override scalar context attributes beyond
// the ones derived from the cart (for example "time" or "custom" fields used
// by stored conditions).
type QuoteRequest struct {
	Lines           []CartLine
	PromoCode       string
	CustomerSegment string
	PaymentMethod   string
	Attrs           map[string]promotion.Value
}

// AppliedPromotion describes one promotion and the discount it yields.
type AppliedPromotion struct {
	PromotionID string
	Name        string
	Discount    decimal.Decimal
}

// Quote is the priced result: subtotal, the applied discount and the final
// total, plus every active promotion that would have yielded a discount.
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal

	// Applied is the promotion whose discount was taken, or nil.
	Applied *AppliedPromotion
	// Eligible lists all promotions yielding a nonzero discount, in
	// priority order. Applied is always Eligible[0] when non-nil.
	Eligible []AppliedPromotion
}

// Service prices carts against the active promotions. Promotion priority is
// honored here: promotions are evaluated lowest priority value first and the
// first nonzero discount wins; discounts do not stack.
type Service struct {
	promos promotion.Store
	engine *promotion.Engine
	now    func() time.Time
}

// NewService creates a checkout Service using the given promotion store and
// engine. Quoting uses the engine's clock so the active-promotion scan and
// the applicability gate agree on the evaluation time.
func NewService(promos promotion.Store, engine *promotion.Engine) *Service {
	return &Service{
		promos: promos,
		engine: engine,
		now:    engine.Now,
	}
}

// Quote validates the cart, builds the evaluation context, scans active
// promotions in priority order and prices the cart. It never mutates
// promotion state; redemption of a promo code is a separate, explicit step.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}
	for _, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{SKU: line.SKU}
		}
	}

	subtotal := decimal.Zero
	totalQty := 0
	items := make([]promotion.Item, len(req.Lines))
	for i, line := range req.Lines {
		items[i] = promotion.Item{
			SKU:      line.SKU,
			Category: line.Category,
			Price:    line.Price,
			Quantity: line.Quantity,
		}
		subtotal = subtotal.Add(line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		totalQty += line.Quantity
	}

	evalCtx := s.buildContext(req, items, subtotal, totalQty)

	promos, err := s.promos.Active(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("list active promotions: %w", err)
	}

	q := &Quote{
		Subtotal: subtotal.Round(2),
		Discount: decimal.Zero,
	}
	for i := range promos {
		p := &promos[i]
		d := s.engine.Discount(p, evalCtx)
		if d.IsZero() {
			continue
		}
		q.Eligible = append(q.Eligible, AppliedPromotion{
			PromotionID: p.ID,
			Name:        p.Name,
			Discount:    d,
		})
	}

	if len(q.Eligible) > 0 {
		q.Applied = &q.Eligible[0]
		q.Discount = q.Applied.Discount
	}

	total := subtotal.Sub(q.Discount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	q.Total = total.Round(2)
	q.Discount = q.Discount.Round(2)

	return q, nil
}

// buildContext derives the evaluation context from the cart. Derived
// attributes: invoice_total is the cart subtotal, quantity the summed line
// quantities, and price and category come from the first line (tiered and
// category definitions are written against single-product carts).
// Caller-supplied Attrs override the derived values.
func (s *Service) buildContext(req QuoteRequest, items []promotion.Item, subtotal decimal.Decimal, totalQty int) *promotion.Context {
	attrs := map[string]promotion.Value{
		"invoice_total": promotion.NumberValue(subtotal),
		"quantity":      promotion.IntValue(int64(totalQty)),
		"price":         promotion.NumberValue(items[0].Price),
	}
	if items[0].Category != "" {
		attrs["category"] = promotion.StringValue(items[0].Category)
	}
	if req.CustomerSegment != "" {
		attrs["customer_segment"] = promotion.StringValue(req.CustomerSegment)
	}
	if req.PaymentMethod != "" {
		attrs["payment_method"] = promotion.StringValue(req.PaymentMethod)
	}
	for k, v := range req.Attrs {
		attrs[k] = v
	}

	return &promotion.Context{
		Items:     items,
		PromoCode: req.PromoCode,
		Attrs:     attrs,
	}
}

// Redeem records one use of the promotion's promo code after an order is
// finalized. It is deliberately separate from Quote so that browsing a cart
// never burns a limited code.
func (s *Service) Redeem(ctx context.Context, promotionID string) error {
	if err := s.promos.IncrementUses(ctx, promotionID); err != nil {
		return fmt.Errorf("redeem promotion %s: %w", promotionID, err)
	}
	return nil
}
