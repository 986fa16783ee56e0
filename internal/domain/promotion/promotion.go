// Package promotion implements the declarative promotion rule engine:
// typed conditions evaluated against a checkout context, AND/OR trigger
// rules, per-strategy discount calculation, and the promotion registry.
package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// Type enumerates the discount strategies a promotion can declare.
// Only a subset has calculation logic today; the rest are declared so that
// stored definitions round-trip, and they yield a zero discount (see
// Engine.Discount).
type Type string

const (
	TypeBuyXGetY         Type = "buy_x_get_y"
	TypeTieredDiscount   Type = "tiered_discount"
	TypeBulkPricing      Type = "bulk_pricing"
	TypeCrossProduct     Type = "cross_product"
	TypeBundle           Type = "bundle"
	TypeLoyaltyCashback  Type = "loyalty_cashback"
	TypeTimeBased        Type = "time_based"
	TypeCustomerSpecific Type = "customer_specific"
	TypeShipping         Type = "shipping"
	TypeInvoiceDiscount  Type = "invoice_discount"
	TypePaymentMethod    Type = "payment_method"
	TypeEarlyPayment     Type = "early_payment"
	TypeRewardPoints     Type = "reward_points"
)

// Status is the editorial lifecycle state of a promotion. Transitions are
// driven by whoever edits the registry; the engine never flips a status based
// on dates, it only combines status with the validity window at evaluation
// time.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
)

var (
	// ErrPromotionNotFound is returned when no promotion matches the given id or code.
	ErrPromotionNotFound = errors.New("promotion not found")
	// ErrDuplicatePromotion is returned when creating a promotion whose id already exists.
	ErrDuplicatePromotion = errors.New("promotion already exists")
	// ErrNoPromoCode is returned when redeeming a promotion that has no promo code attached.
	ErrNoPromoCode = errors.New("promotion has no promo code")
	// ErrUsageLimitReached is returned when a promo code has exhausted its allowed uses.
	ErrUsageLimitReached = errors.New("promo code usage limit reached")
)

// PromoCode is the optional secondary gate on a promotion: the customer must
// supply a matching code, subject to a usage cap.
//
// PerCustomerLimit is stored but not enforced anywhere yet; enforcing it
// needs per-customer redemption tracking that the backend does not keep.
type PromoCode struct {
	Code             string
	UsageLimit       int
	UsedCount        int
	PerCustomerLimit int
}

// Usable reports whether the code still has uses left. A non-positive
// UsageLimit means unlimited.
func (c *PromoCode) Usable() bool {
	if c == nil {
		return false
	}
	return c.UsageLimit <= 0 || c.UsedCount < c.UsageLimit
}

// Promotion is a discount offer: a validity window, a trigger rule, a typed
// discount configuration and an optional promo code gate.
//
// Rules is a list for data compatibility, but only Rules[0] is consulted
// during evaluation. Priority orders promotions when several could apply
// (lower evaluates first); the ordering is advisory and enforced by callers
// such as the checkout service, not by the engine.
type Promotion struct {
	ID          string
	Name        string
	Description string
	Type        Type
	Status      Status
	StartDate   time.Time
	EndDate     time.Time
	Priority    int
	Rules       []Rule
	Config      Config
	PromoCode   *PromoCode
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a copy of the promotion safe to hand out of a store. The
// rules and configuration are shared: they are immutable value objects with
// no identity of their own.
func (p *Promotion) Clone() *Promotion {
	if p == nil {
		return nil
	}
	cp := *p
	if p.PromoCode != nil {
		code := *p.PromoCode
		cp.PromoCode = &code
	}
	return &cp
}

// Store provides persistence for promotions. The in-memory Registry and the
// PostgreSQL implementation both satisfy it.
type Store interface {
	List(ctx context.Context) ([]Promotion, error)
	Active(ctx context.Context, now time.Time) ([]Promotion, error)
	Get(ctx context.Context, id string) (*Promotion, error)
	Create(ctx context.Context, p *Promotion) error
	Update(ctx context.Context, p *Promotion) error
	Delete(ctx context.Context, id string) error
	FindByCode(ctx context.Context, code string) (*Promotion, error)
	IncrementUses(ctx context.Context, id string) error
}

// InWindow reports whether now falls inside the promotion's validity window,
// inclusive at both ends.
func (p *Promotion) InWindow(now time.Time) bool {
	return !now.Before(p.StartDate) && !now.After(p.EndDate)
}
