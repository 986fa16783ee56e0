package promotion

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry is the in-memory promotion store. It is an explicit, constructed
// object handed to whoever owns the checkout flow; there is no ambient
// global. A RWMutex guards the collection so read-heavy evaluation paths can
// run concurrently with the occasional back-office edit.
type Registry struct {
	now func() time.Time

	mu         sync.RWMutex
	promotions map[string]*Promotion
	selectedID string
}

var _ Store = (*Registry)(nil)

// NewRegistry returns an empty registry using the wall clock.
func NewRegistry() *Registry {
	return &Registry{
		now:        time.Now,
		promotions: make(map[string]*Promotion),
	}
}

// Load replaces the registry contents with the given promotions verbatim,
// without stamping timestamps or generating ids. Used to seed from a static
// definition list.
func (r *Registry) Load(promos []Promotion) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.promotions = make(map[string]*Promotion, len(promos))
	for i := range promos {
		p := promos[i]
		r.promotions[p.ID] = &p
	}
}

// List returns all promotions sorted by ascending priority.
func (r *Registry) List(_ context.Context) ([]Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Promotion, 0, len(r.promotions))
	for _, p := range r.promotions {
		out = append(out, *p.Clone())
	}
	sortByPriority(out)
	return out, nil
}

// Active returns promotions with active status whose validity window contains
// now, sorted by ascending priority. A stale "active" label on a promotion
// whose window has passed does not slip through.
func (r *Registry) Active(_ context.Context, now time.Time) ([]Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Promotion
	for _, p := range r.promotions {
		if p.Status == StatusActive && p.InWindow(now) {
			out = append(out, *p.Clone())
		}
	}
	sortByPriority(out)
	return out, nil
}

// Get returns the promotion with the given id.
func (r *Registry) Get(_ context.Context, id string) (*Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.promotions[id]
	if !ok {
		return nil, ErrPromotionNotFound
	}
	return p.Clone(), nil
}

// Create adds a promotion. An empty id gets a generated UUID; CreatedAt and
// UpdatedAt are stamped with the current time.
func (r *Registry) Create(_ context.Context, p *Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if _, exists := r.promotions[p.ID]; exists {
		return ErrDuplicatePromotion
	}

	now := r.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	r.promotions[p.ID] = p.Clone()
	return nil
}

// Update replaces the stored promotion with the same id, preserving
// CreatedAt and stamping UpdatedAt.
func (r *Registry) Update(_ context.Context, p *Promotion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.promotions[p.ID]
	if !ok {
		return ErrPromotionNotFound
	}

	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = r.now()
	r.promotions[p.ID] = p.Clone()
	return nil
}

// Delete removes the promotion with the given id. There is nothing to
// cascade: conditions, rules and configurations live inside the promotion.
func (r *Registry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.promotions[id]; !ok {
		return ErrPromotionNotFound
	}
	delete(r.promotions, id)
	if r.selectedID == id {
		r.selectedID = ""
	}
	return nil
}

// FindByCode returns the promotion whose promo code matches exactly.
func (r *Registry) FindByCode(_ context.Context, code string) (*Promotion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.promotions {
		if p.PromoCode != nil && p.PromoCode.Code == code {
			return p.Clone(), nil
		}
	}
	return nil, ErrPromotionNotFound
}

// ValidateCode reports whether a promo code exists and still has uses left.
// This is deliberately narrower than applicability: it checks neither the
// validity window nor the trigger rules, matching how the back office
// pre-validates codes before a cart exists.
func (r *Registry) ValidateCode(ctx context.Context, code string) bool {
	p, err := r.FindByCode(ctx, code)
	if err != nil {
		return false
	}
	return p.PromoCode.Usable()
}

// IncrementUses records one redemption of the promotion's promo code.
// It fails when the promotion is missing, has no code, or the code's usage
// limit is exhausted.
func (r *Registry) IncrementUses(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.promotions[id]
	if !ok {
		return ErrPromotionNotFound
	}
	if p.PromoCode == nil {
		return ErrNoPromoCode
	}
	if !p.PromoCode.Usable() {
		return ErrUsageLimitReached
	}
	p.PromoCode.UsedCount++
	p.UpdatedAt = r.now()
	return nil
}

// Select marks a promotion as the current editing target.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.promotions[id]; !ok {
		return ErrPromotionNotFound
	}
	r.selectedID = id
	return nil
}

// Selected returns the currently selected promotion, or nil.
func (r *Registry) Selected() *Promotion {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.selectedID == "" {
		return nil
	}
	return r.promotions[r.selectedID].Clone()
}

func sortByPriority(promos []Promotion) {
	sort.SliceStable(promos, func(i, j int) bool {
		return promos[i].Priority < promos[j].Priority
	})
}
