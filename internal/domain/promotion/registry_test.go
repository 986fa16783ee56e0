package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedRegistry(at time.Time) *Registry {
	r := NewRegistry()
	r.now = func() time.Time { return at }
	return r
}

func TestRegistryCreateStampsTimestampsAndID(t *testing.T) {
	now := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	r := fixedRegistry(now)

	p := activePromotion()
	p.ID = ""
	require.NoError(t, r.Create(context.Background(), p))

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.Equal(t, now, p.UpdatedAt)

	got, err := r.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
}

func TestRegistryCreateDuplicate(t *testing.T) {
	r := NewRegistry()
	p := activePromotion()
	require.NoError(t, r.Create(context.Background(), p))

	err := r.Create(context.Background(), activePromotion())
	assert.ErrorIs(t, err, ErrDuplicatePromotion)
}

func TestRegistryUpdate(t *testing.T) {
	created := time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC)
	updated := created.Add(48 * time.Hour)

	r := fixedRegistry(created)
	p := activePromotion()
	require.NoError(t, r.Create(context.Background(), p))

	r.now = func() time.Time { return updated }

	edit := p.Clone()
	edit.Name = "Renamed"
	edit.Priority = 5
	require.NoError(t, r.Update(context.Background(), edit))

	got, err := r.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, 5, got.Priority)
	assert.Equal(t, created, got.CreatedAt, "CreatedAt survives updates")
	assert.Equal(t, updated, got.UpdatedAt)
}

func TestRegistryUpdateMissing(t *testing.T) {
	r := NewRegistry()
	err := r.Update(context.Background(), activePromotion())
	assert.ErrorIs(t, err, ErrPromotionNotFound)
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry()
	p := activePromotion()
	require.NoError(t, r.Create(context.Background(), p))

	require.NoError(t, r.Delete(context.Background(), p.ID))

	_, err := r.Get(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrPromotionNotFound)

	assert.ErrorIs(t, r.Delete(context.Background(), p.ID), ErrPromotionNotFound)
}

func TestRegistryActiveFiltersStatusAndWindow(t *testing.T) {
	now := time.Date(2024, 4, 15, 12, 0, 0, 0, time.UTC)
	r := NewRegistry()

	active := activePromotion()
	active.ID = "in-window"
	active.Priority = 20

	stale := activePromotion()
	stale.ID = "stale-active"
	stale.EndDate = now.Add(-time.Hour)

	draft := activePromotion()
	draft.ID = "draft"
	draft.Status = StatusDraft

	urgent := activePromotion()
	urgent.ID = "urgent"
	urgent.Priority = 1

	for _, p := range []*Promotion{active, stale, draft, urgent} {
		require.NoError(t, r.Create(context.Background(), p))
	}

	got, err := r.Active(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "urgent", got[0].ID, "lower priority sorts first")
	assert.Equal(t, "in-window", got[1].ID)
}

func TestRegistryValidateCode(t *testing.T) {
	r := NewRegistry()

	p := activePromotion()
	p.PromoCode = &PromoCode{Code: "TIRE4GET2", UsageLimit: 1000, UsedCount: 0}
	require.NoError(t, r.Create(context.Background(), p))

	exhausted := activePromotion()
	exhausted.ID = "exhausted"
	exhausted.PromoCode = &PromoCode{Code: "USEDUP", UsageLimit: 10, UsedCount: 10}
	require.NoError(t, r.Create(context.Background(), exhausted))

	// An expired window does not matter here: code validation is only
	// existence plus usage limit.
	expired := activePromotion()
	expired.ID = "expired"
	expired.Status = StatusExpired
	expired.EndDate = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	expired.PromoCode = &PromoCode{Code: "OLDCODE"}
	require.NoError(t, r.Create(context.Background(), expired))

	assert.True(t, r.ValidateCode(context.Background(), "TIRE4GET2"))
	assert.False(t, r.ValidateCode(context.Background(), "USEDUP"))
	assert.False(t, r.ValidateCode(context.Background(), "NOSUCHCODE"))
	assert.True(t, r.ValidateCode(context.Background(), "OLDCODE"))
}

func TestRegistryIncrementUses(t *testing.T) {
	r := NewRegistry()

	p := activePromotion()
	p.PromoCode = &PromoCode{Code: "LIMITED", UsageLimit: 2}
	require.NoError(t, r.Create(context.Background(), p))

	require.NoError(t, r.IncrementUses(context.Background(), p.ID))
	require.NoError(t, r.IncrementUses(context.Background(), p.ID))

	err := r.IncrementUses(context.Background(), p.ID)
	assert.ErrorIs(t, err, ErrUsageLimitReached)

	got, err := r.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.PromoCode.UsedCount)
}

func TestRegistryIncrementUsesErrors(t *testing.T) {
	r := NewRegistry()

	assert.ErrorIs(t, r.IncrementUses(context.Background(), "missing"), ErrPromotionNotFound)

	noCode := activePromotion()
	require.NoError(t, r.Create(context.Background(), noCode))
	assert.ErrorIs(t, r.IncrementUses(context.Background(), noCode.ID), ErrNoPromoCode)
}

func TestRegistrySelect(t *testing.T) {
	r := NewRegistry()
	p := activePromotion()
	require.NoError(t, r.Create(context.Background(), p))

	assert.Nil(t, r.Selected())
	assert.ErrorIs(t, r.Select("missing"), ErrPromotionNotFound)

	require.NoError(t, r.Select(p.ID))
	require.NotNil(t, r.Selected())
	assert.Equal(t, p.ID, r.Selected().ID)

	require.NoError(t, r.Delete(context.Background(), p.ID))
	assert.Nil(t, r.Selected())
}

func TestRegistryCloneIsolation(t *testing.T) {
	r := NewRegistry()
	p := activePromotion()
	p.PromoCode = &PromoCode{Code: "ISO", UsageLimit: 5}
	require.NoError(t, r.Create(context.Background(), p))

	got, err := r.Get(context.Background(), p.ID)
	require.NoError(t, err)
	got.PromoCode.UsedCount = 99

	again, err := r.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.PromoCode.UsedCount, "mutating a returned copy must not touch the stored promotion")
}
