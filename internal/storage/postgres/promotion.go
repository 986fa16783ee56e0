package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"promosvc/internal/domain/promotion"
)

const promotionColumns = `id, name, description, type, status,
	start_date, end_date, priority, rules, configuration,
	promo_code, usage_limit, used_count, per_customer_limit,
	created_at, updated_at`

const (
	listPromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions ORDER BY priority, id`

	activePromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE status = 'active' AND start_date <= $1 AND end_date >= $1
		ORDER BY priority, id`

	getPromotionSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE id = $1`

	findPromotionByCodeSQL = `SELECT ` + promotionColumns + `
		FROM promotions WHERE promo_code = $1`

	findBatchCodeSQL = `SELECT p.id, c.code
		FROM promo_batch_codes c
		JOIN promo_code_batches b ON b.id = c.batch_id
		JOIN promotions p ON p.id = b.promotion_id
		WHERE c.code = $1`

	insertPromotionSQL = `INSERT INTO promotions (` + promotionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	updatePromotionSQL = `UPDATE promotions SET
		name = $2, description = $3, type = $4, status = $5,
		start_date = $6, end_date = $7, priority = $8, rules = $9,
		configuration = $10, promo_code = $11, usage_limit = $12,
		used_count = $13, per_customer_limit = $14, updated_at = $15
		WHERE id = $1`

	deletePromotionSQL = `DELETE FROM promotions WHERE id = $1`

	incrementUsesSQL = `UPDATE promotions
		SET used_count = used_count + 1, updated_at = $2
		WHERE id = $1 AND promo_code IS NOT NULL
			AND (usage_limit <= 0 OR used_count < usage_limit)`

	classifyUsesSQL = `SELECT promo_code IS NOT NULL FROM promotions WHERE id = $1`
)

var _ promotion.Store = (*PromotionStore)(nil)

// PromotionStore implements promotion.Store backed by PostgreSQL.
type PromotionStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPromotionStore returns a PromotionStore that uses the given pool.
func NewPromotionStore(pool *pgxpool.Pool) *PromotionStore {
	return &PromotionStore{pool: pool, now: time.Now}
}

// List returns every stored promotion ordered by priority.
func (s *PromotionStore) List(ctx context.Context) ([]promotion.Promotion, error) {
	rows, err := s.pool.Query(ctx, listPromotionsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	promos, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, fmt.Errorf("listing promotions: %w", err)
	}
	return promos, nil
}

// Active returns promotions with active status whose validity window
// contains now, ordered by priority.
func (s *PromotionStore) Active(ctx context.Context, now time.Time) ([]promotion.Promotion, error) {
	rows, err := s.pool.Query(ctx, activePromotionsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	promos, err := pgx.CollectRows(rows, scanPromotion)
	if err != nil {
		return nil, fmt.Errorf("listing active promotions: %w", err)
	}
	return promos, nil
}

// Get returns the promotion with the given id, or
// promotion.ErrPromotionNotFound.
func (s *PromotionStore) Get(ctx context.Context, id string) (*promotion.Promotion, error) {
	rows, err := s.pool.Query(ctx, getPromotionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}
	return &p, nil
}

// Create inserts the promotion, assigning an id and timestamps when absent.
func (s *PromotionStore) Create(ctx context.Context, p *promotion.Promotion) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := s.now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	args := insertArgs(p)
	if _, err := s.pool.Exec(ctx, insertPromotionSQL, args...); err != nil {
		if isUniqueViolation(err) {
			return promotion.ErrDuplicatePromotion
		}
		return fmt.Errorf("creating promotion %q: %w", p.ID, err)
	}
	return nil
}

// Update overwrites the stored promotion. CreatedAt is immutable; UpdatedAt
// is stamped here.
func (s *PromotionStore) Update(ctx context.Context, p *promotion.Promotion) error {
	p.UpdatedAt = s.now().UTC()

	var code *string
	usageLimit, usedCount, perCustomer := 0, 0, 0
	if p.PromoCode != nil {
		code = &p.PromoCode.Code
		usageLimit = p.PromoCode.UsageLimit
		usedCount = p.PromoCode.UsedCount
		perCustomer = p.PromoCode.PerCustomerLimit
	}

	tag, err := s.pool.Exec(ctx, updatePromotionSQL,
		p.ID, p.Name, p.Description, string(p.Type), string(p.Status),
		p.StartDate, p.EndDate, p.Priority,
		promotion.EncodeRules(p.Rules), promotion.EncodeConfig(p.Config),
		code, usageLimit, usedCount, perCustomer, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating promotion %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrPromotionNotFound
	}
	return nil
}

// Delete removes the promotion with the given id.
func (s *PromotionStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, deletePromotionSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrPromotionNotFound
	}
	return nil
}

// FindByCode resolves a promo code to its promotion. Codes attached directly
// to a promotion are checked first, then the bulk-generated batch codes; a
// batch hit returns the parent promotion with the matched code substituted,
// so the caller sees a uniform shape.
func (s *PromotionStore) FindByCode(ctx context.Context, code string) (*promotion.Promotion, error) {
	rows, err := s.pool.Query(ctx, findPromotionByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding promotion by code: %w", err)
	}
	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("finding promotion by code: %w", err)
	}

	var promotionID, matched string
	err = s.pool.QueryRow(ctx, findBatchCodeSQL, code).Scan(&promotionID, &matched)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("finding batch code: %w", err)
	}

	parent, err := s.Get(ctx, promotionID)
	if err != nil {
		return nil, err
	}
	if parent.PromoCode == nil {
		parent.PromoCode = &promotion.PromoCode{}
	}
	parent.PromoCode.Code = matched
	return parent, nil
}

// IncrementUses records one redemption of the promotion's promo code. The
// usage cap is enforced in the UPDATE itself so concurrent redemptions
// cannot exceed the limit.
func (s *PromotionStore) IncrementUses(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, incrementUsesSQL, id, s.now().UTC())
	if err != nil {
		return fmt.Errorf("incrementing uses for promotion %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// The guarded update matched nothing; find out why.
	var hasCode bool
	err = s.pool.QueryRow(ctx, classifyUsesSQL, id).Scan(&hasCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return promotion.ErrPromotionNotFound
		}
		return fmt.Errorf("incrementing uses for promotion %q: %w", id, err)
	}
	if !hasCode {
		return promotion.ErrNoPromoCode
	}
	return promotion.ErrUsageLimitReached
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func insertArgs(p *promotion.Promotion) []any {
	var code *string
	usageLimit, usedCount, perCustomer := 0, 0, 0
	if p.PromoCode != nil {
		code = &p.PromoCode.Code
		usageLimit = p.PromoCode.UsageLimit
		usedCount = p.PromoCode.UsedCount
		perCustomer = p.PromoCode.PerCustomerLimit
	}
	return []any{
		p.ID, p.Name, p.Description, string(p.Type), string(p.Status),
		p.StartDate, p.EndDate, p.Priority,
		promotion.EncodeRules(p.Rules), promotion.EncodeConfig(p.Config),
		code, usageLimit, usedCount, perCustomer,
		p.CreatedAt, p.UpdatedAt,
	}
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var (
		p           promotion.Promotion
		typ, status string
		rules       []byte
		config      []byte
		code        *string
		usageLimit  int32
		usedCount   int32
		perCustomer int32
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &typ, &status,
		&p.StartDate, &p.EndDate, &p.Priority, &rules, &config,
		&code, &usageLimit, &usedCount, &perCustomer,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return p, err
	}
	p.Type = promotion.Type(typ)
	p.Status = promotion.Status(status)

	if p.Rules, err = promotion.DecodeRules(rules); err != nil {
		return p, errors.Wrapf(err, "promotion %s: rules column", p.ID)
	}
	if p.Config, err = promotion.DecodeConfig(config); err != nil {
		return p, errors.Wrapf(err, "promotion %s: configuration column", p.ID)
	}
	if code != nil {
		p.PromoCode = &promotion.PromoCode{
			Code:             *code,
			UsageLimit:       int(usageLimit),
			UsedCount:        int(usedCount),
			PerCustomerLimit: int(perCustomer),
		}
	}
	return p, nil
}
