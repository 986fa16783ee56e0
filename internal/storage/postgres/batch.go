package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertBatchSQL = `INSERT INTO promo_code_batches (id, promotion_id, source, created_at)
		VALUES ($1, $2, $3, $4)`

	countBatchCodesSQL = `SELECT COUNT(*) FROM promo_batch_codes WHERE batch_id = $1`
)

// BatchStore persists bulk-generated promo code pools. A batch groups the
// codes loaded from one source file and ties them to a promotion; any code
// in the batch then validates as that promotion's code.
type BatchStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewBatchStore returns a BatchStore that uses the given pool.
func NewBatchStore(pool *pgxpool.Pool) *BatchStore {
	return &BatchStore{pool: pool, now: time.Now}
}

// CreateBatch registers a new code batch for the promotion and returns the
// batch id.
func (s *BatchStore) CreateBatch(ctx context.Context, promotionID, source string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, insertBatchSQL, id, promotionID, source, s.now().UTC())
	if err != nil {
		return "", fmt.Errorf("creating code batch for promotion %q: %w", promotionID, err)
	}
	return id, nil
}

// CopyCodes bulk-inserts codes into the batch using the COPY protocol and
// returns the number of rows written. Duplicate codes fail the whole copy;
// the caller is expected to deduplicate first.
func (s *BatchStore) CopyCodes(ctx context.Context, batchID string, codes []string) (int64, error) {
	rows := make([][]any, len(codes))
	for i, code := range codes {
		rows[i] = []any{code, batchID}
	}

	n, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"promo_batch_codes"},
		[]string{"code", "batch_id"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return n, fmt.Errorf("copying %d codes into batch %q: %w", len(codes), batchID, err)
	}
	return n, nil
}

// CountCodes returns how many codes a batch holds.
func (s *BatchStore) CountCodes(ctx context.Context, batchID string) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, countBatchCodesSQL, batchID).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting codes in batch %q: %w", batchID, err)
	}
	return n, nil
}
