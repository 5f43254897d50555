package mysql

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	ledgerDomain "cryptolend-backend/internal/domain/ledger"
)

type MutationRepository struct{ db *gorm.DB }

func NewMutationRepository(db *gorm.DB) *MutationRepository { return &MutationRepository{db: db} }

func (r *MutationRepository) Append(ctx context.Context, m *ledgerDomain.AccountMutation) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// Balance is the running sum of mutation amounts up to and including
// asOf. COALESCE keeps an empty account at zero rather than NULL.
func (r *MutationRepository) Balance(ctx context.Context, accountID string, asOf time.Time) (decimal.Decimal, error) {
	var raw string
	err := r.db.WithContext(ctx).
		Model(&ledgerDomain.AccountMutation{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("account_id = ? AND mutation_date <= ?", accountID, asOf).
		Scan(&raw).Error
	if err != nil {
		return decimal.Zero, err
	}
	if raw == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(raw)
}

func (r *MutationRepository) ListByAccount(ctx context.Context, accountID string, limit int) ([]ledgerDomain.AccountMutation, error) {
	var rows []ledgerDomain.AccountMutation
	q := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("mutation_date DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *MutationRepository) Accounts(ctx context.Context, accountIDs []string) ([]ledgerDomain.AccountRef, error) {
	var refs []ledgerDomain.AccountRef
	err := r.db.WithContext(ctx).
		Model(&ledgerDomain.AccountMutation{}).
		Select("DISTINCT account_id, blockchain_key, token_id").
		Where("account_id IN ?", accountIDs).
		Scan(&refs).Error
	if err != nil {
		return nil, err
	}
	return refs, nil
}
