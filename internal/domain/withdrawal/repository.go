package withdrawal

import (
	"context"
	"errors"
)

var (
	ErrNotFound       = errors.New("withdrawal not found")
	ErrRefundDecided  = errors.New("withdrawal refund already decided")
	ErrNotRefundable  = errors.New("withdrawal is not in a refundable state")
)

type ListFilter struct {
	UserID string
	Status Status
	Page   int
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, w *Withdrawal) error
	GetByWithdrawalID(ctx context.Context, withdrawalID string) (*Withdrawal, error)
	GetByWithdrawalIDForUpdate(ctx context.Context, withdrawalID string) (*Withdrawal, error)
	Save(ctx context.Context, w *Withdrawal) error
	List(ctx context.Context, f ListFilter) ([]Withdrawal, int64, error)
}
