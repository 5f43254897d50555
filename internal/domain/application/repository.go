package application

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("loan application not found")
	ErrInvalidAction = errors.New("invalid loan application action")
)

type ListFilter struct {
	Status Status
	Page   int
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, a *LoanApplication) error
	GetByApplicationID(ctx context.Context, applicationID string) (*LoanApplication, error)
	GetByApplicationIDForUpdate(ctx context.Context, applicationID string) (*LoanApplication, error)
	Save(ctx context.Context, a *LoanApplication) error
	List(ctx context.Context, f ListFilter) ([]LoanApplication, int64, error)
	ListExpirable(ctx context.Context, asOf time.Time) ([]LoanApplication, error)
}
