package offer

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("loan offer not found")

// ListFilter narrows List; zero values mean "no filter". Page and Limit
// are assumed already clamped by the caller.
type ListFilter struct {
	Status Status
	Page   int
	Limit  int
}

type Repository interface {
	Create(ctx context.Context, o *LoanOffer) error
	GetByOfferID(ctx context.Context, offerID string) (*LoanOffer, error)
	// GetByOfferIDForUpdate locks the row for the remainder of the
	// enclosing transaction.
	GetByOfferIDForUpdate(ctx context.Context, offerID string) (*LoanOffer, error)
	Save(ctx context.Context, o *LoanOffer) error
	// List returns a page ordered by created_date descending, plus the
	// unpaged total.
	List(ctx context.Context, f ListFilter) ([]LoanOffer, int64, error)
	// ListExpirable returns non-terminal offers whose expiration_date has
	// passed as of the given instant.
	ListExpirable(ctx context.Context, asOf time.Time) ([]LoanOffer, error)
}
