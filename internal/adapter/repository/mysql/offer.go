package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	offerDomain "cryptolend-backend/internal/domain/offer"
	"cryptolend-backend/pkg/paging"
)

type OfferRepository struct{ db *gorm.DB }

func NewOfferRepository(db *gorm.DB) *OfferRepository { return &OfferRepository{db: db} }

func (r *OfferRepository) Create(ctx context.Context, o *offerDomain.LoanOffer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *OfferRepository) GetByOfferID(ctx context.Context, offerID string) (*offerDomain.LoanOffer, error) {
	var out offerDomain.LoanOffer
	res := r.db.WithContext(ctx).Where("loan_offer_id = ?", offerID).First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, offerDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *OfferRepository) GetByOfferIDForUpdate(ctx context.Context, offerID string) (*offerDomain.LoanOffer, error) {
	var out offerDomain.LoanOffer
	res := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("loan_offer_id = ?", offerID).
		First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, offerDomain.ErrNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *OfferRepository) Save(ctx context.Context, o *offerDomain.LoanOffer) error {
	return r.db.WithContext(ctx).Save(o).Error
}

func (r *OfferRepository) List(ctx context.Context, f offerDomain.ListFilter) ([]offerDomain.LoanOffer, int64, error) {
	q := r.db.WithContext(ctx).Model(&offerDomain.LoanOffer{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []offerDomain.LoanOffer
	err := q.Order("created_date DESC, id DESC").
		Offset(paging.Offset(f.Page, f.Limit)).
		Limit(f.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *OfferRepository) ListExpirable(ctx context.Context, asOf time.Time) ([]offerDomain.LoanOffer, error) {
	var rows []offerDomain.LoanOffer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status IN ? AND expiration_date < ?",
			[]offerDomain.Status{offerDomain.StatusFunding, offerDomain.StatusPublished}, asOf).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
