package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	configDomain "cryptolend-backend/internal/domain/platformconfig"
)

type PlatformConfigRepository struct{ db *gorm.DB }

func NewPlatformConfigRepository(db *gorm.DB) *PlatformConfigRepository {
	return &PlatformConfigRepository{db: db}
}

// ResolveAsOf: latest row with effective_date <= asOf. The config table
// is an ordered log; rows are never updated in place.
func (r *PlatformConfigRepository) ResolveAsOf(ctx context.Context, asOf time.Time) (*configDomain.PlatformConfig, error) {
	var out configDomain.PlatformConfig
	res := r.db.WithContext(ctx).
		Where("effective_date <= ?", asOf).
		Order("effective_date DESC, id DESC").
		First(&out)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return nil, configDomain.ErrConfigNotFound
		}
		return nil, res.Error
	}
	return &out, nil
}

func (r *PlatformConfigRepository) Append(ctx context.Context, c *configDomain.PlatformConfig) error {
	return r.db.WithContext(ctx).Create(c).Error
}
