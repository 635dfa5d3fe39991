package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, promoter *domain.Promoter) error {
	return db.WithContext(ctx).Create(promoter).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*domain.Promoter, error) {
	var promoter domain.Promoter
	err := db.WithContext(ctx).First(&promoter, "venue_id = ? AND id = ?", venueID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promoter, nil
}

func (r *repo) FindByEmail(ctx context.Context, db *gorm.DB, venueID snowflake.ID, email string) (*domain.Promoter, error) {
	var promoter domain.Promoter
	err := db.WithContext(ctx).First(&promoter, "venue_id = ? AND email = ?", venueID, email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &promoter, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter domain.ListPromoterFilter, page pagination.Pagination) ([]*domain.Promoter, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Promoter{}).
		Where("venue_id = ?", venueID)
	if filter.Tier != "" {
		stmt = stmt.Where("tier = ?", filter.Tier)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var promoters []*domain.Promoter
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&promoters).Error
	if err != nil {
		return nil, 0, err
	}
	return promoters, total, nil
}

func (r *repo) UpdateTier(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, tier domain.Tier, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Promoter{}).
		Where("venue_id = ? AND id = ?", venueID, id).
		Updates(map[string]any{"tier": tier, "updated_at": at}).Error
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, active bool, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Promoter{}).
		Where("venue_id = ? AND id = ?", venueID, id).
		Updates(map[string]any{"active": active, "updated_at": at}).Error
}

func (r *repo) FindStats(ctx context.Context, db *gorm.DB, venueID snowflake.ID, promoterIDs []snowflake.ID) (map[snowflake.ID]domain.Stats, error) {
	out := make(map[snowflake.ID]domain.Stats, len(promoterIDs))
	if len(promoterIDs) == 0 {
		return out, nil
	}

	var rows []domain.Stats
	err := db.WithContext(ctx).
		Where("venue_id = ? AND promoter_id IN ?", venueID, promoterIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.PromoterID] = row
	}
	return out, nil
}
