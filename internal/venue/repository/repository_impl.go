package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/venue/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, venue *domain.Venue) error {
	return db.WithContext(ctx).Create(venue).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Venue, error) {
	var venue domain.Venue
	err := db.WithContext(ctx).First(&venue, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Venue, error) {
	var venue domain.Venue
	err := db.WithContext(ctx).First(&venue, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &venue, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListVenueFilter, page pagination.Pagination) ([]*domain.Venue, int64, error) {
	stmt := db.WithContext(ctx).Model(&domain.Venue{})
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Name != "" {
		stmt = stmt.Where("name LIKE ?", "%"+filter.Name+"%")
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var venues []*domain.Venue
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&venues).Error
	if err != nil {
		return nil, 0, err
	}
	return venues, total, nil
}

func (r *repo) UpsertPricing(ctx context.Context, db *gorm.DB, pricing *domain.PricingConfig) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "venue_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"prime_fee_per_cover",
			"non_prime_fee_per_cover",
			"platform_fee_rate",
			"updated_at",
		}),
	}).Create(pricing).Error
}

func (r *repo) FindPricing(ctx context.Context, db *gorm.DB, venueID snowflake.ID) (*domain.PricingConfig, error) {
	var pricing domain.PricingConfig
	err := db.WithContext(ctx).First(&pricing, "venue_id = ?", venueID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pricing, nil
}
