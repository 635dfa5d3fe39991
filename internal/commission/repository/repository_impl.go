package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/commission/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertRate(ctx context.Context, db *gorm.DB, rate *domain.Rate) error {
	return db.WithContext(ctx).Create(rate).Error
}

func (r *repo) FindRateByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*domain.Rate, error) {
	var rate domain.Rate
	err := db.WithContext(ctx).First(&rate, "venue_id = ? AND id = ?", venueID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repo) ListRates(ctx context.Context, db *gorm.DB, venueID snowflake.ID, page pagination.Pagination) ([]*domain.Rate, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Rate{}).
		Where("venue_id = ?", venueID)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rates []*domain.Rate
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&rates).Error
	if err != nil {
		return nil, 0, err
	}
	return rates, total, nil
}

func (r *repo) InsertAssignment(ctx context.Context, db *gorm.DB, assignment *domain.Assignment) error {
	return db.WithContext(ctx).Create(assignment).Error
}

func (r *repo) CloseAssignment(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("venue_id = ? AND id = ?", venueID, id).
		Update("effective_to", at).Error
}

func (r *repo) FindAssignmentsForPromoter(ctx context.Context, db *gorm.DB, venueID, promoterID snowflake.ID) ([]domain.Assignment, error) {
	var assignments []domain.Assignment
	err := db.WithContext(ctx).
		Where("venue_id = ? AND promoter_id = ?", venueID, promoterID).
		Order("effective_from asc").
		Find(&assignments).Error
	if err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *repo) FindActiveAssignment(ctx context.Context, db *gorm.DB, venueID, promoterID snowflake.ID, at time.Time) (*domain.Assignment, error) {
	var assignment domain.Assignment
	err := db.WithContext(ctx).
		Where("venue_id = ? AND promoter_id = ? AND effective_from <= ? AND (effective_to IS NULL OR effective_to > ?)",
			venueID, promoterID, at, at).
		Order("effective_from desc").
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repo) ListAssignments(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter domain.ListAssignmentFilter, page pagination.Pagination) ([]*domain.Assignment, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Assignment{}).
		Where("venue_id = ?", venueID)
	if filter.PromoterID != "" {
		stmt = stmt.Where("promoter_id = ?", filter.PromoterID)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var assignments []*domain.Assignment
	err := page.Apply(stmt).
		Order("effective_from desc, id desc").
		Find(&assignments).Error
	if err != nil {
		return nil, 0, err
	}
	return assignments, total, nil
}
