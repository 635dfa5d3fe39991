package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/incentive/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertProgram(ctx context.Context, db *gorm.DB, program *domain.Program) error {
	return db.WithContext(ctx).Create(program).Error
}

func (r *repo) FindProgramByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*domain.Program, error) {
	var program domain.Program
	err := db.WithContext(ctx).First(&program, "venue_id = ? AND id = ?", venueID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &program, nil
}

func (r *repo) ListPrograms(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter domain.ListProgramFilter, page pagination.Pagination) ([]*domain.Program, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Program{}).
		Where("venue_id = ?", venueID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var programs []*domain.Program
	err := page.Apply(stmt).
		Order("start_at desc, id desc").
		Find(&programs).Error
	if err != nil {
		return nil, 0, err
	}
	return programs, total, nil
}

func (r *repo) UpdateProgramStatus(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, from, to domain.ProgramStatus, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Program{}).
		Where("venue_id = ? AND id = ? AND status = ?", venueID, id, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) FindActivePrograms(ctx context.Context, db *gorm.DB, venueID snowflake.ID, at time.Time) ([]domain.Program, error) {
	var programs []domain.Program
	err := db.WithContext(ctx).
		Where("venue_id = ? AND status = ? AND start_at <= ? AND end_at > ?",
			venueID, domain.ProgramActive, at, at).
		Find(&programs).Error
	if err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *repo) FindExpiredActive(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]domain.Program, error) {
	var programs []domain.Program
	err := db.WithContext(ctx).
		Where("status = ? AND end_at <= ?", domain.ProgramActive, before).
		Order("end_at asc").
		Limit(limit).
		Find(&programs).Error
	if err != nil {
		return nil, err
	}
	return programs, nil
}

func (r *repo) FindProgress(ctx context.Context, db *gorm.DB, programID, promoterID snowflake.ID) (*domain.Progress, error) {
	var progress domain.Progress
	err := db.WithContext(ctx).First(&progress, "program_id = ? AND promoter_id = ?", programID, promoterID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (r *repo) ListProgress(ctx context.Context, db *gorm.DB, venueID, programID snowflake.ID, page pagination.Pagination) ([]*domain.Progress, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Progress{}).
		Where("venue_id = ? AND program_id = ?", venueID, programID)

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var progress []*domain.Progress
	err := page.Apply(stmt).
		Order("current desc, id asc").
		Find(&progress).Error
	if err != nil {
		return nil, 0, err
	}
	return progress, total, nil
}

func (r *repo) SaveProgress(ctx context.Context, db *gorm.DB, progress *domain.Progress) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "program_id"}, {Name: "promoter_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current",
			"attained",
			"attained_at",
			"updated_at",
		}),
	}).Create(progress).Error
}
