package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertProgram(ctx context.Context, db *gorm.DB, program *Program) error
	FindProgramByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*Program, error)
	ListPrograms(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter ListProgramFilter, page pagination.Pagination) ([]*Program, int64, error)
	UpdateProgramStatus(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, from, to ProgramStatus, at time.Time) (bool, error)

	// FindActivePrograms returns ACTIVE programs across venues whose
	// window covers the instant. Used by the rollup pipeline.
	FindActivePrograms(ctx context.Context, db *gorm.DB, venueID snowflake.ID, at time.Time) ([]Program, error)
	// FindExpiredActive returns ACTIVE programs whose window has closed.
	FindExpiredActive(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]Program, error)

	FindProgress(ctx context.Context, db *gorm.DB, programID, promoterID snowflake.ID) (*Progress, error)
	ListProgress(ctx context.Context, db *gorm.DB, venueID, programID snowflake.ID, page pagination.Pagination) ([]*Progress, int64, error)
	SaveProgress(ctx context.Context, db *gorm.DB, progress *Progress) error
}
