package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertRate(ctx context.Context, db *gorm.DB, rate *Rate) error
	FindRateByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*Rate, error)
	ListRates(ctx context.Context, db *gorm.DB, venueID snowflake.ID, page pagination.Pagination) ([]*Rate, int64, error)

	InsertAssignment(ctx context.Context, db *gorm.DB, assignment *Assignment) error
	CloseAssignment(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, at time.Time) error
	FindAssignmentsForPromoter(ctx context.Context, db *gorm.DB, venueID, promoterID snowflake.ID) ([]Assignment, error)
	FindActiveAssignment(ctx context.Context, db *gorm.DB, venueID, promoterID snowflake.ID, at time.Time) (*Assignment, error)
	ListAssignments(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter ListAssignmentFilter, page pagination.Pagination) ([]*Assignment, int64, error)
}
