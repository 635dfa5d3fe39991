package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, promoter *Promoter) error
	FindByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*Promoter, error)
	FindByEmail(ctx context.Context, db *gorm.DB, venueID snowflake.ID, email string) (*Promoter, error)
	List(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter ListPromoterFilter, page pagination.Pagination) ([]*Promoter, int64, error)
	UpdateTier(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, tier Tier, at time.Time) error
	SetActive(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, active bool, at time.Time) error

	FindStats(ctx context.Context, db *gorm.DB, venueID snowflake.ID, promoterIDs []snowflake.ID) (map[snowflake.ID]Stats, error)
}
