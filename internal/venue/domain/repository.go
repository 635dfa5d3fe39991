package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, venue *Venue) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Venue, error)
	FindBySlug(ctx context.Context, db *gorm.DB, slug string) (*Venue, error)
	List(ctx context.Context, db *gorm.DB, filter ListVenueFilter, page pagination.Pagination) ([]*Venue, int64, error)

	UpsertPricing(ctx context.Context, db *gorm.DB, pricing *PricingConfig) error
	FindPricing(ctx context.Context, db *gorm.DB, venueID snowflake.ID) (*PricingConfig, error)
}
