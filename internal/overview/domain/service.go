package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type GetKPIsRequest struct {
	From time.Time
	To   time.Time
}

type GetKPIsResponse struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Report Report    `json:"report"`
}

type Repository interface {
	FindDailyStats(ctx context.Context, db *gorm.DB, venueID snowflake.ID, from, to string) ([]DailyStat, error)
	FindBookingFacts(ctx context.Context, db *gorm.DB, venueID snowflake.ID, from, to time.Time) ([]BookingFact, error)
}

type Service interface {
	GetKPIs(context.Context, GetKPIsRequest) (GetKPIsResponse, error)
}

var (
	ErrInvalidVenue = errors.New("invalid_venue")
	ErrInvalidRange = errors.New("invalid_range")
)
