package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/overview/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindDailyStats(ctx context.Context, db *gorm.DB, venueID snowflake.ID, from, to string) ([]domain.DailyStat, error) {
	var stats []domain.DailyStat
	err := db.WithContext(ctx).
		Where("venue_id = ? AND date >= ? AND date <= ?", venueID, from, to).
		Order("date asc").
		Find(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repo) FindBookingFacts(ctx context.Context, db *gorm.DB, venueID snowflake.ID, from, to time.Time) ([]domain.BookingFact, error) {
	var facts []domain.BookingFact
	err := db.WithContext(ctx).
		Table("bookings").
		Select("status, diners, prime, fee_amount, platform_fee").
		Where("venue_id = ? AND booking_at >= ? AND booking_at < ?", venueID, from, to).
		Order("id asc").
		Find(&facts).Error
	if err != nil {
		return nil, err
	}
	return facts, nil
}
