package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, booking *domain.Booking) error {
	return db.WithContext(ctx).Create(booking).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*domain.Booking, error) {
	var booking domain.Booking
	err := db.WithContext(ctx).First(&booking, "venue_id = ? AND id = ?", venueID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter domain.ListBookingFilter, page pagination.Pagination) ([]*domain.Booking, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("venue_id = ?", venueID)
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.PromoterID != "" {
		stmt = stmt.Where("promoter_id = ?", filter.PromoterID)
	}
	if filter.Prime != nil {
		stmt = stmt.Where("prime = ?", *filter.Prime)
	}
	if filter.From != nil {
		stmt = stmt.Where("booking_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("booking_at < ?", *filter.To)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []*domain.Booking
	err := page.Apply(stmt).
		Order("booking_at desc, id desc").
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *repo) UpdateStatusCAS(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, from, to domain.Status, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("venue_id = ? AND id = ? AND status = ?", venueID, id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repo) FindStalePending(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*domain.Booking, error) {
	var bookings []*domain.Booking
	err := db.WithContext(ctx).
		Where("status = ? AND booking_at < ?", domain.StatusPending, before).
		Order("booking_at asc").
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repo) InsertNote(ctx context.Context, db *gorm.DB, note *domain.BookingNote) error {
	return db.WithContext(ctx).Create(note).Error
}

func (r *repo) ListNotes(ctx context.Context, db *gorm.DB, venueID, bookingID snowflake.ID) ([]domain.BookingNote, error) {
	var notes []domain.BookingNote
	err := db.WithContext(ctx).
		Where("venue_id = ? AND booking_id = ?", venueID, bookingID).
		Order("created_at asc, id asc").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}
