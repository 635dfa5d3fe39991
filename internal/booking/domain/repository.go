package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, booking *Booking) error
	FindByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*Booking, error)
	List(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter ListBookingFilter, page pagination.Pagination) ([]*Booking, int64, error)

	// UpdateStatusCAS flips the status only when the current status still
	// matches from. Returns false when another writer got there first.
	UpdateStatusCAS(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, from, to Status, at time.Time) (bool, error)

	FindStalePending(ctx context.Context, db *gorm.DB, before time.Time, limit int) ([]*Booking, error)

	InsertNote(ctx context.Context, db *gorm.DB, note *BookingNote) error
	ListNotes(ctx context.Context, db *gorm.DB, venueID, bookingID snowflake.ID) ([]BookingNote, error)
}
