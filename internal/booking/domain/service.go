package domain

import (
	"context"
	"errors"
	"time"

	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type CreateBookingRequest struct {
	GuestName  string    `json:"guest_name"`
	GuestEmail string    `json:"guest_email"`
	Diners     int       `json:"diners"`
	Prime      bool      `json:"prime"`
	BookingAt  time.Time `json:"booking_at"`
	PromoterID string    `json:"promoter_id"`
}

type GetBookingRequest struct {
	ID string
}

type ListBookingRequest struct {
	Page       pagination.Pagination
	Status     string
	PromoterID string
	Prime      *bool
	From       *time.Time
	To         *time.Time
}

type ListBookingFilter struct {
	Status     Status
	PromoterID string
	Prime      *bool
	From       *time.Time
	To         *time.Time
}

type ListBookingResponse struct {
	pagination.PageInfo
	Bookings []Booking `json:"bookings"`
}

type UpdateStatusRequest struct {
	ID     string
	Status Status `json:"status"`
	Note   string `json:"note"`
}

type BulkUpdateStatusRequest struct {
	IDs    []string `json:"ids"`
	Status Status   `json:"status"`
	Note   string   `json:"note"`
}

// BulkOutcome reports the result for a single booking in a bulk status
// update. Bulk updates are not atomic across bookings: each ID succeeds
// or fails on its own.
type BulkOutcome struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type BulkUpdateStatusResponse struct {
	Updated  int           `json:"updated"`
	Failed   int           `json:"failed"`
	Outcomes []BulkOutcome `json:"outcomes"`
}

type AddNoteRequest struct {
	BookingID string
	Author    string `json:"author"`
	Note      string `json:"note"`
}

type Service interface {
	Create(context.Context, CreateBookingRequest) (Booking, error)
	GetByID(context.Context, GetBookingRequest) (Booking, error)
	List(context.Context, ListBookingRequest) (ListBookingResponse, error)
	UpdateStatus(context.Context, UpdateStatusRequest) (Booking, error)
	BulkUpdateStatus(context.Context, BulkUpdateStatusRequest) (BulkUpdateStatusResponse, error)
	AddNote(context.Context, AddNoteRequest) (BookingNote, error)
	ListNotes(ctx context.Context, bookingID string) ([]BookingNote, error)

	// ExpireStalePending cancels PENDING bookings whose slot passed more
	// than the grace period ago. Used by the scheduler.
	ExpireStalePending(ctx context.Context, grace time.Duration) (int, error)
}

var (
	ErrInvalidVenue      = errors.New("invalid_venue")
	ErrInvalidID         = errors.New("invalid_id")
	ErrInvalidGuestName  = errors.New("invalid_guest_name")
	ErrInvalidDiners     = errors.New("invalid_diners")
	ErrInvalidBookingAt  = errors.New("invalid_booking_at")
	ErrInvalidStatus     = errors.New("invalid_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrInvalidNote       = errors.New("invalid_note")
	ErrEmptyBulkRequest  = errors.New("empty_bulk_request")
	ErrBulkTooLarge      = errors.New("bulk_too_large")
	ErrPromoterNotFound  = errors.New("promoter_not_found")
	ErrPricingNotFound   = errors.New("pricing_not_found")
	ErrNotFound          = errors.New("not_found")
	ErrConflict          = errors.New("conflict")
)
