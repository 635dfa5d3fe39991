package domain

import (
	"context"
	"errors"
	"time"

	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type CreateRateRequest struct {
	Name      string  `json:"name"`
	Model     Model   `json:"model"`
	RateValue float64 `json:"rate_value"`
}

type ListRateRequest struct {
	Page pagination.Pagination
}

type ListRateResponse struct {
	pagination.PageInfo
	Rates []Rate `json:"rates"`
}

type AssignRequest struct {
	PromoterID    string     `json:"promoter_id"`
	RateID        string     `json:"rate_id"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
}

type CloseAssignmentRequest struct {
	ID string
}

type ListAssignmentRequest struct {
	Page       pagination.Pagination
	PromoterID string
}

type ListAssignmentFilter struct {
	PromoterID string
}

type ListAssignmentResponse struct {
	pagination.PageInfo
	Assignments []Assignment `json:"assignments"`
}

// ResolvedRate is the rate governing a promoter at an instant.
type ResolvedRate struct {
	Assignment Assignment `json:"assignment"`
	Rate       Rate       `json:"rate"`
}

type Service interface {
	CreateRate(context.Context, CreateRateRequest) (Rate, error)
	ListRates(context.Context, ListRateRequest) (ListRateResponse, error)
	Assign(context.Context, AssignRequest) (Assignment, error)
	CloseAssignment(context.Context, CloseAssignmentRequest) (Assignment, error)
	ListAssignments(context.Context, ListAssignmentRequest) (ListAssignmentResponse, error)

	// ResolveRate returns the rate active for a promoter at the given
	// instant, or ErrNoActiveAssignment.
	ResolveRate(ctx context.Context, promoterID string, at time.Time) (ResolvedRate, error)
}

var (
	ErrInvalidVenue       = errors.New("invalid_venue")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidModel       = errors.New("invalid_model")
	ErrInvalidRateValue   = errors.New("invalid_rate_value")
	ErrInvalidWindow      = errors.New("invalid_window")
	ErrOverlappingWindow  = errors.New("overlapping_assignment")
	ErrNoActiveAssignment = errors.New("no_active_assignment")
	ErrRateNotFound       = errors.New("rate_not_found")
	ErrNotFound           = errors.New("not_found")
)
