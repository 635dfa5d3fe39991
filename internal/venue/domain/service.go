package domain

import (
	"context"
	"errors"

	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type CreateVenueRequest struct {
	Name         string    `json:"name"`
	Type         VenueType `json:"type"`
	Capacity     int       `json:"capacity"`
	MinPartySize int       `json:"min_party_size"`
	MaxPartySize int       `json:"max_party_size"`
	Currency     string    `json:"currency"`
	Timezone     string    `json:"timezone"`
}

type GetVenueRequest struct {
	ID string
}

type ListVenueRequest struct {
	Page pagination.Pagination
	Type string
	Name string
}

type ListVenueFilter struct {
	Type string
	Name string
}

type ListVenueResponse struct {
	pagination.PageInfo
	Venues []Venue `json:"venues"`
}

type UpdatePricingRequest struct {
	VenueID             string
	PrimeFeePerCover    int64   `json:"prime_fee_per_cover"`
	NonPrimeFeePerCover int64   `json:"non_prime_fee_per_cover"`
	PlatformFeeRate     float64 `json:"platform_fee_rate"`
}

type Service interface {
	Create(context.Context, CreateVenueRequest) (Venue, error)
	List(context.Context, ListVenueRequest) (ListVenueResponse, error)
	GetByID(context.Context, GetVenueRequest) (Venue, error)
	GetPricing(ctx context.Context, venueID string) (PricingConfig, error)
	UpdatePricing(context.Context, UpdatePricingRequest) (PricingConfig, error)
}

var (
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidType      = errors.New("invalid_venue_type")
	ErrInvalidCapacity  = errors.New("invalid_capacity")
	ErrInvalidPartySize = errors.New("invalid_party_size")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidPricing   = errors.New("invalid_pricing")
	ErrSlugTaken        = errors.New("slug_taken")
	ErrNotFound         = errors.New("not_found")
	ErrPricingNotFound  = errors.New("pricing_not_found")
)
