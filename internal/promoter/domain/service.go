package domain

import (
	"context"
	"errors"

	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type CreatePromoterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Tier  string `json:"tier"`
}

type GetPromoterRequest struct {
	ID string
}

type ListPromoterRequest struct {
	Page   pagination.Pagination
	Tier   string
	Active *bool
}

type ListPromoterFilter struct {
	Tier   Tier
	Active *bool
}

// PromoterView is a promoter joined with its rollup stats.
type PromoterView struct {
	Promoter
	Stats          Stats   `json:"stats"`
	ConversionRate float64 `json:"conversion_rate"`
}

type ListPromoterResponse struct {
	pagination.PageInfo
	Promoters []PromoterView `json:"promoters"`
}

type ChangeTierRequest struct {
	ID   string
	Tier Tier `json:"tier"`
}

type SetActiveRequest struct {
	ID     string
	Active bool `json:"active"`
}

type Service interface {
	Create(context.Context, CreatePromoterRequest) (Promoter, error)
	GetByID(context.Context, GetPromoterRequest) (PromoterView, error)
	List(context.Context, ListPromoterRequest) (ListPromoterResponse, error)
	ChangeTier(context.Context, ChangeTierRequest) (Promoter, error)
	SetActive(context.Context, SetActiveRequest) (Promoter, error)
}

var (
	ErrInvalidVenue = errors.New("invalid_venue")
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidEmail = errors.New("invalid_email")
	ErrInvalidTier  = errors.New("invalid_tier")
	ErrEmailTaken   = errors.New("email_taken")
	ErrNotFound     = errors.New("not_found")
)
