package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type createVenueRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	Capacity     int    `json:"capacity"`
	MinPartySize int    `json:"min_party_size"`
	MaxPartySize int    `json:"max_party_size"`
	Currency     string `json:"currency"`
	Timezone     string `json:"timezone"`
}

func (s *Server) CreateVenue(c *gin.Context) {
	var req createVenueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.venueSvc.Create(c.Request.Context(), venuedomain.CreateVenueRequest{
		Name:         strings.TrimSpace(req.Name),
		Type:         venuedomain.VenueType(strings.ToUpper(strings.TrimSpace(req.Type))),
		Capacity:     req.Capacity,
		MinPartySize: req.MinPartySize,
		MaxPartySize: req.MaxPartySize,
		Currency:     strings.TrimSpace(req.Currency),
		Timezone:     strings.TrimSpace(req.Timezone),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListVenues(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Type string `form:"type"`
		Name string `form:"name"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.venueSvc.List(c.Request.Context(), venuedomain.ListVenueRequest{
		Page: query.Pagination,
		Type: strings.TrimSpace(query.Type),
		Name: strings.TrimSpace(query.Name),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Venues, resp.PageInfo)
}

func (s *Server) GetVenueByID(c *gin.Context) {
	resp, err := s.venueSvc.GetByID(c.Request.Context(), venuedomain.GetVenueRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetVenuePricing(c *gin.Context) {
	resp, err := s.venueSvc.GetPricing(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type updatePricingRequest struct {
	PrimeFeePerCover    int64   `json:"prime_fee_per_cover"`
	NonPrimeFeePerCover int64   `json:"non_prime_fee_per_cover"`
	PlatformFeeRate     float64 `json:"platform_fee_rate"`
}

func (s *Server) UpdateVenuePricing(c *gin.Context) {
	var req updatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.venueSvc.UpdatePricing(c.Request.Context(), venuedomain.UpdatePricingRequest{
		VenueID:             strings.TrimSpace(c.Param("id")),
		PrimeFeePerCover:    req.PrimeFeePerCover,
		NonPrimeFeePerCover: req.NonPrimeFeePerCover,
		PlatformFeeRate:     req.PlatformFeeRate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
