package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type createCommissionRateRequest struct {
	Name      string  `json:"name"`
	Model     string  `json:"model"`
	RateValue float64 `json:"rate_value"`
}

func (s *Server) CreateCommissionRate(c *gin.Context) {
	var req createCommissionRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.commissionSvc.CreateRate(c.Request.Context(), commissiondomain.CreateRateRequest{
		Name:      strings.TrimSpace(req.Name),
		Model:     commissiondomain.Model(strings.ToUpper(strings.TrimSpace(req.Model))),
		RateValue: req.RateValue,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListCommissionRates(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.commissionSvc.ListRates(c.Request.Context(), commissiondomain.ListRateRequest{
		Page: query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Rates, resp.PageInfo)
}

type createAssignmentRequest struct {
	PromoterID    string     `json:"promoter_id"`
	RateID        string     `json:"rate_id"`
	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to"`
}

func (s *Server) CreateCommissionAssignment(c *gin.Context) {
	var req createAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.commissionSvc.Assign(c.Request.Context(), commissiondomain.AssignRequest{
		PromoterID:    strings.TrimSpace(req.PromoterID),
		RateID:        strings.TrimSpace(req.RateID),
		EffectiveFrom: req.EffectiveFrom,
		EffectiveTo:   req.EffectiveTo,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListCommissionAssignments(c *gin.Context) {
	var query struct {
		pagination.Pagination
		PromoterID string `form:"promoter_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.commissionSvc.ListAssignments(c.Request.Context(), commissiondomain.ListAssignmentRequest{
		Page:       query.Pagination,
		PromoterID: strings.TrimSpace(query.PromoterID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Assignments, resp.PageInfo)
}

func (s *Server) CloseCommissionAssignment(c *gin.Context) {
	resp, err := s.commissionSvc.CloseAssignment(c.Request.Context(), commissiondomain.CloseAssignmentRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
