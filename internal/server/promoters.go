package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type createPromoterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
	Tier  string `json:"tier"`
}

func (s *Server) CreatePromoter(c *gin.Context) {
	var req createPromoterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.promoterSvc.Create(c.Request.Context(), promoterdomain.CreatePromoterRequest{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.TrimSpace(req.Email),
		Phone: strings.TrimSpace(req.Phone),
		Tier:  strings.ToUpper(strings.TrimSpace(req.Tier)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListPromoters(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Tier   string `form:"tier"`
		Active string `form:"active"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	active, err := parseOptionalBool(query.Active)
	if err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.promoterSvc.List(c.Request.Context(), promoterdomain.ListPromoterRequest{
		Page:   query.Pagination,
		Tier:   strings.ToUpper(strings.TrimSpace(query.Tier)),
		Active: active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Promoters, resp.PageInfo)
}

func (s *Server) GetPromoterByID(c *gin.Context) {
	resp, err := s.promoterSvc.GetByID(c.Request.Context(), promoterdomain.GetPromoterRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type changeTierRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) ChangePromoterTier(c *gin.Context) {
	var req changeTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.promoterSvc.ChangeTier(c.Request.Context(), promoterdomain.ChangeTierRequest{
		ID:   strings.TrimSpace(c.Param("id")),
		Tier: promoterdomain.Tier(strings.ToUpper(strings.TrimSpace(req.Tier))),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type setActiveRequest struct {
	Active bool `json:"active"`
}

func (s *Server) SetPromoterActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.promoterSvc.SetActive(c.Request.Context(), promoterdomain.SetActiveRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Active: req.Active,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
