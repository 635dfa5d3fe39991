package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type createIncentiveRequest struct {
	Name         string    `json:"name"`
	Metric       string    `json:"metric"`
	Threshold    int64     `json:"threshold"`
	RewardAmount int64     `json:"reward_amount"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
}

func (s *Server) CreateIncentive(c *gin.Context) {
	var req createIncentiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.incentiveSvc.Create(c.Request.Context(), incentivedomain.CreateProgramRequest{
		Name:         strings.TrimSpace(req.Name),
		Metric:       incentivedomain.Metric(strings.ToUpper(strings.TrimSpace(req.Metric))),
		Threshold:    req.Threshold,
		RewardAmount: req.RewardAmount,
		StartAt:      req.StartAt,
		EndAt:        req.EndAt,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListIncentives(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.incentiveSvc.List(c.Request.Context(), incentivedomain.ListProgramRequest{
		Page:   query.Pagination,
		Status: strings.ToUpper(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Programs, resp.PageInfo)
}

func (s *Server) GetIncentiveByID(c *gin.Context) {
	resp, err := s.incentiveSvc.GetByID(c.Request.Context(), incentivedomain.GetProgramRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ActivateIncentive(c *gin.Context) {
	resp, err := s.incentiveSvc.Activate(c.Request.Context(), incentivedomain.ActivateProgramRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) ListIncentiveProgress(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.incentiveSvc.ListProgress(c.Request.Context(), incentivedomain.ListProgressRequest{
		ProgramID: strings.TrimSpace(c.Param("id")),
		Page:      query.Pagination,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Progress, resp.PageInfo)
}
