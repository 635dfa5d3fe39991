package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	overviewdomain "github.com/primetable/partnerboard/internal/overview/domain"
)

// GetOverviewKPIs returns the KPI bundle for a date range. Defaults to the
// trailing 30 days when no range is given.
func (s *Server) GetOverviewKPIs(c *gin.Context) {
	var query struct {
		From string `form:"from"`
		To   string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	from, err := parseOptionalTime(query.From, false)
	if err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}
	to, err := parseOptionalTime(query.To, true)
	if err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	now := time.Now().UTC()
	if to == nil {
		to = &now
	}
	if from == nil {
		start := to.AddDate(0, 0, -30)
		from = &start
	}

	resp, err := s.overviewSvc.GetKPIs(c.Request.Context(), overviewdomain.GetKPIsRequest{
		From: *from,
		To:   *to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
