package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/primetable/partnerboard/internal/mockgen"
)

type regenerateDatasetRequest struct {
	Seed             int64   `json:"seed"`
	Days             int     `json:"days"`
	AvgDailyBookings float64 `json:"avg_daily_bookings"`
}

// RegenerateDemoDataset rebuilds the seeded demo dataset. The same seed
// always produces the same dataset, so demos are reproducible.
func (s *Server) RegenerateDemoDataset(c *gin.Context) {
	if s.generator == nil {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req regenerateDatasetRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			AbortWithError(c, ErrInvalidBody)
			return
		}
	}

	summary, err := s.generator.Generate(c.Request.Context(), mockgen.GenerateRequest{
		Seed:             req.Seed,
		Days:             req.Days,
		AvgDailyBookings: req.AvgDailyBookings,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, summary)
}
