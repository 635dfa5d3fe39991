package server

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
)

func (s *Server) ListTransactions(c *gin.Context) {
	var query struct {
		pagination.Pagination
		PromoterID string `form:"promoter_id"`
		Type       string `form:"type"`
		From       string `form:"from"`
		To         string `form:"to"`
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

	resp, err := s.financeSvc.ListTransactions(c.Request.Context(), financedomain.ListTransactionRequest{
		Page:       query.Pagination,
		PromoterID: strings.TrimSpace(query.PromoterID),
		Type:       strings.ToUpper(strings.TrimSpace(query.Type)),
		From:       from,
		To:         to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Transactions, resp.PageInfo)
}

type generatePayoutsRequest struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

func (s *Server) GeneratePayouts(c *gin.Context) {
	var req generatePayoutsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.financeSvc.GeneratePayouts(c.Request.Context(), financedomain.GeneratePayoutsRequest{
		PeriodStart: req.PeriodStart,
		PeriodEnd:   req.PeriodEnd,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListPayouts(c *gin.Context) {
	var query struct {
		pagination.Pagination
		PromoterID string `form:"promoter_id"`
		Status     string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.financeSvc.ListPayouts(c.Request.Context(), financedomain.ListPayoutRequest{
		Page:       query.Pagination,
		PromoterID: strings.TrimSpace(query.PromoterID),
		Status:     strings.ToUpper(strings.TrimSpace(query.Status)),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Payouts, resp.PageInfo)
}

func (s *Server) GetPayoutByID(c *gin.Context) {
	resp, err := s.financeSvc.GetPayout(c.Request.Context(), financedomain.GetPayoutRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

func (s *Server) GetPayoutStatement(c *gin.Context) {
	reader, err := s.financeSvc.Statement(c.Request.Context(), financedomain.StatementRequest{
		PayoutID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	document, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="payout-statement.pdf"`)
	c.Data(http.StatusOK, "application/pdf", document)
}

func (s *Server) MarkPayoutPaid(c *gin.Context) {
	resp, err := s.financeSvc.MarkPaid(c.Request.Context(), financedomain.MarkPaidRequest{
		PayoutID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type placeHoldRequest struct {
	Amount int64  `json:"amount"`
	Reason string `json:"reason"`
}

func (s *Server) PlacePayoutHold(c *gin.Context) {
	var req placeHoldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.financeSvc.PlaceHold(c.Request.Context(), financedomain.PlaceHoldRequest{
		PayoutID: strings.TrimSpace(c.Param("id")),
		Amount:   req.Amount,
		Reason:   strings.TrimSpace(req.Reason),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ReleasePayoutHold(c *gin.Context) {
	resp, err := s.financeSvc.ReleaseHold(c.Request.Context(), financedomain.ReleaseHoldRequest{
		HoldID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
