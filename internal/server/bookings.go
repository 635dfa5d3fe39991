package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type createBookingRequest struct {
	GuestName  string    `json:"guest_name"`
	GuestEmail string    `json:"guest_email"`
	Diners     int       `json:"diners"`
	Prime      bool      `json:"prime"`
	BookingAt  time.Time `json:"booking_at"`
	PromoterID string    `json:"promoter_id"`
}

func (s *Server) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.bookingSvc.Create(c.Request.Context(), bookingdomain.CreateBookingRequest{
		GuestName:  strings.TrimSpace(req.GuestName),
		GuestEmail: strings.TrimSpace(req.GuestEmail),
		Diners:     req.Diners,
		Prime:      req.Prime,
		BookingAt:  req.BookingAt,
		PromoterID: strings.TrimSpace(req.PromoterID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListBookings(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status     string `form:"status"`
		PromoterID string `form:"promoter_id"`
		Prime      string `form:"prime"`
		From       string `form:"from"`
		To         string `form:"to"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	prime, err := parseOptionalBool(query.Prime)
	if err != nil {
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

	resp, err := s.bookingSvc.List(c.Request.Context(), bookingdomain.ListBookingRequest{
		Page:       query.Pagination,
		Status:     strings.ToUpper(strings.TrimSpace(query.Status)),
		PromoterID: strings.TrimSpace(query.PromoterID),
		Prime:      prime,
		From:       from,
		To:         to,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respondPage(c, resp.Bookings, resp.PageInfo)
}

func (s *Server) GetBookingByID(c *gin.Context) {
	resp, err := s.bookingSvc.GetByID(c.Request.Context(), bookingdomain.GetBookingRequest{
		ID: strings.TrimSpace(c.Param("id")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type updateBookingStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (s *Server) UpdateBookingStatus(c *gin.Context) {
	var req updateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.bookingSvc.UpdateStatus(c.Request.Context(), bookingdomain.UpdateStatusRequest{
		ID:     strings.TrimSpace(c.Param("id")),
		Status: bookingdomain.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		Note:   strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type bulkUpdateStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
	Note   string   `json:"note"`
}

// BulkUpdateBookingStatus applies one transition across many bookings.
// The response always carries one outcome per requested ID, in order.
func (s *Server) BulkUpdateBookingStatus(c *gin.Context) {
	var req bulkUpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	resp, err := s.bookingSvc.BulkUpdateStatus(c.Request.Context(), bookingdomain.BulkUpdateStatusRequest{
		IDs:    req.IDs,
		Status: bookingdomain.Status(strings.ToUpper(strings.TrimSpace(req.Status))),
		Note:   strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}

type addBookingNoteRequest struct {
	Note string `json:"note"`
}

func (s *Server) AddBookingNote(c *gin.Context) {
	var req addBookingNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidBody)
		return
	}

	actor, _ := actorFromContext(c.Request.Context())
	resp, err := s.bookingSvc.AddNote(c.Request.Context(), bookingdomain.AddNoteRequest{
		BookingID: strings.TrimSpace(c.Param("id")),
		Author:    actor.subject(),
		Note:      strings.TrimSpace(req.Note),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusCreated, resp)
}

func (s *Server) ListBookingNotes(c *gin.Context) {
	resp, err := s.bookingSvc.ListNotes(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	respond(c, http.StatusOK, resp)
}
