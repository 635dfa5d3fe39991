package service

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/events"
	"github.com/primetable/partnerboard/internal/observability/metrics"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const maxBulkSize = 100

// statusEvents maps a target status to the event type emitted when a
// booking reaches it.
var statusEvents = map[domain.Status]string{
	domain.StatusConfirmed: events.EventBookingConfirmed,
	domain.StatusCancelled: events.EventBookingCancelled,
	domain.StatusCompleted: events.EventBookingCompleted,
	domain.StatusNoShow:    events.EventBookingNoShow,
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Metrics      *metrics.Metrics
	Repo         domain.Repository
	VenueRepo    venuedomain.Repository
	PromoterRepo promoterdomain.Repository
	Audit        auditdomain.Service
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	metrics      *metrics.Metrics
	repo         domain.Repository
	venueRepo    venuedomain.Repository
	promoterRepo promoterdomain.Repository
	audit        auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("booking.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		metrics:      p.Metrics,
		repo:         p.Repo,
		venueRepo:    p.VenueRepo,
		promoterRepo: p.PromoterRepo,
		audit:        p.Audit,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBookingRequest) (domain.Booking, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Booking{}, domain.ErrInvalidVenue
	}

	guestName := strings.TrimSpace(req.GuestName)
	if guestName == "" {
		return domain.Booking{}, domain.ErrInvalidGuestName
	}
	if req.BookingAt.IsZero() {
		return domain.Booking{}, domain.ErrInvalidBookingAt
	}

	venue, err := s.venueRepo.FindByID(ctx, s.db, venueID)
	if err != nil {
		return domain.Booking{}, err
	}
	if venue == nil {
		return domain.Booking{}, domain.ErrInvalidVenue
	}
	if req.Diners < venue.MinPartySize || req.Diners > venue.MaxPartySize {
		return domain.Booking{}, domain.ErrInvalidDiners
	}

	pricing, err := s.venueRepo.FindPricing(ctx, s.db, venueID)
	if err != nil {
		return domain.Booking{}, err
	}
	if pricing == nil {
		return domain.Booking{}, domain.ErrPricingNotFound
	}

	var promoterID *snowflake.ID
	if raw := strings.TrimSpace(req.PromoterID); raw != "" {
		id, parseErr := snowflake.ParseString(raw)
		if parseErr != nil || id == 0 {
			return domain.Booking{}, domain.ErrInvalidID
		}
		promoter, findErr := s.promoterRepo.FindByID(ctx, s.db, venueID, id)
		if findErr != nil {
			return domain.Booking{}, findErr
		}
		if promoter == nil {
			return domain.Booking{}, domain.ErrPromoterNotFound
		}
		promoterID = &id
	}

	perCover := pricing.NonPrimeFeePerCover
	if req.Prime {
		perCover = pricing.PrimeFeePerCover
	}
	feeAmount := int64(req.Diners) * perCover
	platformFee := roundCents(float64(feeAmount) * pricing.PlatformFeeRate)

	now := s.clock.Now().UTC()
	booking := domain.Booking{
		ID:          s.genID.Generate(),
		VenueID:     venueID,
		PromoterID:  promoterID,
		GuestName:   guestName,
		GuestEmail:  strings.TrimSpace(req.GuestEmail),
		Diners:      req.Diners,
		Prime:       req.Prime,
		BookingAt:   req.BookingAt.UTC(),
		Status:      domain.StatusPending,
		FeeAmount:   feeAmount,
		PlatformFee: platformFee,
		Currency:    venue.Currency,
		Metadata:    datatypes.JSONMap{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &booking); err != nil {
			return err
		}
		return events.Emit(ctx, tx, s.genID.Generate(), venueID, events.EventBookingCreated, eventPayload(&booking), now)
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.metrics.RecordBookingEvent(ctx, events.EventBookingCreated)
	s.log.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("venue_id", venueID.String()),
		zap.Int("diners", booking.Diners),
		zap.Bool("prime", booking.Prime),
	)
	return booking, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetBookingRequest) (domain.Booking, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Booking{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Booking{}, err
	}

	booking, err := s.repo.FindByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.Booking{}, err
	}
	if booking == nil {
		return domain.Booking{}, domain.ErrNotFound
	}
	return *booking, nil
}

func (s *Service) List(ctx context.Context, req domain.ListBookingRequest) (domain.ListBookingResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListBookingResponse{}, domain.ErrInvalidVenue
	}

	filter := domain.ListBookingFilter{
		PromoterID: strings.TrimSpace(req.PromoterID),
		Prime:      req.Prime,
		From:       req.From,
		To:         req.To,
	}
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		status := domain.Status(raw)
		if !status.Valid() {
			return domain.ListBookingResponse{}, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.List(ctx, s.db, venueID, filter, page)
	if err != nil {
		return domain.ListBookingResponse{}, err
	}

	bookings := make([]domain.Booking, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		bookings = append(bookings, *item)
	}

	return domain.ListBookingResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Bookings: bookings,
	}, nil
}

func (s *Service) UpdateStatus(ctx context.Context, req domain.UpdateStatusRequest) (domain.Booking, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Booking{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Booking{}, err
	}

	booking, err := s.transition(ctx, venueID, id, req.Status, req.Note)
	if err != nil {
		return domain.Booking{}, err
	}
	return *booking, nil
}

func (s *Service) BulkUpdateStatus(ctx context.Context, req domain.BulkUpdateStatusRequest) (domain.BulkUpdateStatusResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.BulkUpdateStatusResponse{}, domain.ErrInvalidVenue
	}
	if len(req.IDs) == 0 {
		return domain.BulkUpdateStatusResponse{}, domain.ErrEmptyBulkRequest
	}
	if len(req.IDs) > maxBulkSize {
		return domain.BulkUpdateStatusResponse{}, domain.ErrBulkTooLarge
	}
	if !req.Status.Valid() {
		return domain.BulkUpdateStatusResponse{}, domain.ErrInvalidStatus
	}

	resp := domain.BulkUpdateStatusResponse{
		Outcomes: make([]domain.BulkOutcome, 0, len(req.IDs)),
	}
	for _, raw := range req.IDs {
		outcome := domain.BulkOutcome{ID: raw}
		id, parseErr := s.parseID(raw)
		if parseErr != nil {
			outcome.Error = parseErr.Error()
			resp.Failed++
			resp.Outcomes = append(resp.Outcomes, outcome)
			continue
		}

		if _, err := s.transition(ctx, venueID, id, req.Status, req.Note); err != nil {
			outcome.Error = err.Error()
			resp.Failed++
		} else {
			outcome.Success = true
			resp.Updated++
		}
		resp.Outcomes = append(resp.Outcomes, outcome)
	}

	s.log.Info("bulk status update",
		zap.String("venue_id", venueID.String()),
		zap.String("status", string(req.Status)),
		zap.Int("updated", resp.Updated),
		zap.Int("failed", resp.Failed),
	)
	return resp, nil
}

// transition performs one validated status change in its own transaction:
// compare-and-swap on the current status, optional note, event emission.
func (s *Service) transition(ctx context.Context, venueID, id snowflake.ID, to domain.Status, note string) (*domain.Booking, error) {
	if !to.Valid() {
		return nil, domain.ErrInvalidStatus
	}

	booking, err := s.repo.FindByID(ctx, s.db, venueID, id)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.ErrNotFound
	}
	if !domain.CanTransition(booking.Status, to) {
		return nil, domain.ErrInvalidTransition
	}

	now := s.clock.Now().UTC()
	from := booking.Status
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		swapped, casErr := s.repo.UpdateStatusCAS(ctx, tx, venueID, id, from, to, now)
		if casErr != nil {
			return casErr
		}
		if !swapped {
			return domain.ErrConflict
		}

		if trimmed := strings.TrimSpace(note); trimmed != "" {
			noteRow := domain.BookingNote{
				ID:        s.genID.Generate(),
				BookingID: id,
				VenueID:   venueID,
				Author:    "system",
				Note:      trimmed,
				CreatedAt: now,
			}
			if err := s.repo.InsertNote(ctx, tx, &noteRow); err != nil {
				return err
			}
		}

		booking.Status = to
		booking.UpdatedAt = now
		payload := eventPayload(booking)
		payload["previous_status"] = string(from)
		return events.Emit(ctx, tx, s.genID.Generate(), venueID, statusEvents[to], payload, now)
	})
	if err != nil {
		return nil, err
	}

	bookingID := id.String()
	s.audit.AuditLog(ctx, &venueID, "", nil, "booking.status_changed", "booking", &bookingID, map[string]any{
		"from": string(from),
		"to":   string(to),
	})

	s.metrics.RecordBookingEvent(ctx, statusEvents[to])
	return booking, nil
}

func (s *Service) AddNote(ctx context.Context, req domain.AddNoteRequest) (domain.BookingNote, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.BookingNote{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.BookingID)
	if err != nil {
		return domain.BookingNote{}, err
	}
	note := strings.TrimSpace(req.Note)
	if note == "" {
		return domain.BookingNote{}, domain.ErrInvalidNote
	}
	author := strings.TrimSpace(req.Author)
	if author == "" {
		author = "system"
	}

	booking, err := s.repo.FindByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.BookingNote{}, err
	}
	if booking == nil {
		return domain.BookingNote{}, domain.ErrNotFound
	}

	row := domain.BookingNote{
		ID:        s.genID.Generate(),
		BookingID: id,
		VenueID:   venueID,
		Author:    author,
		Note:      note,
		CreatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.InsertNote(ctx, s.db, &row); err != nil {
		return domain.BookingNote{}, err
	}
	return row, nil
}

func (s *Service) ListNotes(ctx context.Context, bookingID string) ([]domain.BookingNote, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return nil, domain.ErrInvalidVenue
	}

	id, err := s.parseID(bookingID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListNotes(ctx, s.db, venueID, id)
}

func (s *Service) ExpireStalePending(ctx context.Context, grace time.Duration) (int, error) {
	cutoff := s.clock.Now().UTC().Add(-grace)
	stale, err := s.repo.FindStalePending(ctx, s.db, cutoff, maxBulkSize)
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, booking := range stale {
		if booking == nil {
			continue
		}
		if _, err := s.transition(ctx, booking.VenueID, booking.ID, domain.StatusCancelled, "expired: slot passed while pending"); err != nil {
			s.log.Warn("expire pending failed",
				zap.String("booking_id", booking.ID.String()),
				zap.Error(err),
			)
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func eventPayload(b *domain.Booking) map[string]any {
	payload := map[string]any{
		"booking_id":   b.ID.String(),
		"diners":       b.Diners,
		"prime":        b.Prime,
		"fee_amount":   b.FeeAmount,
		"platform_fee": b.PlatformFee,
		"status":       string(b.Status),
		"booking_date": b.BookingAt.UTC().Format("2006-01-02"),
	}
	if b.PromoterID != nil {
		payload["promoter_id"] = b.PromoterID.String()
	}
	return payload
}

// roundCents rounds half away from zero to whole cents.
func roundCents(v float64) int64 {
	return int64(math.Round(v))
}
