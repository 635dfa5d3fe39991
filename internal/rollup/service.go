package rollup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/cache"
	"github.com/primetable/partnerboard/internal/clock"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	"github.com/primetable/partnerboard/internal/events"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	"github.com/primetable/partnerboard/internal/observability/metrics"
	overviewdomain "github.com/primetable/partnerboard/internal/overview/domain"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultBatchSize = 50

type Params struct {
	fx.In

	DB             *gorm.DB
	Log            *zap.Logger
	GenID          *snowflake.Node
	Clock          clock.Clock
	Metrics        *metrics.Metrics
	KPICache       cache.KPICache
	FinanceRepo    financedomain.Repository
	CommissionRepo commissiondomain.Repository
	IncentiveRepo  incentivedomain.Repository
}

// Service consumes booking events and maintains the snapshot tables the
// overview, promoter and finance read paths depend on. Processing is
// idempotent: each event is applied exactly once, guarded by the
// published flag.
type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	clock          clock.Clock
	metrics        *metrics.Metrics
	kpiCache       cache.KPICache
	financeRepo    financedomain.Repository
	commissionRepo commissiondomain.Repository
	incentiveRepo  incentivedomain.Repository
}

func NewService(p Params) *Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("rollup"),
		genID:          p.GenID,
		clock:          p.Clock,
		metrics:        p.Metrics,
		kpiCache:       p.KPICache,
		financeRepo:    p.FinanceRepo,
		commissionRepo: p.CommissionRepo,
		incentiveRepo:  p.IncentiveRepo,
	}
}

// ProcessPending consumes unpublished booking events in arrival order.
func (s *Service) ProcessPending(ctx context.Context, limit int) error {
	if limit <= 0 {
		limit = defaultBatchSize
	}

	var rows []events.BookingEvent
	if err := s.db.WithContext(ctx).
		Where("published = ?", false).
		Order("created_at asc, id asc").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return err
	}

	var jobErr error
	for _, row := range rows {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := s.processEvent(ctx, row); err != nil {
			jobErr = errors.Join(jobErr, err)
			s.log.Warn("failed to process booking event",
				zap.Error(err),
				zap.String("event_id", row.ID.String()),
				zap.String("event_type", row.EventType),
			)
			continue
		}
		s.metrics.RecordRollup(ctx, row.EventType)
		s.kpiCache.InvalidateTags(row.VenueID.String(), events.InvalidatedTags(row.EventType))
	}
	return jobErr
}

// processEvent claims the event and applies its deltas in one
// transaction. The publish flip is a compare-and-swap so replays and
// concurrent workers are safe.
func (s *Service) processEvent(ctx context.Context, row events.BookingEvent) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now().UTC()
		claim := tx.WithContext(ctx).
			Model(&events.BookingEvent{}).
			Where("id = ? AND published = ?", row.ID, false).
			Updates(map[string]any{"published": true, "published_at": now})
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}
		return s.applyEvent(ctx, tx, row)
	})
}

func (s *Service) applyEvent(ctx context.Context, tx *gorm.DB, row events.BookingEvent) error {
	switch row.EventType {
	case events.EventBookingCreated:
		return s.applyCreated(ctx, tx, row)
	case events.EventBookingConfirmed:
		return s.applyConfirmed(ctx, tx, row)
	case events.EventBookingCancelled:
		return s.applyCancelled(ctx, tx, row)
	case events.EventBookingCompleted:
		return s.applyCompleted(ctx, tx, row)
	case events.EventBookingNoShow:
		return s.applyNoShow(ctx, tx, row)
	default:
		// Pricing and tier events carry no snapshot deltas; they exist
		// for cache invalidation.
		return nil
	}
}

func (s *Service) applyCreated(ctx context.Context, tx *gorm.DB, row events.BookingEvent) error {
	date, err := payloadDate(row.Payload)
	if err != nil {
		return err
	}
	return s.upsertDaily(ctx, tx, row.VenueID, date, overviewdomain.DailyStat{PendingCount: 1})
}

func (s *Service) applyConfirmed(ctx context.Context, tx *gorm.DB, row events.BookingEvent) error {
	fact, err := parseFact(row.Payload)
	if err != nil {
		return err
	}

	delta := overviewdomain.DailyStat{
		PendingCount:     -1,
		ConfirmedCount:   1,
		RealizedBookings: 1,
		RealizedCovers:   int64(fact.diners),
		PlatformFees:     fact.platformFee,
	}
	if fact.prime {
		delta.PrimeBookings = 1
		delta.PrimeRevenue = fact.feeAmount
	} else {
		delta.NonPrimeRevenue = fact.feeAmount
	}
	if err := s.upsertDaily(ctx, tx, row.VenueID, fact.date, delta); err != nil {
		return err
	}

	if fact.promoterID != 0 {
		statsDelta := promoterdomain.Stats{
			TotalBookings:     1,
			ConfirmedBookings: 1,
			TotalCovers:       int64(fact.diners),
			TotalRevenue:      fact.feeAmount,
		}
		if err := s.upsertPromoterStats(ctx, tx, row.VenueID, fact.promoterID, statsDelta); err != nil {
			return err
		}
		if err := s.accrueCommission(ctx, tx, row.VenueID, fact); err != nil {
			return err
		}
		if err := s.advanceIncentives(ctx, tx, row.VenueID, fact); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) applyCancelled(ctx context.Context, tx *gorm.DB, row events.BookingEvent) error {
	fact, err := parseFact(row.Payload)
	if err != nil {
		return err
	}

	delta := overviewdomain.DailyStat{CancelledCount: 1}
	fromConfirmed := fact.previousStatus == "CONFIRMED"
	if fromConfirmed {
		delta.ConfirmedCount = -1
		delta.RealizedBookings = -1
		delta.RealizedCovers = -int64(fact.diners)
		delta.PlatformFees = -fact.platformFee
		if fact.prime {
			delta.PrimeBookings = -1
			delta.PrimeRevenue = -fact.feeAmount
		} else {
			delta.NonPrimeRevenue = -fact.feeAmount
		}
	} else {
		delta.PendingCount = -1
	}
	if err := s.upsertDaily(ctx, tx, row.VenueID, fact.date, delta); err != nil {
		return err
	}

	if fact.promoterID != 0 {
		statsDelta := promoterdomain.Stats{CancelledBookings: 1}
		if fromConfirmed {
			statsDelta.ConfirmedBookings = -1
			statsDelta.TotalCovers = -int64(fact.diners)
			statsDelta.TotalRevenue = -fact.feeAmount
		} else {
			statsDelta.TotalBookings = 1
		}
		if err := s.upsertPromoterStats(ctx, tx, row.VenueID, fact.promoterID, statsDelta); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) applyCompleted(ctx context.Context, tx *gorm.DB, row events.BookingEvent) error {
	fact, err := parseFact(row.Payload)
	if err != nil {
		return err
	}

	// Realized aggregates track currently-confirmed bookings, so
	// completion reverses them the same way cancellation does. Promoter
	// stats and the commission ledger are untouched.
	delta := overviewdomain.DailyStat{
		ConfirmedCount:   -1,
		CompletedCount:   1,
		RealizedBookings: -1,
		RealizedCovers:   -int64(fact.diners),
		PlatformFees:     -fact.platformFee,
	}
	if fact.prime {
		delta.PrimeBookings = -1
		delta.PrimeRevenue = -fact.feeAmount
	} else {
		delta.NonPrimeRevenue = -fact.feeAmount
	}
	return s.upsertDaily(ctx, tx, row.VenueID, fact.date, delta)
}

func (s *Service) applyNoShow(ctx context.Context, tx *gorm.DB, row events.BookingEvent) error {
	fact, err := parseFact(row.Payload)
	if err != nil {
		return err
	}

	delta := overviewdomain.DailyStat{
		ConfirmedCount:   -1,
		NoShowCount:      1,
		RealizedBookings: -1,
		RealizedCovers:   -int64(fact.diners),
		PlatformFees:     -fact.platformFee,
	}
	if fact.prime {
		delta.PrimeBookings = -1
		delta.PrimeRevenue = -fact.feeAmount
	} else {
		delta.NonPrimeRevenue = -fact.feeAmount
	}
	if err := s.upsertDaily(ctx, tx, row.VenueID, fact.date, delta); err != nil {
		return err
	}

	if fact.promoterID != 0 {
		statsDelta := promoterdomain.Stats{
			NoShowBookings:    1,
			ConfirmedBookings: -1,
			TotalCovers:       -int64(fact.diners),
			TotalRevenue:      -fact.feeAmount,
		}
		if err := s.upsertPromoterStats(ctx, tx, row.VenueID, fact.promoterID, statsDelta); err != nil {
			return err
		}
	}
	return nil
}

// accrueCommission creates the COMMISSION transaction for a confirmed
// booking when the promoter has an active rate assignment. Replays are
// absorbed by the per-booking existence check.
func (s *Service) accrueCommission(ctx context.Context, tx *gorm.DB, venueID snowflake.ID, fact bookingFact) error {
	exists, err := s.financeRepo.HasCommissionForBooking(ctx, tx, venueID, fact.bookingID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	at, err := time.Parse("2006-01-02", fact.date)
	if err != nil {
		return err
	}
	assignment, err := s.commissionRepo.FindActiveAssignment(ctx, tx, venueID, fact.promoterID, at)
	if err != nil {
		return err
	}
	if assignment == nil {
		return nil
	}
	rate, err := s.commissionRepo.FindRateByID(ctx, tx, venueID, assignment.RateID)
	if err != nil {
		return err
	}
	if rate == nil {
		return fmt.Errorf("commission rate %s missing for assignment %s", assignment.RateID, assignment.ID)
	}

	amount := commissiondomain.Calculate(rate.Model, rate.RateValue, fact.diners, fact.feeAmount)
	if amount == 0 {
		return nil
	}

	bookingID := fact.bookingID
	transaction := financedomain.Transaction{
		ID:         s.genID.Generate(),
		VenueID:    venueID,
		PromoterID: fact.promoterID,
		BookingID:  &bookingID,
		Type:       financedomain.TransactionCommission,
		Amount:     amount,
		Currency:   "USD",
		OccurredAt: at,
		Metadata: datatypes.JSONMap{
			"rate_id":       rate.ID.String(),
			"rate_model":    string(rate.Model),
			"assignment_id": assignment.ID.String(),
		},
		CreatedAt: s.clock.Now().UTC(),
	}
	return s.financeRepo.InsertTransaction(ctx, tx, &transaction)
}

// advanceIncentives moves the promoter's progress on every active
// program covering the booking date, granting the reward the first time
// the threshold is crossed.
func (s *Service) advanceIncentives(ctx context.Context, tx *gorm.DB, venueID snowflake.ID, fact bookingFact) error {
	at, err := time.Parse("2006-01-02", fact.date)
	if err != nil {
		return err
	}
	programs, err := s.incentiveRepo.FindActivePrograms(ctx, tx, venueID, at)
	if err != nil {
		return err
	}

	now := s.clock.Now().UTC()
	for _, program := range programs {
		var delta int64
		switch program.Metric {
		case incentivedomain.MetricBookings:
			delta = 1
		case incentivedomain.MetricCovers:
			delta = int64(fact.diners)
		case incentivedomain.MetricRevenue:
			delta = fact.feeAmount
		default:
			continue
		}

		progress, err := s.incentiveRepo.FindProgress(ctx, tx, program.ID, fact.promoterID)
		if err != nil {
			return err
		}
		if progress == nil {
			progress = &incentivedomain.Progress{
				ID:         s.genID.Generate(),
				ProgramID:  program.ID,
				PromoterID: fact.promoterID,
				VenueID:    venueID,
			}
		}

		progress.Current += delta
		progress.UpdatedAt = now
		crossed := !progress.Attained && progress.Current >= program.Threshold
		if crossed {
			progress.Attained = true
			attainedAt := now
			progress.AttainedAt = &attainedAt
		}
		if err := s.incentiveRepo.SaveProgress(ctx, tx, progress); err != nil {
			return err
		}

		if crossed {
			if err := s.grantReward(ctx, tx, venueID, program, fact.promoterID, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) grantReward(ctx context.Context, tx *gorm.DB, venueID snowflake.ID, program incentivedomain.Program, promoterID snowflake.ID, now time.Time) error {
	exists, err := s.financeRepo.HasRewardForProgress(ctx, tx, venueID, program.ID, promoterID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	transaction := financedomain.Transaction{
		ID:         s.genID.Generate(),
		VenueID:    venueID,
		PromoterID: promoterID,
		Type:       financedomain.TransactionIncentiveReward,
		Amount:     program.RewardAmount,
		Currency:   "USD",
		OccurredAt: now,
		Metadata: datatypes.JSONMap{
			"program_id":   program.ID.String(),
			"program_name": program.Name,
		},
		CreatedAt: now,
	}
	return s.financeRepo.InsertTransaction(ctx, tx, &transaction)
}

func (s *Service) upsertDaily(ctx context.Context, tx *gorm.DB, venueID snowflake.ID, date string, delta overviewdomain.DailyStat) error {
	delta.VenueID = venueID
	delta.Date = date
	delta.UpdatedAt = s.clock.Now().UTC()
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "venue_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			"pending_count":     gorm.Expr("venue_daily_stats.pending_count + excluded.pending_count"),
			"confirmed_count":   gorm.Expr("venue_daily_stats.confirmed_count + excluded.confirmed_count"),
			"cancelled_count":   gorm.Expr("venue_daily_stats.cancelled_count + excluded.cancelled_count"),
			"no_show_count":     gorm.Expr("venue_daily_stats.no_show_count + excluded.no_show_count"),
			"completed_count":   gorm.Expr("venue_daily_stats.completed_count + excluded.completed_count"),
			"realized_bookings": gorm.Expr("venue_daily_stats.realized_bookings + excluded.realized_bookings"),
			"realized_covers":   gorm.Expr("venue_daily_stats.realized_covers + excluded.realized_covers"),
			"prime_bookings":    gorm.Expr("venue_daily_stats.prime_bookings + excluded.prime_bookings"),
			"prime_revenue":     gorm.Expr("venue_daily_stats.prime_revenue + excluded.prime_revenue"),
			"non_prime_revenue": gorm.Expr("venue_daily_stats.non_prime_revenue + excluded.non_prime_revenue"),
			"platform_fees":     gorm.Expr("venue_daily_stats.platform_fees + excluded.platform_fees"),
			"updated_at":        gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&delta).Error
}

func (s *Service) upsertPromoterStats(ctx context.Context, tx *gorm.DB, venueID, promoterID snowflake.ID, delta promoterdomain.Stats) error {
	delta.PromoterID = promoterID
	delta.VenueID = venueID
	delta.UpdatedAt = s.clock.Now().UTC()
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "promoter_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_bookings":     gorm.Expr("promoter_stats.total_bookings + excluded.total_bookings"),
			"confirmed_bookings": gorm.Expr("promoter_stats.confirmed_bookings + excluded.confirmed_bookings"),
			"cancelled_bookings": gorm.Expr("promoter_stats.cancelled_bookings + excluded.cancelled_bookings"),
			"no_show_bookings":   gorm.Expr("promoter_stats.no_show_bookings + excluded.no_show_bookings"),
			"total_covers":       gorm.Expr("promoter_stats.total_covers + excluded.total_covers"),
			"total_revenue":      gorm.Expr("promoter_stats.total_revenue + excluded.total_revenue"),
			"updated_at":         gorm.Expr("excluded.updated_at"),
		}),
	}).Create(&delta).Error
}

type bookingFact struct {
	bookingID      snowflake.ID
	promoterID     snowflake.ID
	diners         int
	prime          bool
	feeAmount      int64
	platformFee    int64
	date           string
	previousStatus string
}

func parseFact(payload datatypes.JSONMap) (bookingFact, error) {
	fact := bookingFact{
		prime:          payloadBool(payload, "prime"),
		diners:         int(payloadInt(payload, "diners")),
		feeAmount:      payloadInt(payload, "fee_amount"),
		platformFee:    payloadInt(payload, "platform_fee"),
		previousStatus: payloadString(payload, "previous_status"),
	}

	var err error
	fact.date, err = payloadDate(payload)
	if err != nil {
		return bookingFact{}, err
	}
	fact.bookingID, err = payloadID(payload, "booking_id")
	if err != nil {
		return bookingFact{}, err
	}
	if raw := payloadString(payload, "promoter_id"); raw != "" {
		fact.promoterID, err = payloadID(payload, "promoter_id")
		if err != nil {
			return bookingFact{}, err
		}
	}
	return fact, nil
}

func payloadDate(payload datatypes.JSONMap) (string, error) {
	date := payloadString(payload, "booking_date")
	if date == "" {
		return "", errors.New("missing_booking_date")
	}
	return date, nil
}

func payloadID(payload datatypes.JSONMap, key string) (snowflake.ID, error) {
	raw := payloadString(payload, key)
	if raw == "" {
		return 0, fmt.Errorf("missing_%s", key)
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid_%s", key)
	}
	return id, nil
}

func payloadString(payload datatypes.JSONMap, key string) string {
	value, ok := payload[key]
	if !ok {
		return ""
	}
	str, ok := value.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(str)
}

func payloadInt(payload datatypes.JSONMap, key string) int64 {
	switch value := payload[key].(type) {
	case float64:
		return int64(value)
	case int64:
		return value
	case int:
		return int64(value)
	default:
		return 0
	}
}

func payloadBool(payload datatypes.JSONMap, key string) bool {
	value, ok := payload[key].(bool)
	return ok && value
}
