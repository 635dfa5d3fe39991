package service

import (
	"context"

	"github.com/primetable/partnerboard/internal/cache"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/observability/metrics"
	"github.com/primetable/partnerboard/internal/overview/domain"
	"github.com/primetable/partnerboard/internal/venuectx"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultRangeDays = 30

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Cache   cache.KPICache
	Repo    domain.Repository
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *metrics.Metrics
	cache   cache.KPICache
	repo    domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("overview.service"),
		clock:   p.Clock,
		metrics: p.Metrics,
		cache:   p.Cache,
		repo:    p.Repo,
	}
}

func (s *Service) GetKPIs(ctx context.Context, req domain.GetKPIsRequest) (domain.GetKPIsResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.GetKPIsResponse{}, domain.ErrInvalidVenue
	}

	now := s.clock.Now().UTC()
	from := req.From.UTC()
	to := req.To.UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultRangeDays)
	}
	if !from.Before(to) {
		return domain.GetKPIsResponse{}, domain.ErrInvalidRange
	}

	fromDay := from.Format("2006-01-02")
	toDay := to.Format("2006-01-02")

	if report, hit := s.cache.Get(venueID.String(), fromDay, toDay); hit {
		s.metrics.RecordKPICache(ctx, true)
		return domain.GetKPIsResponse{From: from, To: to, Report: report}, nil
	}
	s.metrics.RecordKPICache(ctx, false)

	stats, err := s.repo.FindDailyStats(ctx, s.db, venueID, fromDay, toDay)
	if err != nil {
		return domain.GetKPIsResponse{}, err
	}

	var report domain.Report
	if len(stats) > 0 {
		report = domain.MergeDailyStats(stats)
	} else {
		// No snapshots yet for this range, aggregate straight from bookings.
		facts, err := s.repo.FindBookingFacts(ctx, s.db, venueID, from, to)
		if err != nil {
			return domain.GetKPIsResponse{}, err
		}
		report = domain.ComputeKPIs(facts)
	}
	s.cache.Set(venueID.String(), fromDay, toDay, report)

	s.log.Debug("kpis computed",
		zap.String("venue_id", venueID.String()),
		zap.String("from", fromDay),
		zap.String("to", toDay),
		zap.Int("days", len(stats)),
	)
	return domain.GetKPIsResponse{From: from, To: to, Report: report}, nil
}
