package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/auditctx"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/internal/clock"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	obsmetrics "github.com/primetable/partnerboard/internal/observability/metrics"
	"github.com/primetable/partnerboard/internal/rollup"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"github.com/primetable/partnerboard/internal/venuectx"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	BookingSvc   bookingdomain.Service
	IncentiveSvc incentivedomain.Service
	FinanceSvc   financedomain.Service
	VenueRepo    venuedomain.Repository
	RollupSvc    *rollup.Service
	Config       Config `optional:"true"`
}

// Scheduler drives the background jobs: event rollup, stale booking
// expiry, incentive completion and the periodic payout sweep.
type Scheduler struct {
	db           *gorm.DB
	log          *zap.Logger
	cfg          Config
	clock        clock.Clock
	bookingSvc   bookingdomain.Service
	incentiveSvc incentivedomain.Service
	financeSvc   financedomain.Service
	venueRepo    venuedomain.Repository
	rollupSvc    *rollup.Service
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Clock == nil || p.DB == nil ||
		p.BookingSvc == nil || p.IncentiveSvc == nil || p.FinanceSvc == nil ||
		p.VenueRepo == nil || p.RollupSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:           p.DB,
		log:          p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:          p.Config.withDefaults(),
		clock:        p.Clock,
		bookingSvc:   p.BookingSvc,
		incentiveSvc: p.IncentiveSvc,
		financeSvc:   p.FinanceSvc,
		venueRepo:    p.VenueRepo,
		rollupSvc:    p.RollupSvc,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx = auditctx.WithActor(ctx, string(auditdomain.ActorTypeSystem), "scheduler")

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"rollup_pending", func(ctx context.Context) error {
			return s.rollupSvc.ProcessPending(ctx, s.cfg.BatchSize)
		}},
		{"expire_pending", func(ctx context.Context) error {
			expired, jobErr := s.bookingSvc.ExpireStalePending(ctx, s.cfg.PendingGrace)
			if expired > 0 {
				s.log.Info("expired stale pending bookings", zap.Int("count", expired))
			}
			return jobErr
		}},
		{"complete_incentives", func(ctx context.Context) error {
			completed, jobErr := s.incentiveSvc.CompleteExpired(ctx)
			if completed > 0 {
				s.log.Info("completed incentive programs", zap.Int("count", completed))
			}
			return jobErr
		}},
		{"sweep_payouts", s.sweepPayouts},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		name := job.Name
		run := job.Run
		err = errors.Join(err, s.runJob(parent, name, 30*time.Second, run))
	}
	return err
}

// sweepPayouts generates payouts for every venue over the window that
// ended at the start of the current day. The sweep is idempotent;
// venues with nothing to sweep are skipped.
func (s *Scheduler) sweepPayouts(parent context.Context) error {
	end := s.clock.Now().UTC().Truncate(24 * time.Hour)
	start := end.Add(-s.cfg.PayoutPeriod)

	var err error
	page := pagination.Pagination{Page: 1, Size: pagination.MaxPageSize}
	for {
		venues, _, listErr := s.venueRepo.List(parent, s.db, venuedomain.ListVenueFilter{}, page)
		if listErr != nil {
			return errors.Join(err, listErr)
		}
		for _, venue := range venues {
			if venue == nil {
				continue
			}
			ctx := venuectx.WithVenueID(parent, int64(venue.ID))
			resp, sweepErr := s.financeSvc.GeneratePayouts(ctx, financedomain.GeneratePayoutsRequest{
				PeriodStart: start,
				PeriodEnd:   end,
			})
			if sweepErr != nil {
				if !errors.Is(sweepErr, financedomain.ErrNothingToSweep) {
					err = errors.Join(err, sweepErr)
				}
				continue
			}
			s.log.Info("swept payouts",
				zap.String("venue_id", venue.ID.String()),
				zap.Int("count", len(resp.Payouts)),
			)
		}
		if len(venues) < page.Size {
			return err
		}
		page.Page++
	}
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
