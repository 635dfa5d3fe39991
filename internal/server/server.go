package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/primetable/partnerboard/internal/apikey"
	apikeydomain "github.com/primetable/partnerboard/internal/apikey/domain"
	"github.com/primetable/partnerboard/internal/audit"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/authorization"
	"github.com/primetable/partnerboard/internal/booking"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/internal/cache"
	"github.com/primetable/partnerboard/internal/commission"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	"github.com/primetable/partnerboard/internal/config"
	"github.com/primetable/partnerboard/internal/finance"
	financedomain "github.com/primetable/partnerboard/internal/finance/domain"
	"github.com/primetable/partnerboard/internal/incentive"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	"github.com/primetable/partnerboard/internal/mockgen"
	"github.com/primetable/partnerboard/internal/observability"
	obslogger "github.com/primetable/partnerboard/internal/observability/logger"
	obsmetrics "github.com/primetable/partnerboard/internal/observability/metrics"
	obstracing "github.com/primetable/partnerboard/internal/observability/tracing"
	"github.com/primetable/partnerboard/internal/overview"
	overviewdomain "github.com/primetable/partnerboard/internal/overview/domain"
	"github.com/primetable/partnerboard/internal/promoter"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/internal/providers"
	"github.com/primetable/partnerboard/internal/ratelimit"
	"github.com/primetable/partnerboard/internal/rollup"
	"github.com/primetable/partnerboard/internal/team"
	teamdomain "github.com/primetable/partnerboard/internal/team/domain"
	"github.com/primetable/partnerboard/internal/venue"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	authorization.Module,
	audit.Module,
	apikey.Module,
	venue.Module,
	booking.Module,
	overview.Module,
	promoter.Module,
	commission.Module,
	incentive.Module,
	finance.Module,
	team.Module,
	cache.Module,
	providers.Module,
	rollup.Module,
	ratelimit.Module,

	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(Run),
)

// NewEngine builds the gin engine with the cross-cutting middleware stack.
// Route handlers never write error bodies; ErrorHandlingMiddleware renders
// the envelope from collected errors.
func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	engine.Use(obstracing.GinMiddleware())
	engine.Use(obsmetrics.GinMiddleware(httpMetrics))
	engine.Use(SecurityHeaders())
	engine.Use(ErrorHandlingMiddleware())

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return engine
}

type ServerParams struct {
	fx.In

	Cfg    config.Config
	Log    *zap.Logger
	DB     *gorm.DB
	GenID  *snowflake.Node
	Engine *gin.Engine

	VenueSvc      venuedomain.Service
	BookingSvc    bookingdomain.Service
	OverviewSvc   overviewdomain.Service
	PromoterSvc   promoterdomain.Service
	CommissionSvc commissiondomain.Service
	IncentiveSvc  incentivedomain.Service
	FinanceSvc    financedomain.Service
	TeamSvc       teamdomain.Service
	AuditSvc      auditdomain.Service
	APIKeySvc     apikeydomain.Service
	AuthzSvc      authorization.Service

	Limiter    *ratelimit.BookingWriteLimiter `optional:"true"`
	Generator  *mockgen.Generator             `optional:"true"`
	ObsMetrics *obsmetrics.Metrics            `optional:"true"`
}

type Server struct {
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB
	genID  *snowflake.Node
	engine *gin.Engine

	venueSvc      venuedomain.Service
	bookingSvc    bookingdomain.Service
	overviewSvc   overviewdomain.Service
	promoterSvc   promoterdomain.Service
	commissionSvc commissiondomain.Service
	incentiveSvc  incentivedomain.Service
	financeSvc    financedomain.Service
	teamSvc       teamdomain.Service
	auditSvc      auditdomain.Service
	apiKeySvc     apikeydomain.Service
	authzSvc      authorization.Service

	limiter    *ratelimit.BookingWriteLimiter
	generator  *mockgen.Generator
	obsMetrics *obsmetrics.Metrics
}

func NewServer(p ServerParams) *Server {
	return &Server{
		cfg:           p.Cfg,
		log:           p.Log.Named("http.server"),
		db:            p.DB,
		genID:         p.GenID,
		engine:        p.Engine,
		venueSvc:      p.VenueSvc,
		bookingSvc:    p.BookingSvc,
		overviewSvc:   p.OverviewSvc,
		promoterSvc:   p.PromoterSvc,
		commissionSvc: p.CommissionSvc,
		incentiveSvc:  p.IncentiveSvc,
		financeSvc:    p.FinanceSvc,
		teamSvc:       p.TeamSvc,
		auditSvc:      p.AuditSvc,
		apiKeySvc:     p.APIKeySvc,
		authzSvc:      p.AuthzSvc,
		limiter:       p.Limiter,
		generator:     p.Generator,
		obsMetrics:    p.ObsMetrics,
	}
}

func registerRoutes(s *Server) {
	s.RegisterAPIRoutes()
}

// RegisterAPIRoutes mounts the authenticated /api surface.
func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api")

	demo := s.cfg.Demo
	if demo.Enabled && !s.cfg.IsProduction() && (demo.LatencyMax > 0 || demo.ErrorRate > 0) {
		api.Use(newChaos(demo.LatencyMin, demo.LatencyMax, demo.ErrorRate).middleware())
	}

	api.Use(s.Authenticated())

	api.POST("/venues", s.authorizeVenueAction(authorization.ObjectVenue, authorization.ActionVenueCreate), s.CreateVenue)
	api.GET("/venues", s.authorizeVenueAction(authorization.ObjectVenue, authorization.ActionVenueView), s.ListVenues)
	api.GET("/venues/:id", s.authorizeVenueAction(authorization.ObjectVenue, authorization.ActionVenueView), s.GetVenueByID)
	api.GET("/venues/:id/pricing", s.authorizeVenueAction(authorization.ObjectVenue, authorization.ActionVenueView), s.GetVenuePricing)
	api.PUT("/venues/:id/pricing", s.authorizeVenueAction(authorization.ObjectVenue, authorization.ActionVenueUpdate), s.UpdateVenuePricing)

	api.POST("/bookings", s.authorizeVenueAction(authorization.ObjectBooking, authorization.ActionBookingCreate), s.bookingWriteLimit(false), s.CreateBooking)
	api.GET("/bookings", s.authorizeVenueAction(authorization.ObjectBooking, authorization.ActionBookingView), s.ListBookings)
	api.GET("/bookings/:id", s.authorizeVenueAction(authorization.ObjectBooking, authorization.ActionBookingView), s.GetBookingByID)
	api.PATCH("/bookings/:id", s.authorizeVenueAction(authorization.ObjectBooking, authorization.ActionBookingTransition), s.bookingWriteLimit(false), s.UpdateBookingStatus)
	api.POST("/bookings/bulk-status", s.authorizeVenueAction(authorization.ObjectBooking, authorization.ActionBookingBulk), s.bookingWriteLimit(true), s.BulkUpdateBookingStatus)
	api.GET("/bookings/:id/notes", s.authorizeVenueAction(authorization.ObjectBooking, authorization.ActionBookingView), s.ListBookingNotes)
	api.POST("/bookings/:id/notes", s.authorizeVenueAction(authorization.ObjectBooking, authorization.ActionBookingTransition), s.AddBookingNote)

	api.GET("/overview/kpis", s.authorizeVenueAction(authorization.ObjectOverview, authorization.ActionOverviewView), s.GetOverviewKPIs)

	api.GET("/promoters", s.authorizeVenueAction(authorization.ObjectPromoter, authorization.ActionPromoterView), s.ListPromoters)
	api.POST("/promoters", s.authorizeVenueAction(authorization.ObjectPromoter, authorization.ActionPromoterCreate), s.CreatePromoter)
	api.GET("/promoters/:id", s.authorizeVenueAction(authorization.ObjectPromoter, authorization.ActionPromoterView), s.GetPromoterByID)
	api.POST("/promoters/:id/tier", s.authorizeVenueAction(authorization.ObjectPromoter, authorization.ActionPromoterChangeTier), s.ChangePromoterTier)
	api.POST("/promoters/:id/active", s.authorizeVenueAction(authorization.ObjectPromoter, authorization.ActionPromoterChangeTier), s.SetPromoterActive)

	api.GET("/commission-rates", s.authorizeVenueAction(authorization.ObjectCommission, authorization.ActionCommissionView), s.ListCommissionRates)
	api.POST("/commission-rates", s.authorizeVenueAction(authorization.ObjectCommission, authorization.ActionCommissionCreate), s.CreateCommissionRate)
	api.GET("/commission-assignments", s.authorizeVenueAction(authorization.ObjectCommission, authorization.ActionCommissionView), s.ListCommissionAssignments)
	api.POST("/commission-assignments", s.authorizeVenueAction(authorization.ObjectCommission, authorization.ActionCommissionAssign), s.CreateCommissionAssignment)
	api.POST("/commission-assignments/:id/close", s.authorizeVenueAction(authorization.ObjectCommission, authorization.ActionCommissionAssign), s.CloseCommissionAssignment)

	api.GET("/incentives", s.authorizeVenueAction(authorization.ObjectIncentive, authorization.ActionIncentiveView), s.ListIncentives)
	api.POST("/incentives", s.authorizeVenueAction(authorization.ObjectIncentive, authorization.ActionIncentiveCreate), s.CreateIncentive)
	api.GET("/incentives/:id", s.authorizeVenueAction(authorization.ObjectIncentive, authorization.ActionIncentiveView), s.GetIncentiveByID)
	api.POST("/incentives/:id/activate", s.authorizeVenueAction(authorization.ObjectIncentive, authorization.ActionIncentiveActivate), s.ActivateIncentive)
	api.GET("/incentives/:id/progress", s.authorizeVenueAction(authorization.ObjectIncentive, authorization.ActionIncentiveView), s.ListIncentiveProgress)

	api.GET("/finance/transactions", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinanceView), s.ListTransactions)
	api.POST("/finance/payouts/generate", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinancePayout), s.GeneratePayouts)
	api.GET("/finance/payouts", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinanceView), s.ListPayouts)
	api.GET("/finance/payouts/:id", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinanceView), s.GetPayoutByID)
	api.GET("/finance/payouts/:id/statement", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinanceStatement), s.GetPayoutStatement)
	api.POST("/finance/payouts/:id/mark-paid", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinanceMarkPaid), s.MarkPayoutPaid)
	api.POST("/finance/payouts/:id/holds", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinanceHold), s.PlacePayoutHold)
	api.POST("/finance/holds/:id/release", s.authorizeVenueAction(authorization.ObjectFinance, authorization.ActionFinanceHold), s.ReleasePayoutHold)

	api.GET("/team/members", s.authorizeVenueAction(authorization.ObjectTeam, authorization.ActionTeamView), s.ListTeamMembers)
	api.POST("/team/members", s.authorizeVenueAction(authorization.ObjectTeam, authorization.ActionTeamInvite), s.InviteTeamMember)
	api.PATCH("/team/members/:id", s.authorizeVenueAction(authorization.ObjectTeam, authorization.ActionTeamChangeRole), s.ChangeTeamMemberRole)
	api.DELETE("/team/members/:id", s.authorizeVenueAction(authorization.ObjectTeam, authorization.ActionTeamRevoke), s.RevokeTeamMember)

	api.GET("/api-keys", s.authorizeVenueAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyView), s.ListAPIKeys)
	api.POST("/api-keys", s.authorizeVenueAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.CreateAPIKey)
	api.POST("/api-keys/:key_id/rotate", s.authorizeVenueAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyCreate), s.RotateAPIKey)
	api.DELETE("/api-keys/:key_id", s.authorizeVenueAction(authorization.ObjectAPIKey, authorization.ActionAPIKeyRevoke), s.RevokeAPIKey)

	api.GET("/audit-logs", s.authorizeVenueAction(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)

	if s.cfg.Demo.Enabled && !s.cfg.IsProduction() {
		api.POST("/demo/dataset", s.authorizeVenueAction(authorization.ObjectDemo, authorization.ActionDemoGenerate), s.RegenerateDemoDataset)
	}
}

func Run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, engine *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}
