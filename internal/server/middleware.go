package server

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/primetable/partnerboard/internal/auditctx"
	"github.com/primetable/partnerboard/internal/ratelimit"
	teamdomain "github.com/primetable/partnerboard/internal/team/domain"
	"github.com/primetable/partnerboard/internal/venuectx"
	"go.uber.org/zap"
)

// ErrChaosInjected marks a simulated failure from the demo chaos middleware.
var ErrChaosInjected = errors.New("chaos_injected")

const (
	HeaderDemoRole = "X-Demo-Role"
	HeaderVenue    = "X-Venue-ID"
)

type actorContextKey struct{}

type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAPIKey ActorType = "api_key"
)

type Actor struct {
	Type   ActorType
	ID     string
	Scopes []string
}

func (a Actor) subject() string {
	switch a.Type {
	case ActorUser:
		return "user:" + a.ID
	case ActorAPIKey:
		return "api_key:" + a.ID
	default:
		return ""
	}
}

func actorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	if !ok || actor.ID == "" {
		return Actor{}, false
	}
	return actor, true
}

// SecurityHeaders sets the browser hardening headers on every response.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// Authenticated resolves the caller from a bearer API key, or, when demo
// header auth is enabled, from the X-Demo-Role / X-Venue-ID headers. Venue
// identity is never taken from headers on the API key path.
func (s *Server) Authenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header != "" {
			s.authenticateBearer(c, header)
			return
		}
		if s.cfg.Demo.AllowHeaderAuth && !s.cfg.IsProduction() {
			s.authenticateDemoHeaders(c)
			return
		}
		AbortWithError(c, ErrUnauthorized)
	}
}

func (s *Server) authenticateBearer(c *gin.Context, header string) {
	parts := strings.Fields(header)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	key, err := s.apiKeySvc.Resolve(c.Request.Context(), parts[1])
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if key == nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	ctx = venuectx.WithVenueID(ctx, int64(key.VenueID))
	ctx = auditctx.WithActor(ctx, string(ActorAPIKey), key.ID.String())
	ctx = context.WithValue(ctx, actorContextKey{}, Actor{
		Type:   ActorAPIKey,
		ID:     key.ID.String(),
		Scopes: append([]string(nil), key.Scopes...),
	})

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func (s *Server) authenticateDemoHeaders(c *gin.Context) {
	role := teamdomain.Role(strings.ToUpper(strings.TrimSpace(c.GetHeader(HeaderDemoRole))))
	if !role.Valid() {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	venueID, err := s.demoVenueID(c.GetHeader(HeaderVenue))
	if err != nil {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	// Demo roles map onto the seeded membership rows so the request flows
	// through the same policy checks as a real user.
	var row struct {
		UserID snowflake.ID `gorm:"column:user_id"`
	}
	if err := s.db.WithContext(c.Request.Context()).Raw(
		`SELECT user_id
		 FROM venue_members
		 WHERE venue_id = ? AND role = ?
		 ORDER BY id
		 LIMIT 1`,
		venueID,
		string(role),
	).Scan(&row).Error; err != nil {
		AbortWithError(c, err)
		return
	}
	if row.UserID == 0 {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	ctx := c.Request.Context()
	ctx = venuectx.WithVenueID(ctx, int64(venueID))
	ctx = auditctx.WithActor(ctx, string(ActorUser), row.UserID.String())
	ctx = context.WithValue(ctx, actorContextKey{}, Actor{
		Type: ActorUser,
		ID:   row.UserID.String(),
	})

	c.Request = c.Request.WithContext(ctx)
	c.Next()
}

func (s *Server) demoVenueID(header string) (snowflake.ID, error) {
	trimmed := strings.TrimSpace(header)
	if trimmed != "" {
		return snowflake.ParseString(trimmed)
	}
	if s.cfg.DefaultVenueID != 0 {
		return snowflake.ID(s.cfg.DefaultVenueID), nil
	}
	return snowflake.ID(s.cfg.Demo.Seed*1_000_000 + 1), nil
}

// bookingWriteLimit enforces the per-venue token bucket on booking writes.
// Bulk transitions draw from a separate, tighter bucket.
func (s *Server) bookingWriteLimit(bulk bool) gin.HandlerFunc {
	endpoint := "booking_write"
	if bulk {
		endpoint = "booking_bulk"
	}
	return func(c *gin.Context) {
		if !s.limiter.Enabled() {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		venueID, ok := venuectx.VenueIDFromContext(ctx)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		var (
			result *ratelimit.Result
			err    error
		)
		if bulk {
			result, err = s.limiter.AllowBulk(ctx, venueID.String())
		} else {
			result, err = s.limiter.AllowWrite(ctx, venueID.String())
		}
		if err != nil {
			// Redis trouble should not take booking writes down with it.
			s.log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		if !result.Allowed {
			if s.obsMetrics != nil {
				s.obsMetrics.RecordRateLimitDenied(ctx, venueID.String(), endpoint, "bucket_empty")
			}
			if result.RetryAfter > 0 {
				c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())+1))
			}
			AbortWithError(c, ErrRateLimited)
			return
		}

		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitAllowed(ctx, venueID.String(), endpoint)
		}
		c.Next()
	}
}

// chaos injects configured latency and error noise so demo environments
// exercise the dashboard's loading and failure states.
type chaos struct {
	mu  sync.Mutex
	rng *rand.Rand

	latencyMin time.Duration
	latencyMax time.Duration
	errorRate  float64
}

func newChaos(latencyMin, latencyMax time.Duration, errorRate float64) *chaos {
	return &chaos{
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		latencyMin: latencyMin,
		latencyMax: latencyMax,
		errorRate:  errorRate,
	}
}

func (ch *chaos) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		delay, fail := ch.roll()
		if delay > 0 {
			time.Sleep(delay)
		}
		if fail {
			AbortWithError(c, ErrChaosInjected)
			return
		}
		c.Next()
	}
}

func (ch *chaos) roll() (time.Duration, bool) {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	var delay time.Duration
	if ch.latencyMax > ch.latencyMin {
		delay = ch.latencyMin + time.Duration(ch.rng.Int63n(int64(ch.latencyMax-ch.latencyMin)))
	} else {
		delay = ch.latencyMin
	}

	fail := ch.errorRate > 0 && ch.rng.Float64() < ch.errorRate
	return delay, fail
}
