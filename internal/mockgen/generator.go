package mockgen

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/bwmarrin/snowflake"
	bookingdomain "github.com/primetable/partnerboard/internal/booking/domain"
	"github.com/primetable/partnerboard/internal/clock"
	commissiondomain "github.com/primetable/partnerboard/internal/commission/domain"
	"github.com/primetable/partnerboard/internal/config"
	"github.com/primetable/partnerboard/internal/events"
	incentivedomain "github.com/primetable/partnerboard/internal/incentive/domain"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
	"github.com/primetable/partnerboard/internal/rollup"
	teamdomain "github.com/primetable/partnerboard/internal/team/domain"
	venuedomain "github.com/primetable/partnerboard/internal/venue/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	defaultAvgDailyBookings = 24.0
	promoterCount           = 6
	promoterShare           = 0.6

	primeFeePerCover    = int64(2500)
	nonPrimeFeePerCover = int64(1500)
	platformFeeRate     = 0.10
)

// dayOfWeekMultipliers scale expected demand, indexed by time.Weekday.
var dayOfWeekMultipliers = [7]float64{0.9, 0.55, 0.65, 0.75, 0.95, 1.5, 1.7}

// monthlyMultipliers capture seasonality, indexed by month-1.
var monthlyMultipliers = [12]float64{0.8, 0.85, 0.95, 1.0, 1.05, 1.1, 1.15, 1.1, 1.0, 1.0, 1.05, 1.25}

// partySizeWeights is a discrete distribution over diner counts 2..8,
// weights out of 100.
var partySizeWeights = []struct {
	diners int
	weight int
}{
	{2, 30},
	{3, 14},
	{4, 22},
	{5, 8},
	{6, 12},
	{7, 4},
	{8, 10},
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Cfg    config.Config
	Rollup *rollup.Service
}

// Generator builds a deterministic demo dataset. The same seed always
// produces the same venue, promoters, bookings and derived snapshots.
type Generator struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	cfg    config.Config
	rollup *rollup.Service
}

func New(p Params) *Generator {
	return &Generator{
		db:     p.DB,
		log:    p.Log.Named("mockgen"),
		clock:  p.Clock,
		cfg:    p.Cfg,
		rollup: p.Rollup,
	}
}

type GenerateRequest struct {
	Seed             int64   `json:"seed"`
	Days             int     `json:"days"`
	AvgDailyBookings float64 `json:"avg_daily_bookings"`
}

type Summary struct {
	VenueID   string `json:"venue_id"`
	Seed      int64  `json:"seed"`
	Days      int    `json:"days"`
	Promoters int    `json:"promoters"`
	Bookings  int    `json:"bookings"`
	Events    int    `json:"events"`
}

// idAllocator hands out sequential IDs derived from the seed so the
// dataset is reproducible. The range sits far below snowflake's
// timestamp-based IDs, so generated rows never collide with live ones.
type idAllocator struct {
	next int64
}

func (a *idAllocator) id() snowflake.ID {
	a.next++
	return snowflake.ID(a.next)
}

// Generate wipes and rebuilds the demo venue's dataset, then drains the
// rollup pipeline so the snapshot tables match.
func (g *Generator) Generate(ctx context.Context, req GenerateRequest) (Summary, error) {
	if req.Seed == 0 {
		req.Seed = g.cfg.Demo.Seed
	}
	if req.Days <= 0 {
		req.Days = g.cfg.Demo.HistoryDays
	}
	if req.Days <= 0 {
		req.Days = 90
	}
	if req.AvgDailyBookings <= 0 {
		req.AvgDailyBookings = defaultAvgDailyBookings
	}

	alloc := &idAllocator{next: req.Seed * 1_000_000}
	rng := rand.New(rand.NewSource(req.Seed))
	faker := gofakeit.New(uint64(req.Seed))

	venueID := alloc.id()
	now := g.clock.Now().UTC()

	summary := Summary{
		VenueID: venueID.String(),
		Seed:    req.Seed,
		Days:    req.Days,
	}

	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.purgeVenue(ctx, tx, venueID); err != nil {
			return err
		}

		end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start := end.AddDate(0, 0, -(req.Days - 1))

		venue := venuedomain.Venue{
			ID:           venueID,
			Name:         "The Meridian Supper Club",
			Slug:         fmt.Sprintf("meridian-supper-club-%d", req.Seed),
			Type:         venuedomain.VenueTypeClub,
			Capacity:     180,
			MinPartySize: 2,
			MaxPartySize: 8,
			Currency:     "USD",
			Timezone:     "UTC",
			Metadata:     datatypes.JSONMap{"demo": true, "avg_daily_bookings": req.AvgDailyBookings},
			CreatedAt:    start,
			UpdatedAt:    start,
		}
		if err := tx.Create(&venue).Error; err != nil {
			return err
		}

		pricing := venuedomain.PricingConfig{
			VenueID:             venueID,
			PrimeFeePerCover:    primeFeePerCover,
			NonPrimeFeePerCover: nonPrimeFeePerCover,
			PlatformFeeRate:     platformFeeRate,
			CreatedAt:           start,
			UpdatedAt:           start,
		}
		if err := tx.Create(&pricing).Error; err != nil {
			return err
		}

		if err := g.seedDemoTeam(tx, alloc, venueID, start); err != nil {
			return err
		}

		promoters, err := g.seedPromoters(tx, alloc, faker, venueID, start)
		if err != nil {
			return err
		}
		summary.Promoters = len(promoters)

		rates, err := g.seedCommissionRates(tx, alloc, venueID, start)
		if err != nil {
			return err
		}
		if err := g.seedAssignments(tx, alloc, venueID, promoters, rates, start); err != nil {
			return err
		}
		if err := g.seedIncentives(tx, alloc, venueID, start, end); err != nil {
			return err
		}

		bookings, eventsTotal, err := g.seedBookings(tx, alloc, rng, faker, venue, pricing, promoters, start, end)
		if err != nil {
			return err
		}
		summary.Bookings = bookings
		summary.Events = eventsTotal
		return nil
	})
	if err != nil {
		return Summary{}, err
	}

	if err := g.drainRollup(ctx); err != nil {
		return Summary{}, err
	}

	g.log.Info("demo dataset generated",
		zap.Int64("seed", req.Seed),
		zap.Int("days", req.Days),
		zap.Int("bookings", summary.Bookings),
		zap.String("venue_id", summary.VenueID),
	)
	return summary, nil
}

// purgeVenue removes every row belonging to the demo venue. The venue ID
// is derived from the seed, so regeneration with the same seed replaces
// the previous dataset in place.
func (g *Generator) purgeVenue(ctx context.Context, tx *gorm.DB, venueID snowflake.ID) error {
	venueScoped := []string{
		"booking_events",
		"booking_notes",
		"bookings",
		"promoter_stats",
		"promoters",
		"commission_assignments",
		"commission_rates",
		"incentive_progress",
		"incentive_programs",
		"transactions",
		"payout_holds",
		"payouts",
		"venue_daily_stats",
		"venue_members",
		"audit_logs",
	}
	for _, table := range venueScoped {
		if err := tx.WithContext(ctx).Exec("DELETE FROM "+table+" WHERE venue_id = ?", venueID).Error; err != nil {
			return err
		}
	}
	if err := tx.WithContext(ctx).Exec("DELETE FROM venue_pricing_configs WHERE venue_id = ?", venueID).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Exec("DELETE FROM venues WHERE id = ?", venueID).Error
}

// seedDemoTeam creates one user per role so the demo header auth has
// real memberships to resolve against.
func (g *Generator) seedDemoTeam(tx *gorm.DB, alloc *idAllocator, venueID snowflake.ID, at time.Time) error {
	roles := []struct {
		role  teamdomain.Role
		email string
		name  string
	}{
		{teamdomain.RoleOwner, "owner@demo.partnerboard.dev", "Demo Owner"},
		{teamdomain.RoleAdmin, "admin@demo.partnerboard.dev", "Demo Admin"},
		{teamdomain.RoleMember, "member@demo.partnerboard.dev", "Demo Member"},
	}
	for _, r := range roles {
		user := teamdomain.User{
			ID:          alloc.id(),
			Email:       r.email,
			DisplayName: r.name,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		if err := tx.Where("email = ?", r.email).FirstOrCreate(&user).Error; err != nil {
			return err
		}
		member := teamdomain.Member{
			ID:        alloc.id(),
			VenueID:   venueID,
			UserID:    user.ID,
			Role:      r.role,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if err := tx.Create(&member).Error; err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) seedPromoters(tx *gorm.DB, alloc *idAllocator, faker *gofakeit.Faker, venueID snowflake.ID, at time.Time) ([]promoterdomain.Promoter, error) {
	tiers := []promoterdomain.Tier{
		promoterdomain.TierVIP,
		promoterdomain.TierPremium,
		promoterdomain.TierPremium,
		promoterdomain.TierStandard,
		promoterdomain.TierStandard,
		promoterdomain.TierStandard,
	}

	promoters := make([]promoterdomain.Promoter, 0, promoterCount)
	for i := 0; i < promoterCount; i++ {
		name := faker.Name()
		p := promoterdomain.Promoter{
			ID:        alloc.id(),
			VenueID:   venueID,
			Name:      name,
			Email:     fmt.Sprintf("promoter%d@demo.partnerboard.dev", i+1),
			Phone:     faker.Phone(),
			Tier:      tiers[i],
			Active:    true,
			Metadata:  datatypes.JSONMap{"demo": true},
			CreatedAt: at,
			UpdatedAt: at,
		}
		if err := tx.Create(&p).Error; err != nil {
			return nil, err
		}
		promoters = append(promoters, p)
	}
	return promoters, nil
}

func (g *Generator) seedCommissionRates(tx *gorm.DB, alloc *idAllocator, venueID snowflake.ID, at time.Time) (map[promoterdomain.Tier]commissiondomain.Rate, error) {
	specs := []struct {
		tier  promoterdomain.Tier
		name  string
		model commissiondomain.Model
		value float64
	}{
		{promoterdomain.TierStandard, "Standard", commissiondomain.ModelPerCover, 200},
		{promoterdomain.TierPremium, "Premium", commissiondomain.ModelPerCover, 350},
		{promoterdomain.TierVIP, "VIP", commissiondomain.ModelPercentOfSpend, 0.08},
	}

	rates := make(map[promoterdomain.Tier]commissiondomain.Rate, len(specs))
	for _, spec := range specs {
		rate := commissiondomain.Rate{
			ID:        alloc.id(),
			VenueID:   venueID,
			Name:      spec.name,
			Model:     spec.model,
			RateValue: spec.value,
			CreatedAt: at,
			UpdatedAt: at,
		}
		if err := tx.Create(&rate).Error; err != nil {
			return nil, err
		}
		rates[spec.tier] = rate
	}
	return rates, nil
}

func (g *Generator) seedAssignments(tx *gorm.DB, alloc *idAllocator, venueID snowflake.ID, promoters []promoterdomain.Promoter, rates map[promoterdomain.Tier]commissiondomain.Rate, start time.Time) error {
	for _, p := range promoters {
		rate, ok := rates[p.Tier]
		if !ok {
			continue
		}
		assignment := commissiondomain.Assignment{
			ID:            alloc.id(),
			VenueID:       venueID,
			PromoterID:    p.ID,
			RateID:        rate.ID,
			EffectiveFrom: start,
			CreatedAt:     start,
		}
		if err := tx.Create(&assignment).Error; err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) seedIncentives(tx *gorm.DB, alloc *idAllocator, venueID snowflake.ID, start, end time.Time) error {
	programs := []incentivedomain.Program{
		{
			ID:           alloc.id(),
			VenueID:      venueID,
			Name:         "Quarterly Booking Push",
			Metric:       incentivedomain.MetricBookings,
			Threshold:    40,
			RewardAmount: 25000,
			Status:       incentivedomain.ProgramActive,
			StartAt:      start,
			EndAt:        end.AddDate(0, 0, 30),
			CreatedAt:    start,
			UpdatedAt:    start,
		},
		{
			ID:           alloc.id(),
			VenueID:      venueID,
			Name:         "Covers Challenge",
			Metric:       incentivedomain.MetricCovers,
			Threshold:    250,
			RewardAmount: 50000,
			Status:       incentivedomain.ProgramActive,
			StartAt:      start,
			EndAt:        end.AddDate(0, 0, 30),
			CreatedAt:    start,
			UpdatedAt:    start,
		},
	}
	for i := range programs {
		if err := tx.Create(&programs[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (g *Generator) seedBookings(tx *gorm.DB, alloc *idAllocator, rng *rand.Rand, faker *gofakeit.Faker, venue venuedomain.Venue, pricing venuedomain.PricingConfig, promoters []promoterdomain.Promoter, start, end time.Time) (int, int, error) {
	totalBookings := 0
	totalEvents := 0

	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		expected := defaultAvgDailyBookings
		if raw, ok := venue.Metadata["avg_daily_bookings"].(float64); ok && raw > 0 {
			expected = raw
		}
		expected *= dayOfWeekMultipliers[day.Weekday()]
		expected *= monthlyMultipliers[day.Month()-1]
		count := int(math.Round(expected))

		for i := 0; i < count; i++ {
			booking, evts := g.makeBooking(alloc, rng, faker, venue, pricing, promoters, day)
			if err := tx.Create(&booking).Error; err != nil {
				return 0, 0, err
			}
			for j := range evts {
				if err := tx.Create(&evts[j]).Error; err != nil {
					return 0, 0, err
				}
			}
			totalBookings++
			totalEvents += len(evts)
		}
	}
	return totalBookings, totalEvents, nil
}

func (g *Generator) makeBooking(alloc *idAllocator, rng *rand.Rand, faker *gofakeit.Faker, venue venuedomain.Venue, pricing venuedomain.PricingConfig, promoters []promoterdomain.Promoter, day time.Time) (bookingdomain.Booking, []events.BookingEvent) {
	diners := samplePartySize(rng)
	prime := samplePrime(rng, diners)

	perCover := pricing.NonPrimeFeePerCover
	if prime {
		perCover = pricing.PrimeFeePerCover
	}
	fee := int64(diners) * perCover
	platformFee := int64(math.Round(float64(fee) * pricing.PlatformFeeRate))

	bookingAt := day.Add(time.Duration(17+rng.Intn(7)) * time.Hour).
		Add(time.Duration(rng.Intn(4)*15) * time.Minute)

	status := sampleStatus(rng)

	var promoterID *snowflake.ID
	if len(promoters) > 0 && rng.Float64() < promoterShare {
		id := promoters[rng.Intn(len(promoters))].ID
		promoterID = &id
	}

	booking := bookingdomain.Booking{
		ID:          alloc.id(),
		VenueID:     venue.ID,
		PromoterID:  promoterID,
		GuestName:   faker.Name(),
		GuestEmail:  faker.Email(),
		Diners:      diners,
		Prime:       prime,
		BookingAt:   bookingAt,
		Status:      status,
		FeeAmount:   fee,
		PlatformFee: platformFee,
		Currency:    venue.Currency,
		Metadata:    datatypes.JSONMap{"demo": true},
		CreatedAt:   bookingAt.Add(-48 * time.Hour),
		UpdatedAt:   bookingAt,
	}

	payload := map[string]any{
		"booking_id":   booking.ID.String(),
		"diners":       diners,
		"prime":        prime,
		"fee_amount":   fee,
		"platform_fee": platformFee,
		"booking_date": day.Format("2006-01-02"),
	}
	if promoterID != nil {
		payload["promoter_id"] = promoterID.String()
	}

	evts := []events.BookingEvent{
		g.event(alloc, venue.ID, events.EventBookingCreated, payload, booking.CreatedAt),
	}
	switch status {
	case bookingdomain.StatusConfirmed:
		evts = append(evts, g.event(alloc, venue.ID, events.EventBookingConfirmed,
			withPrevious(payload, string(bookingdomain.StatusPending)), booking.CreatedAt.Add(time.Hour)))
	case bookingdomain.StatusCancelled:
		evts = append(evts, g.event(alloc, venue.ID, events.EventBookingCancelled,
			withPrevious(payload, string(bookingdomain.StatusPending)), booking.CreatedAt.Add(time.Hour)))
	case bookingdomain.StatusNoShow:
		evts = append(evts, g.event(alloc, venue.ID, events.EventBookingConfirmed,
			withPrevious(payload, string(bookingdomain.StatusPending)), booking.CreatedAt.Add(time.Hour)))
		evts = append(evts, g.event(alloc, venue.ID, events.EventBookingNoShow,
			withPrevious(payload, string(bookingdomain.StatusConfirmed)), bookingAt.Add(time.Hour)))
	}
	return booking, evts
}

func (g *Generator) event(alloc *idAllocator, venueID snowflake.ID, eventType string, payload map[string]any, at time.Time) events.BookingEvent {
	return events.BookingEvent{
		ID:        alloc.id(),
		VenueID:   venueID,
		EventType: eventType,
		Payload:   datatypes.JSONMap(payload),
		CreatedAt: at,
	}
}

func withPrevious(payload map[string]any, previous string) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}
	out["previous_status"] = previous
	return out
}

func samplePartySize(rng *rand.Rand) int {
	roll := rng.Intn(100)
	acc := 0
	for _, w := range partySizeWeights {
		acc += w.weight
		if roll < acc {
			return w.diners
		}
	}
	return partySizeWeights[len(partySizeWeights)-1].diners
}

// samplePrime classifies a booking. Larger parties skew prime.
func samplePrime(rng *rand.Rand, diners int) bool {
	p := 0.35
	if diners >= 6 {
		p += 0.25
	}
	return rng.Float64() < p
}

// sampleStatus draws the fixed categorical distribution: 85% confirmed,
// 10% cancelled, 5% no-show.
func sampleStatus(rng *rand.Rand) bookingdomain.Status {
	roll := rng.Float64()
	switch {
	case roll < 0.85:
		return bookingdomain.StatusConfirmed
	case roll < 0.95:
		return bookingdomain.StatusCancelled
	default:
		return bookingdomain.StatusNoShow
	}
}

// drainRollup processes generated events until none remain, so KPIs,
// promoter stats and commissions are consistent with the bookings.
func (g *Generator) drainRollup(ctx context.Context) error {
	for {
		var remaining int64
		if err := g.db.WithContext(ctx).
			Model(&events.BookingEvent{}).
			Where("published = ?", false).
			Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 {
			return nil
		}
		if err := g.rollup.ProcessPending(ctx, 500); err != nil {
			return err
		}
	}
}
