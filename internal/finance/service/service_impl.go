package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/primetable/partnerboard/internal/audit/domain"
	"github.com/primetable/partnerboard/internal/clock"
	"github.com/primetable/partnerboard/internal/finance/domain"
	"github.com/primetable/partnerboard/internal/observability/metrics"
	pdfprovider "github.com/primetable/partnerboard/internal/providers/pdf"
	promoterdomain "github.com/primetable/partnerboard/internal/promoter/domain"
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
	GenID        *snowflake.Node
	Clock        clock.Clock
	Metrics      *metrics.Metrics
	Repo         domain.Repository
	VenueRepo    venuedomain.Repository
	PromoterRepo promoterdomain.Repository
	PDF          pdfprovider.Provider
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
	pdf          pdfprovider.Provider
	audit        auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("finance.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		metrics:      p.Metrics,
		repo:         p.Repo,
		venueRepo:    p.VenueRepo,
		promoterRepo: p.PromoterRepo,
		pdf:          p.PDF,
		audit:        p.Audit,
	}
}

func (s *Service) ListTransactions(ctx context.Context, req domain.ListTransactionRequest) (domain.ListTransactionResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListTransactionResponse{}, domain.ErrInvalidVenue
	}

	filter := domain.ListTransactionFilter{
		PromoterID: strings.TrimSpace(req.PromoterID),
		From:       req.From,
		To:         req.To,
	}
	if raw := strings.ToUpper(strings.TrimSpace(req.Type)); raw != "" {
		txType := domain.TransactionType(raw)
		if !txType.Valid() {
			return domain.ListTransactionResponse{}, domain.ErrInvalidType
		}
		filter.Type = txType
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.ListTransactions(ctx, s.db, venueID, filter, page)
	if err != nil {
		return domain.ListTransactionResponse{}, err
	}

	transactions := make([]domain.Transaction, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		transactions = append(transactions, *item)
	}

	return domain.ListTransactionResponse{
		PageInfo:     pagination.BuildPageInfo(page, total),
		Transactions: transactions,
	}, nil
}

func (s *Service) GeneratePayouts(ctx context.Context, req domain.GeneratePayoutsRequest) (domain.GeneratePayoutsResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.GeneratePayoutsResponse{}, domain.ErrInvalidVenue
	}

	start := req.PeriodStart.UTC()
	end := req.PeriodEnd.UTC()
	if start.IsZero() || end.IsZero() || !start.Before(end) {
		return domain.GeneratePayoutsResponse{}, domain.ErrInvalidPeriod
	}

	var payouts []domain.Payout
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		unswept, err := s.repo.FindUnswept(ctx, tx, venueID, start, end)
		if err != nil {
			return err
		}
		if len(unswept) == 0 {
			return domain.ErrNothingToSweep
		}

		byPromoter := make(map[snowflake.ID][]*domain.Transaction)
		order := make([]snowflake.ID, 0)
		for _, item := range unswept {
			if item == nil {
				continue
			}
			if _, seen := byPromoter[item.PromoterID]; !seen {
				order = append(order, item.PromoterID)
			}
			byPromoter[item.PromoterID] = append(byPromoter[item.PromoterID], item)
		}

		now := s.clock.Now().UTC()
		for _, promoterID := range order {
			group := byPromoter[promoterID]
			var gross int64
			currency := "USD"
			ids := make([]snowflake.ID, 0, len(group))
			for _, item := range group {
				gross += item.Amount
				currency = item.Currency
				ids = append(ids, item.ID)
			}

			payout := domain.Payout{
				ID:          s.genID.Generate(),
				VenueID:     venueID,
				PromoterID:  promoterID,
				Reference:   "po_" + ulid.Make().String(),
				PeriodStart: start,
				PeriodEnd:   end,
				GrossAmount: gross,
				HoldAmount:  0,
				NetAmount:   gross,
				Currency:    currency,
				Status:      domain.PayoutPending,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.repo.InsertPayout(ctx, tx, &payout); err != nil {
				return err
			}
			if err := s.repo.AttachToPayout(ctx, tx, venueID, payout.ID, ids); err != nil {
				return err
			}
			payouts = append(payouts, payout)
		}
		return nil
	})
	if err != nil {
		return domain.GeneratePayoutsResponse{}, err
	}

	s.metrics.RecordPayoutGenerated(ctx, venueID.String())
	s.log.Info("payouts generated",
		zap.String("venue_id", venueID.String()),
		zap.Int("count", len(payouts)),
	)
	return domain.GeneratePayoutsResponse{Payouts: payouts}, nil
}

func (s *Service) GetPayout(ctx context.Context, req domain.GetPayoutRequest) (domain.PayoutDetail, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.PayoutDetail{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.PayoutDetail{}, err
	}

	payout, err := s.repo.FindPayoutByID(ctx, s.db, venueID, id)
	if err != nil {
		return domain.PayoutDetail{}, err
	}
	if payout == nil {
		return domain.PayoutDetail{}, domain.ErrNotFound
	}

	transactions, err := s.repo.ListByPayout(ctx, s.db, venueID, id)
	if err != nil {
		return domain.PayoutDetail{}, err
	}
	holds, err := s.repo.ListHoldsByPayout(ctx, s.db, venueID, id)
	if err != nil {
		return domain.PayoutDetail{}, err
	}

	return domain.PayoutDetail{
		Payout:       *payout,
		Transactions: transactions,
		Holds:        holds,
	}, nil
}

func (s *Service) ListPayouts(ctx context.Context, req domain.ListPayoutRequest) (domain.ListPayoutResponse, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.ListPayoutResponse{}, domain.ErrInvalidVenue
	}

	filter := domain.ListPayoutFilter{PromoterID: strings.TrimSpace(req.PromoterID)}
	if raw := strings.ToUpper(strings.TrimSpace(req.Status)); raw != "" {
		status := domain.PayoutStatus(raw)
		switch status {
		case domain.PayoutPending, domain.PayoutOnHold, domain.PayoutPaid:
			filter.Status = status
		default:
			return domain.ListPayoutResponse{}, domain.ErrInvalidStatus
		}
	}

	page := req.Page.Normalize()
	items, total, err := s.repo.ListPayouts(ctx, s.db, venueID, filter, page)
	if err != nil {
		return domain.ListPayoutResponse{}, err
	}

	payouts := make([]domain.Payout, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		payouts = append(payouts, *item)
	}

	return domain.ListPayoutResponse{
		PageInfo: pagination.BuildPageInfo(page, total),
		Payouts:  payouts,
	}, nil
}

func (s *Service) MarkPaid(ctx context.Context, req domain.MarkPaidRequest) (domain.Payout, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.Payout{}, domain.ErrInvalidVenue
	}

	id, err := s.parseID(req.PayoutID)
	if err != nil {
		return domain.Payout{}, err
	}

	var payout *domain.Payout
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payout, err = s.repo.FindPayoutByID(ctx, tx, venueID, id)
		if err != nil {
			return err
		}
		if payout == nil {
			return domain.ErrNotFound
		}
		if payout.Status == domain.PayoutOnHold {
			return domain.ErrPayoutOnHold
		}
		if payout.Status != domain.PayoutPending {
			return domain.ErrPayoutNotOpen
		}

		now := s.clock.Now().UTC()
		payout.Status = domain.PayoutPaid
		payout.PaidAt = &now
		payout.UpdatedAt = now
		return s.repo.UpdatePayoutAmounts(ctx, tx, payout)
	})
	if err != nil {
		return domain.Payout{}, err
	}

	s.log.Info("payout paid",
		zap.String("payout_id", id.String()),
		zap.String("reference", payout.Reference),
	)
	return *payout, nil
}

func (s *Service) PlaceHold(ctx context.Context, req domain.PlaceHoldRequest) (domain.PayoutHold, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.PayoutHold{}, domain.ErrInvalidVenue
	}

	payoutID, err := s.parseID(req.PayoutID)
	if err != nil {
		return domain.PayoutHold{}, err
	}
	if req.Amount <= 0 {
		return domain.PayoutHold{}, domain.ErrInvalidAmount
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.PayoutHold{}, domain.ErrInvalidReason
	}

	var hold domain.PayoutHold
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payout, err := s.repo.FindPayoutByID(ctx, tx, venueID, payoutID)
		if err != nil {
			return err
		}
		if payout == nil {
			return domain.ErrNotFound
		}
		if payout.Status == domain.PayoutPaid {
			return domain.ErrPayoutNotOpen
		}

		now := s.clock.Now().UTC()
		hold = domain.PayoutHold{
			ID:        s.genID.Generate(),
			VenueID:   venueID,
			PayoutID:  payoutID,
			Amount:    req.Amount,
			Reason:    reason,
			Status:    domain.HoldActive,
			CreatedAt: now,
		}
		if err := s.repo.InsertHold(ctx, tx, &hold); err != nil {
			return err
		}
		return s.recomputePayout(ctx, tx, payout, now)
	})
	if err != nil {
		return domain.PayoutHold{}, err
	}

	payoutIDStr := payoutID.String()
	s.audit.AuditLog(ctx, &venueID, "", nil, "finance.hold_placed", "payout", &payoutIDStr, map[string]any{
		"hold_id": hold.ID.String(),
		"amount":  req.Amount,
		"reason":  reason,
	})

	s.log.Info("payout hold placed",
		zap.String("payout_id", payoutID.String()),
		zap.Int64("amount", req.Amount),
	)
	return hold, nil
}

func (s *Service) ReleaseHold(ctx context.Context, req domain.ReleaseHoldRequest) (domain.PayoutHold, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return domain.PayoutHold{}, domain.ErrInvalidVenue
	}

	holdID, err := s.parseID(req.HoldID)
	if err != nil {
		return domain.PayoutHold{}, err
	}

	var hold *domain.PayoutHold
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		hold, err = s.repo.FindHoldByID(ctx, tx, venueID, holdID)
		if err != nil {
			return err
		}
		if hold == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now().UTC()
		released, err := s.repo.ReleaseHold(ctx, tx, venueID, holdID, now)
		if err != nil {
			return err
		}
		if !released {
			return domain.ErrHoldNotActive
		}
		hold.Status = domain.HoldReleased
		hold.ReleasedAt = &now

		payout, err := s.repo.FindPayoutByID(ctx, tx, venueID, hold.PayoutID)
		if err != nil {
			return err
		}
		if payout == nil {
			return domain.ErrNotFound
		}
		return s.recomputePayout(ctx, tx, payout, now)
	})
	if err != nil {
		return domain.PayoutHold{}, err
	}

	payoutIDStr := hold.PayoutID.String()
	s.audit.AuditLog(ctx, &venueID, "", nil, "finance.hold_released", "payout", &payoutIDStr, map[string]any{
		"hold_id": holdID.String(),
	})

	s.log.Info("payout hold released", zap.String("hold_id", holdID.String()))
	return *hold, nil
}

// recomputePayout re-derives hold and net amounts from the active holds
// and flips status between PENDING and ON_HOLD. Paid payouts are left
// untouched.
func (s *Service) recomputePayout(ctx context.Context, tx *gorm.DB, payout *domain.Payout, at time.Time) error {
	if payout.Status == domain.PayoutPaid {
		return nil
	}

	holds, err := s.repo.ListHoldsByPayout(ctx, tx, payout.VenueID, payout.ID)
	if err != nil {
		return err
	}

	var held int64
	for _, hold := range holds {
		if hold.Status == domain.HoldActive {
			held += hold.Amount
		}
	}

	payout.HoldAmount = held
	payout.NetAmount = payout.GrossAmount - held
	if held > 0 {
		payout.Status = domain.PayoutOnHold
	} else {
		payout.Status = domain.PayoutPending
	}
	payout.UpdatedAt = at
	return s.repo.UpdatePayoutAmounts(ctx, tx, payout)
}

func (s *Service) Statement(ctx context.Context, req domain.StatementRequest) (io.Reader, error) {
	venueID, ok := venuectx.VenueIDFromContext(ctx)
	if !ok || venueID == 0 {
		return nil, domain.ErrInvalidVenue
	}

	detail, err := s.GetPayout(ctx, domain.GetPayoutRequest{ID: req.PayoutID})
	if err != nil {
		return nil, err
	}

	venueName := venueID.String()
	if venue, err := s.venueRepo.FindByID(ctx, s.db, venueID); err == nil && venue != nil {
		venueName = venue.Name
	}
	promoterName := detail.Payout.PromoterID.String()
	if promoter, err := s.promoterRepo.FindByID(ctx, s.db, venueID, detail.Payout.PromoterID); err == nil && promoter != nil {
		promoterName = promoter.Name
	}

	currency := detail.Payout.Currency
	lines := make([]pdfprovider.StatementLine, 0, len(detail.Transactions))
	for _, item := range detail.Transactions {
		description := string(item.Type)
		if item.BookingID != nil {
			description = fmt.Sprintf("Booking %s", item.BookingID.String())
		}
		lines = append(lines, pdfprovider.StatementLine{
			Date:        item.OccurredAt.Format("2006-01-02"),
			Description: description,
			Type:        string(item.Type),
			Amount:      formatMinor(item.Amount, currency),
		})
	}

	data := pdfprovider.StatementData{
		VenueName:    venueName,
		PromoterName: promoterName,
		Reference:    detail.Payout.Reference,
		PeriodStart:  detail.Payout.PeriodStart.Format("2006-01-02"),
		PeriodEnd:    detail.Payout.PeriodEnd.Format("2006-01-02"),
		IssueDate:    s.clock.Now().UTC().Format("2006-01-02"),
		Lines:        lines,
		GrossAmount:  formatMinor(detail.Payout.GrossAmount, currency),
		HoldAmount:   formatMinor(detail.Payout.HoldAmount, currency),
		NetAmount:    formatMinor(detail.Payout.NetAmount, currency),
		Status:       string(detail.Payout.Status),
	}

	return s.pdf.GenerateStatement(ctx, data)
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func formatMinor(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d %s", sign, amount/100, amount%100, currency)
}
