package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/finance/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertTransaction(ctx context.Context, db *gorm.DB, tx *domain.Transaction) error {
	return db.WithContext(ctx).Create(tx).Error
}

func (r *repo) ListTransactions(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter domain.ListTransactionFilter, page pagination.Pagination) ([]*domain.Transaction, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("venue_id = ?", venueID)
	if filter.PromoterID != "" {
		stmt = stmt.Where("promoter_id = ?", filter.PromoterID)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.From != nil {
		stmt = stmt.Where("occurred_at >= ?", *filter.From)
	}
	if filter.To != nil {
		stmt = stmt.Where("occurred_at < ?", *filter.To)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var transactions []*domain.Transaction
	err := page.Apply(stmt).
		Order("occurred_at desc, id desc").
		Find(&transactions).Error
	if err != nil {
		return nil, 0, err
	}
	return transactions, total, nil
}

func (r *repo) FindUnswept(ctx context.Context, db *gorm.DB, venueID snowflake.ID, periodStart, periodEnd time.Time) ([]*domain.Transaction, error) {
	var transactions []*domain.Transaction
	err := db.WithContext(ctx).
		Where("venue_id = ? AND payout_id IS NULL AND occurred_at >= ? AND occurred_at < ?",
			venueID, periodStart, periodEnd).
		Order("promoter_id asc, occurred_at asc").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) AttachToPayout(ctx context.Context, db *gorm.DB, venueID, payoutID snowflake.ID, transactionIDs []snowflake.ID) error {
	if len(transactionIDs) == 0 {
		return nil
	}
	return db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("venue_id = ? AND id IN ? AND payout_id IS NULL", venueID, transactionIDs).
		Update("payout_id", payoutID).Error
}

func (r *repo) ListByPayout(ctx context.Context, db *gorm.DB, venueID, payoutID snowflake.ID) ([]domain.Transaction, error) {
	var transactions []domain.Transaction
	err := db.WithContext(ctx).
		Where("venue_id = ? AND payout_id = ?", venueID, payoutID).
		Order("occurred_at asc, id asc").
		Find(&transactions).Error
	if err != nil {
		return nil, err
	}
	return transactions, nil
}

func (r *repo) HasCommissionForBooking(ctx context.Context, db *gorm.DB, venueID, bookingID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("venue_id = ? AND booking_id = ? AND type = ?", venueID, bookingID, domain.TransactionCommission).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) HasRewardForProgress(ctx context.Context, db *gorm.DB, venueID, programID, promoterID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Transaction{}).
		Where("venue_id = ? AND promoter_id = ? AND type = ? AND metadata ->> 'program_id' = ?",
			venueID, promoterID, domain.TransactionIncentiveReward, programID.String()).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertPayout(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).Create(payout).Error
}

func (r *repo) FindPayoutByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*domain.Payout, error) {
	var payout domain.Payout
	err := db.WithContext(ctx).First(&payout, "venue_id = ? AND id = ?", venueID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payout, nil
}

func (r *repo) ListPayouts(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter domain.ListPayoutFilter, page pagination.Pagination) ([]*domain.Payout, int64, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Payout{}).
		Where("venue_id = ?", venueID)
	if filter.PromoterID != "" {
		stmt = stmt.Where("promoter_id = ?", filter.PromoterID)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}

	var total int64
	if err := stmt.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var payouts []*domain.Payout
	err := page.Apply(stmt).
		Order("created_at desc, id desc").
		Find(&payouts).Error
	if err != nil {
		return nil, 0, err
	}
	return payouts, total, nil
}

func (r *repo) UpdatePayoutAmounts(ctx context.Context, db *gorm.DB, payout *domain.Payout) error {
	return db.WithContext(ctx).
		Model(&domain.Payout{}).
		Where("venue_id = ? AND id = ?", payout.VenueID, payout.ID).
		Updates(map[string]any{
			"gross_amount": payout.GrossAmount,
			"hold_amount":  payout.HoldAmount,
			"net_amount":   payout.NetAmount,
			"status":       payout.Status,
			"paid_at":      payout.PaidAt,
			"updated_at":   payout.UpdatedAt,
		}).Error
}

func (r *repo) InsertHold(ctx context.Context, db *gorm.DB, hold *domain.PayoutHold) error {
	return db.WithContext(ctx).Create(hold).Error
}

func (r *repo) FindHoldByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*domain.PayoutHold, error) {
	var hold domain.PayoutHold
	err := db.WithContext(ctx).First(&hold, "venue_id = ? AND id = ?", venueID, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &hold, nil
}

func (r *repo) ListHoldsByPayout(ctx context.Context, db *gorm.DB, venueID, payoutID snowflake.ID) ([]domain.PayoutHold, error) {
	var holds []domain.PayoutHold
	err := db.WithContext(ctx).
		Where("venue_id = ? AND payout_id = ?", venueID, payoutID).
		Order("created_at asc, id asc").
		Find(&holds).Error
	if err != nil {
		return nil, err
	}
	return holds, nil
}

func (r *repo) ReleaseHold(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, at time.Time) (bool, error) {
	result := db.WithContext(ctx).
		Model(&domain.PayoutHold{}).
		Where("venue_id = ? AND id = ? AND status = ?", venueID, id, domain.HoldActive).
		Updates(map[string]any{"status": domain.HoldReleased, "released_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
