package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	InsertTransaction(ctx context.Context, db *gorm.DB, tx *Transaction) error
	ListTransactions(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter ListTransactionFilter, page pagination.Pagination) ([]*Transaction, int64, error)
	// FindUnswept returns transactions in the window not yet attached to a
	// payout, grouped by promoter at the caller.
	FindUnswept(ctx context.Context, db *gorm.DB, venueID snowflake.ID, periodStart, periodEnd time.Time) ([]*Transaction, error)
	AttachToPayout(ctx context.Context, db *gorm.DB, venueID, payoutID snowflake.ID, transactionIDs []snowflake.ID) error
	ListByPayout(ctx context.Context, db *gorm.DB, venueID, payoutID snowflake.ID) ([]Transaction, error)

	// HasCommissionForBooking reports whether a commission row already
	// exists for the booking. Keeps event replays idempotent.
	HasCommissionForBooking(ctx context.Context, db *gorm.DB, venueID, bookingID snowflake.ID) (bool, error)
	// HasRewardForProgress reports whether an incentive reward was already
	// granted for the program/promoter pair.
	HasRewardForProgress(ctx context.Context, db *gorm.DB, venueID, programID, promoterID snowflake.ID) (bool, error)

	InsertPayout(ctx context.Context, db *gorm.DB, payout *Payout) error
	FindPayoutByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*Payout, error)
	ListPayouts(ctx context.Context, db *gorm.DB, venueID snowflake.ID, filter ListPayoutFilter, page pagination.Pagination) ([]*Payout, int64, error)
	UpdatePayoutAmounts(ctx context.Context, db *gorm.DB, payout *Payout) error

	InsertHold(ctx context.Context, db *gorm.DB, hold *PayoutHold) error
	FindHoldByID(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID) (*PayoutHold, error)
	ListHoldsByPayout(ctx context.Context, db *gorm.DB, venueID, payoutID snowflake.ID) ([]PayoutHold, error)
	ReleaseHold(ctx context.Context, db *gorm.DB, venueID, id snowflake.ID, at time.Time) (bool, error)
}
