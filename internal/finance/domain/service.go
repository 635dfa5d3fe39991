package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type ListTransactionRequest struct {
	Page       pagination.Pagination
	PromoterID string
	Type       string
	From       *time.Time
	To         *time.Time
}

type ListTransactionFilter struct {
	PromoterID string
	Type       TransactionType
	From       *time.Time
	To         *time.Time
}

type ListTransactionResponse struct {
	pagination.PageInfo
	Transactions []Transaction `json:"transactions"`
}

type GeneratePayoutsRequest struct {
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
}

type GeneratePayoutsResponse struct {
	Payouts []Payout `json:"payouts"`
}

type GetPayoutRequest struct {
	ID string
}

// PayoutDetail is a payout with its swept transactions and holds.
type PayoutDetail struct {
	Payout       Payout        `json:"payout"`
	Transactions []Transaction `json:"transactions"`
	Holds        []PayoutHold  `json:"holds"`
}

type ListPayoutRequest struct {
	Page       pagination.Pagination
	PromoterID string
	Status     string
}

type ListPayoutFilter struct {
	PromoterID string
	Status     PayoutStatus
}

type ListPayoutResponse struct {
	pagination.PageInfo
	Payouts []Payout `json:"payouts"`
}

type PlaceHoldRequest struct {
	PayoutID string
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

type ReleaseHoldRequest struct {
	HoldID string
}

type MarkPaidRequest struct {
	PayoutID string
}

type StatementRequest struct {
	PayoutID string
}

type Service interface {
	ListTransactions(context.Context, ListTransactionRequest) (ListTransactionResponse, error)

	GeneratePayouts(context.Context, GeneratePayoutsRequest) (GeneratePayoutsResponse, error)
	GetPayout(context.Context, GetPayoutRequest) (PayoutDetail, error)
	ListPayouts(context.Context, ListPayoutRequest) (ListPayoutResponse, error)
	MarkPaid(context.Context, MarkPaidRequest) (Payout, error)

	PlaceHold(context.Context, PlaceHoldRequest) (PayoutHold, error)
	ReleaseHold(context.Context, ReleaseHoldRequest) (PayoutHold, error)

	// Statement renders the payout statement PDF.
	Statement(context.Context, StatementRequest) (io.Reader, error)
}

var (
	ErrInvalidVenue   = errors.New("invalid_venue")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidType    = errors.New("invalid_type")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidPeriod  = errors.New("invalid_period")
	ErrInvalidAmount  = errors.New("invalid_amount")
	ErrInvalidReason  = errors.New("invalid_reason")
	ErrPayoutNotOpen  = errors.New("payout_not_open")
	ErrPayoutOnHold   = errors.New("payout_on_hold")
	ErrHoldNotActive  = errors.New("hold_not_active")
	ErrNothingToSweep = errors.New("nothing_to_sweep")
	ErrNotFound       = errors.New("not_found")
)
