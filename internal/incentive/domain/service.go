package domain

import (
	"context"
	"errors"
	"time"

	"github.com/primetable/partnerboard/pkg/db/pagination"
)

type CreateProgramRequest struct {
	Name         string    `json:"name"`
	Metric       Metric    `json:"metric"`
	Threshold    int64     `json:"threshold"`
	RewardAmount int64     `json:"reward_amount"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
}

type GetProgramRequest struct {
	ID string
}

type ListProgramRequest struct {
	Page   pagination.Pagination
	Status string
}

type ListProgramFilter struct {
	Status ProgramStatus
}

type ListProgramResponse struct {
	pagination.PageInfo
	Programs []Program `json:"programs"`
}

type ActivateProgramRequest struct {
	ID string
}

type ListProgressRequest struct {
	ProgramID string
	Page      pagination.Pagination
}

type ListProgressResponse struct {
	pagination.PageInfo
	Progress []Progress `json:"progress"`
}

type Service interface {
	Create(context.Context, CreateProgramRequest) (Program, error)
	GetByID(context.Context, GetProgramRequest) (Program, error)
	List(context.Context, ListProgramRequest) (ListProgramResponse, error)
	Activate(context.Context, ActivateProgramRequest) (Program, error)
	ListProgress(context.Context, ListProgressRequest) (ListProgressResponse, error)

	// CompleteExpired closes ACTIVE programs whose window has passed.
	// Used by the scheduler.
	CompleteExpired(ctx context.Context) (int, error)
}

var (
	ErrInvalidVenue     = errors.New("invalid_venue")
	ErrInvalidID        = errors.New("invalid_id")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidMetric    = errors.New("invalid_metric")
	ErrInvalidThreshold = errors.New("invalid_threshold")
	ErrInvalidReward    = errors.New("invalid_reward")
	ErrInvalidWindow    = errors.New("invalid_window")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrNotDraft         = errors.New("program_not_draft")
	ErrNotFound         = errors.New("not_found")
	ErrConflict         = errors.New("conflict")
)
