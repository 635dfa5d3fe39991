package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/primetable/partnerboard/internal/team/domain"
	"github.com/primetable/partnerboard/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertUser(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindUserByEmail(ctx context.Context, db *gorm.DB, email string) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindUserByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := db.WithContext(ctx).
		Where("id = ?", id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) InsertMember(ctx context.Context, db *gorm.DB, member *domain.Member) error {
	return db.WithContext(ctx).Create(member).Error
}

func (r *repo) FindMember(ctx context.Context, db *gorm.DB, venueID, memberID snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).
		Where("venue_id = ? AND id = ?", venueID, memberID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repo) FindMemberByUser(ctx context.Context, db *gorm.DB, venueID, userID snowflake.ID) (*domain.Member, error) {
	var member domain.Member
	err := db.WithContext(ctx).
		Where("venue_id = ? AND user_id = ?", venueID, userID).
		First(&member).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *repo) ListMembers(ctx context.Context, db *gorm.DB, venueID snowflake.ID, page pagination.Pagination) ([]domain.MemberView, int64, error) {
	base := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("venue_members.venue_id = ?", venueID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var views []domain.MemberView
	err := page.Apply(base.
		Select("venue_members.*, users.email AS email, users.display_name AS display_name").
		Joins("JOIN users ON users.id = venue_members.user_id").
		Order("venue_members.created_at ASC")).
		Scan(&views).Error
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (r *repo) UpdateRole(ctx context.Context, db *gorm.DB, venueID, memberID snowflake.ID, role domain.Role, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("venue_id = ? AND id = ?", venueID, memberID).
		Updates(map[string]any{
			"role":       role,
			"updated_at": at,
		}).Error
}

func (r *repo) DeleteMember(ctx context.Context, db *gorm.DB, venueID, memberID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("venue_id = ? AND id = ?", venueID, memberID).
		Delete(&domain.Member{}).Error
}

func (r *repo) CountByRole(ctx context.Context, db *gorm.DB, venueID snowflake.ID, role domain.Role) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.Member{}).
		Where("venue_id = ? AND role = ?", venueID, role).
		Count(&total).Error
	return total, err
}
