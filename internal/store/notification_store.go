package store

import (
	"context"
	"errors"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"gorm.io/gorm"
)

type GormNotificationStore struct {
	db *gorm.DB
}

func NewGormNotificationStore(db *gorm.DB) *GormNotificationStore {
	return &GormNotificationStore{db: db}
}

func (s *GormNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return apperrors.Unavailable("notification store unavailable", err)
	}
	return nil
}

func (s *GormNotificationStore) Get(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("notification not found")
		}
		return nil, apperrors.Unavailable("notification store unavailable", err)
	}
	return &n, nil
}

func (s *GormNotificationStore) ListForUser(ctx context.Context, userID string, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, apperrors.Unavailable("notification store unavailable", err)
	}
	return notifications, nil
}

func (s *GormNotificationStore) MarkRead(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	if err != nil {
		return apperrors.Unavailable("notification store unavailable", err)
	}
	return nil
}
