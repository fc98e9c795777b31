package store

import (
	"context"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	apperrors "github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/errors"
	"gorm.io/gorm"
)

// GormDirectory reads user cards and the follow graph.
type GormDirectory struct {
	db *gorm.DB
}

func NewGormDirectory(db *gorm.DB) *GormDirectory {
	return &GormDirectory{db: db}
}

func (d *GormDirectory) Profiles(ctx context.Context, ids []string) (map[string]models.UserSummary, error) {
	out := make(map[string]models.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []models.User
	if err := d.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperrors.Unavailable("user directory unavailable", err)
	}
	for _, u := range users {
		out[u.ID] = u.Summary()
	}
	return out, nil
}

// Following returns the ids userID follows, oldest link first.
func (d *GormDirectory) Following(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := d.db.WithContext(ctx).Model(&models.UserLink{}).
		Where("linker_id = ?", userID).
		Order("created_at asc").
		Pluck("linked_id", &ids).Error
	if err != nil {
		return nil, apperrors.Unavailable("user directory unavailable", err)
	}
	return ids, nil
}
