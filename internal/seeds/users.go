package seeds

import (
	"fmt"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoUsers are the accounts created by the seeder, keyed by username.
var DemoUsers = []models.User{
	{Username: "alice", Name: "Alice Smith", Image: "https://api.dicebear.com/7.x/identicon/svg?seed=alice"},
	{Username: "bob", Name: "Bob Jones", Image: "https://api.dicebear.com/7.x/identicon/svg?seed=bob"},
	{Username: "carol", Name: "Carol White", Image: "https://api.dicebear.com/7.x/identicon/svg?seed=carol"},
	{Username: "dave", Name: "Dave Brown", Image: "https://api.dicebear.com/7.x/identicon/svg?seed=dave"},
}

// GetOrCreateUsers returns the demo users, creating any that are missing.
func GetOrCreateUsers(db *gorm.DB) ([]models.User, error) {
	out := make([]models.User, 0, len(DemoUsers))
	for _, demo := range DemoUsers {
		var user models.User
		err := db.Where("username = ?", demo.Username).First(&user).Error
		if err == nil {
			logger.Info().Str("username", user.Username).Msg("Demo user found")
			out = append(out, user)
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return nil, err
		}

		user = demo
		user.ID = uuid.New().String()
		user.CreatedAt = time.Now()
		user.UpdatedAt = time.Now()
		if err := db.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("create %s: %w", demo.Username, err)
		}
		logger.Info().Str("username", user.Username).Str("id", user.ID).Msg("Demo user created")
		out = append(out, user)
	}
	return out, nil
}

// FollowEveryone links every user to every other user. Existing links are kept.
func FollowEveryone(db *gorm.DB, users []models.User) error {
	for _, a := range users {
		for _, b := range users {
			if a.ID == b.ID {
				continue
			}
			link := models.UserLink{LinkerID: a.ID, LinkedID: b.ID}
			if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
				return fmt.Errorf("link %s -> %s: %w", a.Username, b.Username, err)
			}
		}
	}
	return nil
}
