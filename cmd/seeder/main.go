package main

import (
	"fmt"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/config"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/database"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/migrations"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/seeds"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/utils"
)

// Seeds demo users who all follow each other and prints a token for each.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger.Init(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to database")
	}
	logger.Info().Msg("🔄 Running migrations (just in case)...")
	if err := database.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate tables")
	}
	if err := migrations.NewMigrator(db).Run(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run migrations")
	}

	users, err := seeds.GetOrCreateUsers(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed users")
	}
	if err := seeds.FollowEveryone(db, users); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed follows")
	}

	for _, u := range users {
		token, err := utils.GenerateToken(u.ID, cfg.JWTSecret, 7*24*time.Hour)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to sign token")
		}
		fmt.Printf("%-8s %s\n", u.Username, token)
	}
	logger.Info().Int("users", len(users)).Msg("✅ Seeding complete")
}
