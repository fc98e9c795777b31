// Package testutil builds throwaway backing services for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/database"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/migrations"
	"github.com/Abhii-bhardwaj/Sociofy-sub001/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens an in-memory SQLite database private to t, with the service schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate: %v", err)
	}
	if err := migrations.NewMigrator(db).Run(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

// NewRedis starts a miniredis server for t and returns a client to it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

// SeedUsers inserts directory rows with username == id.
func SeedUsers(t *testing.T, db *gorm.DB, ids ...string) {
	t.Helper()
	for _, id := range ids {
		u := models.User{ID: id, Username: id, Name: strings.ToUpper(id), Image: "https://cdn.example.com/" + id + ".png"}
		if err := db.Create(&u).Error; err != nil {
			t.Fatalf("Failed to seed user %s: %v", id, err)
		}
	}
}

// Follow records that linker follows each of linked, in order.
func Follow(t *testing.T, db *gorm.DB, linker string, linked ...string) {
	t.Helper()
	base := time.Now().Add(-time.Hour)
	for i, id := range linked {
		link := models.UserLink{LinkerID: linker, LinkedID: id, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		if err := db.Create(&link).Error; err != nil {
			t.Fatalf("Failed to seed follow %s->%s: %v", linker, id, err)
		}
	}
}
