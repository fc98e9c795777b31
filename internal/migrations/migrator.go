// Package migrations applies the raw-SQL schema changes AutoMigrate cannot
// express, such as composite indexes, and records each one as applied.
package migrations

import (
	"fmt"
	"time"

	"github.com/Abhii-bhardwaj/Sociofy-sub001/pkg/logger"
	"gorm.io/gorm"
)

type Migration struct {
	ID        string
	Name      string
	Up        func(tx *gorm.DB) error
	DependsOn []string
}

// AppliedMigration is one row of schema_migrations.
type AppliedMigration struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"type:text"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (AppliedMigration) TableName() string {
	return "schema_migrations"
}

type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, migrations: All()}
}

// WithMigrations replaces the registered set.
func (m *Migrator) WithMigrations(ms ...Migration) *Migrator {
	m.migrations = ms
	return m
}

func (m *Migrator) applied() (map[string]bool, error) {
	if err := m.db.AutoMigrate(&AppliedMigration{}); err != nil {
		return nil, fmt.Errorf("failed to create migrations table: %w", err)
	}
	var rows []AppliedMigration
	if err := m.db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}
	done := make(map[string]bool, len(rows))
	for _, r := range rows {
		done[r.ID] = true
	}
	return done, nil
}

// Pending lists the ids not applied yet, in registration order.
func (m *Migrator) Pending() ([]string, error) {
	done, err := m.applied()
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, mig := range m.migrations {
		if !done[mig.ID] {
			ids = append(ids, mig.ID)
		}
	}
	return ids, nil
}

// Run applies pending migrations in order, each with its record in one
// transaction. A migration whose dependency is missing stops the run.
func (m *Migrator) Run() error {
	done, err := m.applied()
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if done[mig.ID] {
			continue
		}
		for _, dep := range mig.DependsOn {
			if !done[dep] {
				return fmt.Errorf("migration %s depends on %s which is not applied", mig.ID, dep)
			}
		}

		start := time.Now()
		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&AppliedMigration{ID: mig.ID, Name: mig.Name}).Error
		})
		if err != nil {
			logger.Error().Err(err).Str("migration", mig.ID).Msg("Migration failed")
			return fmt.Errorf("migration %s failed: %w", mig.ID, err)
		}

		done[mig.ID] = true
		logger.Info().Str("migration", mig.ID).Dur("took", time.Since(start)).Msg(mig.Name)
	}
	return nil
}

// All returns the registered migrations in order.
func All() []Migration {
	return []Migration{
		Migration001ConversationIndexes(),
		Migration002UnreadIndexes(),
	}
}
