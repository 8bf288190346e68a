// Package store persists reconciliation runs with gorm.
package store

import (
	"context"
	"fmt"

	"github.com/boddenberg/statement-recon-go/internal/domain"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // postgres
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // sqlite3
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// Open connects to the database and migrates the run table. Dialect is
// "postgres" or "sqlite3".
func Open(dialect, url string) (*gorm.DB, error) {
	db, err := gorm.Open(dialect, url)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == "sqlite3" {
		// an in-memory database exists per connection
		db.DB().SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&ReconciliationRun{}).Error; err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// RunStore is the gorm-backed run log.
type RunStore struct {
	db *gorm.DB
}

// NewRunStore creates a RunStore over an open database.
func NewRunStore(db *gorm.DB) *RunStore {
	return &RunStore{db: db}
}

// SaveRun inserts a run.
func (s *RunStore) SaveRun(_ context.Context, run *domain.RunRecord) error {
	m, err := fromRecord(run)
	if err != nil {
		return fmt.Errorf("encode run %s: %w", run.ID, err)
	}
	if err := s.db.Create(m).Error; err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

// GetRun loads a run by id.
func (s *RunStore) GetRun(_ context.Context, id string) (*domain.RunRecord, error) {
	var m ReconciliationRun
	err := s.db.Where("id = ?", id).First(&m).Error
	if gorm.IsRecordNotFoundError(err) {
		return nil, &domain.ErrNotFound{Resource: "run", ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load run %s: %w", id, err)
	}
	return m.toRecord()
}

// ListRuns returns up to limit runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	var rows []ReconciliationRun
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}

	out := make([]domain.RunRecord, 0, len(rows))
	for i := range rows {
		r, err := rows[i].toRecord()
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", rows[i].ID, err)
		}
		out = append(out, *r)
	}
	return out, nil
}
