// Package history persists fleet run results to a local sqlite database so
// the dashboard can show past runs. The reconciliation engine itself never
// touches it; runs are recorded at the interface layer from the summary.
package history

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tasmofleet/internal/domain/update"
	"tasmofleet/internal/shared/logger"
)

// Run is one recorded fleet run.
type Run struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	CheckOnly  bool      `json:"check_only"`
	DryRun     bool      `json:"dry_run"`

	Total       int `json:"total"`
	NeedsUpdate int `json:"needs_update"`
	Updated     int `json:"updated"`
	Checked     int `json:"checked"`

	Outcomes []Outcome `gorm:"constraint:OnDelete:CASCADE" json:"outcomes"`
}

// Outcome is one device's result within a recorded run.
type Outcome struct {
	ID    uint `gorm:"primarykey" json:"-"`
	RunID uint `gorm:"index" json:"-"`
	// Position preserves the input device order.
	Position int `json:"-"`

	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
	DNSName string `json:"dns_name,omitempty"`

	Success bool   `json:"success"`
	Message string `json:"message"`

	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`

	NeedsUpdate     bool `json:"needs_update"`
	UpdateStarted   bool `json:"update_started"`
	UpdateCompleted bool `json:"update_completed"`

	ElapsedMS int64 `json:"elapsed_ms"`
}

// Store persists and lists fleet runs.
type Store struct {
	db     *gorm.DB
	logger logger.Interface
}

// Open opens (creating if needed) the sqlite history database and migrates
// its schema.
func Open(path string, log logger.Interface) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.AutoMigrate(&Run{}, &Outcome{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history schema: %w", err)
	}

	log.Infow("history database opened", "path", path)
	return &Store{db: db, logger: log}, nil
}

// RecordRun stores one fleet summary.
func (s *Store) RecordRun(ctx context.Context, summary *update.FleetSummary, checkOnly, dryRun bool, startedAt, finishedAt time.Time) error {
	run := Run{
		StartedAt:   startedAt,
		FinishedAt:  finishedAt,
		CheckOnly:   checkOnly,
		DryRun:      dryRun,
		Total:       summary.Total,
		NeedsUpdate: summary.NeedsUpdate,
		Updated:     summary.Updated,
		Checked:     summary.Checked,
	}
	for i, o := range summary.Outcomes {
		if o == nil {
			continue
		}
		run.Outcomes = append(run.Outcomes, Outcome{
			Position:        i,
			Address:         o.Address,
			Name:            o.Name,
			DNSName:         o.DNSName,
			Success:         o.Success,
			Message:         o.Message,
			CurrentVersion:  o.CurrentVersion,
			LatestVersion:   o.LatestVersion,
			NeedsUpdate:     o.NeedsUpdate,
			UpdateStarted:   o.UpdateStarted,
			UpdateCompleted: o.UpdateCompleted,
			ElapsedMS:       o.Elapsed.Milliseconds(),
		})
	}

	if err := s.db.WithContext(ctx).Create(&run).Error; err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	s.logger.Debugw("recorded fleet run", "run_id", run.ID, "total", run.Total)
	return nil
}

// RecentRuns lists the most recent runs, newest first, outcomes in input
// device order.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var runs []Run
	err := s.db.WithContext(ctx).
		Preload("Outcomes", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
