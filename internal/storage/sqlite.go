package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"asset_ledger/internal/domain"
	"asset_ledger/internal/event"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// JournalEntry is one persisted notification. The journal is append-only.
type JournalEntry struct {
	ID        uint          `gorm:"primaryKey"`
	EventID   string        `gorm:"uniqueIndex;size:36"`
	Seq       uint64        `gorm:"uniqueIndex"`
	Type      event.Type    `gorm:"index"`
	ItemID    domain.ItemID `gorm:"index"`
	Payload   string
	CreatedAt time.Time
}

// Storage persists item records and the event journal in SQLite.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens (or creates) the database at path. An empty path resolves
// to the per-user data directory.
func NewStorage(path string) (*Storage, error) {
	if path == "" {
		p, err := getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
		path = p
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// A single writer keeps SQLite transactions from racing each other.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&domain.Item{}, &JournalEntry{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "AssetLedger", "data", "ledger.db"), nil
}

// Close releases the underlying connection.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Ledger Operations
// ======================================================================================

// Commit upserts the record and appends its event in one transaction.
func (s *Storage) Commit(ctx context.Context, item domain.Item, ev event.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	entry := JournalEntry{
		EventID: ev.GetID().String(),
		Seq:     ev.GetSeq(),
		Type:    ev.GetType(),
		ItemID:  ev.GetItemID(),
		Payload: string(payload),
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&item).Error; err != nil {
			return fmt.Errorf("failed to save item %d: %w", item.ID, err)
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to append event %d: %w", entry.Seq, err)
		}
		return nil
	})
}

// LoadItems returns every record in ascending id order.
func (s *Storage) LoadItems(ctx context.Context) ([]domain.Item, error) {
	var items []domain.Item
	err := s.db.WithContext(ctx).Order("id asc").Find(&items).Error
	return items, err
}

// LastEventSeq returns the sequence of the newest journal entry, 0 if empty.
func (s *Storage) LastEventSeq(ctx context.Context) (uint64, error) {
	var seq uint64
	err := s.db.WithContext(ctx).Model(&JournalEntry{}).Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error
	return seq, err
}

// Journal returns journal entries with seq greater than after, oldest first.
func (s *Storage) Journal(ctx context.Context, after uint64, limit int) ([]JournalEntry, error) {
	var entries []JournalEntry
	q := s.db.WithContext(ctx).Where("seq > ?", after).Order("seq asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&entries).Error
	return entries, err
}
