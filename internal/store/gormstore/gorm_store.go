package gormstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	storemodel "yudha/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type treasuryEventModel = storemodel.TreasuryEventModel

// TreasuryEventRecord is the storage-agnostic view of one audit row.
type TreasuryEventRecord struct {
	ID        int64          `json:"id"`
	EventType string         `json:"eventType"`
	Wallet    string         `json:"wallet"`
	Amount    float64        `json:"amount"`
	TxHash    *string        `json:"txHash"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// GormStore owns the SQLite file and the treasury event audit trail. The
// decision log shares its connection through SQLDB.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(path string) (*GormStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: db path is required")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&treasuryEventModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: allow a small amount of parallelism for concurrent HTTP reads
	// while keeping lock contention low.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SQLDB exposes the underlying *sql.DB for shared connections.
func (s *GormStore) SQLDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	return s.db.DB()
}

// RecordTreasuryEvent appends one audit row. A nil txHash stays NULL so
// simulated and failed actions are distinguishable from confirmed ones.
func (s *GormStore) RecordTreasuryEvent(eventType, wallet string, amount float64, txHash *string, metadata map[string]any) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	eventType = strings.TrimSpace(eventType)
	if eventType == "" {
		return fmt.Errorf("gorm store: event_type is required")
	}
	var meta datatypes.JSON
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("gorm store: metadata: %w", err)
		}
		meta = datatypes.JSON(raw)
	}
	row := treasuryEventModel{
		EventType:     eventType,
		Wallet:        strings.TrimSpace(wallet),
		Amount:        amount,
		TxHash:        txHash,
		Metadata:      meta,
		CreatedAtUnix: time.Now().UnixMilli(),
	}
	return s.db.Create(&row).Error
}

// RecentTreasuryEvents returns the newest rows first.
func (s *GormStore) RecentTreasuryEvents(limit int) ([]TreasuryEventRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var rows []treasuryEventModel
	if err := s.db.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]TreasuryEventRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, eventModelToRecord(row))
	}
	return out, nil
}

func eventModelToRecord(m treasuryEventModel) TreasuryEventRecord {
	rec := TreasuryEventRecord{
		ID:        m.ID,
		EventType: m.EventType,
		Wallet:    m.Wallet,
		Amount:    m.Amount,
		TxHash:    m.TxHash,
		CreatedAt: time.UnixMilli(m.CreatedAtUnix),
	}
	if len(m.Metadata) > 0 {
		_ = json.Unmarshal(m.Metadata, &rec.Metadata)
	}
	return rec
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
