// Package indexer persists committed chain events into a relational store so
// they can be queried without replaying state.
package indexer

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
	"lukechampine.com/blake3"

	"mediachain/core/types"
)

// DefaultLimit bounds List when no limit is supplied.
const DefaultLimit = 100

// AuditEvent is the persisted form of a committed event.
type AuditEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Fingerprint string    `gorm:"size:64;uniqueIndex"`
	Height      uint64    `gorm:"index"`
	Sequence    uint64    `gorm:"index"`
	Type        string    `gorm:"size:64;index"`
	ContentID   string    `gorm:"index"`
	Attributes  string    `gorm:"type:text"`
	CreatedAt   time.Time
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Type       string
	ContentID  string
	FromHeight uint64
	Limit      int
}

// Indexer writes event records through gorm.
type Indexer struct {
	db  *gorm.DB
	now func() time.Time
}

// Open connects to dsn. Postgres URLs and key/value DSNs use the postgres
// driver; anything else is treated as a sqlite path. An empty dsn opens a
// private in-memory sqlite database.
func Open(dsn string) (*Indexer, error) {
	db, err := gorm.Open(dialector(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("indexer: open: %w", err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Indexer, error) {
	if db == nil {
		return nil, errors.New("indexer: nil database")
	}
	if err := db.AutoMigrate(&AuditEvent{}); err != nil {
		return nil, fmt.Errorf("indexer: migrate: %w", err)
	}
	return &Indexer{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func dialector(dsn string) gorm.Dialector {
	trimmed := strings.TrimSpace(dsn)
	lower := strings.ToLower(trimmed)
	switch {
	case trimmed == "":
		return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"), strings.Contains(lower, "host="):
		return postgres.Open(trimmed)
	default:
		return sqlite.Open(trimmed)
	}
}

// Fingerprint returns the stable identity of a record. Re-publishing the same
// record is a no-op.
func Fingerprint(rec types.EventRecord) string {
	h := blake3.New(32, nil)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], rec.Height)
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], rec.Sequence)
	h.Write(buf[:])
	if rec.Event != nil {
		h.Write([]byte(rec.Event.Type))
		keys := make([]string, 0, len(rec.Event.Attributes))
		for k := range rec.Event.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			h.Write([]byte{0})
			h.Write([]byte(k))
			h.Write([]byte{'='})
			h.Write([]byte(rec.Event.Attributes[k]))
		}
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Publish stores records. It satisfies the node's event sink contract.
func (i *Indexer) Publish(ctx context.Context, records []types.EventRecord) error {
	if i == nil || len(records) == 0 {
		return nil
	}
	rows := make([]AuditEvent, 0, len(records))
	for _, rec := range records {
		if rec.Event == nil {
			continue
		}
		attrs, err := json.Marshal(rec.Event.Attributes)
		if err != nil {
			return fmt.Errorf("indexer: encode attributes: %w", err)
		}
		rows = append(rows, AuditEvent{
			ID:          uuid.New(),
			Fingerprint: Fingerprint(rec),
			Height:      rec.Height,
			Sequence:    rec.Sequence,
			Type:        rec.Event.Type,
			ContentID:   rec.Event.Attributes["contentId"],
			Attributes:  string(attrs),
			CreatedAt:   i.now(),
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return i.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "fingerprint"}}, DoNothing: true}).
		Create(&rows).Error
}

// List returns records matching filter ordered by sequence.
func (i *Indexer) List(ctx context.Context, filter Filter) ([]types.EventRecord, error) {
	if i == nil {
		return nil, errors.New("indexer: not configured")
	}
	limit := filter.Limit
	if limit <= 0 || limit > 10*DefaultLimit {
		limit = DefaultLimit
	}
	query := i.db.WithContext(ctx).Model(&AuditEvent{}).Where("height >= ?", filter.FromHeight)
	if t := strings.TrimSpace(filter.Type); t != "" {
		query = query.Where("type = ?", t)
	}
	if id := strings.TrimSpace(filter.ContentID); id != "" {
		query = query.Where("content_id = ?", id)
	}
	var rows []AuditEvent
	if err := query.Order("sequence asc").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("indexer: list: %w", err)
	}
	out := make([]types.EventRecord, 0, len(rows))
	for _, row := range rows {
		attrs := map[string]string{}
		if row.Attributes != "" {
			if err := json.Unmarshal([]byte(row.Attributes), &attrs); err != nil {
				return nil, fmt.Errorf("indexer: decode attributes: %w", err)
			}
		}
		out = append(out, types.EventRecord{
			Height:   row.Height,
			Sequence: row.Sequence,
			Event:    &types.Event{Type: row.Type, Attributes: attrs},
		})
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (i *Indexer) Close() error {
	if i == nil {
		return nil
	}
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
