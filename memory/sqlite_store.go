package memory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/google/uuid"
	"github.com/tessellate-ai/memring/errors"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SqliteStore persists one ring as a keyed table plus a sqlite-vec virtual
// table. Both are written inside one transaction, so a reader never observes
// the record without its vector or vice versa.
type SqliteStore struct {
	db       *gorm.DB
	ring     Ring
	vecDim   int
	table    string
	vecTable string
}

type memoryRecord struct {
	// Key is the ring-prefixed physical key: {ring}:{session}:{id} for
	// session-scoped rings, {ring}:{id} for long_term.
	Key string `gorm:"primaryKey"`

	ID             string  `gorm:"index;not null"`
	SourceID       *string `gorm:""`
	SessionID      *string `gorm:"index"`
	Kind           string  `gorm:"not null"`
	Content        string
	Importance     float64
	Ring           string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"index"`
	LastAccessedAt time.Time

	Metadata datatypes.JSONType[map[string]any]
}

var _ Store = (*SqliteStore)(nil)

// OpenSqlite opens (creating if needed) the shared SQLite database with the
// sqlite-vec extension loaded. All ring stores of one process share the
// returned handle.
func OpenSqlite(path string) (*gorm.DB, error) {
	sqlite_vec.Auto()

	if path != ":memory:" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return nil, errors.Wrapf(err, "failed to create sqlite directory for %s", path)
			}
		}
	}

	db, err := gorm.Open(
		sqlite.Open(fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_foreign_keys=on", path)),
		&gorm.Config{},
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open sqlite database at %s", path)
	}

	var sqliteVersion, vecVersion string
	if err := db.Raw("SELECT sqlite_version(), vec_version()").Row().Scan(&sqliteVersion, &vecVersion); err != nil {
		return nil, errors.Wrapf(err, "sqlite-vec extension not properly loaded")
	}

	return db, nil
}

// NewSqliteStore binds one ring to its pair of tables on the shared handle.
func NewSqliteStore(db *gorm.DB, ring Ring, dimension int) (*SqliteStore, error) {
	if !ring.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "invalid ring %q", ring)
	}

	s := &SqliteStore{
		db:       db,
		ring:     ring,
		vecDim:   dimension,
		table:    fmt.Sprintf("memories_%s", ring),
		vecTable: fmt.Sprintf("vectors_%s", ring),
	}

	if err := db.Table(s.table).AutoMigrate(&memoryRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate %s", s.table)
	}

	createTableSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(
			item_key TEXT PRIMARY KEY,
			embedding float[%d] distance_metric=cosine
		);
	`, s.vecTable, dimension)
	if err := db.Exec(createTableSQL).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to create %s", s.vecTable)
	}

	return s, nil
}

// key builds the ring-prefixed physical key so tiers can never collide.
func (s *SqliteStore) key(item *MemoryItem) string {
	if s.ring != RingLongTerm && item.SessionID != nil {
		return fmt.Sprintf("%s:%s:%s", s.ring, item.SessionID, item.ID)
	}
	return fmt.Sprintf("%s:%s", s.ring, item.ID)
}

func (s *SqliteStore) Put(ctx context.Context, item *MemoryItem) (uuid.UUID, error) {
	if item == nil {
		return uuid.Nil, errors.Wrapf(errors.ErrInvalidParams, "item is nil")
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	rec := memoryRecord{
		Key:            s.key(item),
		ID:             item.ID.String(),
		Kind:           string(item.Kind),
		Content:        item.Content,
		Importance:     item.Importance,
		Ring:           string(item.Ring),
		CreatedAt:      item.CreatedAt,
		LastAccessedAt: item.LastAccessedAt,
		Metadata:       datatypes.NewJSONType(item.Metadata),
	}
	if item.SourceID != nil {
		v := item.SourceID.String()
		rec.SourceID = &v
	}
	if item.SessionID != nil {
		v := item.SessionID.String()
		rec.SessionID = &v
	}

	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table(s.table).Save(&rec).Error; err != nil {
			return errors.Wrapf(err, "failed to save memory record")
		}

		if len(item.Embedding) == 0 {
			return nil
		}

		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE item_key = ?", s.vecTable), rec.Key).Error; err != nil {
			return errors.Wrapf(err, "failed to delete existing vector")
		}

		serialized, err := sqlite_vec.SerializeFloat32(item.Embedding)
		if err != nil {
			return errors.Wrapf(err, "failed to serialize embedding")
		}

		insertSQL := fmt.Sprintf("INSERT INTO %s (item_key, embedding) VALUES (?, ?)", s.vecTable)
		if err := tx.Exec(insertSQL, rec.Key, serialized).Error; err != nil {
			return errors.Wrapf(err, "failed to insert vector")
		}
		return nil
	}); err != nil {
		return uuid.Nil, err
	}

	return item.ID, nil
}

func (s *SqliteStore) Get(ctx context.Context, id uuid.UUID) (*MemoryItem, error) {
	var rec memoryRecord
	if r := s.db.WithContext(ctx).Table(s.table).Where("id = ?", id.String()).Limit(1).Find(&rec); r.Error != nil {
		return nil, errors.Wrapf(r.Error, "failed to get memory item %s", id)
	} else if r.RowsAffected == 0 {
		return nil, errors.Wrapf(errors.ErrNotFound, "memory item %s", id)
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Table(s.table).
		Where("key = ?", rec.Key).
		Update("last_accessed_at", now).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to touch memory item %s", id)
	}
	rec.LastAccessedAt = now

	return recordToItem(&rec)
}

func (s *SqliteStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var keys []string
		if err := tx.Table(s.table).Where("id = ?", id.String()).Pluck("key", &keys).Error; err != nil {
			return errors.Wrapf(err, "failed to resolve keys for %s", id)
		}
		if len(keys) == 0 {
			return nil
		}

		if err := tx.Exec(fmt.Sprintf("DELETE FROM %s WHERE item_key IN ?", s.vecTable), keys).Error; err != nil {
			return errors.Wrapf(err, "failed to delete vectors")
		}
		if err := tx.Table(s.table).Where("key IN ?", keys).Delete(&memoryRecord{}).Error; err != nil {
			return errors.Wrapf(err, "failed to delete memory records")
		}
		return nil
	})
}

func (s *SqliteStore) Query(ctx context.Context, filter Filter, limit int) ([]*MemoryItem, error) {
	tx := s.applyFilter(s.db.WithContext(ctx).Table(s.table), filter).
		Order("created_at DESC")
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var recs []memoryRecord
	if err := tx.Find(&recs).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to query %s", s.table)
	}

	items := make([]*MemoryItem, 0, len(recs))
	for i := range recs {
		item, err := recordToItem(&recs[i])
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *SqliteStore) VectorSearch(ctx context.Context, embedding []float32, topK int, filter Filter) ([]ScoredItem, error) {
	if len(embedding) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding is empty")
	}

	var allowedKeys []string
	if err := s.applyFilter(s.db.WithContext(ctx).Table(s.table), filter).
		Pluck("key", &allowedKeys).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to resolve filtered keys")
	}
	if len(allowedKeys) == 0 {
		return nil, nil
	}

	serialized, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize query embedding")
	}

	searchSQL := fmt.Sprintf(`
		SELECT item_key, distance
		FROM %s
		WHERE embedding MATCH ? AND item_key IN ?
		ORDER BY distance
		LIMIT ?
	`, s.vecTable)

	rows, err := s.db.WithContext(ctx).Raw(searchSQL, serialized, allowedKeys, topK).Rows()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute vector search")
	}
	defer rows.Close()

	distanceByKey := make(map[string]float64)
	var keys []string
	for rows.Next() {
		var key string
		var distance float64
		if err := rows.Scan(&key, &distance); err != nil {
			return nil, errors.Wrapf(err, "failed to scan search row")
		}
		keys = append(keys, key)
		distanceByKey[key] = distance
	}
	if len(keys) == 0 {
		return nil, nil
	}

	var recs []memoryRecord
	if err := s.db.WithContext(ctx).Table(s.table).Where("key IN ?", keys).Find(&recs).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to fetch matched records")
	}

	now := time.Now()
	if err := s.db.WithContext(ctx).Table(s.table).
		Where("key IN ?", keys).
		Update("last_accessed_at", now).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to touch matched records")
	}

	results := make([]ScoredItem, 0, len(recs))
	for i := range recs {
		recs[i].LastAccessedAt = now
		item, err := recordToItem(&recs[i])
		if err != nil {
			return nil, err
		}
		// Cosine distance is in [0,2]; fold it into a [0,1] similarity.
		results = append(results, ScoredItem{
			Item:  item,
			Score: 1.0 - distanceByKey[recs[i].Key]/2.0,
		})
	}

	// The vector table returns distance-ascending order; restore it after the
	// keyed fetch.
	sortScoredDescending(results)
	return results, nil
}

func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SqliteStore) applyFilter(tx *gorm.DB, filter Filter) *gorm.DB {
	if filter.SessionID != nil {
		tx = tx.Where("session_id = ?", filter.SessionID.String())
	}
	if len(filter.Kinds) > 0 {
		kinds := make([]string, 0, len(filter.Kinds))
		for _, k := range filter.Kinds {
			kinds = append(kinds, string(k))
		}
		tx = tx.Where("kind IN ?", kinds)
	}
	if !filter.Before.IsZero() {
		tx = tx.Where("created_at < ?", filter.Before)
	}
	return tx
}

func recordToItem(rec *memoryRecord) (*MemoryItem, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt item id %q", rec.ID)
	}

	item := &MemoryItem{
		ID:             id,
		Kind:           Kind(rec.Kind),
		Content:        rec.Content,
		Importance:     rec.Importance,
		Ring:           Ring(rec.Ring),
		CreatedAt:      rec.CreatedAt,
		LastAccessedAt: rec.LastAccessedAt,
		Metadata:       rec.Metadata.Data(),
	}
	if rec.SourceID != nil {
		v, err := uuid.Parse(*rec.SourceID)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt source id %q", *rec.SourceID)
		}
		item.SourceID = &v
	}
	if rec.SessionID != nil {
		v, err := uuid.Parse(*rec.SessionID)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt session id %q", *rec.SessionID)
		}
		item.SessionID = &v
	}
	return item, nil
}

func sortScoredDescending(results []ScoredItem) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}
