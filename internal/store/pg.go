package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/plugin/dbresolver"

	"github.com/feral-file/ff-media-ledger/internal/domain"
	"github.com/feral-file/ff-media-ledger/internal/messaging"
	"github.com/feral-file/ff-media-ledger/internal/store/schema"
)

// placeholderData marks a row inserted only to take its lock inside a batch
var placeholderData = datatypes.JSON("null")

type pgStore struct {
	db       *gorm.DB
	notifier messaging.Notifier
}

func hasDBResolver(db *gorm.DB) bool {
	return db != nil && db.Callback().Query().Get("gorm:db_resolver") != nil
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB, notifier messaging.Notifier) Store {
	if notifier == nil {
		notifier = messaging.NewLocalNotifier()
	}
	return &pgStore{db: db, notifier: notifier}
}

// Migrate creates the documents table and its indexes
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.Document{}); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_documents_data ON documents USING GIN (data jsonb_path_ops)").Error; err != nil {
		return fmt.Errorf("failed to create documents data index: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0, the defaults of NormalizeConnectionPoolSettings are used.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

func unavailable(action string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", domain.ErrStoreUnavailable, action, err)
}

// rowData decodes a row, reporting placeholders as absent
func rowData(row schema.Document) (Fields, bool, error) {
	raw := strings.TrimSpace(string(row.Data))
	if raw == "" || raw == "null" {
		return nil, false, nil
	}
	data, err := decodeFields(row.Data)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Get reads from the primary so a toggle never decides on a lagging replica
func (s *pgStore) Get(ctx context.Context, path string) (*Document, error) {
	if err := ValidateDocumentPath(path); err != nil {
		return nil, err
	}

	db := s.db
	if hasDBResolver(db) {
		db = db.Clauses(dbresolver.Write)
	}

	var row schema.Document
	err := db.WithContext(ctx).Where("path = ?", path).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, unavailable("get document", err)
	}

	data, ok, err := rowData(row)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &Document{Path: path, Data: data}, nil
}

func (s *pgStore) Set(ctx context.Context, path string, fields Fields, merge bool) error {
	return s.CommitBatch(ctx, []Op{SetOp(path, fields, merge)})
}

func (s *pgStore) Delete(ctx context.Context, path string) error {
	return s.CommitBatch(ctx, []Op{DeleteOp(path)})
}

func (s *pgStore) AtomicIncrement(ctx context.Context, path, field string, delta int64) error {
	return s.CommitBatch(ctx, []Op{IncrementOp(path, field, delta, false)})
}

// CommitBatch applies the ops in one transaction.
// Every touched row is inserted as a placeholder if missing and then locked with SELECT ... FOR UPDATE,
// so concurrent batches on the same documents serialize even when the documents do not exist yet.
func (s *pgStore) CommitBatch(ctx context.Context, ops []Op) error {
	if len(ops) == 0 {
		return nil
	}
	if err := validateOps(ops); err != nil {
		return err
	}

	paths := uniquePaths(ops)

	var writes []write
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		placeholders := make([]schema.Document, 0, len(paths))
		for _, p := range paths {
			collection := CollectionOf(p)
			placeholders = append(placeholders, schema.Document{
				Path:            p,
				Collection:      collection,
				CollectionGroup: GroupOf(collection),
				Data:            placeholderData,
			})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&placeholders).Error; err != nil {
			return unavailable("reserve documents", err)
		}

		var rows []schema.Document
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("path IN ?", paths).
			Order("path").
			Find(&rows).Error; err != nil {
			return unavailable("lock documents", err)
		}

		current := make(map[string]schema.Document, len(rows))
		for _, r := range rows {
			current[r.Path] = r
		}

		var err error
		writes, err = applyOps(ops, func(path string) (Fields, bool, error) {
			row, ok := current[path]
			if !ok {
				return nil, false, nil
			}
			return rowData(row)
		})
		if err != nil {
			return err
		}

		for _, w := range writes {
			if w.Deleted {
				if err := tx.Where("path = ?", w.Path).Delete(&schema.Document{}).Error; err != nil {
					return unavailable("delete document", err)
				}
				continue
			}

			raw, err := json.Marshal(w.Data)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrInvalidOp, err)
			}
			if err := tx.Model(&schema.Document{}).
				Where("path = ?", w.Path).
				Update("data", datatypes.JSON(raw)).Error; err != nil {
				return unavailable("write document", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	publishChanges(ctx, s.notifier, writes)
	return nil
}

func (s *pgStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := validateQuery(q); err != nil {
		return nil, err
	}

	db := s.db.WithContext(ctx).
		Model(&schema.Document{}).
		Where("collection_group = ?", GroupOf(q.Collection)).
		Where("data <> 'null'::jsonb")
	if !strings.Contains(q.Collection, "*") {
		db = db.Where("collection = ?", q.Collection)
	}
	if q.IDPrefix != "" {
		db = db.Where("starts_with(substring(path from '[^/]+$'), ?)", q.IDPrefix)
	}

	for _, f := range q.Filters {
		value, _ := normalizeValue(f.Value)
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
		// Field names are validated against [A-Za-z0-9_]+ so they can be inlined
		db = db.Where(
			fmt.Sprintf("jsonb_typeof(data -> '%s') = ? AND data -> '%s' %s ?::jsonb", f.Field, f.Field, sqlOperator(f.Op)),
			jsonbType(value), string(raw),
		)
	}

	for _, o := range q.OrderBy {
		db = db.Where(fmt.Sprintf("data -> '%s' IS NOT NULL", o.Field))
		direction := "ASC"
		if o.Desc {
			direction = "DESC"
		}
		db = db.Order(fmt.Sprintf("data -> '%s' %s", o.Field, direction))
	}
	db = db.Order("path ASC")

	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}

	var rows []schema.Document
	if err := db.Find(&rows).Error; err != nil {
		return nil, unavailable("query documents", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, r := range rows {
		if !CollectionMatches(q.Collection, r.Collection) {
			continue
		}
		data, ok, err := rowData(r)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, Document{Path: r.Path, Data: data})
		}
	}
	return docs, nil
}

func (s *pgStore) Subscribe(ctx context.Context, q Query, onChange func([]Document)) (func(), error) {
	return watch(ctx, s.notifier, q, s.Query, onChange)
}

func (s *pgStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func uniquePaths(ops []Op) []string {
	seen := make(map[string]struct{}, len(ops))
	paths := make([]string, 0, len(ops))
	for _, op := range ops {
		if _, ok := seen[op.Path]; ok {
			continue
		}
		seen[op.Path] = struct{}{}
		paths = append(paths, op.Path)
	}
	// A stable lock order keeps concurrent batches from deadlocking
	sort.Strings(paths)
	return paths
}

func sqlOperator(op FilterOp) string {
	if op == OpNotEqual {
		return "<>"
	}
	if op == OpEqual {
		return "="
	}
	return string(op)
}

func jsonbType(v interface{}) string {
	switch v.(type) {
	case float64:
		return "number"
	case bool:
		return "boolean"
	default:
		return "string"
	}
}
