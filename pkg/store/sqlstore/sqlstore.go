// Package sqlstore is the relational Store, backed by gorm with SQLite and
// MySQL dialects.
package sqlstore

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/records"
)

// Store implements store.Store on a gorm database.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Option configures a Store.
type Option func(*options)

type options struct {
	migrate bool
}

// WithAutoMigrate controls schema migration when the store is created.
// Migration is on by default.
func WithAutoMigrate(enabled bool) Option {
	return func(o *options) {
		o.migrate = enabled
	}
}

// Open connects to a database with the named driver ("sqlite" or "mysql").
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "mysql":
		dialector = mysql.Open(dsn)
	default:
		return nil, errors.NewConfigError("store", "unsupported sql driver "+driver, nil)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.NewPersistError("open", "database", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.NewPersistError("open", "database", driver, err)
	}
	if driver == "sqlite" {
		// one writer; SQLite serializes anyway and :memory: is per connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, errors.NewPersistError("ping", "database", driver, err)
	}

	return New(ctx, db, opts...)
}

// New wraps an open gorm database.
func New(ctx context.Context, db *gorm.DB, opts ...Option) (*Store, error) {
	o := &options{migrate: true}
	for _, opt := range opts {
		opt(o)
	}
	s := &Store{db: db, now: time.Now}
	if o.migrate {
		if err := db.WithContext(ctx).AutoMigrate(&recordRow{}, &traceRow{}); err != nil {
			return nil, errors.NewPersistError("migrate", "schema", "", err)
		}
	}
	return s, nil
}

// DB exposes the underlying gorm handle.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// CurrentTraces implements store.Store.
func (s *Store) CurrentTraces(ctx context.Context, sourceID string) ([]records.Trace, error) {
	var rows []traceRow
	err := s.db.WithContext(ctx).
		Where("source_id = ? AND current = ?", sourceID, true).
		Order("created_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, errors.WrapPersist("lookup", "trace", sourceID, err)
	}
	out := make([]records.Trace, len(rows))
	for i := range rows {
		out[i] = rows[i].toTrace()
	}
	return out, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (*records.Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.NewNotFoundError("record", id)
	}
	if err != nil {
		return nil, errors.WrapPersist("lookup", "record", id, err)
	}
	return row.toRecord(), nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, rec *records.Record) error {
	now := s.now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	if err := s.db.WithContext(ctx).Create(toRow(rec)).Error; err != nil {
		return errors.WrapPersist("create", "record", rec.ID, err)
	}
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, rec *records.Record) error {
	rec.UpdatedAt = s.now()
	row := toRow(rec)
	tx := s.db.WithContext(ctx).Model(&recordRow{}).
		Where("id = ?", rec.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(row)
	if tx.Error != nil {
		return errors.WrapPersist("update", "record", rec.ID, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return errors.NewPersistError("update", "record", rec.ID, errors.NewNotFoundError("record", rec.ID))
	}
	return nil
}

// Tombstone implements store.Store.
func (s *Store) Tombstone(ctx context.Context, id, name string) error {
	tx := s.db.WithContext(ctx).Model(&recordRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":      string(records.StateDeleted),
			"name":       name,
			"updated_at": s.now(),
		})
	if tx.Error != nil {
		return errors.WrapPersist("tombstone", "record", id, tx.Error)
	}
	if tx.RowsAffected == 0 {
		return errors.NewPersistError("tombstone", "record", id, errors.NewNotFoundError("record", id))
	}
	return nil
}

// SaveTrace implements store.Store. The trace is stored non-current.
func (s *Store) SaveTrace(ctx context.Context, trace *records.Trace) error {
	if trace.ID == "" {
		trace.ID = records.NewID()
	}
	if trace.CreatedAt.IsZero() {
		trace.CreatedAt = s.now()
	}
	row := traceToRow(trace)
	row.Current = false
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return errors.WrapPersist("save", "trace", trace.ID, err)
	}
	return nil
}

// MarkCurrent implements store.Store. Clearing the other traces of the
// record and flagging this one happen in one transaction.
func (s *Store) MarkCurrent(ctx context.Context, traceID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target traceRow
		if err := tx.Where("id = ?", traceID).Take(&target).Error; err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.NewNotFoundError("trace", traceID)
			}
			return err
		}
		if err := tx.Model(&traceRow{}).
			Where("record_id = ? AND current = ?", target.RecordID, true).
			Update("current", false).Error; err != nil {
			return err
		}
		return tx.Model(&traceRow{}).Where("id = ?", traceID).Update("current", true).Error
	})
	if err != nil {
		return errors.WrapPersist("mark current", "trace", traceID, err)
	}
	return nil
}

// NameOwner implements store.Store.
func (s *Store) NameOwner(ctx context.Context, name string) (string, bool, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Select("id").Where("name = ?", name).Take(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapPersist("lookup", "record", name, err)
	}
	return row.ID, true, nil
}

// NameOf implements store.Store.
func (s *Store) NameOf(ctx context.Context, id string) (string, bool, error) {
	var row recordRow
	err := s.db.WithContext(ctx).Select("name").Where("id = ?", id).Take(&row).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapPersist("lookup", "record", id, err)
	}
	return row.Name, true, nil
}

// ListActive implements store.Store.
func (s *Store) ListActive(ctx context.Context) ([]*records.Record, error) {
	var rows []recordRow
	err := s.db.WithContext(ctx).
		Where("state = ?", string(records.StateActive)).
		Order("name").
		Find(&rows).Error
	if err != nil {
		return nil, errors.WrapPersist("list", "record", "", err)
	}
	out := make([]*records.Record, len(rows))
	for i := range rows {
		out[i] = rows[i].toRecord()
	}
	return out, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
