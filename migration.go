package kvdoc

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"
)

// MigrationsKey holds the bookkeeping map of applied migrations, always as
// JSON regardless of the DB encoding.
const MigrationsKey = "torm:migrations"

// Action is one direction of a migration.
type Action interface {
	Run(ctx context.Context, db *DB) error
}

type ActionFunc func(ctx context.Context, db *DB) error

func (f ActionFunc) Run(ctx context.Context, db *DB) error {
	return f(ctx, db)
}

type Migration struct {
	ID   string
	Name string
	Up   Action
	Down Action
}

// MigrationRecord is the persisted evidence that a migration was applied.
type MigrationRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	AppliedAt time.Time `json:"applied_at"`
	Checksum  string    `json:"checksum"`
}

type MigrationState int

const (
	MigrationPending MigrationState = iota
	MigrationApplied
)

func (s MigrationState) String() string {
	switch s {
	case MigrationPending:
		return "pending"
	case MigrationApplied:
		return "applied"
	default:
		return fmt.Sprintf("invalid state %d", int(s))
	}
}

type MigrationStatus struct {
	ID        string
	Name      string
	State     MigrationState
	AppliedAt time.Time // zero when pending
}

// MigrationError reports a failed up or down action.
type MigrationError struct {
	ID   string
	Name string
	Down bool
	Err  error
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

func (e *MigrationError) Error() string {
	dir := "up"
	if e.Down {
		dir = "down"
	}
	return fmt.Sprintf("migration %s (%s) %s: %v", e.ID, e.Name, dir, e.Err)
}

type MigratorOptions struct {
	Now    func() time.Time
	Logger *zap.Logger
}

// Migrator applies and rolls back registered migrations, recording
// progress under MigrationsKey. Progress is rewritten after every step, so
// a failure leaves earlier steps recorded. There is no locking: two
// migrators running concurrently against one store may lose each other's
// bookkeeping updates.
type Migrator struct {
	db         *DB
	now        func() time.Time
	logger     *zap.Logger
	migrations []*Migration
	byID       map[string]int
}

func NewMigrator(db *DB, opt MigratorOptions) *Migrator {
	if opt.Now == nil {
		opt.Now = time.Now
	}
	if opt.Logger == nil {
		opt.Logger = db.logger
	}
	return &Migrator{
		db:     db,
		now:    opt.Now,
		logger: opt.Logger,
		byID:   make(map[string]int),
	}
}

// Add registers a migration. Migrations run in registration order. Either
// action may be nil, meaning nothing to do.
func (m *Migrator) Add(id, name string, up, down Action) *Migrator {
	return m.AddMigration(&Migration{ID: id, Name: name, Up: up, Down: down})
}

// AddMigration registers mig. Duplicate ids panic.
func (m *Migrator) AddMigration(mig *Migration) *Migrator {
	if mig.ID == "" {
		panic("kvdoc: empty migration id")
	}
	if _, dup := m.byID[mig.ID]; dup {
		panic(fmt.Errorf("kvdoc: duplicate migration id %q", mig.ID))
	}
	m.byID[mig.ID] = len(m.migrations)
	m.migrations = append(m.migrations, mig)
	return m
}

func (m *Migrator) Migrations() []*Migration {
	return slices.Clone(m.migrations)
}

// Migrate applies pending migrations in registration order and returns the
// names applied by this call. It stops at the first failure; migrations
// applied before it stay recorded and are returned together with the error.
func (m *Migrator) Migrate(ctx context.Context) ([]string, error) {
	applied, err := m.db.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, mig := range m.migrations {
		if _, ok := applied[mig.ID]; ok {
			continue
		}
		if err := runAction(ctx, m.db, mig.Up); err != nil {
			m.logger.Error("migration failed", zap.String("id", mig.ID), zap.String("name", mig.Name), zap.Error(err))
			return names, &MigrationError{ID: mig.ID, Name: mig.Name, Err: err}
		}
		rec := &MigrationRecord{
			ID:        mig.ID,
			Name:      mig.Name,
			AppliedAt: m.now().UTC(),
			Checksum:  migrationChecksum(mig.ID),
		}
		err := m.db.updateMigrations(ctx, func(recs map[string]*MigrationRecord) {
			recs[rec.ID] = rec
		})
		if err != nil {
			return names, err
		}
		m.logger.Info("applied migration", zap.String("id", mig.ID), zap.String("name", mig.Name))
		names = append(names, mig.Name)
	}
	return names, nil
}

// Rollback reverts up to n most recently applied migrations, newest first,
// and returns the names rolled back. Applied migrations that are no longer
// registered cannot be reverted; they are skipped but still count towards n.
func (m *Migrator) Rollback(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	applied, err := m.db.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	recs := make([]*MigrationRecord, 0, len(applied))
	for _, rec := range applied {
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *MigrationRecord) int {
		if c := b.AppliedAt.Compare(a.AppliedAt); c != 0 {
			return c
		}
		if c := m.registrationIndex(b.ID) - m.registrationIndex(a.ID); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if len(recs) > n {
		recs = recs[:n]
	}

	var names []string
	for _, rec := range recs {
		i, ok := m.byID[rec.ID]
		if !ok {
			m.logger.Warn("cannot roll back unregistered migration", zap.String("id", rec.ID), zap.String("name", rec.Name))
			continue
		}
		mig := m.migrations[i]
		if err := runAction(ctx, m.db, mig.Down); err != nil {
			m.logger.Error("migration rollback failed", zap.String("id", mig.ID), zap.String("name", mig.Name), zap.Error(err))
			return names, &MigrationError{ID: mig.ID, Name: mig.Name, Down: true, Err: err}
		}
		err := m.db.updateMigrations(ctx, func(recs map[string]*MigrationRecord) {
			delete(recs, rec.ID)
		})
		if err != nil {
			return names, err
		}
		m.logger.Info("rolled back migration", zap.String("id", mig.ID), zap.String("name", rec.Name))
		names = append(names, rec.Name)
	}
	return names, nil
}

// Status reports every registered migration, in registration order.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	applied, err := m.db.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	result := make([]MigrationStatus, len(m.migrations))
	for i, mig := range m.migrations {
		st := MigrationStatus{ID: mig.ID, Name: mig.Name}
		if rec, ok := applied[mig.ID]; ok {
			st.State = MigrationApplied
			st.AppliedAt = rec.AppliedAt
		}
		result[i] = st
	}
	return result, nil
}

func (m *Migrator) registrationIndex(id string) int {
	if i, ok := m.byID[id]; ok {
		return i
	}
	return -1
}

func runAction(ctx context.Context, db *DB, action Action) error {
	if action == nil {
		return nil
	}
	return action.Run(ctx, db)
}

func migrationChecksum(id string) string {
	return strconv.FormatUint(xxhash.Sum64String(id), 16)
}

// AppliedMigrations reads the bookkeeping map. A missing key means nothing
// has been applied.
func (db *DB) AppliedMigrations(ctx context.Context) (map[string]*MigrationRecord, error) {
	data, err := db.get(ctx, MigrationsKey)
	if err != nil {
		return nil, err
	}
	recs := make(map[string]*MigrationRecord)
	if data == nil {
		return recs, nil
	}
	if err := json.Unmarshal(data, &recs); err != nil {
		return nil, dataErrf(MigrationsKey, data, err, "failed to decode migration records")
	}
	for id, rec := range recs {
		if rec == nil {
			delete(recs, id)
		}
	}
	return recs, nil
}

// MigrationHistory returns the applied migration records, newest first.
func (db *DB) MigrationHistory(ctx context.Context) ([]*MigrationRecord, error) {
	applied, err := db.AppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}
	recs := make([]*MigrationRecord, 0, len(applied))
	for _, rec := range applied {
		recs = append(recs, rec)
	}
	slices.SortFunc(recs, func(a, b *MigrationRecord) int {
		if c := b.AppliedAt.Compare(a.AppliedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return recs, nil
}

// updateMigrations re-reads the bookkeeping map, applies f and writes the
// whole map back. Last writer wins.
func (db *DB) updateMigrations(ctx context.Context, f func(recs map[string]*MigrationRecord)) error {
	recs, err := db.AppliedMigrations(ctx)
	if err != nil {
		return err
	}
	f(recs)
	data, err := json.Marshal(recs)
	if err != nil {
		return dataErrf(MigrationsKey, nil, err, "failed to encode migration records")
	}
	return db.set(ctx, MigrationsKey, data)
}
