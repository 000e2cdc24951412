// Package core owns the runtime database: the in-memory state container, its
// local snapshot cache, the audit-stamping upsert layer and the signal bus.
package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// Store is the process-wide runtime database container. It is explicitly
// constructed and injected rather than held as a package global so tests can
// run isolated instances.
//
// All exposed operations take and release the store's lock internally; the
// in-memory state and the local cache snapshot are updated together, so no
// caller can observe a partially applied collection. Only the remote push is
// asynchronous.
type Store struct {
	// writeMu serializes whole read-modify-write cycles; mu alone only
	// guards the db value itself. Every writer goes through writeMu so no
	// two mutations can base themselves on the same snapshot.
	writeMu sync.Mutex
	mu      sync.RWMutex
	db      models.DB
	cache   *Cache
	bus     *Bus
	log     *zap.Logger

	// schedulePush is installed by the replication engine. It stays nil in
	// local-only mode, in which case replaces simply skip scheduling.
	schedulePush func()

	status models.SyncStatus
}

// NewStore builds a store around an optional cache. The last cached snapshot
// is loaded first so callers always have state before any network activity;
// the default administrator is (re-)injected idempotently.
func NewStore(cache *Cache, bus *Bus, log *zap.Logger) (*Store, error) {
	if bus == nil {
		bus = NewBus()
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &Store{db: models.NewDB(), cache: cache, bus: bus, log: log}

	if cache != nil {
		db, ok, err := cache.LoadSnapshot()
		if err != nil {
			return nil, fmt.Errorf("load cached snapshot: %w", err)
		}
		if ok {
			s.db = db
			log.Info("loaded runtime database from local cache",
				zap.String("last_updated", db.Meta.LastUpdated))
		}
		if status, ok, err := cache.LoadSyncStatus(); err == nil && ok {
			s.status = status
		}
	}

	ensureDefaultAdmin(&s.db)
	if cache != nil {
		if err := cache.SaveSnapshot(s.db); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Bus exposes the signal bus the store publishes on.
func (s *Store) Bus() *Bus { return s.bus }

// SetReplicator installs the push scheduler called after every local replace.
func (s *Store) SetReplicator(schedule func()) {
	s.mu.Lock()
	s.schedulePush = schedule
	s.mu.Unlock()
}

// Read returns a deep copy of the current database. Callers may freely
// mutate the copy.
func (s *Store) Read() models.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Clone()
}

// LastUpdated returns the current _meta.last_updated stamp.
func (s *Store) LastUpdated() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Meta.LastUpdated
}

// Replace installs a deep copy of db as the new database, stamps
// _meta.last_updated, snapshots to the local cache and schedules a cloud
// push.
func (s *Store) Replace(db models.DB) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.install(db, true)
}

// AdoptRemote installs a remote snapshot wholesale. The remote stamp is kept
// verbatim and no push is scheduled, so a pull never echoes back as a write.
// A db-updated signal is raised for the presentation layer.
func (s *Store) AdoptRemote(db models.DB) {
	s.writeMu.Lock()
	s.install(db, false)
	s.writeMu.Unlock()
	s.bus.Publish(Event{Type: EventDBUpdated, OK: true, Message: "runtime database replaced by cloud snapshot"})
}

// errUnchanged aborts an Update without installing a new database.
var errUnchanged = errors.New("unchanged")

// Update runs mutate against a private copy of the database and installs the
// result as one replace. The write lock is held across the whole
// clone-mutate-install cycle, so concurrent updates never lose each other's
// records. A mutate returning errUnchanged leaves the database as it was.
func (s *Store) Update(mutate func(db *models.DB) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	db := s.Read()
	if err := mutate(&db); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	s.install(db, true)
	return nil
}

func (s *Store) install(db models.DB, localWrite bool) {
	next := db.Clone()
	ensureDefaultAdmin(&next)

	s.mu.Lock()
	if localWrite {
		next.Meta.LastUpdated = nextStamp(s.db.Meta.LastUpdated)
	}
	s.db = next
	schedule := s.schedulePush
	if s.cache != nil {
		if err := s.cache.SaveSnapshot(next); err != nil {
			s.log.Warn("snapshot write failed", zap.Error(err))
		}
	}
	s.mu.Unlock()

	if localWrite && schedule != nil {
		schedule()
	}
}

// Collection returns a deep copy of one named record collection.
func (s *Store) Collection(name string) ([]models.Record, error) {
	if !models.IsRecordCollection(name) {
		return nil, fmt.Errorf("unknown collection %q", name)
	}
	db := s.Read()
	return db.Collection(name), nil
}

// ReplaceCollection atomically replaces exactly one collection.
func (s *Store) ReplaceCollection(name string, rows []models.Record) error {
	return s.Update(func(db *models.DB) error {
		return db.SetCollection(name, rows)
	})
}

// Images returns a copy of the image reference map.
func (s *Store) Images() map[string]string {
	db := s.Read()
	return db.Images
}

// SetImage records a logical path → URL mapping through one replace.
func (s *Store) SetImage(logicalPath, url string) {
	_ = s.Update(func(db *models.DB) error {
		db.Images[logicalPath] = url
		return nil
	})
}

// ReportSync records a replication outcome: persisted to the cache and
// published as a sync-status signal.
func (s *Store) ReportSync(ok bool, message string) {
	status := models.SyncStatus{OK: ok, Message: message, Timestamp: identity.Now()}

	s.mu.Lock()
	s.status = status
	if s.cache != nil {
		if err := s.cache.SaveSyncStatus(status); err != nil {
			s.log.Warn("sync status write failed", zap.Error(err))
		}
	}
	s.mu.Unlock()

	if !ok {
		s.log.Warn("cloud sync failed", zap.String("message", message))
	}
	s.bus.Publish(Event{Type: EventSyncStatus, OK: ok, Message: message})
}

// LastSyncStatus returns the most recent replication outcome.
func (s *Store) LastSyncStatus() models.SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// nextStamp produces a strictly increasing last_updated stamp even when the
// wall clock has not advanced past the previous one.
func nextStamp(prev string) string {
	now := identity.Now()
	if prevT := identity.ParseStamp(prev); !identity.ParseStamp(now).After(prevT) {
		return prevT.Add(time.Nanosecond).UTC().Format(time.RFC3339Nano)
	}
	return now
}

// ensureDefaultAdmin injects the administrative bootstrap user when missing.
func ensureDefaultAdmin(db *models.DB) {
	db.Normalize()
	for _, u := range db.Users {
		if identity.NormalizeUsername(u.String(models.FieldUsername)) == models.DefaultAdminUsername {
			return
		}
	}
	now := identity.Now()
	db.Users = append(db.Users, models.Record{
		models.FieldID:         identity.NewID(models.IDPrefixes[models.CollectionUsers]),
		models.FieldUsername:   models.DefaultAdminUsername,
		models.FieldRole:       models.RoleAdmin,
		models.FieldApproved:   true,
		models.FieldApprovedBy: identity.SystemActor,
		models.FieldEnteredBy:  identity.SystemActor,
		models.FieldUpdatedBy:  identity.SystemActor,
		models.FieldTimestamp:  now,
	})
}
