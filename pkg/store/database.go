package store

import (
	"sync"

	"github.com/VioletaStepanyan/ukv/pkg/config"
	"github.com/VioletaStepanyan/ukv/pkg/log"
	"github.com/VioletaStepanyan/ukv/pkg/telemetry"
)

// Database is a multi-collection, versioned, transactional key-value store.
// A single RWMutex disciplines all access (spec §4.1 "Concurrency within
// Store"): HEAD reads and transactional reads take it shared, HEAD writes,
// commits and collection management take it exclusive. There are no
// per-collection locks.
type Database struct {
	mu sync.RWMutex

	byName map[string]*collection
	byID   map[uint64]*collection
	nextID uint64

	youngestSeq Seq

	cfg    *config.Config
	logger log.Logger
	stats  *Collector
	tel    telemetry.Telemetry

	closed bool
}

// Open creates a new Database with the given configuration (nil selects
// config.NewDefaultConfig()). The anonymous main collection is created
// immediately, per spec §3.
func Open(cfg *config.Config) *Database {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	db := &Database{
		byName: make(map[string]*collection),
		byID:   make(map[uint64]*collection),
		cfg:    cfg,
		logger: log.Default().WithField("component", "store"),
		stats:  NewCollector(),
		tel:    telemetry.NewNoop(),
	}
	db.createCollectionLocked(mainCollectionName)
	return db
}

// SetTelemetry installs tel as the database's telemetry sink, replacing the
// no-op default. Passing nil restores the no-op.
func (db *Database) SetTelemetry(tel telemetry.Telemetry) {
	if tel == nil {
		tel = telemetry.NewNoop()
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tel = tel
}

// Close destroys the database, releasing all collections and entries.
// Outstanding transaction handles become invalid; it is the caller's
// responsibility to not use them afterward.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	db.closed = true
	db.byName = nil
	db.byID = nil
	return nil
}

// MainHandle returns the handle of the always-present anonymous collection.
func (db *Database) MainHandle() CollectionHandle {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.byName[mainCollectionName].handle()
}

// createCollectionLocked assumes db.mu is held exclusively.
func (db *Database) createCollectionLocked(name string) *collection {
	db.nextID++
	id := db.nextID
	c := newCollection(name, id, int64(id))
	db.byName[name] = c
	db.byID[id] = c
	return c
}

// CollectionUpsert creates the named collection if it does not already
// exist and returns its handle. Creating an already-existing collection is
// a no-op that returns the existing handle.
func (db *Database) CollectionUpsert(name string) (CollectionHandle, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return CollectionHandle{}, ErrDatabaseClosed
	}
	if c, ok := db.byName[name]; ok {
		return c.handle(), nil
	}
	c := db.createCollectionLocked(name)
	db.logger.Debug("collection created: %s", name)
	return c.handle(), nil
}

// CollectionRemove destroys the named collection and all of its entries.
// Removing the main collection is not permitted.
func (db *Database) CollectionRemove(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrDatabaseClosed
	}
	if name == mainCollectionName {
		return ErrCollectionNotFound
	}
	c, ok := db.byName[name]
	if !ok {
		return ErrCollectionNotFound
	}
	delete(db.byName, name)
	delete(db.byID, c.id)
	db.logger.Debug("collection removed: %s", name)
	return nil
}

// CollectionList returns the names of all collections, including the main
// collection (as an empty string).
func (db *Database) CollectionList() []string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	names := make([]string, 0, len(db.byName))
	for name := range db.byName {
		names = append(names, name)
	}
	return names
}

// Contains reports whether a named collection exists.
func (db *Database) Contains(name string) bool {
	db.mu.RLock()
	defer db.mu.RUnlock()
	_, ok := db.byName[name]
	return ok
}

// Handle resolves a collection name to its handle.
func (db *Database) Handle(name string) (CollectionHandle, bool) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	c, ok := db.byName[name]
	if !ok {
		return CollectionHandle{}, false
	}
	return c.handle(), true
}

// resolveLocked looks up a collection by handle; db.mu must be held (shared
// or exclusive) by the caller.
func (db *Database) resolveLocked(h CollectionHandle) (*collection, bool) {
	c, ok := db.byID[h.id]
	return c, ok
}

// Stats returns a snapshot of the database's operation counters.
func (db *Database) Stats() map[string]interface{} {
	return db.stats.Snapshot()
}

// StatsCollector exposes the underlying Collector, e.g. for a
// promexport.Exporter to scrape directly instead of through the flattened
// Stats() map.
func (db *Database) StatsCollector() *Collector {
	return db.stats
}
