package storage

import (
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v3"
)

// BadgerDB implements KeyValue and represents the journal's connection
// to BadgerDB.
type BadgerDB struct {
	connection *badger.DB
	entryTTL   time.Duration // TTL for each journal entry
}

// NewBadgerDB initializes the BadgerDB embedded database. It is up to
// the caller to close the database with Close().
func NewBadgerDB(conf *JournalConfig) (*BadgerDB, error) {
	db, err := badger.Open(badger.DefaultOptions(conf.StorageDirPath))
	if err != nil {
		return &BadgerDB{}, fmt.Errorf("can't open the journal db: %v", err)
	}

	return &BadgerDB{
		connection: db,
		entryTTL:   conf.EntryTTLDuration,
	}, nil
}

// Put upserts a journal entry, applying the configured TTL.
func (db *BadgerDB) Put(entry Entry) error {
	err := db.connection.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(entry.Key, entry.Value)
		if db.entryTTL > 0 {
			e = e.WithTTL(db.entryTTL)
		}
		if err := txn.SetEntry(e); err != nil {
			return fmt.Errorf("could not set the journal entry: %v", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %v", err)
	}
	return nil
}

// Read returns a journal entry by key.
func (db *BadgerDB) Read(key []byte) (Entry, error) {
	var val []byte
	err := db.connection.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return fmt.Errorf("can't retrieve a value for the key provided: %v", err)
		}

		// We copy values rather than return them directly because
		// item.Value() is considered undefined behavior outside a
		// transaction.
		val, err = item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("can't copy the value from the database: %v", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		Key:   key,
		Value: val,
	}, nil
}

// Cleanup performs BadgerDB's garbage collection routine with the
// recommended discardRatio. This is the only time expired entries are
// actually removed, so make sure you're setting a TTL.
func (db *BadgerDB) Cleanup() error {
	var discardRatio float64 = .5
	err := db.connection.RunValueLogGC(discardRatio)
	// If the GC determines that it can't rewrite anything, don't worry
	// the caller, just skip it.
	if errors.Is(err, badger.ErrNoRewrite) {
		return nil
	}
	return err
}

// Close tears down the database connection. You should defer this.
func (db *BadgerDB) Close() error {
	if err := db.connection.Close(); err != nil {
		return fmt.Errorf("could not close the journal db: %v", err)
	}
	return nil
}
