package storage

import "time"

// JournalConfig contains settings specific to BadgerDB-backed journals.
type JournalConfig struct {
	// StorageDirPath is the directory holding the journal database.
	StorageDirPath string
	// EntryTTLDuration is how long a journal entry is retained before
	// Cleanup may remove it. Zero keeps entries forever.
	EntryTTLDuration time.Duration
}

// KeyValue exposes CRUD operations on the send journal's underlying
// storage layer. The journal deals only in opaque binary data; callers
// own the entry format.
//
// Implementations need to include connection logic in code to
// initialize a journal.
type KeyValue interface {
	// Put records an entry, replacing any entry with the same key.
	Put(Entry) error
	// Read returns an entry given its key.
	Read(key []byte) (Entry, error)
	// Cleanup performs routine deletion of expired entries.
	Cleanup() error
	// Close drains or tears down the connection, or whatever is
	// analogous for an embedded database.
	Close() error
}

// Entry is what we write to and read from the journal.
type Entry struct {
	Key   []byte
	Value []byte
}
