package storage

import "errors"

// NoOpDB is used when we need to avoid touching the storage layer while
// still preserving our interactions with an abstract journal. The
// strategy is to return whatever value will prevent the calling context
// from further interacting with the storage layer.
//
// For put and read operations, we always return an error, so the caller
// knows that no actual data has been read or written.
//
// For journal-wide operations, such as cleaning up or closing the
// database, we always return a nil error. Since there is nothing to
// close or clean up, the operation is always successful.
type NoOpDB struct{}

// Put always returns an error so callers don't assume a new entry has
// been written.
func (n *NoOpDB) Put(Entry) error {
	return errors.New("unable to write to the no-op journal")
}

// Read always returns an error so callers don't assume an entry has
// been read.
func (n *NoOpDB) Read(key []byte) (Entry, error) {
	return Entry{}, errors.New("entry not found in the no-op journal")
}

// Cleanup always returns nil in order to prevent retries or panics.
func (n *NoOpDB) Cleanup() error {
	return nil
}

// Close is a no-op.
func (n *NoOpDB) Close() error {
	return nil
}
