package storage

// storage contains the KeyValue interface for the optional persistent
// send journal, along with an implementation for BadgerDB and a no-op
// implementation for callers that opt out. The in-memory send history
// kept by an email client is authoritative; the journal only
// supplements it across process restarts. Note that the storage
// package isn't designed to represent _what_ is journaled, and deals
// only in opaque binary data.
