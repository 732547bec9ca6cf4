package storage

import (
	"reflect"
	"testing"
	"time"
)

// We test all BadgerDB read/write utility functions here for a simple
// case. All journal operations are wrapped in a helper for use by the
// application, so we use these helpers rather than ones defined just
// for tests.
func TestSimpleBadgerDBReadWrite(t *testing.T) {
	dir := t.TempDir()
	conf := JournalConfig{
		StorageDirPath: dir,
		// Set this duration to a very long value since we don't expect
		// entries to be cleaned up during the test
		EntryTTLDuration: time.Duration(10) * time.Minute,
	}
	db, err := NewBadgerDB(&conf)

	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	e := Entry{
		Key:   []byte("1724572800-b2c7"),
		Value: []byte("Email:\n\tServer: smtp.example.com:465"),
	}

	if err = db.Put(e); err != nil {
		t.Fatal(err)
	}

	e2, err := db.Read(e.Key)

	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(e, e2) {
		t.Fatal("newly created and newly read journal entries do not match")
	}
}

func TestBadgerDBReadMissingKey(t *testing.T) {
	conf := JournalConfig{
		StorageDirPath:   t.TempDir(),
		EntryTTLDuration: time.Duration(10) * time.Minute,
	}
	db, err := NewBadgerDB(&conf)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Read([]byte("never written")); err == nil {
		t.Fatal("expected an error for a missing key")
	}
}
