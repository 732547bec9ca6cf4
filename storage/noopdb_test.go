package storage

import "testing"

func TestNoOpDB(t *testing.T) {
	db := &NoOpDB{}

	if err := db.Put(Entry{Key: []byte("k"), Value: []byte("v")}); err == nil {
		t.Error("Put must error so callers don't assume an entry was written")
	}
	if _, err := db.Read([]byte("k")); err == nil {
		t.Error("Read must error so callers don't assume an entry was read")
	}
	if err := db.Cleanup(); err != nil {
		t.Errorf("Cleanup must be a successful no-op, got %v", err)
	}
	if err := db.Close(); err != nil {
		t.Errorf("Close must be a successful no-op, got %v", err)
	}
}
