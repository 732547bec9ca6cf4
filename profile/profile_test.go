package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileName(t *testing.T) {
	testCases := []struct {
		name string
		want string
	}{
		{name: "", want: "messages"},
		{name: "work", want: "messages_work"},
	}
	for _, tc := range testCases {
		if got := profileName(tc.name); got != tc.want {
			t.Errorf("profileName(%q): expected %q, got %q", tc.name, tc.want, got)
		}
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	sess, err := store.Open("work")
	require.NoError(t, err)

	// A profile that doesn't exist yet starts empty.
	_, ok := sess.Get("email", "from")
	assert.False(t, ok)

	sess.Set("email", "from", "me@example.com")
	sess.Set("email", "server", "smtp.example.com")
	sess.Set("email", "port", 587)
	require.NoError(t, sess.Close())

	// Close persisted a named profile file.
	_, err = os.Stat(filepath.Join(dir, "messages_work.yaml"))
	require.NoError(t, err)

	// A fresh session sees the persisted values.
	sess, err = store.Open("work")
	require.NoError(t, err)
	defer sess.Close()

	from, ok := sess.Get("email", "from")
	assert.True(t, ok)
	assert.Equal(t, "me@example.com", from)

	port, ok := sess.GetInt("email", "port")
	assert.True(t, ok)
	assert.Equal(t, 587, port)
}

func TestFileStoreDefaultProfileFilename(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	sess, err := store.Open("")
	require.NoError(t, err)
	sess.Set("email", "from", "me@example.com")
	require.NoError(t, sess.Close())

	_, err = os.Stat(filepath.Join(dir, "messages.yaml"))
	require.NoError(t, err)
}

func TestFileStoreCreatesDirOnClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "config")
	store := NewFileStore(dir)

	sess, err := store.Open("")
	require.NoError(t, err)
	sess.Set("email", "from", "me@example.com")
	require.NoError(t, sess.Close())

	_, err = os.Stat(filepath.Join(dir, "messages.yaml"))
	require.NoError(t, err)
}

func TestMemoryStoreSetVisibleAfterClose(t *testing.T) {
	store := NewMemoryStore()

	sess, err := store.Open("")
	require.NoError(t, err)
	sess.Set("email", "from", "me@example.com")

	// Another session opened before Close sees nothing, like a file
	// that hasn't been written yet.
	other, err := store.Open("")
	require.NoError(t, err)
	_, ok := other.Get("email", "from")
	assert.False(t, ok)

	require.NoError(t, sess.Close())

	after, err := store.Open("")
	require.NoError(t, err)
	from, ok := after.Get("email", "from")
	assert.True(t, ok)
	assert.Equal(t, "me@example.com", from)
}

func TestMemoryStoreSecrets(t *testing.T) {
	store := NewMemoryStore()

	sess, err := store.Open("work")
	require.NoError(t, err)

	_, err = sess.Secret("work_email")
	require.Error(t, err)
	assert.True(t, IsSecretNotFound(err))

	// Unlike Set, SetSecret persists immediately.
	require.NoError(t, sess.SetSecret("work_email", "s3cret"))

	other, err := store.Open("work")
	require.NoError(t, err)
	pw, err := other.Secret("work_email")
	require.NoError(t, err)
	assert.Equal(t, "s3cret", pw)
}
