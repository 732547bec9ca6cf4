// Package profile is a profile-keyed configuration store. Each profile
// is a YAML file of sections under a config directory, paired with an
// encrypted secret store. Sessions are scoped: open, read and write in
// memory, then persist on Close. Close runs on every exit path, so the
// profile file reflects whatever was written even if the caller failed
// partway; there is no rollback.
package profile

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Store opens profile sessions by name. The empty name is the default
// profile.
type Store interface {
	Open(name string) (Session, error)
}

// Session is one open profile. Reads and writes operate on section/key
// pairs; Close persists.
type Session interface {
	// Get returns the string value stored under section and key, and
	// whether it was set.
	Get(section, key string) (string, bool)
	// GetInt is Get for integer values.
	GetInt(section, key string) (int, bool)
	// Set records a value under section and key. It is persisted on
	// Close.
	Set(section, key string, value interface{})
	// Secret reads a named entry from the profile's encrypted secret
	// store. A missing entry satisfies IsSecretNotFound.
	Secret(key string) (string, error)
	// SetSecret writes a named entry to the secret store. Unlike Set,
	// this persists immediately.
	SetSecret(key, value string) error
	// Close persists the profile file.
	Close() error
}

// profileName maps a user-facing profile name to its on-disk name:
// "messages" for the default profile, "messages_<name>" otherwise.
func profileName(name string) string {
	if name == "" {
		return "messages"
	}
	return "messages_" + name
}

// DefaultDir returns the default profile directory,
// ~/.config/messages.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".messages")
	}
	return filepath.Join(home, ".config", "messages")
}

// FileStore keeps profiles as YAML files under a directory, with
// secrets in a keyring scoped to the same directory.
type FileStore struct {
	dir string
}

// NewFileStore returns a FileStore rooted at dir. The directory is
// created lazily on the first persisted write.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Open loads the named profile. A profile that does not exist yet is
// not an error: the session starts empty and Close creates the file.
func (s *FileStore) Open(name string) (Session, error) {
	path := filepath.Join(s.dir, profileName(name)+".yaml")

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("reading profile %s: %w", path, err)
			}
		}
	}

	ring, err := openKeyring(s.dir)
	if err != nil {
		return nil, err
	}

	return &fileSession{
		v:    v,
		path: path,
		dir:  s.dir,
		ring: ring,
	}, nil
}

type fileSession struct {
	v    *viper.Viper
	path string
	dir  string
	ring secretRing
}

func (s *fileSession) Get(section, key string) (string, bool) {
	k := section + "." + key
	if !s.v.IsSet(k) {
		return "", false
	}
	return s.v.GetString(k), true
}

func (s *fileSession) GetInt(section, key string) (int, bool) {
	k := section + "." + key
	if !s.v.IsSet(k) {
		return 0, false
	}
	return s.v.GetInt(k), true
}

func (s *fileSession) Set(section, key string, value interface{}) {
	s.v.Set(section+"."+key, value)
}

func (s *fileSession) Secret(key string) (string, error) {
	return s.ring.get(key)
}

func (s *fileSession) SetSecret(key, value string) error {
	return s.ring.set(key, value)
}

// Close writes the profile file, creating the directory if needed.
func (s *fileSession) Close() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("creating profile directory %s: %w", s.dir, err)
	}
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("writing profile %s: %w", s.path, err)
	}
	return nil
}
