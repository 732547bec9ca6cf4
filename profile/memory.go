package profile

import (
	"fmt"
	"sync"

	"github.com/spf13/cast"
)

// MemoryStore is an in-memory Store. It backs tests and any caller
// that wants profile semantics without touching the filesystem or the
// OS keychain. Values written through a session are visible in Data
// and Secrets only after the session Closes (Set) or immediately
// (SetSecret), mirroring the file store.
type MemoryStore struct {
	mu sync.Mutex

	// Data maps profile name -> section -> key -> value.
	Data map[string]map[string]map[string]interface{}
	// Secrets maps secret key -> value, shared across profiles like a
	// system keyring.
	Secrets map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Data:    map[string]map[string]map[string]interface{}{},
		Secrets: map[string]string{},
	}
}

// Open implements Store.
func (m *MemoryStore) Open(name string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pn := profileName(name)
	pending := map[string]map[string]interface{}{}
	for section, kv := range m.Data[pn] {
		pending[section] = map[string]interface{}{}
		for k, v := range kv {
			pending[section][k] = v
		}
	}
	return &memorySession{store: m, name: pn, data: pending}, nil
}

// SetValue seeds a stored profile value, as if a previous session had
// saved it.
func (m *MemoryStore) SetValue(name, section, key string, value interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pn := profileName(name)
	if m.Data[pn] == nil {
		m.Data[pn] = map[string]map[string]interface{}{}
	}
	if m.Data[pn][section] == nil {
		m.Data[pn][section] = map[string]interface{}{}
	}
	m.Data[pn][section][key] = value
}

type memorySession struct {
	store *MemoryStore
	name  string
	data  map[string]map[string]interface{}
}

func (s *memorySession) Get(section, key string) (string, bool) {
	kv, ok := s.data[section]
	if !ok {
		return "", false
	}
	v, ok := kv[key]
	if !ok {
		return "", false
	}
	return cast.ToString(v), true
}

func (s *memorySession) GetInt(section, key string) (int, bool) {
	kv, ok := s.data[section]
	if !ok {
		return 0, false
	}
	v, ok := kv[key]
	if !ok {
		return 0, false
	}
	return cast.ToInt(v), true
}

func (s *memorySession) Set(section, key string, value interface{}) {
	if s.data[section] == nil {
		s.data[section] = map[string]interface{}{}
	}
	s.data[section][key] = value
}

func (s *memorySession) Secret(key string) (string, error) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	v, ok := s.store.Secrets[key]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrSecretNotFound, key)
	}
	return v, nil
}

func (s *memorySession) SetSecret(key, value string) error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.Secrets[key] = value
	return nil
}

func (s *memorySession) Close() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.Data[s.name] = s.data
	return nil
}
