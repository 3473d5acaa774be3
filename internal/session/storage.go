package session

import (
	"errors"
	"fmt"
	"sync"

	"github.com/zalando/go-keyring"
)

const keyringService = "reservas-cli"

// ErrNotFound is returned by Storage when a key has no value
var ErrNotFound = errors.New("session: key not found")

// Storage is the durable key-value register holding the session record.
// Implementations are not transactional: two processes may race on it.
type Storage interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// KeyringStorage persists values in the OS keychain/credential manager,
// namespaced per backend host so several servers can be logged in at once.
type KeyringStorage struct {
	namespace string
}

// NewKeyringStorage creates a keyring-backed storage for one backend host
func NewKeyringStorage(namespace string) *KeyringStorage {
	return &KeyringStorage{namespace: namespace}
}

func (k *KeyringStorage) key(name string) string {
	return fmt.Sprintf("%s-%s", name, k.namespace)
}

func (k *KeyringStorage) Get(key string) (string, error) {
	value, err := keyring.Get(keyringService, k.key(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return value, nil
}

func (k *KeyringStorage) Set(key, value string) error {
	if err := keyring.Set(keyringService, k.key(key), value); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (k *KeyringStorage) Delete(key string) error {
	if err := keyring.Delete(keyringService, k.key(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// MemoryStorage keeps values in process memory
type MemoryStorage struct {
	mu     sync.Mutex
	values map[string]string
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{values: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStorage) Delete(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
