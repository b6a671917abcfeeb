package secret

// ProfileKey is the key under which a connection profile's password
// is stored.
func ProfileKey(profileID string) string { return "db:" + profileID }

// SecretStore holds sensitive values (database passwords) outside the
// profile documents on disk. Backed by the macOS Keychain where
// available, with a plain in-memory store for tests.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret for the given key. Returns nil and no
	// error when the key does not exist.
	Get(key string) ([]byte, error)

	// Delete removes the secret for the given key.
	Delete(key string) error
}

// MemoryStore is an in-memory SecretStore for tests and for platforms
// without a keychain.
type MemoryStore struct {
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (m *MemoryStore) Set(key string, value []byte) error {
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Get(key string) ([]byte, error) {
	return m.values[key], nil
}

func (m *MemoryStore) Delete(key string) error {
	delete(m.values, key)
	return nil
}
