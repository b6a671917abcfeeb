package registry

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
	"dbdock/internal/secret"
	"dbdock/internal/storage"
)

// liveConnection pairs a profile id with its open connector.
type liveConnection struct {
	profile     *domain.ConnectionProfile
	connector   dbclient.Connector
	connectedAt time.Time
}

// Registry is the single source of truth for which profiles are
// connected and through what connector. No other component may hold a
// connector reference across calls — everyone goes through Connector().
type Registry struct {
	profiles domain.ProfileStore
	secrets  secret.SecretStore
	session  *storage.SessionStore

	mu    sync.Mutex
	conns map[string]*liveConnection
	locks map[string]*sync.Mutex // per-profile connect/disconnect serialization
}

// New creates a Registry. session may be nil (no snapshot persistence).
func New(profiles domain.ProfileStore, secrets secret.SecretStore, session *storage.SessionStore) *Registry {
	return &Registry{
		profiles: profiles,
		secrets:  secrets,
		session:  session,
		conns:    make(map[string]*liveConnection),
		locks:    make(map[string]*sync.Mutex),
	}
}

// profileLock returns the mutex that serializes connect/disconnect for
// one profile id. Concurrent connects for the same id queue here; the
// second one finds the live connection and returns without dialing.
func (r *Registry) profileLock(id string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[id]
	if !ok {
		l = &sync.Mutex{}
		r.locks[id] = l
	}
	return l
}

// Connect opens a live connection for the profile. Idempotent: if the
// profile is already connected this is a no-op success.
func (r *Registry) Connect(ctx context.Context, profileID string) error {
	lock := r.profileLock(profileID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	_, alive := r.conns[profileID]
	r.mu.Unlock()
	if alive {
		return nil
	}

	profile, err := r.profiles.GetProfile(profileID)
	if err != nil {
		return err
	}

	connector, err := dbclient.New(profile.Engine)
	if err != nil {
		return err
	}

	password := r.password(profileID)
	if err := connector.Connect(ctx, profile, password); err != nil {
		return fmt.Errorf("connect %q: %w", profile.Name, err)
	}

	r.mu.Lock()
	r.conns[profileID] = &liveConnection{
		profile:     profile,
		connector:   connector,
		connectedAt: time.Now(),
	}
	r.mu.Unlock()

	log.Printf("registry: connected %q (%s)", profile.Name, profile.Engine)
	return nil
}

func (r *Registry) password(profileID string) string {
	if r.secrets == nil {
		return ""
	}
	pw, err := r.secrets.Get(secret.ProfileKey(profileID))
	if err != nil {
		return ""
	}
	return string(pw)
}

// Disconnect closes the live connection for a profile. A no-op success
// when the profile is not connected.
func (r *Registry) Disconnect(profileID string) error {
	lock := r.profileLock(profileID)
	lock.Lock()
	defer lock.Unlock()

	r.mu.Lock()
	live, ok := r.conns[profileID]
	delete(r.conns, profileID)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if err := live.connector.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", profileID, err)
	}
	log.Printf("registry: disconnected %q", live.profile.Name)
	return nil
}

// DisconnectAll tears down every live connection. Used at shutdown.
func (r *Registry) DisconnectAll() {
	for _, id := range r.ActiveIDs() {
		if err := r.Disconnect(id); err != nil {
			log.Printf("registry: disconnect %s: %v", id, err)
		}
	}
}

// Test verifies a profile's connectivity with a throwaway session,
// without touching the live connection (if any).
func (r *Registry) Test(ctx context.Context, profileID string) error {
	profile, err := r.profiles.GetProfile(profileID)
	if err != nil {
		return err
	}
	connector, err := dbclient.New(profile.Engine)
	if err != nil {
		return err
	}
	return connector.TestConnection(ctx, profile, r.password(profileID))
}

// TestProfile verifies connectivity for a profile that has not been
// saved yet, with the password supplied directly.
func (r *Registry) TestProfile(ctx context.Context, profile *domain.ConnectionProfile, password string) error {
	connector, err := dbclient.New(profile.Engine)
	if err != nil {
		return err
	}
	return connector.TestConnection(ctx, profile, password)
}

// Connector returns the live connector for a profile, or false when the
// profile is not connected. Callers must not retain the reference across
// calls — reconnect rather than assume availability.
func (r *Registry) Connector(profileID string) (dbclient.Connector, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	live, ok := r.conns[profileID]
	if !ok {
		return nil, false
	}
	return live.connector, true
}

// Ensure returns the live connector for a profile, connecting on demand.
func (r *Registry) Ensure(ctx context.Context, profileID string) (dbclient.Connector, error) {
	if c, ok := r.Connector(profileID); ok {
		return c, nil
	}
	if err := r.Connect(ctx, profileID); err != nil {
		return nil, err
	}
	c, ok := r.Connector(profileID)
	if !ok {
		// Disconnected between Connect and Connector — caller retries.
		return nil, dbclient.ErrNotConnected
	}
	return c, nil
}

// Profile returns the profile of a live connection without a store read.
func (r *Registry) Profile(profileID string) (*domain.ConnectionProfile, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	live, ok := r.conns[profileID]
	if !ok {
		return nil, false
	}
	return live.profile, true
}

// IsConnected reports whether a profile currently has a live connection.
func (r *Registry) IsConnected(profileID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[profileID]
	return ok
}

// ActiveIDs returns the ids of all connected profiles, sorted.
func (r *Registry) ActiveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Status describes the runtime state of one profile.
func (r *Registry) Status(profileID string) (*domain.ConnectionStatus, error) {
	profile, err := r.profiles.GetProfile(profileID)
	if err != nil {
		return nil, err
	}
	status := &domain.ConnectionStatus{
		ProfileID: profile.ID,
		Name:      profile.Name,
		Engine:    profile.Engine,
	}
	r.mu.Lock()
	if live, ok := r.conns[profileID]; ok {
		status.Connected = true
		status.ConnectedAt = live.connectedAt
	}
	r.mu.Unlock()
	return status, nil
}

// SaveSession snapshots the active profile ids to disk.
func (r *Registry) SaveSession() error {
	if r.session == nil {
		return nil
	}
	return r.session.Save(r.ActiveIDs())
}

// RestoreSession reconnects each profile from the last snapshot,
// best-effort: failures are logged, and the profile simply shows as
// disconnected.
func (r *Registry) RestoreSession(ctx context.Context) {
	if r.session == nil {
		return
	}
	ids, err := r.session.Load()
	if err != nil {
		log.Printf("registry: load session snapshot: %v", err)
		return
	}
	for _, id := range ids {
		if err := r.Connect(ctx, id); err != nil {
			log.Printf("registry: restore %s: %v", id, err)
		}
	}
}
