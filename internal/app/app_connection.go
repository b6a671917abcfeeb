package app

import (
	"fmt"
	"time"

	"dbdock/internal/domain"
	"dbdock/internal/secret"
)

// ProfileInput carries connection profile fields across the command
// boundary. The password travels here once and goes straight to the
// secret store.
type ProfileInput struct {
	Name           string `json:"name"`
	Engine         string `json:"engine"`
	Host           string `json:"host"`
	Port           int    `json:"port"`
	Database       string `json:"database"`
	Username       string `json:"username"`
	Password       string `json:"password,omitempty"`
	SSLMode        string `json:"sslMode"`
	ConnectTimeout int    `json:"connectTimeoutSeconds,omitempty"`
	QueryTimeout   int    `json:"queryTimeoutSeconds,omitempty"`
}

func (in ProfileInput) apply(p *domain.ConnectionProfile) {
	p.Name = in.Name
	p.Engine = domain.Engine(in.Engine)
	p.Host = in.Host
	p.Port = in.Port
	p.Database = in.Database
	p.Username = in.Username
	p.SSLMode = in.SSLMode
	p.ConnectTimeout = time.Duration(in.ConnectTimeout) * time.Second
	p.QueryTimeout = time.Duration(in.QueryTimeout) * time.Second
}

func validEngine(engine string) error {
	for _, e := range domain.Engines() {
		if domain.Engine(engine) == e {
			return nil
		}
	}
	return fmt.Errorf("unsupported engine: %s", engine)
}

func (a *App) ListConnections() ([]domain.ConnectionProfile, error) {
	return a.profiles.ListProfiles()
}

func (a *App) CreateConnection(in ProfileInput) (*domain.ConnectionProfile, error) {
	a.touch()
	if err := validEngine(in.Engine); err != nil {
		return nil, err
	}

	p := &domain.ConnectionProfile{}
	in.apply(p)
	if err := a.profiles.CreateProfile(p); err != nil {
		return nil, err
	}

	if in.Password != "" {
		if err := a.secrets.Set(secret.ProfileKey(p.ID), []byte(in.Password)); err != nil {
			a.profiles.DeleteProfile(p.ID)
			return nil, fmt.Errorf("store password: %w", err)
		}
	}
	return p, nil
}

func (a *App) UpdateConnection(id string, in ProfileInput) (*domain.ConnectionProfile, error) {
	a.touch()
	if err := validEngine(in.Engine); err != nil {
		return nil, err
	}

	p, err := a.profiles.GetProfile(id)
	if err != nil {
		return nil, err
	}
	in.apply(p)
	if err := a.profiles.UpdateProfile(p); err != nil {
		return nil, err
	}

	if in.Password != "" {
		if err := a.secrets.Set(secret.ProfileKey(id), []byte(in.Password)); err != nil {
			return nil, fmt.Errorf("store password: %w", err)
		}
	}

	// A live connection still uses the old settings; force a reconnect.
	if a.reg.IsConnected(id) {
		if err := a.reg.Disconnect(id); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (a *App) DeleteConnection(id string) error {
	a.touch()
	a.streamer.Stop(id)
	if err := a.reg.Disconnect(id); err != nil {
		return err
	}
	a.secrets.Delete(secret.ProfileKey(id))
	a.explorer.Refresh(id)
	return a.profiles.DeleteProfile(id)
}

func (a *App) Connect(id string) error {
	a.touch()
	return a.reg.Connect(a.ctx, id)
}

func (a *App) Disconnect(id string) error {
	a.touch()
	a.streamer.Stop(id)
	return a.reg.Disconnect(id)
}

func (a *App) TestConnection(id string) error {
	a.touch()
	return a.reg.Test(a.ctx, id)
}

// TestConnectionInput checks connectivity for a profile that has not
// been saved yet (the connection dialog's Test button).
func (a *App) TestConnectionInput(in ProfileInput) error {
	a.touch()
	if err := validEngine(in.Engine); err != nil {
		return err
	}
	p := &domain.ConnectionProfile{}
	in.apply(p)
	return a.reg.TestProfile(a.ctx, p, in.Password)
}

func (a *App) ConnectionStatus(id string) (*domain.ConnectionStatus, error) {
	return a.reg.Status(id)
}

func (a *App) ActiveConnections() []string {
	return a.reg.ActiveIDs()
}

// ── Groups ──────────────────────────────────────────────────────────

func (a *App) ListGroups() ([]domain.Group, error) {
	return a.groups.ListGroups()
}

func (a *App) CreateGroup(name, color string) (*domain.Group, error) {
	a.touch()
	g := &domain.Group{Name: name, Color: color}
	if err := a.groups.CreateGroup(g); err != nil {
		return nil, err
	}
	return g, nil
}

func (a *App) UpdateGroup(g domain.Group) error {
	a.touch()
	return a.groups.UpdateGroup(&g)
}

func (a *App) DeleteGroup(id string) error {
	a.touch()
	return a.groups.DeleteGroup(id)
}

func (a *App) AssignToGroup(groupID, profileID string) error {
	a.touch()
	g, err := a.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	for _, id := range g.ProfileIDs {
		if id == profileID {
			return nil
		}
	}
	g.ProfileIDs = append(g.ProfileIDs, profileID)
	return a.groups.UpdateGroup(g)
}

func (a *App) RemoveFromGroup(groupID, profileID string) error {
	a.touch()
	g, err := a.groups.GetGroup(groupID)
	if err != nil {
		return err
	}
	kept := g.ProfileIDs[:0]
	for _, id := range g.ProfileIDs {
		if id != profileID {
			kept = append(kept, id)
		}
	}
	g.ProfileIDs = kept
	return a.groups.UpdateGroup(g)
}
