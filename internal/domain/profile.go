package domain

import "time"

// Engine represents the type of database engine.
type Engine string

const (
	EnginePostgres Engine = "postgres"
	EngineMySQL    Engine = "mysql"
	EngineMariaDB  Engine = "mariadb"
	EngineSQLite   Engine = "sqlite"
	EngineMongoDB  Engine = "mongodb"
)

// Engines lists every supported engine type.
func Engines() []Engine {
	return []Engine{EnginePostgres, EngineMySQL, EngineMariaDB, EngineSQLite, EngineMongoDB}
}

// IsDocumentStore reports whether the engine speaks filter documents
// instead of SQL.
func (e Engine) IsDocumentStore() bool {
	return e == EngineMongoDB
}

// ConnectionProfile holds the metadata for connecting to an external database.
// The password is stored separately in the SecretStore, never on disk.
type ConnectionProfile struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Engine         Engine        `json:"engine"`
	Host           string        `json:"host"`     // hostname or file path (sqlite)
	Port           int           `json:"port"`     // 0 for sqlite
	Database       string        `json:"database"` // db name or empty for sqlite
	Username       string        `json:"username"`
	SSLMode        string        `json:"sslMode"`
	ConnectTimeout time.Duration `json:"connectTimeout,omitempty"`
	QueryTimeout   time.Duration `json:"queryTimeout,omitempty"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// ProfileStore manages CRUD operations for connection profiles.
type ProfileStore interface {
	CreateProfile(p *ConnectionProfile) error
	GetProfile(id string) (*ConnectionProfile, error)
	ListProfiles() ([]ConnectionProfile, error)
	UpdateProfile(p *ConnectionProfile) error
	DeleteProfile(id string) error
}

// Group is a named collection of connection profiles.
type Group struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Color      string    `json:"color"`
	ProfileIDs []string  `json:"profileIds"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// GroupStore manages CRUD operations for connection groups.
type GroupStore interface {
	CreateGroup(g *Group) error
	GetGroup(id string) (*Group, error)
	ListGroups() ([]Group, error)
	UpdateGroup(g *Group) error
	DeleteGroup(id string) error
}

// ConnectionStatus describes the runtime state of one profile.
type ConnectionStatus struct {
	ProfileID   string    `json:"profileId"`
	Name        string    `json:"name"`
	Engine      Engine    `json:"engine"`
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connectedAt,omitempty"`
}
