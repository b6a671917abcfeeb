package dbclient

import (
	"fmt"

	_ "github.com/lib/pq"

	"dbdock/internal/domain"
)

// buildPostgresDSN constructs a Postgres connection string from a profile.
func buildPostgresDSN(p *domain.ConnectionProfile, password string) string {
	port := p.Port
	if port == 0 {
		port = 5432
	}
	sslMode := p.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, port, p.Username, password, p.Database, sslMode,
	)
}
