package dbclient

import (
	_ "modernc.org/sqlite"

	"dbdock/internal/domain"
)

// buildSQLiteDSN builds the DSN for an external SQLite file. The profile
// host field carries the file path. Opens in WAL mode with a busy
// timeout for concurrent access.
func buildSQLiteDSN(p *domain.ConnectionProfile) string {
	return p.Host + "?_journal_mode=WAL&_busy_timeout=5000"
}

// buildDSN dispatches DSN construction by engine.
func buildDSN(engine domain.Engine, p *domain.ConnectionProfile, password string) string {
	switch engine {
	case domain.EngineSQLite:
		return buildSQLiteDSN(p)
	case domain.EngineMySQL, domain.EngineMariaDB:
		return buildMySQLDSN(p, password)
	default:
		return buildPostgresDSN(p, password)
	}
}
