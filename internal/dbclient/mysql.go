package dbclient

import (
	"fmt"

	_ "github.com/go-sql-driver/mysql"

	"dbdock/internal/domain"
)

// buildMySQLDSN constructs a MySQL/MariaDB DSN from a profile.
func buildMySQLDSN(p *domain.ConnectionProfile, password string) string {
	port := p.Port
	if port == 0 {
		port = 3306
	}
	// Format: user:password@tcp(host:port)/dbname?parseTime=true
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		p.Username, password, p.Host, port, p.Database,
	)
	if p.SSLMode == "require" {
		dsn += "&tls=true"
	}
	return dsn
}
