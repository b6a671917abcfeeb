package metrics

import (
	"context"
	"fmt"
	"time"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
	"dbdock/internal/registry"
)

// Manager dispatches metric collection to the engine-specific
// collectors and feeds the historical and slow-query logs.
type Manager struct {
	reg     *registry.Registry
	history *HistoricalLog
	slowLog *SlowQueryLog
	now     func() time.Time
}

func NewManager(reg *registry.Registry) *Manager {
	return &Manager{
		reg:     reg,
		history: NewHistoricalLog(),
		slowLog: NewSlowQueryLog(),
		now:     time.Now,
	}
}

func (m *Manager) History() *HistoricalLog { return m.history }
func (m *Manager) SlowLog() *SlowQueryLog  { return m.slowLog }

// Collect takes one metrics snapshot for a connected profile and
// records it in the trend and slow-query logs.
func (m *Manager) Collect(ctx context.Context, profileID string) (*Snapshot, error) {
	conn, ok := m.reg.Connector(profileID)
	if !ok {
		return nil, dbclient.ErrNotConnected
	}
	profile, ok := m.reg.Profile(profileID)
	if !ok {
		return nil, fmt.Errorf("connection %s not found", profileID)
	}

	snap, err := m.collect(ctx, conn, profile.Engine)
	if err != nil {
		return nil, err
	}

	m.history.Record(profileID, Sample{
		Timestamp:         snap.Timestamp,
		ActiveConnections: snap.ActiveConnections,
		IdleConnections:   snap.IdleConnections,
		DatabaseSize:      snap.DatabaseSize,
	})
	for _, q := range snap.LongRunningQueries {
		m.slowLog.Record(SlowQuery{
			ProfileID:   profileID,
			Query:       q.Query,
			DurationSec: q.DurationSec,
			User:        q.User,
			Timestamp:   snap.Timestamp,
		})
	}
	return snap, nil
}

func (m *Manager) collect(ctx context.Context, conn dbclient.Connector, engine domain.Engine) (*Snapshot, error) {
	now := m.now()
	switch engine {
	case domain.EngineMongoDB:
		mc, ok := conn.(dbclient.MongoBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		return collectMongo(ctx, mc.Client(), mc.DatabaseName(), now)
	case domain.EnginePostgres, domain.EngineMySQL, domain.EngineMariaDB, domain.EngineSQLite:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		switch engine {
		case domain.EnginePostgres:
			return collectPostgres(ctx, sc.DB(), now)
		case domain.EngineSQLite:
			return collectSQLite(ctx, sc.DB(), now)
		default:
			return collectMySQL(ctx, sc.DB(), engine, now)
		}
	default:
		return nil, fmt.Errorf("unknown engine %q", engine)
	}
}

// QueryPlan asks the engine for an execution plan. SQLite and MongoDB
// have no JSON explain output here and report Supported=false.
func (m *Manager) QueryPlan(ctx context.Context, profileID, query string) (*PlanResult, error) {
	conn, err := m.reg.Ensure(ctx, profileID)
	if err != nil {
		return nil, err
	}
	profile, _ := m.reg.Profile(profileID)
	if profile == nil {
		return nil, fmt.Errorf("connection %s not found", profileID)
	}

	switch profile.Engine {
	case domain.EnginePostgres:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		return postgresPlan(ctx, sc.DB(), query)
	case domain.EngineMySQL, domain.EngineMariaDB:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		return mysqlPlan(ctx, sc.DB(), query)
	default:
		return &PlanResult{Supported: false}, nil
	}
}

// KillQuery terminates a running statement by its engine-native id.
func (m *Manager) KillQuery(ctx context.Context, profileID, pid string) error {
	conn, ok := m.reg.Connector(profileID)
	if !ok {
		return dbclient.ErrNotConnected
	}
	profile, _ := m.reg.Profile(profileID)
	if profile == nil {
		return fmt.Errorf("connection %s not found", profileID)
	}

	switch profile.Engine {
	case domain.EnginePostgres:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return dbclient.ErrUnsupported
		}
		return postgresKill(ctx, sc.DB(), pid)
	case domain.EngineMySQL, domain.EngineMariaDB:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return dbclient.ErrUnsupported
		}
		return mysqlKill(ctx, sc.DB(), pid)
	case domain.EngineMongoDB:
		mc, ok := conn.(dbclient.MongoBacked)
		if !ok {
			return dbclient.ErrUnsupported
		}
		return mongoKill(ctx, mc.Client(), pid)
	default:
		return dbclient.ErrUnsupported
	}
}

// TableStats reports per-table row counts and sizes.
func (m *Manager) TableStats(ctx context.Context, profileID string) ([]TableStat, error) {
	conn, err := m.reg.Ensure(ctx, profileID)
	if err != nil {
		return nil, err
	}
	profile, _ := m.reg.Profile(profileID)
	if profile == nil {
		return nil, fmt.Errorf("connection %s not found", profileID)
	}

	switch profile.Engine {
	case domain.EnginePostgres:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		return postgresTableStats(ctx, sc.DB())
	case domain.EngineMySQL, domain.EngineMariaDB:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		return mysqlTableStats(ctx, sc.DB())
	case domain.EngineSQLite:
		sc, ok := conn.(dbclient.SQLBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		return sqliteTableStats(ctx, sc.DB())
	case domain.EngineMongoDB:
		mc, ok := conn.(dbclient.MongoBacked)
		if !ok {
			return nil, dbclient.ErrUnsupported
		}
		return mongoTableStats(ctx, mc.Client(), mc.DatabaseName())
	default:
		return nil, dbclient.ErrUnsupported
	}
}
