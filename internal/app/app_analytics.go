package app

import "dbdock/internal/metrics"

// GetAnalytics takes a one-off metrics snapshot for a connection.
func (a *App) GetAnalytics(profileID string) (*metrics.Snapshot, error) {
	a.touch()
	return a.metrics.Collect(a.ctx, profileID)
}

// StartAnalyticsStream begins pushing analytics:update events for a
// connection on the poll interval.
func (a *App) StartAnalyticsStream(profileID string) {
	a.touch()
	a.streamer.Start(a.ctx, profileID)
}

func (a *App) StopAnalyticsStream(profileID string) {
	a.streamer.Stop(profileID)
}

func (a *App) AnalyticsStreamActive(profileID string) bool {
	return a.streamer.Active(profileID)
}

// GetHistoricalMetrics returns the retained trend samples, oldest first.
func (a *App) GetHistoricalMetrics(profileID string) []metrics.Sample {
	return a.metrics.History().Samples(profileID)
}

// GetSlowQueries returns statements seen running past the threshold in
// the last hours. Zero means the full retention window (a day).
func (a *App) GetSlowQueries(profileID string, hours int) []metrics.SlowQuery {
	return a.metrics.SlowLog().Entries(profileID, hours)
}

func (a *App) ClearSlowQueries(profileID string) {
	a.metrics.SlowLog().Clear(profileID)
}

// GetQueryPlan returns the engine's execution plan for a statement.
func (a *App) GetQueryPlan(profileID, statement string) (*metrics.PlanResult, error) {
	a.touch()
	return a.metrics.QueryPlan(a.ctx, profileID, statement)
}

// KillQuery terminates a running statement by its engine-native id.
func (a *App) KillQuery(profileID, pid string) error {
	a.touch()
	return a.metrics.KillQuery(a.ctx, profileID, pid)
}

// GetTableStats returns per-table row counts and sizes.
func (a *App) GetTableStats(profileID string) ([]metrics.TableStat, error) {
	a.touch()
	return a.metrics.TableStats(a.ctx, profileID)
}
