package app

import "dbdock/internal/schema"

// GetSchemaTree returns the cached schema tree for a connection,
// walking the live database on a cache miss.
func (a *App) GetSchemaTree(profileID string) (*schema.Tree, error) {
	a.touch()
	return a.explorer.GetTree(a.ctx, profileID, true)
}

// RefreshSchemaTree drops everything cached for the connection and
// rebuilds the tree from the live database.
func (a *App) RefreshSchemaTree(profileID string) (*schema.Tree, error) {
	a.touch()
	a.explorer.Refresh(profileID)
	return a.explorer.GetTree(a.ctx, profileID, false)
}

// GetTableDetail returns a table's columns and a bounded sample of rows.
func (a *App) GetTableDetail(profileID, schemaName, tableName string) (*schema.TableDetail, error) {
	a.touch()
	return a.explorer.GetTableDetail(a.ctx, profileID, schemaName, tableName)
}
