package app

import "dbdock/internal/dataedit"

// UpdateRow changes column values on the row the primary key addresses.
func (a *App) UpdateRow(profileID string, req dataedit.Request) error {
	a.touch()
	return a.edits.UpdateRow(a.ctx, profileID, req)
}

// InsertRow inserts one row (or document) with the given values.
func (a *App) InsertRow(profileID string, req dataedit.Request) error {
	a.touch()
	return a.edits.InsertRow(a.ctx, profileID, req)
}

// DeleteRow removes the row the primary key addresses.
func (a *App) DeleteRow(profileID string, req dataedit.Request) error {
	a.touch()
	return a.edits.DeleteRow(a.ctx, profileID, req)
}
