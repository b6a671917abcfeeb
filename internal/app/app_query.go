package app

import (
	"dbdock/internal/domain"
	"dbdock/internal/query"
)

// ExecuteQuery runs a statement against a connection. Destructive
// statements come back with RequiresConfirmation set instead of
// executing; the frontend re-submits through ConfirmQuery.
func (a *App) ExecuteQuery(profileID string, req query.Request) *query.Result {
	a.touch()
	return a.executor.Execute(a.ctx, profileID, req)
}

// ConfirmQuery runs a statement the confirmation gate held back, after
// the user explicitly approved it.
func (a *App) ConfirmQuery(profileID string, req query.Request) *query.Result {
	a.touch()
	req.SkipValidation = true
	return a.executor.Execute(a.ctx, profileID, req)
}

func (a *App) QueryHistory(profileID string, limit int) ([]domain.QueryHistoryEntry, error) {
	return a.executor.History(profileID, limit)
}

func (a *App) SearchQueryHistory(profileID, term string) ([]domain.QueryHistoryEntry, error) {
	return a.executor.SearchHistory(profileID, term)
}

func (a *App) DeleteQueryHistoryEntry(profileID string, index int) error {
	a.touch()
	return a.executor.DeleteHistoryEntry(profileID, index)
}

func (a *App) ClearQueryHistory(profileID string) error {
	a.touch()
	return a.executor.ClearHistory(profileID)
}
