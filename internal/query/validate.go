package query

import "strings"

// Verbs that mutate data and therefore need a bounding clause before
// they run unconfirmed.
var guardedVerbs = map[string]bool{
	"UPDATE": true,
	"DELETE": true,
}

// Verbs that are destructive regardless of any clause.
var alwaysConfirm = map[string]bool{
	"DROP":     true,
	"TRUNCATE": true,
}

// needsConfirmation classifies a statement. Data-mutating statements
// without a WHERE/LIMIT guard must be explicitly confirmed by the user
// before they execute.
func needsConfirmation(statement string) bool {
	fields := strings.Fields(strings.ToUpper(statement))
	if len(fields) == 0 {
		return false
	}
	verb := fields[0]
	if alwaysConfirm[verb] {
		return true
	}
	if !guardedVerbs[verb] {
		return false
	}
	for _, f := range fields[1:] {
		if f == "WHERE" || f == "LIMIT" {
			return false
		}
	}
	return true
}

// hasLimit reports whether a SQL statement already carries its own
// LIMIT clause.
func hasLimit(statement string) bool {
	for _, f := range strings.Fields(strings.ToUpper(statement)) {
		if f == "LIMIT" {
			return true
		}
	}
	return false
}

// isSelect reports whether the statement is a plain read that can take
// an injected LIMIT/OFFSET.
func isSelect(statement string) bool {
	q := strings.ToUpper(strings.TrimSpace(statement))
	return strings.HasPrefix(q, "SELECT") || strings.HasPrefix(q, "WITH")
}
