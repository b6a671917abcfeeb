package dataedit

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
	"dbdock/internal/registry"
)

// Request addresses one row (or document) for editing. PrimaryKey
// carries one entry per key column; composite keys are just multiple
// entries. For document stores PrimaryKey is the filter document and
// Schema selects the database.
type Request struct {
	Table      string         `json:"table"`
	Schema     string         `json:"schema,omitempty"`
	PrimaryKey map[string]any `json:"primaryKey,omitempty"`
	Changes    map[string]any `json:"changes,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
}

// Editor performs row-level mutations addressed by primary key. Values
// are validated against the table's column metadata before any
// statement runs.
type Editor struct {
	reg *registry.Registry
}

func New(reg *registry.Registry) *Editor {
	return &Editor{reg: reg}
}

// UpdateRow applies the requested column changes to the single row the
// primary key addresses.
func (e *Editor) UpdateRow(ctx context.Context, profileID string, req Request) error {
	if len(req.PrimaryKey) == 0 {
		return fmt.Errorf("primary key required for update")
	}
	if len(req.Changes) == 0 {
		return fmt.Errorf("no changes provided")
	}

	profile, conn, err := e.connection(ctx, profileID)
	if err != nil {
		return err
	}
	if profile.Engine == domain.EngineMongoDB {
		return e.updateDocument(ctx, conn, req)
	}

	if err := e.validateValues(ctx, conn, req.Table, req.Schema, req.Changes); err != nil {
		return err
	}

	var set []string
	for col, val := range req.Changes {
		set = append(set, quoteIdent(profile.Engine, col)+" = "+literal(val))
	}
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		qualify(profile.Engine, req.Schema, req.Table),
		strings.Join(set, ", "),
		whereKey(profile.Engine, req.PrimaryKey))

	res, err := conn.Execute(ctx, stmt)
	if err != nil {
		return fmt.Errorf("update %s: %w", req.Table, err)
	}
	if res.Affected == 0 {
		return fmt.Errorf("no row matched the key")
	}
	return nil
}

// InsertRow inserts one row with the given column values.
func (e *Editor) InsertRow(ctx context.Context, profileID string, req Request) error {
	if len(req.Data) == 0 {
		return fmt.Errorf("no data provided")
	}

	profile, conn, err := e.connection(ctx, profileID)
	if err != nil {
		return err
	}
	if profile.Engine == domain.EngineMongoDB {
		return e.insertDocument(ctx, conn, req)
	}

	if err := e.validateValues(ctx, conn, req.Table, req.Schema, req.Data); err != nil {
		return err
	}

	var cols, vals []string
	for col, val := range req.Data {
		cols = append(cols, quoteIdent(profile.Engine, col))
		vals = append(vals, literal(val))
	}
	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		qualify(profile.Engine, req.Schema, req.Table),
		strings.Join(cols, ", "),
		strings.Join(vals, ", "))

	if _, err := conn.Execute(ctx, stmt); err != nil {
		return fmt.Errorf("insert into %s: %w", req.Table, err)
	}
	return nil
}

// DeleteRow removes the single row the primary key addresses.
func (e *Editor) DeleteRow(ctx context.Context, profileID string, req Request) error {
	if len(req.PrimaryKey) == 0 {
		return fmt.Errorf("primary key required for delete")
	}

	profile, conn, err := e.connection(ctx, profileID)
	if err != nil {
		return err
	}
	if profile.Engine == domain.EngineMongoDB {
		return e.deleteDocument(ctx, conn, req)
	}

	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s",
		qualify(profile.Engine, req.Schema, req.Table),
		whereKey(profile.Engine, req.PrimaryKey))

	res, err := conn.Execute(ctx, stmt)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", req.Table, err)
	}
	if res.Affected == 0 {
		return fmt.Errorf("no row matched the key")
	}
	return nil
}

func (e *Editor) connection(ctx context.Context, profileID string) (*domain.ConnectionProfile, dbclient.Connector, error) {
	profile, ok := e.reg.Profile(profileID)
	if !ok {
		return nil, nil, fmt.Errorf("unknown profile: %s", profileID)
	}
	conn, err := e.reg.Ensure(ctx, profileID)
	if err != nil {
		return nil, nil, err
	}
	return profile, conn, nil
}

// validateValues checks incoming values against the table's column
// metadata: unknown columns are rejected, NULL into a NOT NULL column
// is rejected, and string values destined for numeric or boolean
// columns must parse.
func (e *Editor) validateValues(ctx context.Context, conn dbclient.Connector, table, schema string, values map[string]any) error {
	cols, err := conn.Columns(ctx, table, schema)
	if err != nil {
		return fmt.Errorf("columns of %s: %w", table, err)
	}
	byName := make(map[string]dbclient.Column, len(cols))
	for _, c := range cols {
		byName[c.Name] = c
	}

	for name, val := range values {
		col, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown column %q in table %s", name, table)
		}
		if val == nil {
			if !col.Nullable {
				return fmt.Errorf("column %q cannot be null", name)
			}
			continue
		}
		if s, ok := val.(string); ok {
			if err := checkTypedString(col.Type, s); err != nil {
				return fmt.Errorf("column %q: %w", name, err)
			}
		}
	}
	return nil
}

// checkTypedString validates a string value against the column's
// declared type. The UI sends everything as strings; values headed for
// numeric or boolean columns must at least parse.
func checkTypedString(colType, value string) error {
	t := strings.ToLower(colType)
	switch {
	case strings.Contains(t, "int") || strings.Contains(t, "serial"):
		if _, err := strconv.ParseInt(value, 10, 64); err != nil {
			return fmt.Errorf("invalid integer %q", value)
		}
	case strings.Contains(t, "float") || strings.Contains(t, "double") ||
		strings.Contains(t, "real") || strings.Contains(t, "decimal") ||
		strings.Contains(t, "numeric"):
		if _, err := strconv.ParseFloat(value, 64); err != nil {
			return fmt.Errorf("invalid number %q", value)
		}
	case strings.Contains(t, "bool"):
		switch strings.ToLower(value) {
		case "true", "false", "1", "0", "t", "f":
		default:
			return fmt.Errorf("invalid boolean %q", value)
		}
	}
	return nil
}

func (e *Editor) updateDocument(ctx context.Context, conn dbclient.Connector, req Request) error {
	coll, err := collection(conn, req)
	if err != nil {
		return err
	}
	res, err := coll.UpdateOne(ctx, docFilter(req.PrimaryKey), bson.M{"$set": bson.M(req.Changes)})
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("no document matched the filter")
	}
	return nil
}

func (e *Editor) insertDocument(ctx context.Context, conn dbclient.Connector, req Request) error {
	coll, err := collection(conn, req)
	if err != nil {
		return err
	}
	if _, err := coll.InsertOne(ctx, bson.M(req.Data)); err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (e *Editor) deleteDocument(ctx context.Context, conn dbclient.Connector, req Request) error {
	coll, err := collection(conn, req)
	if err != nil {
		return err
	}
	res, err := coll.DeleteOne(ctx, docFilter(req.PrimaryKey))
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("no document matched the filter")
	}
	return nil
}

func collection(conn dbclient.Connector, req Request) (*mongo.Collection, error) {
	mb, ok := conn.(dbclient.MongoBacked)
	if !ok {
		return nil, dbclient.ErrUnsupported
	}
	database := mb.DatabaseName()
	if req.Schema != "" {
		database = req.Schema
	}
	return mb.Client().Database(database).Collection(req.Table), nil
}

// docFilter builds the document filter, converting a hex _id string to
// an ObjectID so documents inserted by the driver stay addressable.
func docFilter(key map[string]any) bson.M {
	filter := bson.M{}
	for k, v := range key {
		if k == "_id" {
			if s, ok := v.(string); ok {
				if oid, err := bson.ObjectIDFromHex(s); err == nil {
					filter[k] = oid
					continue
				}
			}
		}
		filter[k] = v
	}
	return filter
}

func whereKey(engine domain.Engine, key map[string]any) string {
	var parts []string
	for col, val := range key {
		parts = append(parts, quoteIdent(engine, col)+" = "+literal(val))
	}
	return strings.Join(parts, " AND ")
}

func qualify(engine domain.Engine, schema, table string) string {
	// The default schemas are implicit; qualifying them breaks sqlite.
	if schema == "" || schema == "main" || schema == "public" {
		return quoteIdent(engine, table)
	}
	return quoteIdent(engine, schema) + "." + quoteIdent(engine, table)
}

func quoteIdent(engine domain.Engine, name string) string {
	switch engine {
	case domain.EngineMySQL, domain.EngineMariaDB:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int, int64, float64:
		return fmt.Sprint(x)
	case []byte:
		return "'" + strings.ReplaceAll(string(x), "'", "''") + "'"
	case string:
		return "'" + strings.ReplaceAll(x, "'", "''") + "'"
	case time.Time:
		return "'" + x.UTC().Format("2006-01-02 15:04:05") + "'"
	default:
		return "'" + strings.ReplaceAll(fmt.Sprint(x), "'", "''") + "'"
	}
}
