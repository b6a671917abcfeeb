package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"dbdock/internal/cache"
	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
	"dbdock/internal/registry"
)

// Cache TTLs, in line with how long introspection results stay useful.
const (
	treeTTL  = 15 * time.Minute
	tableTTL = 10 * time.Minute
)

const sampleRows = 5

// Tree is the full schema→table→column hierarchy of one connection.
type Tree struct {
	ProfileID string                `json:"profileId"`
	Engine    domain.Engine         `json:"engine"`
	Schemas   map[string]SchemaNode `json:"schemas"`
	FetchedAt time.Time             `json:"fetchedAt"`
}

// SchemaNode holds one schema's tables.
type SchemaNode struct {
	Tables     map[string]TableNode `json:"tables"`
	TableCount int                  `json:"tableCount"`
}

// TableNode holds one table's columns.
type TableNode struct {
	Columns     []dbclient.Column `json:"columns"`
	ColumnCount int               `json:"columnCount"`
}

// TableDetail is the table-granularity view: columns plus sample rows.
type TableDetail struct {
	ProfileID  string            `json:"profileId"`
	Schema     string            `json:"schema"`
	Table      string            `json:"table"`
	Columns    []dbclient.Column `json:"columns"`
	SampleCols []string          `json:"sampleColumns"`
	SampleRows [][]any           `json:"sampleRows"`
}

// Explorer builds schema trees through the registry's connectors and
// memoizes them in the shared cache.
type Explorer struct {
	reg   *registry.Registry
	cache *cache.Cache
}

// NewExplorer creates an Explorer.
func NewExplorer(reg *registry.Registry, c *cache.Cache) *Explorer {
	return &Explorer{reg: reg, cache: c}
}

func treeKey(profileID string) string { return profileID + "_schema" }

func tableKey(profileID, schema, table string) string {
	return fmt.Sprintf("%s_table_%s_%s", profileID, schema, table)
}

// GetTree returns the schema tree for a connection, from cache when
// useCache is set and a fresh entry exists. On any failure mid-walk the
// whole fetch fails — partial trees are never returned or cached.
func (e *Explorer) GetTree(ctx context.Context, profileID string, useCache bool) (*Tree, error) {
	if useCache {
		if v, ok := e.cache.Get(treeKey(profileID)); ok {
			return v.(*Tree), nil
		}
	}

	connector, err := e.reg.Ensure(ctx, profileID)
	if err != nil {
		return nil, err
	}
	profile, _ := e.reg.Profile(profileID)

	tree := &Tree{
		ProfileID: profileID,
		Schemas:   make(map[string]SchemaNode),
		FetchedAt: time.Now(),
	}
	if profile != nil {
		tree.Engine = profile.Engine
	}

	schemas, err := connector.Schemas(ctx)
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}

	for _, schemaName := range schemas {
		tables, err := connector.Tables(ctx, schemaName)
		if err != nil {
			return nil, fmt.Errorf("list tables of %s: %w", schemaName, err)
		}
		node := SchemaNode{Tables: make(map[string]TableNode), TableCount: len(tables)}
		for _, tableName := range tables {
			columns, err := connector.Columns(ctx, tableName, schemaName)
			if err != nil {
				return nil, fmt.Errorf("list columns of %s.%s: %w", schemaName, tableName, err)
			}
			node.Tables[tableName] = TableNode{Columns: columns, ColumnCount: len(columns)}
		}
		tree.Schemas[schemaName] = node
	}

	e.cache.Set(treeKey(profileID), tree, treeTTL)
	return tree, nil
}

// GetTableDetail returns columns plus up to five sample rows for one
// table, cached at table granularity.
func (e *Explorer) GetTableDetail(ctx context.Context, profileID, schemaName, tableName string) (*TableDetail, error) {
	key := tableKey(profileID, schemaName, tableName)
	if v, ok := e.cache.Get(key); ok {
		return v.(*TableDetail), nil
	}

	connector, err := e.reg.Ensure(ctx, profileID)
	if err != nil {
		return nil, err
	}
	profile, _ := e.reg.Profile(profileID)

	columns, err := connector.Columns(ctx, tableName, schemaName)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schemaName, tableName, err)
	}

	var engine domain.Engine
	if profile != nil {
		engine = profile.Engine
	}
	sample, err := connector.Execute(ctx, sampleQuery(engine, schemaName, tableName))
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", schemaName, tableName, err)
	}

	detail := &TableDetail{
		ProfileID:  profileID,
		Schema:     schemaName,
		Table:      tableName,
		Columns:    columns,
		SampleCols: sample.Columns,
		SampleRows: sample.Rows,
	}
	if len(detail.SampleRows) > sampleRows {
		detail.SampleRows = detail.SampleRows[:sampleRows]
	}

	e.cache.Set(key, detail, tableTTL)
	return detail, nil
}

// Refresh invalidates every cached entry for a connection, forcing the
// next read to recompute.
func (e *Explorer) Refresh(profileID string) int {
	return e.cache.DeleteByPrefix(profileID)
}

// sampleQuery builds the bounded sample-rows query per engine. Document
// stores get an empty-filter document query instead of SQL.
func sampleQuery(engine domain.Engine, schemaName, tableName string) string {
	switch engine {
	case domain.EngineMongoDB:
		q, _ := json.Marshal(map[string]any{"collection": tableName, "limit": sampleRows})
		return string(q)
	case domain.EngineSQLite:
		return fmt.Sprintf("SELECT * FROM %s LIMIT %d", tableName, sampleRows)
	default:
		return fmt.Sprintf("SELECT * FROM %s.%s LIMIT %d", schemaName, tableName, sampleRows)
	}
}
