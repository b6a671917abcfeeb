package dbclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"dbdock/internal/domain"
)

// mongoConnector implements Connector for MongoDB.
type mongoConnector struct {
	baseConnector

	mu        sync.Mutex
	client    *mongo.Client
	dbName    string
	connected bool
}

// docQuery is the JSON structure users write instead of SQL for
// document stores. An empty filter returns everything.
type docQuery struct {
	Collection string         `json:"collection"`
	Filter     map[string]any `json:"filter,omitempty"`
	Projection map[string]any `json:"projection,omitempty"`
	Sort       map[string]any `json:"sort,omitempty"`
	Limit      int64          `json:"limit,omitempty"`
}

func newMongoConnector() *mongoConnector {
	return &mongoConnector{}
}

func buildMongoURI(p *domain.ConnectionProfile, password string) string {
	// Host may already be a full connection string (Atlas mongodb+srv://).
	if strings.HasPrefix(p.Host, "mongodb://") || strings.HasPrefix(p.Host, "mongodb+srv://") {
		uri := p.Host
		if password != "" {
			uri = strings.ReplaceAll(uri, "<password>", password)
		}
		return uri
	}
	port := p.Port
	if port == 0 {
		port = 27017
	}
	if p.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%d", p.Username, password, p.Host, port)
	}
	return fmt.Sprintf("mongodb://%s:%d", p.Host, port)
}

func (c *mongoConnector) Connect(ctx context.Context, profile *domain.ConnectionProfile, password string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connected {
		return fmt.Errorf("mongodb: already connected")
	}

	uri := buildMongoURI(profile, password)
	logURI := uri
	if password != "" {
		logURI = strings.ReplaceAll(logURI, password, "***")
	}
	log.Printf("[MONGO] connecting: %s", logURI)

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongo: %w", err)
	}

	c.client = client
	c.dbName = profile.Database
	c.connected = true
	return nil
}

func (c *mongoConnector) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.client == nil {
		return nil
	}
	err := c.client.Disconnect(context.Background())
	c.client = nil
	if err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func (c *mongoConnector) TestConnection(ctx context.Context, profile *domain.ConnectionProfile, password string) error {
	client, err := mongo.Connect(options.Client().ApplyURI(buildMongoURI(profile, password)))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	defer client.Disconnect(context.Background())

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return fmt.Errorf("ping mongo: %w", err)
	}
	return nil
}

func (c *mongoConnector) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Client exposes the driver client for metric collectors and backups.
func (c *mongoConnector) Client() *mongo.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

func (c *mongoConnector) DatabaseName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dbName
}

func (c *mongoConnector) handle() (*mongo.Client, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected || c.client == nil {
		return nil, "", ErrNotConnected
	}
	return c.client, c.dbName, nil
}

func (c *mongoConnector) Schemas(ctx context.Context) ([]string, error) {
	client, _, err := c.handle()
	if err != nil {
		return nil, err
	}
	names, err := client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	var out []string
	for _, n := range names {
		if n == "admin" || n == "local" || n == "config" {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (c *mongoConnector) Tables(ctx context.Context, schema string) ([]string, error) {
	client, dbName, err := c.handle()
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = dbName
	}
	if schema == "" {
		return nil, fmt.Errorf("mongodb: no database selected")
	}
	names, err := client.Database(schema).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

// Columns infers the field list from one sampled document. Document
// stores have no declared schema, so every field reports as nullable.
func (c *mongoConnector) Columns(ctx context.Context, table, schema string) ([]Column, error) {
	client, dbName, err := c.handle()
	if err != nil {
		return nil, err
	}
	if schema == "" {
		schema = dbName
	}

	var sample bson.M
	err = client.Database(schema).Collection(table).FindOne(ctx, bson.D{}).Decode(&sample)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sample %s.%s: %w", schema, table, err)
	}

	keys := make([]string, 0, len(sample))
	for k := range sample {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]Column, 0, len(keys))
	for _, k := range keys {
		cols = append(cols, Column{
			Name:     k,
			Type:     fmt.Sprintf("%T", sample[k]),
			Nullable: true,
		})
	}
	return cols, nil
}

func (c *mongoConnector) Execute(ctx context.Context, query string) (*Result, error) {
	client, dbName, err := c.handle()
	if err != nil {
		return nil, err
	}

	var q docQuery
	if err := json.Unmarshal([]byte(query), &q); err != nil {
		return nil, fmt.Errorf("parse query: %w (expected JSON like {\"collection\": ..., \"filter\": ...})", err)
	}
	if q.Collection == "" {
		return nil, fmt.Errorf("parse query: missing \"collection\"")
	}
	if q.Limit <= 0 {
		q.Limit = 100
	}

	filter := bson.M{}
	for k, v := range q.Filter {
		filter[k] = v
	}

	findOpts := options.Find().SetLimit(q.Limit)
	if len(q.Sort) > 0 {
		findOpts = findOpts.SetSort(bson.M(q.Sort))
	}
	if len(q.Projection) > 0 {
		findOpts = findOpts.SetProjection(bson.M(q.Projection))
	}

	cursor, err := client.Database(dbName).Collection(q.Collection).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}

	return flattenDocs(docs), nil
}

// flattenDocs turns heterogeneous documents into the common columnar
// Result: columns are the union of all keys, missing fields are nil.
func flattenDocs(docs []bson.M) *Result {
	keySet := make(map[string]bool)
	for _, doc := range docs {
		for k := range doc {
			keySet[k] = true
		}
	}
	columns := make([]string, 0, len(keySet))
	for k := range keySet {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	result := &Result{Columns: columns, RowCount: len(docs)}
	for _, doc := range docs {
		row := make([]any, len(columns))
		for i, col := range columns {
			row[i] = formatDocValue(doc[col])
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

func formatDocValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case bson.M, bson.A, bson.D:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return val
	}
}
