package backup

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"dbdock/internal/dbclient"
	"dbdock/internal/domain"
)

// Driver-level export is the fallback when the engine's native dump
// tool is not installed. It produces a plain SQL script of INSERT
// statements (or JSON lines for MongoDB) that the driver-level restore
// can replay.

func exportSQL(ctx context.Context, conn dbclient.Connector, engine domain.Engine, tables []string, outPath string) error {
	sc, ok := conn.(dbclient.SQLBacked)
	if !ok {
		return dbclient.ErrUnsupported
	}
	db := sc.DB()

	if len(tables) == 0 {
		var err error
		tables, err = conn.Tables(ctx, "")
		if err != nil {
			return fmt.Errorf("list tables: %w", err)
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	w := bufio.NewWriter(out)
	fmt.Fprintf(w, "-- dbdock export %s\n", time.Now().UTC().Format(time.RFC3339))

	for _, table := range tables {
		if err := exportTable(ctx, db, engine, table, w); err != nil {
			out.Close()
			os.Remove(outPath)
			return fmt.Errorf("export %s: %w", table, err)
		}
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(outPath)
		return err
	}
	return out.Close()
}

func exportTable(ctx context.Context, db *sql.DB, engine domain.Engine, table string, w *bufio.Writer) error {
	quoted := quoteIdent(engine, table)
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+quoted)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	colList := make([]string, len(cols))
	for i, c := range cols {
		colList[i] = quoteIdent(engine, c)
	}

	fmt.Fprintf(w, "\n-- table %s\n", table)
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return err
		}
		lits := make([]string, len(values))
		for i, v := range values {
			lits[i] = sqlLiteral(v)
		}
		fmt.Fprintf(w, "INSERT INTO %s (%s) VALUES (%s);\n",
			quoted, strings.Join(colList, ", "), strings.Join(lits, ", "))
	}
	return rows.Err()
}

func quoteIdent(engine domain.Engine, name string) string {
	switch engine {
	case domain.EngineMySQL, domain.EngineMariaDB:
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	default:
		return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
	}
}

func sqlLiteral(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int64, float64:
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

// restoreSQL replays a driver-level export statement by statement.
func restoreSQL(ctx context.Context, conn dbclient.Connector, dumpPath string) error {
	sc, ok := conn.(dbclient.SQLBacked)
	if !ok {
		return dbclient.ErrUnsupported
	}
	data, err := os.ReadFile(dumpPath)
	if err != nil {
		return fmt.Errorf("read %s: %w", dumpPath, err)
	}

	for _, chunk := range strings.Split(string(data), ";\n") {
		// Comment lines share chunks with the statements that follow them.
		var kept []string
		for _, line := range strings.Split(chunk, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || strings.HasPrefix(trimmed, "--") {
				continue
			}
			kept = append(kept, line)
		}
		stmt := strings.TrimSpace(strings.Join(kept, "\n"))
		if stmt == "" {
			continue
		}
		if _, err := sc.DB().ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("replay statement: %w", err)
		}
	}
	return nil
}

// docLine is one exported MongoDB document with its collection.
type docLine struct {
	Collection string          `json:"collection"`
	Doc        json.RawMessage `json:"doc"`
}

func exportMongo(ctx context.Context, client *mongo.Client, database string, collections []string, outPath string) error {
	db := client.Database(database)
	if len(collections) == 0 {
		var err error
		collections, err = db.ListCollectionNames(ctx, bson.D{})
		if err != nil {
			return fmt.Errorf("list collections: %w", err)
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	w := bufio.NewWriter(out)

	for _, name := range collections {
		cursor, err := db.Collection(name).Find(ctx, bson.D{})
		if err != nil {
			out.Close()
			os.Remove(outPath)
			return fmt.Errorf("export %s: %w", name, err)
		}
		for cursor.Next(ctx) {
			var doc bson.M
			if err := cursor.Decode(&doc); err != nil {
				cursor.Close(ctx)
				out.Close()
				os.Remove(outPath)
				return err
			}
			raw, err := bson.MarshalExtJSON(doc, false, false)
			if err != nil {
				cursor.Close(ctx)
				out.Close()
				os.Remove(outPath)
				return err
			}
			line, _ := json.Marshal(docLine{Collection: name, Doc: raw})
			w.Write(line)
			w.WriteByte('\n')
		}
		if err := cursor.Err(); err != nil {
			cursor.Close(ctx)
			out.Close()
			os.Remove(outPath)
			return err
		}
		cursor.Close(ctx)
	}
	if err := w.Flush(); err != nil {
		out.Close()
		os.Remove(outPath)
		return err
	}
	return out.Close()
}

func restoreMongo(ctx context.Context, client *mongo.Client, database, dumpPath string) error {
	in, err := os.Open(dumpPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", dumpPath, err)
	}
	defer in.Close()

	db := client.Database(database)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		var line docLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			return fmt.Errorf("parse dump line: %w", err)
		}
		var doc bson.M
		if err := bson.UnmarshalExtJSON(line.Doc, false, &doc); err != nil {
			return fmt.Errorf("parse document: %w", err)
		}
		if _, err := db.Collection(line.Collection).InsertOne(ctx, doc); err != nil {
			return fmt.Errorf("insert into %s: %w", line.Collection, err)
		}
	}
	return scanner.Err()
}
