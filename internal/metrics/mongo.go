package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"dbdock/internal/domain"
)

func collectMongo(ctx context.Context, client *mongo.Client, database string, now time.Time) (*Snapshot, error) {
	snap := &Snapshot{
		Engine:     domain.EngineMongoDB,
		QueryStats: map[string]int{},
		Timestamp:  now,
	}

	var status struct {
		Connections struct {
			Current int `bson:"current"`
			Active  int `bson:"active"`
		} `bson:"connections"`
	}
	if err := client.Database("admin").RunCommand(ctx,
		bson.D{{Key: "serverStatus", Value: 1}}).Decode(&status); err != nil {
		return nil, fmt.Errorf("serverStatus: %w", err)
	}
	snap.ActiveConnections = status.Connections.Active
	snap.IdleConnections = status.Connections.Current - status.Connections.Active
	if snap.IdleConnections < 0 {
		snap.IdleConnections = 0
	}

	var stats struct {
		DataSize  float64 `bson:"dataSize"`
		IndexSize float64 `bson:"indexSize"`
	}
	if err := client.Database(database).RunCommand(ctx,
		bson.D{{Key: "dbStats", Value: 1}}).Decode(&stats); err != nil {
		return nil, fmt.Errorf("dbStats: %w", err)
	}
	snap.DatabaseSize = int64(stats.DataSize + stats.IndexSize)

	var ops struct {
		Inprog []struct {
			Opid        any     `bson:"opid"`
			Op          string  `bson:"op"`
			SecsRunning float64 `bson:"secs_running"`
			NS          string  `bson:"ns"`
			WaitingLock bool    `bson:"waitingForLock"`
		} `bson:"inprog"`
	}
	if err := client.Database("admin").RunCommand(ctx,
		bson.D{{Key: "currentOp", Value: 1}}).Decode(&ops); err != nil {
		return nil, fmt.Errorf("currentOp: %w", err)
	}
	for _, op := range ops.Inprog {
		if op.Op == "none" || op.Op == "" {
			continue
		}
		q := RunningQuery{
			PID:         fmt.Sprint(op.Opid),
			State:       op.Op,
			Query:       op.NS,
			DurationSec: op.SecsRunning,
		}
		snap.CurrentQueries = append(snap.CurrentQueries, q)
		snap.QueryStats[op.Op]++
		if q.DurationSec >= slowQuerySeconds {
			snap.LongRunningQueries = append(snap.LongRunningQueries, q)
		}
		if op.WaitingLock {
			snap.BlockedQueries = append(snap.BlockedQueries, q)
		}
	}
	return snap, nil
}

func mongoKill(ctx context.Context, client *mongo.Client, opid string) error {
	// killOp's op field is numeric; reject bad ids before asking the server.
	op, err := strconv.Atoi(opid)
	if err != nil {
		return fmt.Errorf("invalid operation id %q", opid)
	}
	err = client.Database("admin").RunCommand(ctx,
		bson.D{{Key: "killOp", Value: 1}, {Key: "op", Value: op}}).Err()
	if err != nil {
		return fmt.Errorf("killOp %s: %w", opid, err)
	}
	return nil
}

func mongoTableStats(ctx context.Context, client *mongo.Client, database string) ([]TableStat, error) {
	db := client.Database(database)
	names, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}

	var stats []TableStat
	for _, name := range names {
		var cs struct {
			Count int64   `bson:"count"`
			Size  float64 `bson:"size"`
		}
		if err := db.RunCommand(ctx, bson.D{{Key: "collStats", Value: name}}).Decode(&cs); err != nil {
			return nil, fmt.Errorf("collStats %s: %w", name, err)
		}
		stats = append(stats, TableStat{Table: name, RowCount: cs.Count, SizeBytes: int64(cs.Size)})
	}
	return stats, nil
}
