package metrics_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dbdock/internal/domain"
	"dbdock/internal/event"
	"dbdock/internal/metrics"
	"dbdock/internal/registry"
	"dbdock/internal/secret"
	"dbdock/internal/storage"
)

func newStreamSetup(t *testing.T) (*metrics.Streamer, *event.MockEmitter, *registry.Registry, string) {
	t.Helper()
	dir := t.TempDir()

	profiles := storage.NewProfileStore(dir)
	p := &domain.ConnectionProfile{
		Name:   "local",
		Engine: domain.EngineSQLite,
		Host:   filepath.Join(dir, "data.db"),
	}
	if err := profiles.CreateProfile(p); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	reg := registry.New(profiles, secret.NewMemoryStore(), nil)
	t.Cleanup(reg.DisconnectAll)

	emitter := &event.MockEmitter{}
	streamer := metrics.NewStreamer(metrics.NewManager(reg), emitter, 10*time.Millisecond)
	t.Cleanup(streamer.StopAll)
	return streamer, emitter, reg, p.ID
}

func TestStreamer_EmitsSnapshots(t *testing.T) {
	streamer, emitter, reg, id := newStreamSetup(t)
	ctx := context.Background()

	if err := reg.Connect(ctx, id); err != nil {
		t.Fatalf("connect: %v", err)
	}

	streamer.Start(ctx, id)
	if !streamer.Active(id) {
		t.Fatal("stream should be active after Start")
	}

	deadline := time.After(2 * time.Second)
	for len(emitter.Recorded()) < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for analytics events")
		case <-time.After(10 * time.Millisecond):
		}
	}

	for _, e := range emitter.Recorded()[:2] {
		if e.Event != event.AnalyticsUpdate {
			t.Fatalf("unexpected event %q", e.Event)
		}
		upd := e.Data.(metrics.StreamUpdate)
		if upd.ConnectionID != id || upd.Error != "" || upd.Snapshot == nil {
			t.Fatalf("unexpected update: %+v", upd)
		}
		if upd.Snapshot.Engine != domain.EngineSQLite {
			t.Errorf("unexpected engine %s", upd.Snapshot.Engine)
		}
	}
}

// A failing poll ends the stream after a single error event instead of
// looping on a dead connection.
func TestStreamer_StopsOnError(t *testing.T) {
	streamer, emitter, _, id := newStreamSetup(t)

	// Never connected: the first poll fails.
	streamer.Start(context.Background(), id)

	deadline := time.After(2 * time.Second)
	for streamer.Active(id) {
		select {
		case <-deadline:
			t.Fatal("stream should have stopped itself")
		case <-time.After(5 * time.Millisecond):
		}
	}

	// Give a hypothetical error loop time to show itself.
	time.Sleep(50 * time.Millisecond)

	recorded := emitter.Recorded()
	if len(recorded) != 1 {
		t.Fatalf("expected exactly 1 error event, got %d", len(recorded))
	}
	upd := recorded[0].Data.(metrics.StreamUpdate)
	if upd.Error == "" {
		t.Error("final event must carry the error")
	}
}

func TestStreamer_StartIdempotent(t *testing.T) {
	streamer, _, reg, id := newStreamSetup(t)
	ctx := context.Background()
	if err := reg.Connect(ctx, id); err != nil {
		t.Fatalf("connect: %v", err)
	}

	streamer.Start(ctx, id)
	streamer.Start(ctx, id)
	if !streamer.Active(id) {
		t.Fatal("stream should be active")
	}
	streamer.Stop(id)
	if streamer.Active(id) {
		t.Error("stream should be stopped")
	}
}
