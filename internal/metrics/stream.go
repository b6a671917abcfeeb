package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"dbdock/internal/event"
)

const defaultPollInterval = 3 * time.Second

// Streamer polls metrics for subscribed connections and pushes each
// snapshot over the event emitter. A failing poll ends that stream
// after one error event so a dead connection does not produce an
// error loop.
type Streamer struct {
	manager  *Manager
	emitter  event.Emitter
	interval time.Duration

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewStreamer(manager *Manager, emitter event.Emitter, interval time.Duration) *Streamer {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &Streamer{
		manager:  manager,
		emitter:  emitter,
		interval: interval,
		cancels:  map[string]context.CancelFunc{},
	}
}

// StreamUpdate is the payload for every analytics event.
type StreamUpdate struct {
	ConnectionID string    `json:"connectionId"`
	Snapshot     *Snapshot `json:"snapshot,omitempty"`
	Error        string    `json:"error,omitempty"`
}

// Start begins polling a connection. Starting an already streaming
// connection is a no-op.
func (s *Streamer) Start(ctx context.Context, profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, running := s.cancels[profileID]; running {
		return
	}

	streamCtx, cancel := context.WithCancel(ctx)
	s.cancels[profileID] = cancel
	s.wg.Add(1)
	go s.poll(streamCtx, profileID)
	log.Printf("metrics: stream started for %s", profileID)
}

func (s *Streamer) poll(ctx context.Context, profileID string) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		snap, err := s.manager.Collect(ctx, profileID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("metrics: stream for %s stopped: %v", profileID, err)
			s.emitter.Emit(ctx, event.AnalyticsUpdate, StreamUpdate{
				ConnectionID: profileID,
				Error:        err.Error(),
			})
			s.remove(profileID)
			return
		}
		s.emitter.Emit(ctx, event.AnalyticsUpdate, StreamUpdate{
			ConnectionID: profileID,
			Snapshot:     snap,
		})
	}
}

// Stop ends the stream for one connection if it is running.
func (s *Streamer) Stop(profileID string) {
	s.remove(profileID)
}

func (s *Streamer) remove(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cancel, ok := s.cancels[profileID]; ok {
		cancel()
		delete(s.cancels, profileID)
	}
}

// StopAll cancels every stream and waits for the pollers to exit.
func (s *Streamer) StopAll() {
	s.mu.Lock()
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Active reports whether a stream is currently running.
func (s *Streamer) Active(profileID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancels[profileID]
	return ok
}
