package registry

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"dbdock/internal/event"
)

// WatchProfiles watches the on-disk profile document and notifies the
// UI when it changes outside the app (hand-edited, synced, restored
// from backup). Stops when ctx is cancelled.
func WatchProfiles(ctx context.Context, path string, emitter event.Emitter) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors and atomic rename writes replace the
	// file, which would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}

	abs, _ := filepath.Abs(path)

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Rename) {
					continue
				}
				if got, _ := filepath.Abs(e.Name); got != abs {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(500*time.Millisecond, func() {
					log.Printf("registry: profile document changed on disk")
					emitter.Emit(ctx, event.ConnectionsChanged, nil)
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("registry: profile watcher: %v", err)
			}
		}
	}()
	return nil
}
