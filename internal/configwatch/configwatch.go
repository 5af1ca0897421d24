// Package configwatch combines a polling file-content-hash watcher with
// SIGHUP so a reload can be triggered either way, whichever fires first.
// The polling side is the teacher's own config.FileWatcher
// (crypto/sha256 content hashing) reused as-is; this package only adds
// the signal-driven trigger and a single merged callback.
package configwatch

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/lookatitude/hey-raven/config"
)

// DefaultInterval is the polling interval used when Watch's caller
// doesn't need a tighter reload latency.
const DefaultInterval = 2 * time.Second

// Watch reads path, invoking onReload(data) whenever its content changes
// (detected by the teacher's FileWatcher) or a SIGHUP arrives (in which
// case data is re-read from path before invoking onReload). It blocks
// until ctx is canceled.
func Watch(ctx context.Context, path string, interval time.Duration, onReload func(data []byte)) error {
	if interval <= 0 {
		interval = DefaultInterval
	}

	var mu sync.Mutex // serializes onReload against concurrent poll/signal firings

	guarded := func(data []byte) {
		mu.Lock()
		defer mu.Unlock()
		onReload(data)
	}

	fw := config.NewFileWatcher(path, interval)
	defer fw.Close()

	sighup := make(chan os.Signal, 1)
	signal.Notify(sighup, syscall.SIGHUP)
	defer signal.Stop(sighup)

	errCh := make(chan error, 1)
	go func() {
		errCh <- fw.Watch(ctx, func(newConfig any) {
			data, ok := newConfig.([]byte)
			if !ok {
				return
			}
			guarded(data)
		})
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errCh:
			return err
		case <-sighup:
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			guarded(data)
		}
	}
}
