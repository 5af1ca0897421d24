// Package config provides the file-watching mechanism used to hot-reload
// pattern and threshold configuration at runtime, without restarting a
// pipeline stage.
//
// # File Watching
//
// The [Watcher] interface abstracts configuration change detection.
// [FileWatcher] polls a file at regular intervals using SHA-256 content
// hashing, invoking a callback with the raw file bytes when a change is
// detected:
//
//	watcher := config.NewFileWatcher("wake_patterns.json", 5*time.Second)
//	err := watcher.Watch(ctx, func(newConfig any) {
//	    data := newConfig.([]byte)
//	    // re-parse and apply configuration
//	})
package config
