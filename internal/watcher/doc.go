// Package watcher reports settled changes in a source directory so the
// document table can be rebuilt.
//
// Only top-level entries are watched, matching what ingestion reads.
// fsnotify is used when available, with polling as a fallback for file
// systems that do not deliver events (network mounts, some container
// volumes). Bursts of events are debounced into batches.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	return watcher.Watch(ctx, w, "docs", func(ctx context.Context, batch []watcher.FileEvent) error {
//	    _, err := runner.Run(ctx, cfg)
//	    return err
//	})
package watcher
