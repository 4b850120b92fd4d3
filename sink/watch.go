// Copyright © 2023 Sloan Childers
package sink

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// WatchFile calls onChange whenever fileName is written or replaced, until ctx is done.
// The parent directory is watched so atomic renames are seen too.
func WatchFile(ctx context.Context, fileName string, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	err = watcher.Add(filepath.Dir(fileName))
	if err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(fileName)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("component", "watch").Str("file", fileName).Msg("fsnotify")
			}
		}
	}()
	return nil
}
