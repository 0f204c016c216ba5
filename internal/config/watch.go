package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reloads the configuration from path whenever the file changes and
// invokes onReload with the freshly parsed config. Only rate-limit tiers and
// error-injection knobs are meant to be safely hot-swapped; callers should
// not mutate timers for requests already in flight.
func Watch(path string, onReload func(*Config)) (func() error, error) {
	if path == "" {
		return func() error { return nil }, nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					log.Warnf("config: reload failed: %v", err)
					continue
				}
				log.Infof("config: reloaded from %s", path)
				onReload(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("config: watch error: %v", err)
			}
		}
	}()

	return watcher.Close, nil
}
