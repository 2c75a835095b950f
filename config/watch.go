// File: config/watch.go
// Author: momentics <momentics@gmail.com>

package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watcher reloads a configuration file whenever it changes.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(Config)
	done     chan struct{}
}

// Watch calls onChange with every valid new version of the file at path.
// Invalid versions are logged and skipped. The directory is watched so that
// editors replacing the file atomically are noticed too.
func Watch(path string, onChange func(Config)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		watcher:  fw,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case e, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			conf, err := Load(w.path)
			if err != nil {
				log.WithFields(log.Fields{
					"file":  w.path,
					"error": err,
				}).Warn("Ignoring invalid configuration change")
				continue
			}
			log.WithField("file", w.path).Info("Configuration reloaded")
			w.onChange(conf)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.WithError(err).Warn("Configuration watcher error")
		}
	}
}

// Close stops watching and waits for the watch goroutine to exit.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	return err
}
