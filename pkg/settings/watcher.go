package settings

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/anthann/coffeechat/pkg/logx"
)

// Watcher reloads the store when its file changes on disk and notifies
// onChange, which callers use to invalidate the live session between
// turns.
type Watcher struct {
	store    *Store
	watcher  *fsnotify.Watcher
	onChange func(Settings)
	done     chan struct{}
}

// Watch starts observing the store's file. onChange runs after every
// successful reload.
func Watch(store *Store, onChange func(Settings)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace files, which would orphan a
	// watch on the file itself.
	if err := fsw.Add(filepath.Dir(store.Path())); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w := &Watcher{
		store:    store,
		watcher:  fsw,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	target := filepath.Clean(w.store.Path())
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(evt.Name) != target {
				continue
			}
			if !evt.Op.Has(fsnotify.Write) && !evt.Op.Has(fsnotify.Create) {
				continue
			}
			if err := w.store.Reload(); err != nil {
				logx.Warn().Err(err).Msg("settings reload failed, keeping previous values")
				continue
			}
			if w.onChange != nil {
				w.onChange(w.store.Current())
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logx.Warn().Err(err).Msg("settings watcher error")
		}
	}
}
