package playlist

import (
	"log"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DirWatcher invokes a callback when entries are added to or removed
// from any of a set of watched directories.
type DirWatcher struct {
	onChange func()

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	dirs    map[string]bool
	done    chan struct{}
}

// NewDirWatcher starts a watcher. onChange is called from the
// watcher's goroutine.
func NewDirWatcher(onChange func()) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	d := &DirWatcher{
		onChange: onChange,
		watcher:  w,
		dirs:     make(map[string]bool),
		done:     make(chan struct{}),
	}
	go d.run()
	return d, nil
}

// SetDirs replaces the set of watched directories.
func (d *DirWatcher) SetDirs(dirs []string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	want := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		want[dir] = true
	}
	for dir := range d.dirs {
		if !want[dir] {
			d.watcher.Remove(dir)
			delete(d.dirs, dir)
		}
	}
	for dir := range want {
		if d.dirs[dir] {
			continue
		}
		if err := d.watcher.Add(dir); err != nil {
			log.Printf("playlist: cannot watch %s: %v", dir, err)
			continue
		}
		d.dirs[dir] = true
	}
}

// Close stops the watcher. onChange is not called after Close returns.
func (d *DirWatcher) Close() error {
	err := d.watcher.Close()
	<-d.done
	return err
}

func (d *DirWatcher) run() {
	defer close(d.done)
	for {
		select {
		case ev, ok := <-d.watcher.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				d.onChange()
			}
		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("playlist: watch error: %v", err)
		}
	}
}
