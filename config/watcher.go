package config

import (
	"os"

	"github.com/fsnotify/fsnotify"

	"oss.nandlabs.io/execctl/codec"
	"oss.nandlabs.io/execctl/l3"
)

var logger = l3.Get()

// ReloadableSettings is the subset of daemon configuration that can change
// without a restart: the moderator gate's state-store connection name, and
// the allocator's admission threshold.
type ReloadableSettings struct {
	StateStoreConnectionName string `json:"state_store_connection_name,omitempty" yaml:"state_store_connection_name,omitempty"`
	MinAvailableWorkers      int    `json:"min_available_workers,omitempty" yaml:"min_available_workers,omitempty"`
}

// StateStoreNameSetter is implemented by moderator.Gate.
type StateStoreNameSetter interface {
	SetStateStoreConnectionName(name string)
}

// MinWorkersSetter is implemented by allocator.Allocator.
type MinWorkersSetter interface {
	SetMinAvailableWorkers(n int)
}

// Watcher watches a YAML file for changes to ReloadableSettings and applies
// them to the gate/allocator live, grounded on the teacher's fsnotify-backed
// file watching idiom elsewhere in the ecosystem pack.
type Watcher struct {
	path      string
	gate      StateStoreNameSetter
	allocator MinWorkersSetter
	fsw       *fsnotify.Watcher
	done      chan struct{}
}

// NewWatcher returns a Watcher for path. gate and allocator may be nil if
// this process doesn't run that component.
func NewWatcher(path string, gate StateStoreNameSetter, allocator MinWorkersSetter) *Watcher {
	return &Watcher{path: path, gate: gate, allocator: allocator, done: make(chan struct{})}
}

// Start applies the file's current contents once, then watches it for
// further writes. A missing file is not an error — hot reload is optional,
// not required, since ExecCtlConfig's env-bound defaults already cover
// every reloadable setting. For a missing file Start returns without watching.
func (w *Watcher) Start() error {
	if w.path == "" {
		return nil
	}
	if _, err := os.Stat(w.path); err == nil {
		if err := w.reload(); err != nil {
			return err
		}
	} else if os.IsNotExist(err) {
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.path); err != nil {
		fsw.Close()
		return err
	}
	w.fsw = fsw

	go w.run()
	return nil
}

// Stop stops watching. Safe to call even if Start returned early because
// path was empty.
func (w *Watcher) Stop() error {
	if w.fsw == nil {
		return nil
	}
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case evt, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if evt.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := w.reload(); err != nil {
				logger.WarnF("config: reload %s failed: %v", w.path, err)
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.WarnF("config: watcher error for %s: %v", w.path, err)
		}
	}
}

func (w *Watcher) reload() error {
	f, err := os.Open(w.path)
	if err != nil {
		return err
	}
	defer f.Close()

	var settings ReloadableSettings
	if err := codec.YamlCodec().Read(f, &settings); err != nil {
		return err
	}

	if settings.StateStoreConnectionName != "" && w.gate != nil {
		w.gate.SetStateStoreConnectionName(settings.StateStoreConnectionName)
	}
	if settings.MinAvailableWorkers > 0 && w.allocator != nil {
		w.allocator.SetMinAvailableWorkers(settings.MinAvailableWorkers)
	}
	return nil
}
