package store

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Capstone-NovoCert/novo/errors"
	"github.com/Capstone-NovoCert/novo/logger"
	"github.com/Capstone-NovoCert/novo/pipeline"
)

// Watcher reports which partitions change on disk, whichever process wrote
// them. Only the json backend keeps one file per partition.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher
	events  chan pipeline.Type
	log     *zap.SugaredLogger
	stop    sync.Once
	done    chan struct{}
}

// NewWatcher watches dir for partition file writes
func NewWatcher(dir string, log *zap.SugaredLogger) (*Watcher, error) {
	if log == nil {
		log = logger.ComponentLogger("store.watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch data directory %s", dir)
	}

	return &Watcher{
		dir:     dir,
		watcher: fw,
		events:  make(chan pipeline.Type, 16),
		log:     log,
		done:    make(chan struct{}),
	}, nil
}

// Events delivers the type of each partition written. Closed after Stop.
func (w *Watcher) Events() <-chan pipeline.Type {
	return w.events
}

// Start begins watching in a background goroutine
func (w *Watcher) Start() {
	go w.loop()
}

func (w *Watcher) loop() {
	defer close(w.events)
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			// Writes land as a rename of a temp file, which shows up as Create
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			t, ok := PartitionFromFile(event.Name)
			if !ok {
				continue
			}
			select {
			case w.events <- t:
			default:
				// Consumer is behind and will re-read anyway
				w.log.Debugw("Dropping partition change event", logger.FieldPartition, t)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warnw("Store watcher error", logger.FieldError, err)
		}
	}
}

// Stop ends the watch and closes Events
func (w *Watcher) Stop() error {
	var err error
	w.stop.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}
