package importer

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherService watches the import drop directory for new e-Okul exports
// and triggers a directory scan when files stop changing.
type WatcherService struct {
	importer      *Importer
	dir           string
	watcher       *fsnotify.Watcher
	mu            sync.Mutex
	debounceTimer *time.Timer
	debounceDelay time.Duration
	stopChan      chan struct{}
}

// NewWatcherService creates a watcher over dir that feeds the importer.
func NewWatcherService(im *Importer, dir string) *WatcherService {
	return &WatcherService{
		importer:      im,
		dir:           dir,
		debounceDelay: 2 * time.Second, // Wait for the export to finish writing
		stopChan:      make(chan struct{}),
	}
}

// Start begins watching the import directory for changes.
func (w *WatcherService) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = watcher

	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return err
	}

	log.Printf("Import watcher started for directory: %s", w.dir)

	go w.processEvents()

	return nil
}

// Stop stops the watcher service.
func (w *WatcherService) Stop() error {
	close(w.stopChan)
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

func (w *WatcherService) processEvents() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Import watcher error: %v", err)

		case <-w.stopChan:
			return
		}
	}
}

func (w *WatcherService) handleEvent(event fsnotify.Event) {
	// Chmod events fire when files are merely opened or browsed.
	if event.Op == fsnotify.Chmod {
		return
	}

	hasRelevantOp := event.Op&fsnotify.Create == fsnotify.Create ||
		event.Op&fsnotify.Write == fsnotify.Write
	if !hasRelevantOp {
		return
	}

	if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
		return
	}

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounceDelay, w.runScan)
	w.mu.Unlock()
}

func (w *WatcherService) runScan() {
	if _, err := w.importer.ScanDirectory(w.dir); err != nil {
		log.Printf("Import scan failed: %v", err)
	}
}
