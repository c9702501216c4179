// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch uploads documents dropped into the outbox directory.
//
// The outbox is the headless upload path: any PDF or CSV file placed in
// the watched directory is validated, pushed to the backend, announced on
// the event bus, and moved to the sent/ subdirectory. Files that fail
// validation or upload stay in place so the user can see what did not go
// through.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/bus"
	"github.com/jeranaias/docchat-tui/internal/upload"
)

// =============================================================================
// OUTBOX WATCHER
// =============================================================================

// SentDirName is the subdirectory uploaded files are moved into.
const SentDirName = "sent"

// defaultDebounce is how long a file must sit unchanged before it is
// picked up, so partially written files are not uploaded mid-copy.
const defaultDebounce = 500 * time.Millisecond

// Watcher watches one outbox directory and uploads what lands in it.
type Watcher struct {
	dir      string
	identity string
	client   *api.Client
	events   *bus.Bus
	logger   *zap.Logger

	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending map[string]time.Time // path -> last change time

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates an outbox watcher. The directory is created if missing.
func New(dir, identity string, client *api.Client, events *bus.Bus, logger *zap.Logger) (*Watcher, error) {
	if err := os.MkdirAll(filepath.Join(dir, SentDirName), 0o755); err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:      dir,
		identity: identity,
		client:   client,
		events:   events,
		logger:   logger,
		watcher:  fw,
		debounce: defaultDebounce,
		pending:  make(map[string]time.Time),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts the event and debounce loops. Files already sitting in the
// outbox when watching starts are picked up too.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	go w.processEvents()
	go w.processPending()

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		w.enqueue(filepath.Join(w.dir, e.Name()))
	}
	return nil
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	return w.watcher.Close()
}

// processEvents feeds create and write events into the pending map.
func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.enqueue(event.Name)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("outbox watch error", zap.Error(err))
		}
	}
}

// enqueue records a candidate path if its extension is one we upload.
func (w *Watcher) enqueue(path string) {
	if (upload.Candidate{Filename: path}).Kind() == "" {
		return
	}
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

// processPending uploads files whose last change is older than the
// debounce window.
func (w *Watcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			for _, path := range ready {
				w.process(path)
			}
		}
	}
}

// process validates and uploads one outbox file, then moves it to sent/.
func (w *Watcher) process(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.logger.Warn("outbox read failed", zap.String("path", path), zap.Error(err))
		}
		return
	}
	name := filepath.Base(path)

	header := data
	if len(header) > upload.MagicLen {
		header = header[:upload.MagicLen]
	}
	cand := upload.Candidate{Filename: name, Size: int64(len(data)), Header: header}
	if err := upload.Validate(cand, upload.PathAttachment); err != nil {
		w.logger.Warn("outbox file rejected", zap.String("file", name), zap.Error(err))
		return
	}

	result := w.client.UploadDocument(w.ctx, api.UploadFile{
		Name: name,
		Kind: cand.Kind(),
		Data: data,
	}, w.identity)
	if !result.OK {
		w.logger.Warn("outbox upload failed",
			zap.String("file", name), zap.String("error", result.Error))
		return
	}

	stored := result.StoredName
	if stored == "" {
		stored = name
	}
	if w.events != nil {
		w.events.PublishDocumentUploaded(stored, result.Kind)
	}
	w.logger.Info("outbox upload complete",
		zap.String("file", name), zap.String("stored", stored))

	if err := os.Rename(path, filepath.Join(w.dir, SentDirName, name)); err != nil {
		w.logger.Warn("could not move uploaded file", zap.String("file", name), zap.Error(err))
	}
}
