// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package watch

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/api"
)

func newTestWatcher(t *testing.T, handler http.HandlerFunc) (*Watcher, string, *atomic.Int64) {
	t.Helper()

	var uploads atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uploads.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	w, err := New(dir, "a@b.com", api.NewClient(srv.URL, "http://localhost:3000", zap.NewNop()), nil, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	w.debounce = 10 * time.Millisecond
	t.Cleanup(func() { w.Close() })
	return w, dir, &uploads
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.After(timeout)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not reached")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestDroppedCSVIsUploadedAndMovedToSent(t *testing.T) {
	w, dir, uploads := newTestWatcher(t, func(rw http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/upload-csv/" {
			t.Errorf("path = %q, want /upload-csv/", r.URL.Path)
		}
		_ = json.NewEncoder(rw).Encode(map[string]string{"filename": "sales.csv"})
	})
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	path := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	sent := filepath.Join(dir, SentDirName, "sales.csv")
	waitFor(t, 3*time.Second, func() bool {
		_, err := os.Stat(sent)
		return err == nil
	})
	if n := uploads.Load(); n != 1 {
		t.Errorf("uploads = %d, want 1", n)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("original file still in outbox after upload")
	}
}

func TestPreexistingFilesArePickedUpOnStart(t *testing.T) {
	w, dir, uploads := newTestWatcher(t, func(rw http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(rw).Encode(map[string]string{"filename": "old.csv"})
	})

	if err := os.WriteFile(filepath.Join(dir, "old.csv"), []byte("x,y\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	waitFor(t, 3*time.Second, func() bool { return uploads.Load() == 1 })
}

func TestInvalidFileStaysInOutbox(t *testing.T) {
	w, dir, uploads := newTestWatcher(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
	})
	if err := w.Watch(); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	// A .pdf without the magic number fails validation before any
	// network call.
	path := filepath.Join(dir, "fake.pdf")
	if err := os.WriteFile(path, []byte("not a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	// Unrecognized extensions never enter the queue at all.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(300 * time.Millisecond)
	if n := uploads.Load(); n != 0 {
		t.Errorf("uploads = %d, want 0", n)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("rejected file should stay in the outbox")
	}
}
