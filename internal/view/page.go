// Package view serves the upload page. The page is read once, kept in memory
// and re-read when the file changes on disk.
package view

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrEmptyPage indicates the page file has no content.
var ErrEmptyPage = errors.New("view: page is empty")

const debounce = 200 * time.Millisecond

// Page is an HTML document served verbatim.
type Page struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	body    []byte
	reloads atomic.Uint32
}

func Load(path string, logger *slog.Logger) (*Page, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Page{path: path, logger: logger}
	if err := p.reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Page) Bytes() []byte {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.body
}

// ReloadCount returns how many reloads after Load succeeded.
func (p *Page) ReloadCount() uint32 {
	return p.reloads.Load()
}

func (p *Page) reload() error {
	body, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("view: failed to read %s: %w", p.path, err)
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyPage, p.path)
	}

	p.mu.Lock()
	p.body = body
	p.mu.Unlock()
	return nil
}

// Watch re-reads the page whenever it is written, created or renamed into
// place, until ctx is done. A failed reload keeps the previous content.
// The parent directory is watched so editors that replace the file are seen.
func (p *Page) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("view: failed to create file watcher: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("view: failed to watch %s: %w", dir, err)
	}

	go p.watch(ctx, watcher)
	return nil
}

func (p *Page) watch(ctx context.Context, watcher *fsnotify.Watcher) {
	defer watcher.Close()

	name := filepath.Clean(p.path)
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if err := p.reload(); err != nil {
					p.logger.Error("Failed to reload page", "path", p.path, "error", err)
					return
				}
				p.logger.Info("Page reloaded", "path", p.path, "count", p.reloads.Add(1))
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("Watcher error", "error", err)
		}
	}
}
