package tutor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// PromptFile is a PromptSource backed by a text file that is reloaded whenever
// it changes on disk. A reload that fails or yields an empty file keeps the
// previous prompt.
type PromptFile struct {
	path   string
	logger *slog.Logger

	mu     sync.RWMutex
	prompt string

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// OpenPromptFile reads path and starts watching it until ctx is done or Close
// is called.
func OpenPromptFile(ctx context.Context, path string, logger *slog.Logger) (*PromptFile, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &PromptFile{
		path:   filepath.Clean(path),
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := p.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating prompt watcher: %w", err)
	}

	// Editors usually replace the file instead of writing it in place, so the
	// directory is watched and events are filtered by name.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching prompt dir: %w", err)
	}
	p.watcher = watcher

	go p.watch(ctx)

	return p, nil
}

// SystemPrompt returns the last successfully loaded prompt.
func (p *PromptFile) SystemPrompt() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prompt
}

// Close stops watching the file.
func (p *PromptFile) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		err = p.watcher.Close()
	})
	return err
}

func (p *PromptFile) watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.Close()
			return
		case <-p.done:
			return
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != p.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if err := p.reload(); err != nil {
				p.logger.Warn("keeping previous system prompt", "path", p.path, "error", err)
				continue
			}
			p.logger.Info("reloaded system prompt", "path", p.path)
		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Warn("prompt watcher error", "error", err)
		}
	}
}

func (p *PromptFile) reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("reading prompt file: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return errors.New("prompt file is empty")
	}

	p.mu.Lock()
	p.prompt = prompt
	p.mu.Unlock()
	return nil
}
