package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/flexapi/explorer/internal/platform"
)

const (
	settingsFileName = "settings.yaml"
	reloadDebounce   = 100 * time.Millisecond
)

// FileStore is a YAML file backed Store used when no Fyne app is running.
// Every write is persisted immediately; write errors are logged.
type FileStore struct {
	path   string
	mu     sync.RWMutex
	values map[string]interface{}
}

// DefaultSettingsPath returns the settings file under the user config dir
func DefaultSettingsPath() (string, error) {
	dir, err := platform.GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, settingsFileName), nil
}

// OpenFileStore loads path if it exists. A missing file is an empty store.
func OpenFileStore(path string) (*FileStore, error) {
	fs := &FileStore{path: path, values: make(map[string]interface{})}
	if err := fs.Reload(); err != nil {
		return nil, err
	}
	return fs, nil
}

// Path returns the backing file
func (fs *FileStore) Path() string {
	return fs.path
}

// Reload re-reads the backing file
func (fs *FileStore) Reload() error {
	data, err := os.ReadFile(fs.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read settings %s: %w", fs.path, err)
	}

	values := make(map[string]interface{})
	if err := yaml.Unmarshal(data, &values); err != nil {
		return fmt.Errorf("parse settings %s: %w", fs.path, err)
	}

	fs.mu.Lock()
	fs.values = values
	fs.mu.Unlock()
	return nil
}

func (fs *FileStore) save() {
	fs.mu.RLock()
	data, err := yaml.Marshal(fs.values)
	fs.mu.RUnlock()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode settings")
		return
	}

	if err := platform.CreateDirectoryIfNotExists(filepath.Dir(fs.path)); err != nil {
		log.Warn().Err(err).Str("path", fs.path).Msg("Failed to create settings directory")
		return
	}

	tmp := fs.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		log.Warn().Err(err).Str("path", tmp).Msg("Failed to write settings")
		return
	}
	if err := os.Rename(tmp, fs.path); err != nil {
		log.Warn().Err(err).Str("path", fs.path).Msg("Failed to replace settings")
	}
}

func (fs *FileStore) get(key string) (interface{}, bool) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	v, ok := fs.values[key]
	return v, ok
}

func (fs *FileStore) set(key string, value interface{}) {
	fs.mu.Lock()
	fs.values[key] = value
	fs.mu.Unlock()
	fs.save()
}

// BoolWithFallback implements Store
func (fs *FileStore) BoolWithFallback(key string, fallback bool) bool {
	if v, ok := fs.get(key); ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return fallback
}

// SetBool implements Store
func (fs *FileStore) SetBool(key string, value bool) {
	fs.set(key, value)
}

// IntWithFallback implements Store
func (fs *FileStore) IntWithFallback(key string, fallback int) int {
	v, ok := fs.get(key)
	if !ok {
		return fallback
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return fallback
}

// SetInt implements Store
func (fs *FileStore) SetInt(key string, value int) {
	fs.set(key, value)
}

// StringWithFallback implements Store
func (fs *FileStore) StringWithFallback(key, fallback string) string {
	if v, ok := fs.get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return fallback
}

// SetString implements Store
func (fs *FileStore) SetString(key, value string) {
	fs.set(key, value)
}

// RemoveValue implements Store
func (fs *FileStore) RemoveValue(key string) {
	fs.mu.Lock()
	delete(fs.values, key)
	fs.mu.Unlock()
	fs.save()
}

// Watch reloads the store whenever the backing file changes and then calls
// onChange. The parent directory is watched because editors and our own
// writes replace the file rather than modify it.
func (fs *FileStore) Watch(ctx context.Context, onChange func()) error {
	dir := filepath.Dir(fs.path)
	if err := platform.CreateDirectoryIfNotExists(dir); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create settings watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	go fs.watchLoop(ctx, w, onChange)
	return nil
}

func (fs *FileStore) watchLoop(ctx context.Context, w *fsnotify.Watcher, onChange func()) {
	defer w.Close()

	var timer *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(fs.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if err := fs.Reload(); err != nil {
				log.Warn().Err(err).Msg("Failed to reload settings")
				continue
			}
			log.Debug().Str("path", fs.path).Msg("Settings reloaded")
			if onChange != nil {
				onChange()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Settings watcher error")
		}
	}
}
