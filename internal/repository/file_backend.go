package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// FileBackend keeps every entry in one JSON object on disk and rewrites the
// whole file on each change.
type FileBackend struct {
	filePath string
	mu       sync.RWMutex
	entries  map[string]string
}

func NewFileBackend(filePath string) (*FileBackend, error) {
	b := &FileBackend{
		filePath: filePath,
		entries:  make(map[string]string),
	}
	log := logrus.WithField("path", filePath)

	if err := b.load(); err != nil {
		switch {
		case os.IsNotExist(err):
			log.Info("draft file does not exist, creating a new one")
			b.mu.Lock()
			err := b.persist()
			b.mu.Unlock()
			if err != nil {
				return nil, err
			}
		case isSyntaxError(err):
			// A damaged file must not keep the service from starting.
			log.WithError(err).Warn("draft file is not valid JSON, starting empty")
			b.entries = make(map[string]string)
		default:
			return nil, err
		}
	}

	log.WithField("drafts", len(b.entries)).Info("draft file loaded")
	return b, nil
}

func (b *FileBackend) load() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	byteValue, err := os.ReadFile(b.filePath)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(byteValue))) == 0 {
		b.entries = make(map[string]string)
		return nil
	}

	entries := make(map[string]string)
	if err := json.Unmarshal(byteValue, &entries); err != nil {
		return fmt.Errorf("parse %s: %w", b.filePath, err)
	}
	b.entries = entries
	return nil
}

// persist must be called with b.mu held.
func (b *FileBackend) persist() error {
	byteValue, err := json.MarshalIndent(b.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode draft file: %w", err)
	}
	if dir := filepath.Dir(b.filePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create draft dir: %w", err)
		}
	}
	tmp := b.filePath + ".tmp"
	if err := os.WriteFile(tmp, byteValue, 0o644); err != nil {
		return fmt.Errorf("write draft file: %w", err)
	}
	if err := os.Rename(tmp, b.filePath); err != nil {
		return fmt.Errorf("replace draft file: %w", err)
	}
	return nil
}

func (b *FileBackend) Get(_ context.Context, key string) (string, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.entries[key]
	return v, ok, nil
}

func (b *FileBackend) Set(_ context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[key] = value
	return b.persist()
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.entries[key]; !ok {
		return nil
	}
	delete(b.entries, key)
	return b.persist()
}

func (b *FileBackend) Keys(_ context.Context, prefix string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func isSyntaxError(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
