package rule

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// FileStore serves rules from a directory of YAML files. Each file holds a
// document with a top-level "rules" list. When watching is enabled the store
// reloads on file changes, so rule edits take effect without a restart.
type FileStore struct {
	dir    string
	logger *slog.Logger

	mu    sync.RWMutex
	rules []Definition

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// ruleFile is the on-disk document shape.
type ruleFile struct {
	Rules []Definition `yaml:"rules"`
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithStoreLogger sets the logger used for reload diagnostics.
func WithStoreLogger(logger *slog.Logger) FileStoreOption {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// NewFileStore loads all rule files under dir. Files that fail to parse or
// contain invalid rules are rejected as a whole; a rule store with half its
// policy missing is worse than a loud failure at startup.
func NewFileStore(dir string, opts ...FileStoreOption) (*FileStore, error) {
	s := &FileStore{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Watch starts reloading rules when files under the store directory change.
// Reload failures keep the previous rule set and log a warning.
func (s *FileStore) Watch() error {
	if s.watcher != nil {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !isRuleFile(event.Name) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if err := s.reload(); err != nil {
					s.logger.Warn("Rule reload failed, keeping previous rules",
						"dir", s.dir,
						"trigger", event.Name,
						"error", err)
					continue
				}
				s.logger.Info("Rules reloaded", "dir", s.dir, "trigger", event.Name)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Warn("Rule watcher error", "error", err)
			case <-s.done:
				return
			}
		}
	}()

	return nil
}

// Close stops the file watcher if one is running.
func (s *FileStore) Close() error {
	if s.watcher == nil {
		return nil
	}
	close(s.done)
	err := s.watcher.Close()
	s.watcher = nil
	return err
}

// AllRules returns every loaded rule.
func (s *FileStore) AllRules(_ context.Context) ([]Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Definition, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

// EnabledRules returns only rules with Enabled set.
func (s *FileStore) EnabledRules(_ context.Context) ([]Definition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Definition
	for _, r := range s.rules {
		if r.Enabled {
			out = append(out, r)
		}
	}
	return out, nil
}

// reload re-reads every rule file under the store directory and swaps the
// rule set atomically on success.
func (s *FileStore) reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("read rules dir: %w", err)
	}

	var loaded []Definition
	seen := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !isRuleFile(entry.Name()) {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		var doc ruleFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, def := range doc.Rules {
			if err := def.Validate(); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if prev, dup := seen[def.ID]; dup {
				return fmt.Errorf("%s: rule %s already defined in %s", path, def.ID, prev)
			}
			seen[def.ID] = path
			loaded = append(loaded, def)
		}
	}

	sort.Slice(loaded, func(i, j int) bool { return loaded[i].ID < loaded[j].ID })

	s.mu.Lock()
	s.rules = loaded
	s.mu.Unlock()

	return nil
}

// isRuleFile reports whether a path looks like a YAML rule file.
func isRuleFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
