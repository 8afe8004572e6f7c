package file

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/custodia-labs/replyguard/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

//go:embed defaults/*.txt defaults/README.md
var defaultsFS embed.FS

// PromptStore loads reply prompts from user-editable files on disk,
// falling back to the defaults compiled into the binary.
//
// Initialisation is lazy: the directory and default files are written on
// the first Load, not in the constructor.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.replyguard/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		dir, err := DefaultConfigDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(dir, "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// DefaultPrompt returns the compiled-in prompt for name.
func DefaultPrompt(name string) (string, bool) {
	data, err := defaultsFS.ReadFile("defaults/" + name + ".txt")
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// Load returns the prompt for name: the cached value, else the user file,
// else the compiled-in default.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)

	s.mu.RLock()
	prompt, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return prompt, nil
	}

	prompt, err := s.loadFromFile(name)
	if err != nil || prompt == "" {
		def, ok := DefaultPrompt(name)
		if !ok {
			if s.initErr != nil {
				return "", fmt.Errorf("load prompt %q: %w", name, s.initErr)
			}
			return "", fmt.Errorf("load prompt %q: unknown prompt", name)
		}
		prompt = def
	}

	// Double-check so concurrent loads agree on one value.
	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		prompt = cached
	} else {
		s.cache[name] = prompt
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise writes any missing default files, never overwriting edits.
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	entries, err := fs.ReadDir(defaultsFS, "defaults")
	if err != nil {
		s.initErr = err
		return
	}
	for _, entry := range entries {
		path := filepath.Join(s.promptDir, entry.Name())
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			continue
		}
		data, err := defaultsFS.ReadFile("defaults/" + entry.Name())
		if err != nil {
			s.initErr = err
			return
		}
		if err := os.WriteFile(path, data, 0600); err != nil {
			s.initErr = fmt.Errorf("create default prompt %q: %w", entry.Name(), err)
			return
		}
	}
}

func (s *PromptStore) loadFromFile(name string) (string, error) {
	if strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid prompt name %q", name)
	}
	data, err := os.ReadFile(filepath.Join(s.promptDir, name+".txt"))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
