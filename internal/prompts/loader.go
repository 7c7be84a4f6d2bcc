// Package prompts loads reusable prompt templates from markdown files with
// YAML frontmatter and renders them with caller-supplied arguments.
//
// Files live under one directory per category:
//
//	<dir>/general/*.md
//	<dir>/dart/*.md
//	<dir>/typescript/*.md
//
// A prompt file looks like:
//
//	---
//	name: code_review
//	description: Review a change
//	arguments:
//	  - name: language
//	    description: Language of the change
//	    required: true
//	  - name: focus
//	    default: correctness
//	---
//	Review this {language} change, focusing on {focus}.
//	{if strict}Reject anything without tests.{else}Be pragmatic.{endif}
package prompts

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/adrg/frontmatter"

	"pkgmcp/internal/logging"
	"pkgmcp/pkg/fileops"
)

// Categories are the subdirectories scanned, in load order.
var Categories = []string{"general", "dart", "typescript"}

const (
	defaultMaxFileSize = 1 << 20
	maxNameLength      = 100
)

// ErrUnknownPrompt is returned when a prompt name is not loaded.
var ErrUnknownPrompt = errors.New("unknown prompt")

// Argument describes one template argument.
type Argument struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Required    bool   `yaml:"required"`
	Default     any    `yaml:"default"`
}

// HasDefault reports whether the frontmatter declared a default value.
func (a Argument) HasDefault() bool {
	return a.Default != nil
}

// DefaultString renders the default value as text. A boolean false renders
// empty so that {if name} treats it as unset.
func (a Argument) DefaultString() string {
	switch v := a.Default.(type) {
	case nil:
		return ""
	case bool:
		if !v {
			return ""
		}
	}
	return fmt.Sprint(a.Default)
}

type promptFrontmatter struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description"`
	Arguments   []Argument `yaml:"arguments"`
}

// Prompt is a loaded template.
type Prompt struct {
	Name        string
	Description string
	Category    string
	Arguments   []Argument
	Template    string
	Path        string
}

// Loader holds the prompts found under a directory.
type Loader struct {
	dir         string
	logger      *logging.AppLogger
	maxFileSize int64

	mu      sync.RWMutex
	prompts map[string]*Prompt
}

// NewLoader creates a loader for dir. Call Load to read the files.
func NewLoader(dir string, logger *logging.AppLogger) *Loader {
	if logger == nil {
		logger = logging.GetDefault()
	}
	return &Loader{
		dir:         dir,
		logger:      logger.With("component", "prompts"),
		maxFileSize: defaultMaxFileSize,
		prompts:     make(map[string]*Prompt),
	}
}

// Dir returns the prompts directory.
func (l *Loader) Dir() string {
	return l.dir
}

// Load (re)reads every prompt file. A missing directory yields no prompts.
// Files that fail validation or parsing are logged and skipped.
func (l *Loader) Load() error {
	loaded := make(map[string]*Prompt)

	if l.dir == "" {
		l.swap(loaded)
		return nil
	}

	info, err := os.Stat(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Warn("Prompts directory not found", "path", l.dir)
			l.swap(loaded)
			return nil
		}
		return fmt.Errorf("cannot access prompts directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("prompts path is not a directory: %s", l.dir)
	}

	skipped := 0
	for _, category := range Categories {
		matches, err := filepath.Glob(filepath.Join(l.dir, category, "*.md"))
		if err != nil {
			return fmt.Errorf("failed to list %s prompts: %w", category, err)
		}
		sort.Strings(matches)

		for _, path := range matches {
			prompt, err := l.loadFile(path, category)
			if err != nil {
				l.logger.Warn("Skipping prompt file", "file", path, "reason", err)
				skipped++
				continue
			}
			if existing, ok := loaded[prompt.Name]; ok {
				l.logger.Warn("Prompt name redefined", "name", prompt.Name, "previous", existing.Path, "file", path)
			}
			loaded[prompt.Name] = prompt
			l.logger.Debug("Prompt loaded", "name", prompt.Name, "category", category)
		}
	}

	l.swap(loaded)
	l.logger.Info("Prompts loaded", "count", len(loaded), "skipped", skipped)
	return nil
}

func (l *Loader) swap(prompts map[string]*Prompt) {
	l.mu.Lock()
	l.prompts = prompts
	l.mu.Unlock()
}

func (l *Loader) loadFile(path, category string) (*Prompt, error) {
	rel, err := filepath.Rel(l.dir, path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve relative path: %w", err)
	}
	if err := fileops.ValidatePathSecurity(rel); err != nil {
		return nil, fmt.Errorf("path security check failed: %w", err)
	}
	if err := fileops.ValidateFileSizeLimit(path, l.maxFileSize); err != nil {
		return nil, fmt.Errorf("file size check failed: %w", err)
	}
	if err := fileops.ValidateFileInDirectory(path, l.dir); err != nil {
		return nil, fmt.Errorf("file containment validation failed: %w", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var matter promptFrontmatter
	body, err := frontmatter.MustParse(bytes.NewReader(content), &matter)
	if err != nil {
		return nil, fmt.Errorf("no valid frontmatter found: %w", err)
	}
	if matter.Name == "" && matter.Description == "" && len(matter.Arguments) == 0 {
		return nil, fmt.Errorf("empty frontmatter")
	}

	name := matter.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	name, err = fileops.SanitizeIdentifier(name, maxNameLength)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt name: %w", err)
	}

	for i, arg := range matter.Arguments {
		if strings.TrimSpace(arg.Name) == "" {
			return nil, fmt.Errorf("argument %d has no name", i)
		}
	}

	if matter.Description == "" {
		l.logger.Warn("Prompt has no description", "file", path)
	}

	return &Prompt{
		Name:        name,
		Description: matter.Description,
		Category:    category,
		Arguments:   matter.Arguments,
		Template:    strings.TrimSpace(string(body)),
		Path:        path,
	}, nil
}

// List returns every loaded prompt sorted by name.
func (l *Loader) List() []*Prompt {
	l.mu.RLock()
	defer l.mu.RUnlock()

	list := make([]*Prompt, 0, len(l.prompts))
	for _, p := range l.prompts {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Get returns a prompt by name.
func (l *Loader) Get(name string) (*Prompt, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	p, ok := l.prompts[name]
	return p, ok
}

// Render fills the named prompt with args.
func (l *Loader) Render(name string, args map[string]string) (string, error) {
	p, ok := l.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownPrompt, name)
	}
	return p.Render(args)
}
