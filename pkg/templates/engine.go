// Package templates loads and renders markdown document templates.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/patrickmn/go-cache"
)

//go:embed defaults/*.md
var defaultTemplates embed.FS

// Extension is the file extension templates are stored with
const Extension = ".md"

// Options configures an Engine
type Options struct {
	// Dir is an optional directory searched before the embedded defaults.
	Dir string
	// CacheTTL bounds how long a loaded template is reused. Defaults to five minutes.
	CacheTTL time.Duration
	// Sources replaces the directory + embedded defaults lookup chain when set.
	Sources []fs.FS
}

// Engine resolves "{name}.md" templates against an ordered list of sources
type Engine struct {
	sources []fs.FS
	cache   *cache.Cache
}

// DefaultSources returns the embedded default templates
func DefaultSources() fs.FS {
	sub, err := fs.Sub(defaultTemplates, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewEngine creates a template engine
func NewEngine(opts Options) *Engine {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}

	sources := opts.Sources
	if len(sources) == 0 {
		if opts.Dir != "" {
			sources = append(sources, os.DirFS(opts.Dir))
		}
		sources = append(sources, DefaultSources())
	}

	return &Engine{
		sources: sources,
		cache:   cache.New(opts.CacheTTL, 2*opts.CacheTTL),
	}
}

// Load returns the raw text of the named template
func (e *Engine) Load(name string) (string, error) {
	if cached, ok := e.cache.Get(name); ok {
		return cached.(string), nil
	}

	if !validName(name) {
		return "", notFound(name)
	}

	for _, source := range e.sources {
		data, err := fs.ReadFile(source, name+Extension)
		if err == nil {
			content := string(data)
			e.cache.SetDefault(name, content)
			return content, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", utils.NewStructuredError("TPL_READ", fmt.Sprintf("failed to read template '%s'", name), utils.CategorySystem, err)
		}
	}
	return "", notFound(name)
}

// Exists reports whether the named template can be loaded
func (e *Engine) Exists(name string) bool {
	_, err := e.Load(name)
	return err == nil
}

// Render substitutes data into tmpl. Placeholders whose keys are absent from data are
// left in the output unchanged.
func (e *Engine) Render(tmpl string, data map[string]any) (string, error) {
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}
	return render(tmpl, scope{data: data}), nil
}

// List returns the sorted, de-duplicated names of all templates across sources
func (e *Engine) List() ([]string, error) {
	seen := make(map[string]bool)
	for _, source := range e.sources {
		entries, err := fs.ReadDir(source, ".")
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to list templates: %w", err)
		}
		for _, entry := range entries {
			if entry.IsDir() || path.Ext(entry.Name()) != Extension {
				continue
			}
			seen[strings.TrimSuffix(entry.Name(), Extension)] = true
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Flush drops every cached template
func (e *Engine) Flush() {
	e.cache.Flush()
}

func validName(name string) bool {
	return name != "" && fs.ValidPath(name+Extension) && !strings.ContainsAny(name, `/\`)
}

func notFound(name string) error {
	return utils.NewConfigError("templates."+name, fmt.Sprintf("template '%s' not found", name))
}
