// Package family holds per-document-family configuration: heading types,
// heading and boilerplate grammars, and layout options.
package family

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docsplit/internal/layout"
	"github.com/dgallion1/docsplit/internal/outline"
	"github.com/dgallion1/docsplit/internal/scan"
)

//go:embed families/*.yaml
var builtinFS embed.FS

// GrammarSpec is a grammar source and its start rule.
type GrammarSpec struct {
	Start   string `yaml:"start" json:"start"`
	Grammar string `yaml:"grammar" json:"grammar"`
}

// Family describes one kind of source document.
type Family struct {
	Name              string           `yaml:"name" json:"name"`
	Description       string           `yaml:"description" json:"description"`
	Types             outline.TypeList `yaml:"heading_types" json:"heading_types"`
	Heading           GrammarSpec      `yaml:"heading" json:"heading"`
	Footer            *GrammarSpec     `yaml:"footer,omitempty" json:"footer,omitempty"`
	Layout            layout.Options   `yaml:"layout" json:"layout"`
	MaxPages          int              `yaml:"max_pages" json:"max_pages"`
	NormalizeZeroPage bool             `yaml:"normalize_zero_page" json:"normalize_zero_page"`
}

// Parse decodes a YAML family definition. Missing layout options fall back
// to layout.DefaultOptions.
func Parse(data []byte) (*Family, error) {
	f := &Family{Layout: layout.DefaultOptions()}
	if err := yaml.Unmarshal(data, f); err != nil {
		return nil, fmt.Errorf("parse family: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Load reads a family definition from a file.
func Load(path string) (*Family, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// LoadDir reads every *.yaml and *.yml file in dir.
func LoadDir(dir string) ([]*Family, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []*Family
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		f, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// Builtin returns the families compiled into the binary.
func Builtin() ([]*Family, error) {
	entries, err := builtinFS.ReadDir("families")
	if err != nil {
		return nil, err
	}
	var out []*Family
	for _, e := range entries {
		data, err := builtinFS.ReadFile("families/" + e.Name())
		if err != nil {
			return nil, err
		}
		f, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("builtin %s: %w", e.Name(), err)
		}
		out = append(out, f)
	}
	return out, nil
}

// Validate checks the fields that do not need grammar compilation.
func (f *Family) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("family name is required")
	}
	if err := f.Types.Validate(); err != nil {
		return fmt.Errorf("family %s: %w", f.Name, err)
	}
	if f.Heading.Grammar == "" || f.Heading.Start == "" {
		return fmt.Errorf("family %s: heading grammar and start rule are required", f.Name)
	}
	if f.Footer != nil && (f.Footer.Grammar == "" || f.Footer.Start == "") {
		return fmt.Errorf("family %s: footer needs both grammar and start rule", f.Name)
	}
	if f.MaxPages < 0 {
		return fmt.Errorf("family %s: max_pages must not be negative", f.Name)
	}
	return nil
}

// Compiled is a family with its grammars built. It is read-only and shared
// by all workers.
type Compiled struct {
	*Family
	Headings *scan.HeadingScanner
	Footer   *scan.Cleaner // nil when the family has no footer grammar
}

// Compile builds the family's grammars. Grammar problems surface here as
// *grammar.ConfigError, before any document is scanned.
func (f *Family) Compile() (*Compiled, error) {
	hs, err := scan.NewHeadingScanner(f.Heading.Grammar, f.Heading.Start, f.Types)
	if err != nil {
		return nil, fmt.Errorf("family %s heading grammar: %w", f.Name, err)
	}
	c := &Compiled{Family: f, Headings: hs}
	if f.Footer != nil {
		c.Footer, err = scan.NewCleaner(f.Footer.Grammar, f.Footer.Start)
		if err != nil {
			return nil, fmt.Errorf("family %s footer grammar: %w", f.Name, err)
		}
	}
	return c, nil
}

// Registry maps family names to compiled families.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]*Compiled
}

// NewRegistry compiles the built-in families plus any found in extraDir.
// A family in extraDir replaces a built-in one of the same name.
func NewRegistry(extraDir string) (*Registry, error) {
	fams, err := Builtin()
	if err != nil {
		return nil, err
	}
	if extraDir != "" {
		extra, err := LoadDir(extraDir)
		if err != nil {
			return nil, fmt.Errorf("load families: %w", err)
		}
		fams = append(fams, extra...)
	}
	r := &Registry{byName: make(map[string]*Compiled)}
	for _, f := range fams {
		if err := r.Add(f); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Add compiles f and registers it under its name.
func (r *Registry) Add(f *Family) error {
	c, err := f.Compile()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.byName[f.Name] = c
	r.mu.Unlock()
	return nil
}

// Get returns a compiled family by name.
func (r *Registry) Get(name string) (*Compiled, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byName[name]
	return c, ok
}

// Names returns the registered family names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
