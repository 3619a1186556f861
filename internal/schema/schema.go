package schema

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/five82/galley/internal/grid"
)

//go:embed defaults.yaml
var builtin []byte

// FieldDef is the YAML form of a grid column.
type FieldDef struct {
	Name     string `yaml:"name"`
	Label    string `yaml:"label"`
	Kind     string `yaml:"kind"`
	Carry    bool   `yaml:"carry"`
	ReadOnly bool   `yaml:"readonly"`
	Width    int    `yaml:"width"`
}

// FilterDef names a fetch parameter and its starting value.
type FilterDef struct {
	Key     string `yaml:"key"`
	Default string `yaml:"default"`
}

// Definition describes one editable grid and the endpoints behind it.
type Definition struct {
	Name    string      `yaml:"name"`
	Title   string      `yaml:"title"`
	List    string      `yaml:"list"`
	Save    string      `yaml:"save"`
	Filters []FilterDef `yaml:"filters"`
	Fields  []FieldDef  `yaml:"fields"`

	schema grid.Schema
}

// Schema returns the comparison schema built when the definition was loaded.
func (d Definition) Schema() grid.Schema {
	return d.schema
}

// FilterKeys returns filter keys in declaration order.
func (d Definition) FilterKeys() []string {
	keys := make([]string, len(d.Filters))
	for i, f := range d.Filters {
		keys[i] = f.Key
	}
	return keys
}

// DefaultFilter returns the filter a grid opens with.
func (d Definition) DefaultFilter() grid.Filter {
	out := make(grid.Filter, len(d.Filters))
	for _, f := range d.Filters {
		out[f.Key] = f.Default
	}
	return out
}

// DisplayTitle returns Title, falling back to Name.
func (d Definition) DisplayTitle() string {
	if strings.TrimSpace(d.Title) != "" {
		return d.Title
	}
	return d.Name
}

// Set is an ordered collection of grid definitions.
type Set struct {
	Grids []Definition `yaml:"grids"`
}

// Lookup finds a definition by name.
func (s Set) Lookup(name string) (Definition, bool) {
	for _, d := range s.Grids {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}

// Names lists grid names in declaration order.
func (s Set) Names() []string {
	out := make([]string, len(s.Grids))
	for i, d := range s.Grids {
		out[i] = d.Name
	}
	return out
}

// Default returns the built-in grids.
func Default() (Set, error) {
	return Parse(builtin)
}

// Load reads grid definitions from path. An empty path yields the built-in
// grids.
func Load(path string) (Set, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}
	path, err := expandPath(path)
	if err != nil {
		return Set{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("read schema file: %w", err)
	}
	set, err := Parse(data)
	if err != nil {
		return Set{}, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// Parse decodes and validates a YAML grid document.
func Parse(data []byte) (Set, error) {
	var set Set
	if err := yaml.Unmarshal(data, &set); err != nil {
		return Set{}, fmt.Errorf("parse schema: %w", err)
	}
	if len(set.Grids) == 0 {
		return Set{}, fmt.Errorf("schema defines no grids")
	}
	seen := make(map[string]struct{}, len(set.Grids))
	for i := range set.Grids {
		def := &set.Grids[i]
		def.Name = strings.TrimSpace(def.Name)
		if _, dup := seen[def.Name]; dup {
			return Set{}, fmt.Errorf("duplicate grid %q", def.Name)
		}
		seen[def.Name] = struct{}{}
		if err := def.build(); err != nil {
			return Set{}, err
		}
	}
	return set, nil
}

func (d *Definition) build() error {
	if d.List == "" {
		d.List = "/api/" + d.Name + "/list"
	}
	if d.Save == "" {
		d.Save = "/api/" + d.Name + "/save"
	}
	fields := make([]grid.Field, 0, len(d.Fields))
	for _, fd := range d.Fields {
		kind, err := grid.ParseKind(fd.Kind)
		if err != nil {
			return fmt.Errorf("grid %s field %s: %w", d.Name, fd.Name, err)
		}
		fields = append(fields, grid.Field{
			Name:     strings.TrimSpace(fd.Name),
			Label:    fd.Label,
			Kind:     kind,
			Carry:    fd.Carry,
			ReadOnly: fd.ReadOnly || kind == grid.KindIdentity,
			Width:    fd.Width,
		})
	}
	for _, f := range d.Filters {
		if strings.TrimSpace(f.Key) == "" {
			return fmt.Errorf("grid %s: filter key is empty", d.Name)
		}
	}
	d.schema = grid.Schema{Name: d.Name, Title: d.DisplayTitle(), Fields: fields}
	return d.schema.Validate()
}

func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
