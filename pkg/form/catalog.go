// Package form holds the fixed field catalog of the risk questionnaire and the
// editable form state built on top of it.
package form

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed fields.yaml
var defaultCatalogYAML []byte

// FieldName identifies one model input. The set is fixed per catalog.
type FieldName string

// Field describes one catalog entry.
type Field struct {
	Name FieldName `yaml:"name" json:"name"`
	Help string    `yaml:"help" json:"help,omitempty"`
}

// Catalog is the ordered, immutable set of fields a form collects.
type Catalog struct {
	fields []Field
	index  map[FieldName]int
}

type catalogFile struct {
	Fields []Field `yaml:"fields"`
}

var defaultCatalog = mustParseCatalog(defaultCatalogYAML)

// DefaultCatalog returns the seven model inputs compiled into the binary.
func DefaultCatalog() *Catalog {
	return defaultCatalog
}

// ParseCatalog decodes a YAML catalog. Names must be non-empty and unique.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse field catalog: %w", err)
	}
	if len(file.Fields) == 0 {
		return nil, fmt.Errorf("field catalog is empty")
	}

	c := &Catalog{
		fields: make([]Field, 0, len(file.Fields)),
		index:  make(map[FieldName]int, len(file.Fields)),
	}
	for _, f := range file.Fields {
		f.Name = FieldName(strings.TrimSpace(string(f.Name)))
		if f.Name == "" {
			return nil, fmt.Errorf("field catalog entry %d has no name", len(c.fields))
		}
		if _, dup := c.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q in catalog", f.Name)
		}
		c.index[f.Name] = len(c.fields)
		c.fields = append(c.fields, f)
	}
	return c, nil
}

// LoadCatalog reads a catalog file, or returns the default catalog for an empty path.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read field catalog: %w", err)
	}
	return ParseCatalog(data)
}

func mustParseCatalog(data []byte) *Catalog {
	c, err := ParseCatalog(data)
	if err != nil {
		panic(err)
	}
	return c
}

// Fields returns the catalog entries in display order.
func (c *Catalog) Fields() []Field {
	out := make([]Field, len(c.fields))
	copy(out, c.fields)
	return out
}

// Names returns the field names in display order.
func (c *Catalog) Names() []FieldName {
	out := make([]FieldName, len(c.fields))
	for i, f := range c.fields {
		out[i] = f.Name
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.fields)
}

func (c *Catalog) Contains(name FieldName) bool {
	_, ok := c.index[name]
	return ok
}

// Position returns the display position of name.
func (c *Catalog) Position(name FieldName) (int, bool) {
	i, ok := c.index[name]
	return i, ok
}
