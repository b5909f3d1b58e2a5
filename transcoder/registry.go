package transcoder

import (
	"os"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/wippyai/hostbridge/errors"
)

// FormatRegistry assigns integer ids to formats so a guest can name a
// layout with a single i32. Ids are dense and start at 0.
type FormatRegistry struct {
	formats []*Format
	byName  map[string]uint32
	mu      sync.RWMutex
}

// NewFormatRegistry creates an empty registry.
func NewFormatRegistry() *FormatRegistry {
	return &FormatRegistry{byName: make(map[string]uint32)}
}

// Register adds f under name and returns its id.
func (r *FormatRegistry) Register(name string, f *Format) (uint32, error) {
	if f == nil {
		return 0, errors.InvalidInput(errors.PhaseFormat, "nil format")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.byName[name]; dup {
		return 0, errors.New(errors.PhaseFormat, errors.KindDuplicate).
			Path(name).
			Detail("format %q already registered", name).
			Build()
	}
	id := uint32(len(r.formats))
	r.formats = append(r.formats, f)
	r.byName[name] = id
	return id, nil
}

// Get returns the format with the given id.
func (r *FormatRegistry) Get(id uint32) (*Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.formats) {
		return nil, errors.New(errors.PhaseFormat, errors.KindNotFound).
			Value(id).
			Detail("format id %d not registered", id).
			Build()
	}
	return r.formats[id], nil
}

// Lookup returns the id and format registered under name.
func (r *FormatRegistry) Lookup(name string) (uint32, *Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byName[name]
	if !ok {
		return 0, nil, errors.NotFound(errors.PhaseFormat, "format", name)
	}
	return id, r.formats[id], nil
}

// Len returns the number of registered formats.
func (r *FormatRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.formats)
}

// Schema is the on-disk description of a set of formats.
type Schema struct {
	Formats []FormatSchema `yaml:"formats"`
}

// FormatSchema describes one format.
type FormatSchema struct {
	Name   string        `yaml:"name"`
	Fields []FieldSchema `yaml:"fields"`
}

// FieldSchema describes one field. Type is a primitive name such as "u8".
type FieldSchema struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	Offset uint32 `yaml:"offset"`
}

// LoadYAML registers every format in a YAML schema document, in order.
// Nothing is registered if any format in the document is invalid.
//
//	formats:
//	  - name: pointer_move
//	    fields:
//	      - {name: type_id, type: u8, offset: 0}
//	      - {name: x, type: i32, offset: 4}
func (r *FormatRegistry) LoadYAML(data []byte) ([]uint32, error) {
	var schema Schema
	if err := yaml.Unmarshal(data, &schema); err != nil {
		return nil, errors.Wrap(errors.PhaseFormat, errors.KindInvalidInput, err, "parse format schema")
	}

	defs := make([]*Format, len(schema.Formats))
	for i, fs := range schema.Formats {
		if fs.Name == "" {
			return nil, errors.InvalidInput(errors.PhaseFormat, "format without a name")
		}
		fields := make([]Field, len(fs.Fields))
		for j, fd := range fs.Fields {
			kind, err := ParseKind(fd.Type)
			if err != nil {
				return nil, errors.Unsupported(errors.PhaseFormat, []string{fs.Name, fd.Name}, fd.Type, "not a supported field primitive")
			}
			fields[j] = Field{Name: fd.Name, Kind: kind, Offset: fd.Offset}
		}
		f, err := DefineNamedFormat(fs.Name, fields...)
		if err != nil {
			return nil, err
		}
		defs[i] = f
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool, len(defs))
	for _, f := range defs {
		_, registered := r.byName[f.name]
		if registered || seen[f.name] {
			return nil, errors.New(errors.PhaseFormat, errors.KindDuplicate).
				Path(f.name).
				Detail("format %q already registered", f.name).
				Build()
		}
		seen[f.name] = true
	}
	ids := make([]uint32, len(defs))
	for i, f := range defs {
		ids[i] = uint32(len(r.formats))
		r.formats = append(r.formats, f)
		r.byName[f.name] = ids[i]
	}
	return ids, nil
}

// LoadFile reads a YAML schema from path.
func (r *FormatRegistry) LoadFile(path string) ([]uint32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseFormat, errors.KindIO, err, "read "+path)
	}
	return r.LoadYAML(data)
}
