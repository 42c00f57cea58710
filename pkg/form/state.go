package form

import (
	"errors"
	"fmt"
)

// ErrUnknownField is returned when a name outside the catalog is edited.
var ErrUnknownField = errors.New("unknown field")

// State is the editable form: one raw string per catalog field. Values are not
// parsed here; numeric validation belongs to the prediction service.
// State is not safe for concurrent use; its owner serialises access.
type State struct {
	catalog  *Catalog
	values   map[FieldName]string
	revision uint64
}

// Snapshot is an immutable copy of the form taken at a given revision.
type Snapshot struct {
	Revision uint64
	values   map[string]string
}

func NewState(catalog *Catalog) *State {
	s := &State{
		catalog: catalog,
		values:  make(map[FieldName]string, catalog.Len()),
	}
	for _, name := range catalog.Names() {
		s.values[name] = ""
	}
	return s
}

// Restore rebuilds a state from serialized values. Entries outside the
// catalog are rejected; missing entries stay empty.
func Restore(catalog *Catalog, values map[string]string, revision uint64) (*State, error) {
	s := NewState(catalog)
	for name, value := range values {
		if !catalog.Contains(FieldName(name)) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownField, name)
		}
		s.values[FieldName(name)] = value
	}
	s.revision = revision
	return s, nil
}

func (s *State) Catalog() *Catalog {
	return s.catalog
}

// SetField replaces the raw value of name. It reports whether the value
// actually changed; only changes advance the revision.
func (s *State) SetField(name FieldName, raw string) (bool, error) {
	if !s.catalog.Contains(name) {
		return false, fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if s.values[name] == raw {
		return false, nil
	}
	s.values[name] = raw
	s.revision++
	return true, nil
}

func (s *State) Value(name FieldName) string {
	return s.values[name]
}

// Revision counts effective edits since the state was created.
func (s *State) Revision() uint64 {
	return s.revision
}

// Serialize returns every catalog field mapped to its raw value. The map
// always holds exactly the catalog's names.
func (s *State) Serialize() map[string]string {
	out := make(map[string]string, s.catalog.Len())
	for _, name := range s.catalog.Names() {
		out[string(name)] = s.values[name]
	}
	return out
}

func (s *State) Snapshot() Snapshot {
	return Snapshot{Revision: s.revision, values: s.Serialize()}
}

// Values returns a copy of the snapshot's field mapping.
func (s Snapshot) Values() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
