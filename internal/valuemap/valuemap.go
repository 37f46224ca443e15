// Package valuemap translates free-form form values into the code lists the
// permit tracking system accepts.
//
// Each value-mapped category is backed by a JSON reference table. The
// tables ship embedded in the binary and can be overridden from a
// directory at startup.
package valuemap

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/JonMunkholm/permits/internal/schema"
)

// MaxMultiValueLength caps a mapped multi-value field. Elements that would
// push the field past the cap are dropped whole.
const MaxMultiValueLength = 10

// ErrNoTable is returned when a category has no loaded reference table.
var ErrNoTable = errors.New("no reference table for category")

//go:embed data/*.json
var embedded embed.FS

var resourceFiles = map[schema.Category]string{
	schema.StateFields:      "states.json",
	schema.StreetSuffix:     "street_suffix.json",
	schema.BuildingUse:      "building_use.json",
	schema.OccupancyCode:    "occupancy_code.json",
	schema.ConstructionType: "construction_type.json",
	schema.FireRating:       "fire_rating.json",
}

// ResourceFile returns the reference table file name for c.
func ResourceFile(c schema.Category) (string, bool) {
	name, ok := resourceFiles[c]
	return name, ok
}

type table struct {
	entries   map[string]string
	folded    map[string]string
	canonical map[string]bool
}

func newTable(entries map[string]string) table {
	t := table{
		entries:   make(map[string]string, len(entries)),
		folded:    make(map[string]string, len(entries)),
		canonical: make(map[string]bool, len(entries)),
	}
	for k, v := range entries {
		t.entries[k] = v
		t.folded[strings.ToLower(k)] = v
		t.canonical[v] = true
	}
	return t
}

// Store holds one reference table per category.
type Store struct {
	tables map[schema.Category]table
}

// New builds a store from in-memory tables.
func New(tables map[schema.Category]map[string]string) *Store {
	s := &Store{tables: make(map[schema.Category]table, len(tables))}
	for c, entries := range tables {
		s.tables[c] = newTable(entries)
	}
	return s
}

// LoadDefault loads the embedded reference tables.
func LoadDefault() (*Store, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// Load reads a reference table for every value-mapped category from fsys.
// A category without a file is an error.
func Load(fsys fs.FS) (*Store, error) {
	tables := make(map[schema.Category]map[string]string)
	for _, c := range schema.ValueMapCategories() {
		name, ok := resourceFiles[c]
		if !ok {
			return nil, fmt.Errorf("valuemap: no resource file registered for %s", c)
		}
		b, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("valuemap: read %s table: %w", c, err)
		}
		entries := make(map[string]string)
		if err := json.Unmarshal(b, &entries); err != nil {
			return nil, fmt.Errorf("valuemap: parse %s: %w", name, err)
		}
		tables[c] = entries
	}
	return New(tables), nil
}

// Lookup translates a single value. Keys match exactly first, then case
// insensitively; a value that is already a code of the table maps to
// itself.
func (s *Store) Lookup(c schema.Category, value string) (string, bool) {
	t, ok := s.tables[c]
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	if v, ok := t.entries[value]; ok {
		return v, true
	}
	if v, ok := t.folded[strings.ToLower(value)]; ok {
		return v, true
	}
	if t.canonical[value] {
		return value, true
	}
	return "", false
}

// IsKey reports whether value is a source key of the table rather than
// one of its codes.
func (s *Store) IsKey(c schema.Category, value string) bool {
	t, ok := s.tables[c]
	if !ok {
		return false
	}
	value = strings.TrimSpace(value)
	if _, ok := t.entries[value]; ok {
		return true
	}
	_, ok = t.folded[strings.ToLower(value)]
	return ok
}

// Map translates a field value. Comma separated values are translated
// element by element, unmatched elements are dropped and the result is
// capped at MaxMultiValueLength on an element boundary. An unmatched single
// value maps to "".
func (s *Store) Map(c schema.Category, value string) (string, error) {
	if _, ok := s.tables[c]; !ok {
		return "", fmt.Errorf("%w %s", ErrNoTable, c)
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}

	if !strings.Contains(value, ",") {
		v, _ := s.Lookup(c, value)
		return v, nil
	}

	var mapped []string
	for _, part := range strings.Split(strings.Trim(value, `"`), ",") {
		if v, ok := s.Lookup(c, part); ok && v != "" {
			mapped = append(mapped, v)
		}
	}
	return joinCapped(mapped, MaxMultiValueLength), nil
}

func joinCapped(parts []string, max int) string {
	var b strings.Builder
	for _, p := range parts {
		n := len(p)
		if b.Len() > 0 {
			n++
		}
		if b.Len()+n > max {
			break
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(p)
	}
	return b.String()
}
