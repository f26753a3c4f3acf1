// Package schemas maps (form code, fec version) pairs to the ordered column
// layout of that record type. The full history of the FEC electronic filing
// format lives in the embedded mappings.json: for every schema key it lists
// the column names of every format version that changed the layout.
//
// Resolution is exact key first, then the longest registered prefix of the
// form code (SA11AI falls back to SA), and within a key the nearest
// registered version at or below the version declared by the filing.
package schemas

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

//go:embed mappings.json
var mappingsJSON []byte

type Schema struct {
	// Code is the schema key this layout was registered under, e.g. "SA".
	// It may be shorter than the form code it was resolved for.
	Code string
	// Version is the registered version the lookup resolved to.
	Version string

	Fields []Field
}

func (self *Schema) FieldIndex(name string) (int, bool) {
	for i := range self.Fields {
		if self.Fields[i].Name == name {
			return i, true
		}
	}
	return 0, false
}

type Field struct {
	Name string
	Type ValueType
}

type ValueType int

const (
	Text ValueType = iota
	Integer
	Decimal
	Date
	Code
)

func (self ValueType) String() string {
	switch self {
	case Text:
		return "text"
	case Integer:
		return "integer"
	case Decimal:
		return "decimal"
	case Date:
		return "date"
	case Code:
		return "code"
	}
	return fmt.Sprintf("ValueType(%d)", int(self))
}

type UnknownSchemaError struct {
	FormCode string
	Version  string
}

func (self *UnknownSchemaError) Error() string {
	return fmt.Sprintf("no schema for form code %q, fec version %q",
		self.FormCode, self.Version)
}

func (self *UnknownSchemaError) Is(target error) bool {
	_, ok := target.(*UnknownSchemaError)
	return ok
}

// Lookup resolves the column layout for a form code under the given fec
// version. The form code is case insensitive. Results are cached.
func Lookup(formCode, fecVersion string) (*Schema, error) {
	code := strings.ToUpper(strings.TrimSpace(formCode))
	key := cacheKey{code: code, version: fecVersion}

	mu.RLock()
	schema, ok := cache[key]
	mu.RUnlock()
	if ok {
		return schema, nil
	}

	schema, err := registry().resolve(code, fecVersion)
	if err != nil {
		return nil, err
	}

	mu.Lock()
	cache[key] = schema
	mu.Unlock()
	return schema, nil
}

type cacheKey struct {
	code    string
	version string
}

var (
	mu    sync.RWMutex
	cache = map[cacheKey]*Schema{}

	registryOnce sync.Once
	loaded       *schemaRegistry
)

func registry() *schemaRegistry {
	registryOnce.Do(func() {
		r, err := loadRegistry(mappingsJSON)
		if err != nil {
			panic(fmt.Sprintf("schemas: load embedded mappings: %v", err))
		}
		loaded = r
	})
	return loaded
}

type schemaRegistry struct {
	// byCode maps a schema key to its layouts, sorted by version descending.
	byCode map[string][]versionedSchema
}

type versionedSchema struct {
	version parsedVersion
	schema  *Schema
}

func loadRegistry(b []byte) (*schemaRegistry, error) {
	var raw map[string]map[string][]string
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal mappings: %w", err)
	}

	r := &schemaRegistry{byCode: make(map[string][]versionedSchema, len(raw))}
	for code, versions := range raw {
		layouts := make([]versionedSchema, 0, len(versions))
		for version, columns := range versions {
			v, err := parseVersion(version)
			if err != nil {
				return nil, fmt.Errorf("mappings key %q: %w", code, err)
			}
			if len(columns) < 2 {
				return nil, fmt.Errorf(
					"mappings key %q, version %q: less than 2 columns", code, version)
			}
			layouts = append(layouts, versionedSchema{
				version: v,
				schema:  makeSchema(code, version, columns),
			})
		}
		sort.Slice(layouts, func(i, j int) bool {
			return layouts[j].version.less(layouts[i].version)
		})
		r.byCode[code] = layouts
	}
	return r, nil
}

// makeSchema drops the leading form_type column: the form code itself is
// carried on every record and never part of the field list.
func makeSchema(code, version string, columns []string) *Schema {
	fields := make([]Field, 0, len(columns)-1)
	for _, name := range columns[1:] {
		fields = append(fields, Field{Name: name, Type: columnType(name)})
	}
	return &Schema{Code: code, Version: version, Fields: fields}
}

func (self *schemaRegistry) resolve(code, fecVersion string,
) (*Schema, error) {
	layouts, ok := self.lookupCode(code)
	if !ok {
		return nil, &UnknownSchemaError{FormCode: code, Version: fecVersion}
	}

	v, err := parseVersion(fecVersion)
	if err != nil {
		return nil, &UnknownSchemaError{FormCode: code, Version: fecVersion}
	}

	for i := range layouts {
		if !v.less(layouts[i].version) {
			return layouts[i].schema, nil
		}
	}
	return nil, &UnknownSchemaError{FormCode: code, Version: fecVersion}
}

// lookupCode finds the layouts registered for code, or for its longest
// registered prefix. Sub-schedule variants like "SC2/10" stop at their own
// key ("SC2") before ever reaching "SC".
func (self *schemaRegistry) lookupCode(code string,
) ([]versionedSchema, bool) {
	for key := code; key != ""; key = key[:len(key)-1] {
		if layouts, ok := self.byCode[key]; ok {
			return layouts, true
		}
	}
	return nil, false
}

type parsedVersion [2]int

func parseVersion(s string) (parsedVersion, error) {
	var v parsedVersion
	parts := strings.SplitN(strings.TrimSpace(s), ".", 3)
	if len(parts) == 0 || parts[0] == "" {
		return v, fmt.Errorf("empty fec version %q", s)
	}
	for i, part := range parts {
		if i > 1 {
			break
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return v, fmt.Errorf("fec version %q: %w", s, err)
		}
		v[i] = n
	}
	return v, nil
}

func (self parsedVersion) less(other parsedVersion) bool {
	if self[0] != other[0] {
		return self[0] < other[0]
	}
	return self[1] < other[1]
}
