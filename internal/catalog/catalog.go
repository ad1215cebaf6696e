// Package catalog holds the static list of object types and their lifecycle
// states that the form offers. A catalog is loaded once and never mutated.
package catalog

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed default.json
var defaultCatalog []byte

// DefaultSource names the embedded catalog in logs and errors.
const DefaultSource = "embedded:default.json"

// State is one lifecycle state of an object type.
type State struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Object is a catalog entry: an object type and its ordered states.
type Object struct {
	Value  string  `json:"value"`
	Label  string  `json:"label"`
	States []State `json:"states"`
}

// Catalog is an immutable, ordered set of object types.
type Catalog struct {
	source  string
	objects []Object
	index   map[string]int
	states  map[string]mapset.Set[string]
}

// LoadError means a catalog document is missing or malformed. Callers report
// it and continue with an empty catalog.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading catalog %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// IsLoadError returns true if the error is a LoadError.
func IsLoadError(err error) bool {
	var loadErr *LoadError
	return errors.As(err, &loadErr)
}

// Empty returns a catalog with no object types.
func Empty() *Catalog {
	return &Catalog{index: map[string]int{}, states: map[string]mapset.Set[string]{}}
}

// Default parses the embedded catalog.
func Default(ctx context.Context) (*Catalog, error) {
	return Parse(ctx, DefaultSource, defaultCatalog)
}

// Load reads a catalog file. An empty path loads the embedded default.
// Files ending in .yaml or .yml are parsed as YAML, anything else as JSON.
func Load(ctx context.Context, path string) (*Catalog, error) {
	if path == "" {
		return Default(ctx)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Source: path, Err: err}
	}
	return Parse(ctx, path, data)
}

// Parse decodes a catalog document {objects: [{value, label, states}]}.
// Entries without a string value and label are logged and skipped, as are
// duplicate object types. A document without an objects array is a LoadError.
func Parse(ctx context.Context, source string, data []byte) (*Catalog, error) {
	l := ctxzap.Extract(ctx)

	var doc map[string]any
	var err error
	switch strings.ToLower(filepath.Ext(source)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}

	rawObjects, ok := doc["objects"].([]any)
	if !ok {
		return nil, &LoadError{Source: source, Err: errors.New("document has no objects array")}
	}

	c := Empty()
	c.source = source
	for i, raw := range rawObjects {
		obj, ok := decodeObject(raw)
		if !ok {
			l.Warn("skipping invalid catalog object", zap.String("source", source), zap.Int("index", i), zap.Any("object", raw))
			continue
		}
		if _, dup := c.index[obj.Value]; dup {
			l.Warn("skipping duplicate catalog object", zap.String("source", source), zap.String("value", obj.Value))
			continue
		}

		set := mapset.NewSet[string]()
		states := make([]State, 0, len(obj.States))
		for _, s := range obj.States {
			if set.Contains(s.Value) {
				l.Warn("skipping duplicate state", zap.String("object", obj.Value), zap.String("state", s.Value))
				continue
			}
			set.Add(s.Value)
			states = append(states, s)
		}
		obj.States = states

		c.index[obj.Value] = len(c.objects)
		c.objects = append(c.objects, obj)
		c.states[obj.Value] = set
	}

	l.Debug("catalog loaded", zap.String("source", source), zap.Int("objects", len(c.objects)))
	return c, nil
}

func decodeObject(raw any) (Object, bool) {
	m, ok := raw.(map[string]any)
	if !ok {
		return Object{}, false
	}
	value, ok1 := m["value"].(string)
	label, ok2 := m["label"].(string)
	if !ok1 || !ok2 || value == "" {
		return Object{}, false
	}

	obj := Object{Value: value, Label: label}
	rawStates, _ := m["states"].([]any)
	for _, rs := range rawStates {
		sm, ok := rs.(map[string]any)
		if !ok {
			continue
		}
		sv, ok1 := sm["value"].(string)
		sl, ok2 := sm["label"].(string)
		if !ok1 || !ok2 || sv == "" {
			continue
		}
		obj.States = append(obj.States, State{Value: sv, Label: sl})
	}
	return obj, true
}

// Source is the path or embedded name the catalog was parsed from.
func (c *Catalog) Source() string {
	return c.source
}

// Len is the number of object types.
func (c *Catalog) Len() int {
	return len(c.objects)
}

// Objects returns the object types in document order.
func (c *Catalog) Objects() []Object {
	out := make([]Object, len(c.objects))
	copy(out, c.objects)
	return out
}

// Object looks up an object type by value.
func (c *Catalog) Object(value string) (Object, bool) {
	i, ok := c.index[value]
	if !ok {
		return Object{}, false
	}
	return c.objects[i], true
}

// First is the default object type, or "" for an empty catalog.
func (c *Catalog) First() string {
	if len(c.objects) == 0 {
		return ""
	}
	return c.objects[0].Value
}

// States returns the lifecycle states of an object type, nil if unknown.
func (c *Catalog) States(objectType string) []State {
	obj, ok := c.Object(objectType)
	if !ok {
		return nil
	}
	out := make([]State, len(obj.States))
	copy(out, obj.States)
	return out
}

// HasState reports whether state is a lifecycle state of objectType.
func (c *Catalog) HasState(objectType, state string) bool {
	set, ok := c.states[objectType]
	return ok && set.Contains(state)
}
