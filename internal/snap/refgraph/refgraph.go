// Package refgraph decodes the reference-graph JSON written by the SNAP client.
//
// Objects in the state files may carry a unique "$id" and be referenced later
// by {"$ref": "<id>"}. Collections may be wrapped as {"$values": [...]}.
// A Graph indexes every "$id" once and resolves references on demand; the
// decoded tree itself is never mutated.
package refgraph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	keyID     = "$id"
	keyRef    = "$ref"
	keyValues = "$values"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Graph is a decoded state document plus its "$id" index.
type Graph struct {
	root any
	ids  map[string]map[string]any
}

// Decode parses raw file contents and builds the id index.
// A leading UTF-8 byte order mark is ignored.
func Decode(data []byte) (*Graph, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return Build(root), nil
}

// Build indexes an already parsed JSON value.
func Build(root any) *Graph {
	g := &Graph{
		root: root,
		ids:  make(map[string]map[string]any),
	}
	g.index(root)
	return g
}

// index walks the tree depth first. "$ref" keys are never descended and an
// "$id" already seen stops the walk, so shared subtrees are visited once.
func (g *Graph) index(v any) {
	switch node := v.(type) {
	case map[string]any:
		if rawID, ok := node[keyID]; ok {
			id, ok := idString(rawID)
			if ok {
				if _, seen := g.ids[id]; seen {
					return
				}
				g.ids[id] = node
			}
		}
		for key, child := range node {
			if key == keyRef {
				continue
			}
			g.index(child)
		}
	case []any:
		for _, child := range node {
			g.index(child)
		}
	}
}

// Root returns the top-level decoded value.
func (g *Graph) Root() any {
	return g.root
}

// Len returns the number of indexed "$id" objects.
func (g *Graph) Len() int {
	return len(g.ids)
}

// Lookup returns the object registered under id.
func (g *Graph) Lookup(id string) (map[string]any, bool) {
	obj, ok := g.ids[id]
	return obj, ok
}

// Resolve dereferences v once. Values that are not {"$ref": id} are returned
// unchanged, as are references whose target is not in the document.
func (g *Graph) Resolve(v any) any {
	obj, ok := v.(map[string]any)
	if !ok {
		return v
	}
	rawRef, ok := obj[keyRef]
	if !ok {
		return v
	}
	id, ok := idString(rawRef)
	if !ok {
		return v
	}
	if target, ok := g.ids[id]; ok {
		return target
	}
	return v
}

// IsUnresolvedRef reports whether v still has the shape {"$ref": ...}.
func IsUnresolvedRef(v any) bool {
	obj, ok := v.(map[string]any)
	if !ok {
		return false
	}
	_, ok = obj[keyRef]
	return ok
}

// Values normalizes a sequence. Plain lists are returned as-is and
// {"$values": [...]} yields the embedded list. Anything else is nil.
func Values(v any) []any {
	switch node := v.(type) {
	case []any:
		return node
	case map[string]any:
		if inner, ok := node[keyValues].([]any); ok {
			return inner
		}
	}
	return nil
}

// Get navigates path from v, resolving references at every step.
func (g *Graph) Get(v any, path ...string) (any, bool) {
	cur := g.Resolve(v)
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := obj[key]
		if !ok || next == nil {
			return nil, false
		}
		cur = g.Resolve(next)
	}
	return cur, true
}

// Object is Get restricted to object results.
func (g *Graph) Object(v any, path ...string) (map[string]any, bool) {
	got, ok := g.Get(v, path...)
	if !ok {
		return nil, false
	}
	obj, ok := got.(map[string]any)
	return obj, ok
}

// List navigates path and returns the normalized sequence with each element
// resolved. ok is false when the path is missing or is not a sequence.
func (g *Graph) List(v any, path ...string) ([]any, bool) {
	got, ok := g.Get(v, path...)
	if !ok {
		return nil, false
	}
	if _, isList := got.([]any); !isList {
		obj, isObj := got.(map[string]any)
		if !isObj {
			return nil, false
		}
		if _, wrapped := obj[keyValues]; !wrapped {
			return nil, false
		}
	}
	raw := Values(got)
	out := make([]any, len(raw))
	for i, item := range raw {
		out[i] = g.Resolve(item)
	}
	return out, true
}

// String navigates path and returns a string leaf.
func (g *Graph) String(v any, path ...string) (string, bool) {
	got, ok := g.Get(v, path...)
	if !ok {
		return "", false
	}
	return AsString(got)
}

// Int navigates path and returns an integer leaf.
func (g *Graph) Int(v any, path ...string) (int, bool) {
	got, ok := g.Get(v, path...)
	if !ok {
		return 0, false
	}
	return AsInt(got)
}

// Bool navigates path and returns a boolean leaf.
func (g *Graph) Bool(v any, path ...string) (bool, bool) {
	got, ok := g.Get(v, path...)
	if !ok {
		return false, false
	}
	b, ok := got.(bool)
	return b, ok
}

// AsString converts a scalar JSON value to a string.
func AsString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case json.Number:
		return s.String(), true
	}
	return "", false
}

// AsInt converts a numeric JSON value (or numeric string) to an int.
func AsInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

func idString(v any) (string, bool) {
	return AsString(v)
}
