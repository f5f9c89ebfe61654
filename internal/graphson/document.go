// Package graphson decodes and re-encodes code-property-graph exports in
// GraphSON form. Both envelope shapes produced by the exporter are decoded
// once into the same in-memory Graph and re-tagged only when written back.
package graphson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	shrderrors "github.com/scan-io-git/lintgraph/pkg/shared/errors"
)

// GraphTag is the "@type" of a TinkerPop graph envelope.
const GraphTag = "tinker:graph"

// Shape identifies which envelope a document arrived in.
type Shape int

const (
	// ShapeTyped is {"@type": "tinker:graph", "@value": {...}}.
	ShapeTyped Shape = iota + 1
	// ShapeGraphKey is {"graph": {...}}.
	ShapeGraphKey
)

func (s Shape) String() string {
	switch s {
	case ShapeTyped:
		return "typed"
	case ShapeGraphKey:
		return "graph-key"
	default:
		return "unknown"
	}
}

// Document is a decoded graph export.
type Document struct {
	Shape Shape
	Graph *Graph

	// top-level members other than the envelope payload, kept verbatim
	extra map[string]json.RawMessage
}

// Graph holds the vertices of an export; edges and any other members pass through untouched.
type Graph struct {
	Vertices []*Vertex

	rest map[string]json.RawMessage
}

// ReadFile loads and decodes the graph export at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, shrderrors.Wrap(shrderrors.ErrInputNotFound, "graph export %q", path)
		}
		return nil, fmt.Errorf("failed to read graph export %q: %w", path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("graph export %q: %w", path, err)
	}
	return doc, nil
}

// Decode parses a graph export in either envelope shape.
func Decode(data []byte) (*Document, error) {
	if !json.Valid(data) {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "could not decode JSON")
	}
	var top map[string]json.RawMessage
	if !isJSONObject(data) || json.Unmarshal(data, &top) != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "top-level value is not an object")
	}

	doc := &Document{extra: top}
	var payload json.RawMessage
	switch {
	case stringMember(top, "@type") == GraphTag && isJSONObject(top["@value"]):
		doc.Shape = ShapeTyped
		payload = top["@value"]
		delete(doc.extra, "@type")
		delete(doc.extra, "@value")
	case isJSONObject(top["graph"]):
		doc.Shape = ShapeGraphKey
		payload = top["graph"]
		delete(doc.extra, "graph")
	default:
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed,
			"not in a recognized GraphSON format, top-level keys found: %v", sortedKeys(top))
	}

	graph, err := decodeGraph(payload)
	if err != nil {
		return nil, err
	}
	doc.Graph = graph
	return doc, nil
}

func decodeGraph(payload json.RawMessage) (*Graph, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(payload, &members); err != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "graph components are not an object: %v", err)
	}

	rawVertices, ok := members["vertices"]
	if !ok || !isJSONArray(rawVertices) {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed,
			"graph data is missing a 'vertices' list, keys found: %v", sortedKeys(members))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(rawVertices, &items); err != nil {
		return nil, shrderrors.Wrap(shrderrors.ErrInputMalformed, "could not decode vertices: %v", err)
	}

	g := &Graph{Vertices: make([]*Vertex, 0, len(items)), rest: members}
	delete(g.rest, "vertices")
	for _, item := range items {
		g.Vertices = append(g.Vertices, newVertex(item))
	}
	return g, nil
}

// MarshalJSON re-wraps the graph in the envelope it was read from.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(d.extra)+2)
	for k, v := range d.extra {
		out[k] = v
	}
	switch d.Shape {
	case ShapeTyped:
		out["@type"] = GraphTag
		out["@value"] = d.Graph
	case ShapeGraphKey:
		out["graph"] = d.Graph
	default:
		return nil, fmt.Errorf("cannot encode graph document with %s envelope", d.Shape)
	}
	return json.Marshal(out)
}

// MarshalJSON encodes the vertices alongside the untouched graph members.
func (g *Graph) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(g.rest)+1)
	for k, v := range g.rest {
		out[k] = v
	}
	out["vertices"] = g.Vertices
	return json.Marshal(out)
}

// Encode renders the document with two-space indentation.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

func stringMember(m map[string]json.RawMessage, key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isJSONObject(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isJSONArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
