package graphson

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// LabelFile is the label of vertices representing source files.
const LabelFile = "FILE"

// PathProperty holds the file path of a FILE vertex.
const PathProperty = "NAME"

var (
	errNotObject      = errors.New("vertex is not an object")
	errPropsNotObject = errors.New("'properties' is not an object")
	errNoPath         = errors.New("no path string found in NAME property")
)

// Vertex is one element of the vertices list. Members other than the
// property being set are never rewritten.
type Vertex struct {
	raw    json.RawMessage            // original bytes, used when the item is not an object
	fields map[string]json.RawMessage // nil when the item is not an object
	props  map[string]json.RawMessage // lazily decoded "properties"
}

func newVertex(raw json.RawMessage) *Vertex {
	v := &Vertex{raw: raw}
	if isJSONObject(raw) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err == nil {
			v.fields = fields
		}
	}
	return v
}

// IsObject reports whether the vertex decoded as a JSON object.
func (v *Vertex) IsObject() bool {
	return v.fields != nil
}

// Label returns the vertex label, or "" when absent or not a string.
func (v *Vertex) Label() string {
	return stringMember(v.fields, "label")
}

// ID returns a printable form of the vertex id, unwrapping typed ids like {"@type":"g:Int64","@value":7}.
func (v *Vertex) ID() string {
	raw, ok := v.fields["id"]
	if !ok {
		return "N/A"
	}
	if isJSONObject(raw) {
		var typed struct {
			Value json.RawMessage `json:"@value"`
		}
		if err := json.Unmarshal(raw, &typed); err == nil && typed.Value != nil {
			raw = typed.Value
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return strings.TrimSpace(string(raw))
}

// Raw returns the original bytes of the vertex.
func (v *Vertex) Raw() json.RawMessage {
	return v.raw
}

func (v *Vertex) properties() (map[string]json.RawMessage, error) {
	if v.fields == nil {
		return nil, errNotObject
	}
	if v.props != nil {
		return v.props, nil
	}
	raw, ok := v.fields["properties"]
	if !ok || string(raw) == "null" {
		v.props = map[string]json.RawMessage{}
		return v.props, nil
	}
	if !isJSONObject(raw) {
		return nil, errPropsNotObject
	}
	var props map[string]json.RawMessage
	if err := json.Unmarshal(raw, &props); err != nil {
		return nil, fmt.Errorf("%w: %v", errPropsNotObject, err)
	}
	v.props = props
	return v.props, nil
}

// Property returns the raw value of a property.
func (v *Vertex) Property(name string) (json.RawMessage, bool) {
	props, err := v.properties()
	if err != nil {
		return nil, false
	}
	raw, ok := props[name]
	return raw, ok
}

// SetProperty stores value under name, replacing any previous value.
func (v *Vertex) SetProperty(name string, value json.RawMessage) error {
	props, err := v.properties()
	if err != nil {
		return err
	}
	props[name] = value
	encoded, err := json.Marshal(props)
	if err != nil {
		return fmt.Errorf("failed to encode properties of vertex %s: %w", v.ID(), err)
	}
	v.fields["properties"] = encoded
	return nil
}

// FilePath extracts the path of a FILE vertex from its NAME property.
func (v *Vertex) FilePath() (string, error) {
	props, err := v.properties()
	if err != nil {
		return "", err
	}
	raw, ok := props[PathProperty]
	if !ok {
		return "", errNoPath
	}
	if p, ok := extractPath(raw, 0); ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: %s", errNoPath, truncate(string(raw), 200))
}

// extractPath unwraps the exporter-specific nesting of a property value:
//
//	"p"
//	["p"]
//	{"@type":"g:List","@value":["p"]}
//	{"@type":"g:VertexProperty","@value":{"@type":"g:List","@value":["p"]}}
//	[{"id":..,"value":"p"}]
//
// The first string found wins.
func extractPath(raw json.RawMessage, depth int) (string, bool) {
	if depth > 4 {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, s != ""
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return "", false
		}
		return extractPath(list[0], depth+1)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false
	}
	if inner, ok := obj["@value"]; ok {
		return extractPath(inner, depth+1)
	}
	if inner, ok := obj["value"]; ok {
		return extractPath(inner, depth+1)
	}
	return "", false
}

// MarshalJSON writes the vertex back, preserving non-object items verbatim.
func (v *Vertex) MarshalJSON() ([]byte, error) {
	if v.fields == nil {
		return v.raw, nil
	}
	return json.Marshal(v.fields)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
