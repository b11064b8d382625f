package uniforms

import (
	"fmt"
	"math"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// MarshalYAML writes data as a flow sequence, members as a sequence of flow
// sequences and text as a scalar.
func (v Value) MarshalYAML() (interface{}, error) {
	switch {
	case v.Text != "":
		return v.Text, nil
	case v.Members != nil:
		node := &yaml.Node{Kind: yaml.SequenceNode}
		for _, m := range v.Members {
			node.Content = append(node.Content, floatSeq(m))
		}
		return node, nil
	default:
		return floatSeq(v.Data), nil
	}
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	*v = Value{}
	switch node.Kind {
	case yaml.ScalarNode:
		if f, err := strconv.ParseFloat(node.Value, 64); err == nil && node.Tag != "!!str" {
			v.Data = []float64{f}
			return nil
		}
		v.Text = node.Value
		return nil
	case yaml.SequenceNode:
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			v.Members = make([][]float64, len(node.Content))
			for i, m := range node.Content {
				if err := m.Decode(&v.Members[i]); err != nil {
					return fmt.Errorf("line %d: %w", m.Line, err)
				}
			}
			return nil
		}
		v.Data = []float64{}
		return node.Decode(&v.Data)
	default:
		return fmt.Errorf("line %d: unexpected value kind %d", node.Line, node.Kind)
	}
}

func floatSeq(values []float64) *yaml.Node {
	node := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, f := range values {
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: formatFloat(f)})
	}
	return node
}

func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Write stores a set as a YAML document.
func Write(path string, s Set) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding constants: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing constants: %w", err)
	}
	return nil
}

// Read loads a set written by Write.
func Read(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading constants: %w", err)
	}
	var s Set
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing constants %s: %w", path, err)
	}
	return s, nil
}
