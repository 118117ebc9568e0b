package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"bolddenoise/internal/models"
)

// autoKeyword selects the value estimated from the data.
const autoKeyword = "auto"

// AutoFloat is a number or the keyword "auto".
type AutoFloat struct {
	Auto  bool
	Value float64
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *AutoFloat) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: want a number or %q: %w", node.Line, autoKeyword, models.ErrConfiguration)
	}
	if node.Value == autoKeyword {
		*a = AutoFloat{Auto: true}
		return nil
	}
	v, err := strconv.ParseFloat(node.Value, 64)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a number or %q: %w", node.Line, node.Value, autoKeyword, models.ErrConfiguration)
	}
	*a = AutoFloat{Value: v}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a AutoFloat) MarshalYAML() (any, error) {
	if a.Auto {
		return autoKeyword, nil
	}
	return a.Value, nil
}

func (a AutoFloat) String() string {
	if a.Auto {
		return autoKeyword
	}
	return strconv.FormatFloat(a.Value, 'g', -1, 64)
}

// AutoInt is an integer or the keyword "auto".
type AutoInt struct {
	Auto  bool
	Value int
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (a *AutoInt) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: want an integer or %q: %w", node.Line, autoKeyword, models.ErrConfiguration)
	}
	if node.Value == autoKeyword {
		*a = AutoInt{Auto: true}
		return nil
	}
	v, err := strconv.Atoi(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not an integer or %q: %w", node.Line, node.Value, autoKeyword, models.ErrConfiguration)
	}
	*a = AutoInt{Value: v}
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (a AutoInt) MarshalYAML() (any, error) {
	if a.Auto {
		return autoKeyword, nil
	}
	return a.Value, nil
}

func (a AutoInt) String() string {
	if a.Auto {
		return autoKeyword
	}
	return strconv.Itoa(a.Value)
}

// ParseAutoFloat parses a command-line value the same way as YAML.
func ParseAutoFloat(s string) (AutoFloat, error) {
	var a AutoFloat
	err := a.UnmarshalYAML(&yaml.Node{Kind: yaml.ScalarNode, Value: s})
	return a, err
}

// ParseAutoInt parses a command-line value the same way as YAML.
func ParseAutoInt(s string) (AutoInt, error) {
	var a AutoInt
	err := a.UnmarshalYAML(&yaml.Node{Kind: yaml.ScalarNode, Value: s})
	return a, err
}
