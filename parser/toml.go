package parser

import (
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

// TOML reads and writes TOML locale files. The decoder does not expose key
// order, so keys come back sorted.
type TOML struct{}

func (TOML) Name() string { return "toml" }
func (TOML) Ext() string  { return "toml" }

func (TOML) Parse(data []byte) (*Object, error) {
	var m map[string]any
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	obj, err := fromMap(m)
	if err != nil {
		return nil, fmt.Errorf("parsing TOML: %w", err)
	}
	return obj, nil
}

func (TOML) Marshal(obj *Object) ([]byte, error) {
	out, err := toml.Marshal(obj.Map())
	if err != nil {
		return nil, fmt.Errorf("encoding TOML: %w", err)
	}
	return out, nil
}
