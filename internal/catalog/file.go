package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Definition is the on-disk form of a custom catalog.
//
//	name: lateral
//	points:
//	  - 鼻根点
//	  - 鼻顶点
type Definition struct {
	Name   string   `yaml:"name"`
	Points []string `yaml:"points"`
}

// Parse decodes a YAML catalog definition.
func Parse(data []byte) (*Catalog, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if def.Name == "" {
		return nil, fmt.Errorf("%w: missing name", ErrInvalid)
	}
	return New(def.Name, def.Points)
}

// LoadFile reads a catalog definition from path.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Resolve returns the catalog at path when set, otherwise the registered catalog called name.
func Resolve(name, path string) (*Catalog, error) {
	if path != "" {
		c, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		Register(c)
		return c, nil
	}
	if c := Get(name); c != nil {
		return c, nil
	}
	return nil, fmt.Errorf("unknown catalog %q (have %v)", name, List())
}
