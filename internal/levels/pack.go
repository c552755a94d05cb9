// Package levels owns the tangram level catalogue: the built-in levels, optional YAML level
// packs and levels stored in Postgres by operators.
package levels

import (
	"fmt"
	"os"

	"github.com/playmatatu/minigames/internal/tangram"
	"gopkg.in/yaml.v3"
)

// Pack is the on-disk layout of a level pack file.
type Pack struct {
	Name   string          `yaml:"name"`
	Levels []tangram.Level `yaml:"levels"`
}

// ParsePack decodes and validates a YAML level pack.
func ParsePack(data []byte) ([]tangram.Level, error) {
	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("decode level pack: %w", err)
	}
	for i := range pack.Levels {
		if err := pack.Levels[i].Validate(); err != nil {
			return nil, err
		}
	}
	return pack.Levels, nil
}

// LoadPack reads a level pack from path.
func LoadPack(path string) ([]tangram.Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level pack: %w", err)
	}
	return ParsePack(data)
}
