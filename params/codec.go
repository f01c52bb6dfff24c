package params

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Document is the YAML-serializable, stable key/value form of Parameters
// used for provenance (spec.md §3) and for loading overrides on top of the
// embedded reference configuration.
type Document struct {
	Arena     ArenaConfig     `yaml:"arena"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Agent     AgentConfig     `yaml:"agent"`
	Collision CollisionConfig `yaml:"collision"`
}

// ArenaConfig holds arena dimensions.
type ArenaConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// PhysicsConfig holds integration constants.
type PhysicsConfig struct {
	DT      float64 `yaml:"dt"`
	Gravity float64 `yaml:"gravity"`
}

// AgentConfig holds per-agent physical constants.
type AgentConfig struct {
	Radius float64 `yaml:"radius"`
}

// CollisionConfig holds collision-resolver tuning.
type CollisionConfig struct {
	GridCellSize       float64 `yaml:"grid_cell_size"`
	NaiveGridCrossover int     `yaml:"naive_grid_crossover"`
	Restitution        float64 `yaml:"restitution"`
}

// Load builds Parameters starting from the embedded reference defaults and
// merging an optional override document on top. If path is empty, only the
// embedded defaults are used. This mirrors the teacher's config loader: an
// embedded baseline overridden field-by-field by an optional file, never
// the other way around.
func Load(path string) (Parameters, error) {
	doc := Document{}
	if err := yaml.Unmarshal(defaultsYAML, &doc); err != nil {
		return Parameters{}, fmt.Errorf("params: parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Parameters{}, fmt.Errorf("params: reading override file: %w", err)
		}
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Parameters{}, fmt.Errorf("params: parsing override file: %w", err)
		}
	}

	return doc.Build()
}

// Encode renders Parameters to its stable YAML key/value form, suitable
// for storing alongside a replay for provenance (spec.md §3, §6).
func (p Parameters) Encode() ([]byte, error) {
	out, err := yaml.Marshal(p.toDocument())
	if err != nil {
		return nil, fmt.Errorf("params: encoding parameters: %w", err)
	}
	return out, nil
}

// Decode parses a previously-Encoded byte stream back into Parameters,
// validating it as if freshly constructed.
func Decode(data []byte) (Parameters, error) {
	doc := Document{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Parameters{}, fmt.Errorf("params: decoding parameters: %w", err)
	}
	return doc.Build()
}
