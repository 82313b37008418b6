package classify

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Labels maps model class indices to variety names. It is read from a TOML
// file shipped next to the model:
//
//	model = "vitia_model_v1"
//	names = ["Tempranillo", "Garnacha", "Albariño"]
type Labels struct {
	Model string   `toml:"model"`
	Names []string `toml:"names"`
}

// LoadLabels reads and validates a labels file.
func LoadLabels(path string) (Labels, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Labels{}, fmt.Errorf("read labels: %w", err)
	}

	var labels Labels
	if err := toml.Unmarshal(raw, &labels); err != nil {
		return Labels{}, fmt.Errorf("parse labels %s: %w", path, err)
	}
	if len(labels.Names) == 0 {
		return Labels{}, fmt.Errorf("labels %s: names must not be empty", path)
	}
	seen := make(map[string]bool, len(labels.Names))
	for i, name := range labels.Names {
		if name == "" {
			return Labels{}, fmt.Errorf("labels %s: class %d has no name", path, i)
		}
		if seen[name] {
			return Labels{}, fmt.Errorf("labels %s: duplicate class %q", path, name)
		}
		seen[name] = true
	}
	return labels, nil
}

// Name returns the class name for idx, or a placeholder for unknown indices.
func (l Labels) Name(idx int) string {
	if idx < 0 || idx >= len(l.Names) {
		return fmt.Sprintf("class_%d", idx)
	}
	return l.Names[idx]
}
