package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// LabelEncoder maps output indices back to mood labels.
type LabelEncoder struct {
	classes []string
}

// NewLabelEncoder returns an encoder for classes in index order.
func NewLabelEncoder(classes []string) (*LabelEncoder, error) {
	if len(classes) == 0 {
		return nil, errors.New("label encoder has no classes")
	}
	seen := make(map[string]bool, len(classes))
	for _, c := range classes {
		if c == "" {
			return nil, errors.New("label encoder has an empty class")
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate class %q", c)
		}
		seen[c] = true
	}
	return &LabelEncoder{classes: classes}, nil
}

// LoadLabels reads a JSON array of class names.
func LoadLabels(path string) (*LabelEncoder, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	var classes []string
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("parsing labels: %w", err)
	}
	return NewLabelEncoder(classes)
}

// Label returns the class at index i.
func (e *LabelEncoder) Label(i int) (string, error) {
	if i < 0 || i >= len(e.classes) {
		return "", fmt.Errorf("class index %d out of range [0, %d)", i, len(e.classes))
	}
	return e.classes[i], nil
}

// Classes returns a copy of the class list.
func (e *LabelEncoder) Classes() []string {
	return append([]string(nil), e.classes...)
}
