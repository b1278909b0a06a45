// Package dataset loads sample sets from YAML or JSON files.
package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copyleftdev/tinyfit/internal/curvefit"
	"github.com/copyleftdev/tinyfit/internal/polyfit"
)

// Format is a dataset encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Dataset is a named sample set with the degree to fit.
type Dataset struct {
	Name   string    `yaml:"name" json:"name"`
	Degree int       `yaml:"degree" json:"degree"`
	X      []float64 `yaml:"x" json:"x"`
	Y      []float64 `yaml:"y" json:"y"`
}

// Example returns the six-point data set sampled from
// y = 1 + 2x − 0.5x² + 0.25x³ − 0.1x⁴ + 0.05x⁵.
func Example() *Dataset {
	return &Dataset{
		Name:   "quintic",
		Degree: 5,
		X:      []float64{0, 1, 2, 3, 4, 5},
		Y:      []float64{1, 2.7, 5, 13.3, 42.6, 123.5},
	}
}

// Load reads a dataset, picking the format from the file extension.
func Load(path string) (*Dataset, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	ds, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if ds.Name == "" {
		ds.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return ds, nil
}

// FormatFromPath maps .yaml, .yml and .json to a Format.
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported dataset extension %q", filepath.Ext(path))
	}
}

// Parse decodes and validates a dataset.
func Parse(data []byte, format Format) (*Dataset, error) {
	var ds Dataset
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &ds); err != nil {
			return nil, fmt.Errorf("decode yaml: %w", err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &ds); err != nil {
			return nil, fmt.Errorf("decode json: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	return &ds, nil
}

// Validate checks the samples against the degree.
func (d *Dataset) Validate() error {
	return polyfit.Validate(d.X, d.Y, d.Degree)
}

// Problem converts the dataset into a fitting problem.
func (d *Dataset) Problem() curvefit.Problem {
	return curvefit.Problem{X: d.X, Y: d.Y, Degree: d.Degree}
}

// Marshal encodes the dataset.
func (d *Dataset) Marshal(format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(d)
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
}
