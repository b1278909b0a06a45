package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/tinyfit/internal/optimization"
)

const quadraticYAML = `
name: quadratic
degree: 2
x: [-1, 0, 1, 2]
y: [2, 1, 2, 5]
`

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		format Format
	}{
		{"yaml", quadraticYAML, FormatYAML},
		{"json", `{"name":"quadratic","degree":2,"x":[-1,0,1,2],"y":[2,1,2,5]}`, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds, err := Parse([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.Equal(t, "quadratic", ds.Name)
			assert.Equal(t, 2, ds.Degree)
			assert.Equal(t, []float64{-1, 0, 1, 2}, ds.X)
			assert.Equal(t, []float64{2, 1, 2, 5}, ds.Y)
		})
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		format  Format
		wantErr error
	}{
		{"length mismatch", "degree: 1\nx: [1, 2]\ny: [1]\n", FormatYAML, optimization.ErrDimensionMismatch},
		{"too few samples", `{"degree":3,"x":[1,2],"y":[1,2]}`, FormatJSON, optimization.ErrDimensionMismatch},
		{"bad yaml", "x: [1, 2\n", FormatYAML, nil},
		{"bad json", `{"x":`, FormatJSON, nil},
		{"unknown format", "", Format("toml"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data), tt.format)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	for _, format := range []Format{FormatYAML, FormatJSON} {
		t.Run(string(format), func(t *testing.T) {
			data, err := Example().Marshal(format)
			require.NoError(t, err)

			path := filepath.Join(dir, "example."+string(format))
			require.NoError(t, os.WriteFile(path, data, 0o600))

			ds, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, Example(), ds)
		})
	}
}

func TestLoadDefaultsNameToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "line.yml")
	require.NoError(t, os.WriteFile(path, []byte("degree: 1\nx: [0, 1]\ny: [1, 3]\n"), 0o600))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "line", ds.Name)
	assert.Equal(t, 1, ds.Problem().Degree)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("samples.csv")
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExampleIsValid(t *testing.T) {
	assert.NoError(t, Example().Validate())
	p := Example().Problem()
	assert.Equal(t, 6, p.Dimensions())
}
