package gen

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/mojen"
)

func TestConfigOps(t *testing.T) {
	t.Run("nil config uses defaults", func(t *testing.T) {
		var c *Config
		assert.Equal(t, []mojen.Op{mojen.OpDelete, mojen.OpSoftDelete}, c.Ops())
		assert.Equal(t, DefaultHeader, c.HeaderText())
	})

	t.Run("disabled wins over enabled", func(t *testing.T) {
		c := MustNewConfig(
			WithFeatures(FeatureRestore),
			WithoutFeatures(FeatureRestore, FeatureDelete),
		)
		assert.Equal(t, []mojen.Op{mojen.OpSoftDelete}, c.Ops())
	})

	t.Run("all operations", func(t *testing.T) {
		c := MustNewConfig(WithFeatures(FeatureAddNested, FeatureUpdateNested, FeatureRestore))
		assert.Equal(t, mojen.Ops(), c.Ops())
	})
}

func TestParseConfig(t *testing.T) {
	t.Run("decodes every field", func(t *testing.T) {
		c, err := ParseConfig([]byte(`
package: github.com/org/app/cascade
target: ./cascade
header: Generated.
features: [cascade/restore]
disabled: [format]
workers: 3
`))
		require.NoError(t, err)
		assert.Equal(t, "github.com/org/app/cascade", c.Package)
		assert.Equal(t, "./cascade", c.Target)
		assert.Equal(t, "Generated.", c.Header)
		assert.Equal(t, []Feature{FeatureRestore}, c.Features)
		assert.Equal(t, []string{"format"}, c.Disabled)
		assert.Equal(t, 3, c.Workers)
	})

	t.Run("options take precedence", func(t *testing.T) {
		c, err := ParseConfig([]byte("target: a\n"), WithTarget("b"))
		require.NoError(t, err)
		assert.Equal(t, "b", c.Target)
	})

	t.Run("unknown feature", func(t *testing.T) {
		_, err := ParseConfig([]byte("features: [cascade/unknown]\n"))
		require.Error(t, err)
		assert.True(t, IsConfigError(err))

		_, err = ParseConfig([]byte("disabled: [unknown]\n"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		_, err := ParseConfig([]byte("workers: [1"))
		require.Error(t, err)
		assert.True(t, IsConfigError(err))
	})
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mojen.yaml")
	require.NoError(t, os.WriteFile(path, []byte("package: example.com/cascade\n"), 0o644))

	c, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "example.com/cascade", c.Package)

	_, err = LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestFeatureByName(t *testing.T) {
	for _, f := range AllFeatures {
		got, ok := FeatureByName(f.Name)
		require.True(t, ok, f.Name)
		assert.Equal(t, f, got)
	}
	_, ok := FeatureByName("nope")
	assert.False(t, ok)
}
