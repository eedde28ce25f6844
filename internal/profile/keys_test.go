package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewKeySet(t *testing.T) {
	ks := NewKeySet([]string{"us_market", "vietnam", "us_market", "", "india"})

	assert.Equal(t, 3, ks.Len())
	assert.Equal(t, []string{"us_market", "vietnam", "india"}, ks.Keys())
	assert.True(t, ks.Contains("vietnam"))
	assert.False(t, ks.Contains("mars"))
}

func TestDefaultKeys(t *testing.T) {
	keys := DefaultKeys()
	require.Len(t, keys, 10)

	ks := NewKeySet(keys)
	assert.Equal(t, 10, ks.Len())
	assert.True(t, ks.Contains("us_market"))
	assert.True(t, ks.Contains("energy_infra"))
	assert.True(t, ks.Contains("india"))
}

func TestLoadKeySchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	data := `preference_keys:
  - us_market
  - vietnam
  - energy_infra
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	ks, err := LoadKeySchema(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"us_market", "vietnam", "energy_infra"}, ks.Keys())
}

func TestLoadKeySchemaErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadKeySchema(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("empty key list", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys.yaml")
		require.NoError(t, os.WriteFile(path, []byte("preference_keys: []\n"), 0o644))
		_, err := LoadKeySchema(path)
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keys.yaml")
		require.NoError(t, os.WriteFile(path, []byte("preference_keys: [unclosed\n"), 0o644))
		_, err := LoadKeySchema(path)
		assert.Error(t, err)
	})
}
