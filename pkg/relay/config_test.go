package relay

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadAdapterConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("Valid", func(t *testing.T) {
		path := filepath.Join(dir, "valid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("username: me@example.com\npassword: hunter2\nplantoid: abc-123\ninterval: 30\n"), 0o600))

		cfg, err := LoadAdapterConfig(path)
		require.NoError(t, err)
		assert.Equal(t, AdapterConfig{
			Username: "me@example.com",
			Password: "hunter2",
			PlantOID: "abc-123",
			Interval: 30,
		}, cfg)
	})

	t.Run("Missing File", func(t *testing.T) {
		_, err := LoadAdapterConfig(filepath.Join(dir, "missing.yaml"))
		assert.Error(t, err)
	})

	t.Run("Invalid YAML", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		require.NoError(t, os.WriteFile(path, []byte("interval: [not a number\n"), 0o600))
		_, err := LoadAdapterConfig(path)
		assert.Error(t, err)
	})
}

func TestAdapterConfigMerge(t *testing.T) {
	file := AdapterConfig{
		Username: "file-user",
		Password: "file-pass",
		PlantOID: "file-plant",
		Interval: 60,
	}

	t.Run("Flags Win", func(t *testing.T) {
		cfg := AdapterConfig{Username: "flag-user", Interval: 20}.merge(file)
		assert.Equal(t, AdapterConfig{
			Username: "flag-user",
			Password: "file-pass",
			PlantOID: "file-plant",
			Interval: 20,
		}, cfg)
	})

	t.Run("Empty Flags", func(t *testing.T) {
		assert.Equal(t, file, AdapterConfig{}.merge(file))
	})
}

func TestNewRelay(t *testing.T) {
	r := New(nil, nil, AdapterConfig{
		Username: "user",
		Password: "pass",
		PlantOID: "plant",
		Interval: 45,
	}, "sunnyportal.1")
	assert.Equal(t, "sunnyportal.1", r.Namespace())
	assert.Equal(t, "sunnyportal.1.errors.0", r.stateID("errors.0"))
	assert.Equal(t, "plant", r.creds.PlantOID)
	assert.Equal(t, 45*time.Second, r.Interval())
	assert.Equal(t, RetryDelay, r.retryDelay)
}
