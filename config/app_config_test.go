package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("difficulty: 3\ntime_limit: 80\npeers:\n  - localhost:5001\nreport_interval: 2s\n")
	require.NoError(t, ioutil.WriteFile(path, data, 0644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.DIFFICULTY)
	assert.Equal(t, 80, c.TIME_LIMIT)
	assert.Equal(t, []string{"localhost:5001"}, c.PEERS)
	assert.Equal(t, 2*time.Second, c.REPORT_INTERVAL)
	// Untouched fields keep their defaults.
	assert.Equal(t, 20, c.STATIC_WAIT_MIN)
	assert.Equal(t, "csv", c.SINK)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Default().Validate())

	c := Default()
	c.STATIC_WAIT_MIN = 200
	assert.Error(t, c.Validate())

	c = Default()
	c.DIFFICULTY = 65
	assert.Error(t, c.Validate())

	c = Default()
	c.REPORT_INTERVAL = 0
	assert.Error(t, c.Validate())
}

func TestGenesisHash(t *testing.T) {
	assert.Len(t, GenesisHash, 64)
	assert.Equal(t, "0000000000000000000000000000000000000000000000000000000000000000", GenesisHash)
}
