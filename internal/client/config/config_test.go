package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c := Config{ServerEndpointAddr: "stale", AccessToken: "stale"}
	c.LoadDefaults()

	assert.Equal(t, Config{ServerEndpointAddr: "127.0.0.1:50051", RequestTimeout: 10 * time.Second}, c)
}

func TestLoadConfig_Precedence(t *testing.T) {
	orig := os.Args
	t.Cleanup(func() { os.Args = orig })

	path := filepath.Join(t.TempDir(), "cli.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"server_endpoint_addr":"json:1","access_token":"from-json","request_timeout":"3s"}`), 0o600))

	os.Args = []string{"cli", "-c", path, "-t", "from-flag"}
	cfg := LoadConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "json:1", cfg.ServerEndpointAddr)
	assert.Equal(t, "from-flag", cfg.AccessToken)
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
}
