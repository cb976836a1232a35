package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "127.0.0.1:50051", c.ServerEndpointAddr)
	assert.Equal(t, 5*time.Second, c.RequestTimeout)
	assert.Empty(t, c.AccessToken)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfigFrom([]string{"claim", "starter"})

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "127.0.0.1:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}

func TestLoadConfigFrom_FlagsOverrideJSON(t *testing.T) {
	path := writeTempJSON(t, "", "", map[string]any{
		"server_endpoint_addr": "kits.example:50051",
		"access_token":         "from-file",
	})

	cfg := LoadConfigFrom([]string{"-c", path, "-t", "from-flag", "list"})

	assert.Equal(t, "kits.example:50051", cfg.ServerEndpointAddr)
	assert.Equal(t, "from-flag", cfg.AccessToken)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
}
