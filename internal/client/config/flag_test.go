package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	// Test cases
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{name: "Test1 OK", args: []string{"-a", "127.0.0.1:9090", "-t", "tok", "-w", "10", "claim", "starter"}, expectPanic: false,
			expected: &Config{ServerEndpointAddr: "127.0.0.1:9090", AccessToken: "tok", RequestTimeout: 10 * time.Second}},
		{name: "Test2 incorrect timeout", args: []string{"-a", "127.0.0.1:9090", "-w", "abc"}, expectPanic: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := &Config{}

			if !tt.expectPanic {

				require.NotPanics(t, func() { parseFlags(config, tt.args) })
				assert.Empty(t, cmp.Diff(config, tt.expected))
			} else {
				require.Panics(t, func() { parseFlags(config, tt.args) })
			}
		})
	}
}
