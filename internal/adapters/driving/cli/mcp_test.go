package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMCPCmd_Structure(t *testing.T) {
	assert.Equal(t, "mcp", mcpCmd.Use)

	var serve bool
	for _, c := range mcpCmd.Commands() {
		if c.Name() == "serve" {
			serve = true
		}
	}
	assert.True(t, serve)
}

func TestMCPServeCmd_PortFlag(t *testing.T) {
	flag := mcpServeCmd.Flags().Lookup("port")
	require.NotNil(t, flag)
	assert.Equal(t, "p", flag.Shorthand)
	assert.Equal(t, "0", flag.DefValue)
}

func TestMCPServeCmd_EngineError(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil, nil)

	_, err := execute(t, "mcp", "serve")

	assert.ErrorIs(t, err, errNotConfigured)
}
