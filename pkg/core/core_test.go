package core

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentity(t *testing.T) {
	assert.Equal(t, "json-db-collection", Name())
	assert.Equal(t, "0.0.1", Version())
}

func TestGetLogWriter(t *testing.T) {
	t.Setenv("MCP_DISABLE_LOGGING", "")
	assert.False(t, IsLoggingDisabled())
	assert.Equal(t, os.Stderr, GetLogWriter())

	t.Setenv("MCP_DISABLE_LOGGING", "TRUE")
	assert.True(t, IsLoggingDisabled())
	assert.Equal(t, io.Discard, GetLogWriter())

	t.Setenv("MCP_DISABLE_LOGGING", "1")
	assert.True(t, IsLoggingDisabled())
}
