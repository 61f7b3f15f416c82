package diag

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_WithoutAuditPathSucceeds(t *testing.T) {
	logger, closer, err := NewLogger(false, "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	assert.NoError(t, closer())
}

func TestNewLogger_WritesJSONAuditFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	logger, closer, err := NewLogger(true, path)
	require.NoError(t, err)

	logger.Info("hello", "key", "value")
	require.NoError(t, closer())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
	assert.Contains(t, string(data), "value")
}

func TestNewLogger_InvalidAuditPathErrors(t *testing.T) {
	_, _, err := NewLogger(false, filepath.Join(t.TempDir(), "no-such-dir", "audit.log"))
	require.Error(t, err)
}

func TestDiscard_NeverPanics(t *testing.T) {
	logger := Discard()
	assert.NotPanics(t, func() { logger.Info("swallowed") })
}
