package osutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests modify the process environment and must not run in parallel.

func TestEnvVarString(t *testing.T) {
	t.Setenv("DAPMIRROR_TEST_STRING", "  value ")
	val, found := EnvVarString("DAPMIRROR_TEST_STRING")
	assert.True(t, found)
	assert.Equal(t, "value", val)

	t.Setenv("DAPMIRROR_TEST_STRING", "   ")
	_, found = EnvVarString("DAPMIRROR_TEST_STRING")
	assert.False(t, found)
}

func TestEnvVarIntVal(t *testing.T) {
	t.Setenv("DAPMIRROR_TEST_INT", "3")
	val, found, err := EnvVarIntVal("DAPMIRROR_TEST_INT")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 3, val)

	t.Setenv("DAPMIRROR_TEST_INT", "three")
	_, found, err = EnvVarIntVal("DAPMIRROR_TEST_INT")
	assert.True(t, found)
	assert.Error(t, err)

	_, found, err = EnvVarIntVal("DAPMIRROR_TEST_INT_NOT_SET")
	assert.False(t, found)
	assert.NoError(t, err)
}

func TestEnvVarDurationVal(t *testing.T) {
	t.Setenv("DAPMIRROR_TEST_DURATION", "1m30s")
	val, found, err := EnvVarDurationVal("DAPMIRROR_TEST_DURATION")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 90*time.Second, val)

	t.Setenv("DAPMIRROR_TEST_DURATION", "90")
	_, _, err = EnvVarDurationVal("DAPMIRROR_TEST_DURATION")
	assert.Error(t, err)
}

func TestEnvVarStringSlice(t *testing.T) {
	t.Setenv("DAPMIRROR_TEST_SLICE", "panic, ,uncaught,")
	val, found := EnvVarStringSlice("DAPMIRROR_TEST_SLICE")
	assert.True(t, found)
	assert.Equal(t, []string{"panic", "uncaught"}, val)
}

func TestWithNewline(t *testing.T) {
	t.Parallel()

	original := []byte("line")
	withNewline := WithNewline(original)
	assert.Equal(t, "line", string(original))
	assert.Equal(t, "line"+string(LineSep()), string(withNewline))
}
