package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, CheckPassword("s3cret-password", hash))
	assert.False(t, CheckPassword("wrong-password", hash))
}

func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	assert.Len(t, id, 32)
	assert.NotContains(t, id, "-")
	assert.NotEqual(t, id, GenerateUUID())
}

func TestGenerateUploadFileName(t *testing.T) {
	name := GenerateUploadFileName("png")
	assert.True(t, strings.HasPrefix(name, "gen-"))
	assert.True(t, strings.HasSuffix(name, ".png"))
	assert.NotEqual(t, name, GenerateUploadFileName("png"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "hello", TruncateString("hello", 10))
	assert.Equal(t, "hello...", TruncateString("hello world", 8))
	assert.Equal(t, "hel", TruncateString("hello world", 3))
}
