package urlgrammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ProcessMode(t *testing.T) {
	pr, err := Parse(false, "/abc123/song.mp3", "volume=1")
	require.NoError(t, err)
	assert.Equal(t, ModeProcess, pr.Mode)
	assert.Equal(t, "abc123", pr.Signature)
	assert.Equal(t, "song.mp3", pr.SourceURIRaw)
	assert.Equal(t, []string{"1"}, pr.Query["volume"])
}

func TestParse_PreviewMode(t *testing.T) {
	pr, err := Parse(true, "/abc123/song.mp3", "")
	require.NoError(t, err)
	assert.Equal(t, ModePreview, pr.Mode)
}

func TestParse_MissingAudioURI(t *testing.T) {
	_, err := Parse(false, "/abc123", "")
	require.Error(t, err)
}

func TestParse_EmptySignature(t *testing.T) {
	_, err := Parse(false, "//song.mp3", "")
	require.Error(t, err)
}

func TestParse_PercentEncodedAudioURI(t *testing.T) {
	pr, err := Parse(false, "/abc123/https%3A%2F%2Fexample.com%2Fa.mp3", "")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/a.mp3", pr.SourceURIRaw)
}

func TestIsUnsafe(t *testing.T) {
	assert.True(t, IsUnsafe("unsafe"))
	assert.False(t, IsUnsafe("abc123"))
}

func TestParse_MalformedQuery(t *testing.T) {
	_, err := Parse(false, "/sig/uri", "%zz")
	require.Error(t, err)
}
