package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiogated/audiogated/internal/params"
)

func TestCompute_Stable(t *testing.T) {
	p, err := params.Parse(map[string][]string{"volume": {"1"}}, params.Options{})
	require.NoError(t, err)

	f1 := Compute("song.mp3", p)
	f2 := Compute("song.mp3", p)
	assert.Equal(t, f1, f2)
}

func TestCompute_OrderIndependent(t *testing.T) {
	p1, err := params.Parse(map[string][]string{"volume": {"1"}, "bass": {"2"}}, params.Options{})
	require.NoError(t, err)
	p2, err := params.Parse(map[string][]string{"bass": {"2"}, "volume": {"1"}}, params.Options{})
	require.NoError(t, err)

	assert.Equal(t, Compute("song.mp3", p1), Compute("song.mp3", p2))
}

func TestCompute_DifferentParamsDifferentFingerprint(t *testing.T) {
	p1, err := params.Parse(map[string][]string{"volume": {"1"}}, params.Options{})
	require.NoError(t, err)
	p2, err := params.Parse(map[string][]string{"volume": {"2"}}, params.Options{})
	require.NoError(t, err)

	assert.NotEqual(t, Compute("song.mp3", p1), Compute("song.mp3", p2))
}

func TestCompute_AbsentVsDefaultDiffer(t *testing.T) {
	p1, err := params.Parse(map[string][]string{}, params.Options{})
	require.NoError(t, err)
	p2, err := params.Parse(map[string][]string{"volume": {"0"}}, params.Options{})
	require.NoError(t, err)

	assert.NotEqual(t, Compute("song.mp3", p1), Compute("song.mp3", p2))
}

func TestNormalizeSourceURI_LowercasesSchemeAndHost(t *testing.T) {
	got := NormalizeSourceURI("HTTP://Example.COM/a.mp3")
	assert.Equal(t, "http://example.com/a.mp3", got)
}

func TestNormalizeSourceURI_PercentDecodesLocalPath(t *testing.T) {
	got := NormalizeSourceURI("a%20b.mp3")
	assert.Equal(t, "a b.mp3", got)
}
