package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/audiogated/audiogated/internal/params"
)

func ptr[T any](v T) *T { return &v }

func TestBuildFilterGraph_Order(t *testing.T) {
	p := params.AudioProcessingParams{
		Reverse: ptr(true),
		Volume:  ptr(0.5),
		Lowpass: ptr(3000.0),
		Bass:    ptr(2.0),
		Echo:    ptr("0.8:0.9:1000:0.3"),
	}
	graph := BuildFilterGraph(p)
	assert.Equal(t, "areverse,volume=0.5,lowpass=f=3000,bass=g=2,aecho=0.8:0.9:1000:0.3", graph)
}

func TestBuildFilterGraph_EmptyWhenNoParams(t *testing.T) {
	assert.Equal(t, "", BuildFilterGraph(params.AudioProcessingParams{}))
}

func TestAtempoChain_WithinRangeIsSingleStage(t *testing.T) {
	stages := atempoChain(1.5)
	assert.Equal(t, []string{"atempo=1.5"}, stages)
}

func TestAtempoChain_AboveRangeChains(t *testing.T) {
	stages := atempoChain(4.0)
	assert.Equal(t, []string{"atempo=2.0", "atempo=2"}, stages)
}

func TestAtempoChain_BelowRangeChains(t *testing.T) {
	stages := atempoChain(0.25)
	assert.Equal(t, []string{"atempo=0.5", "atempo=0.5"}, stages)
}

func TestMimeType_DefaultsToMP3(t *testing.T) {
	assert.Equal(t, "audio/mpeg", MimeType(params.AudioProcessingParams{}))
}

func TestMimeType_RespectsFormat(t *testing.T) {
	p := params.AudioProcessingParams{Format: ptr("flac")}
	assert.Equal(t, "audio/flac", MimeType(p))
}

func TestBuildArgs_FilterGraphAndOutputAreSeparateElements(t *testing.T) {
	p := params.AudioProcessingParams{Volume: ptr(1.0)}
	args := BuildArgs("/tmp/in.mp3", "/tmp/out.mp3", p)
	assert.Contains(t, args, "-af")
	assert.Contains(t, args, "/tmp/out.mp3")
}

func TestBuildArgs_CustomOptionsAreSplitAndAppended(t *testing.T) {
	p := params.AudioProcessingParams{CustomOptions: ptr("-ar 44100 -ac 2")}
	args := BuildArgs("/tmp/in.mp3", "/tmp/out.mp3", p)
	assert.Contains(t, args, "-ar")
	assert.Contains(t, args, "44100")
	assert.Contains(t, args, "-ac")
	assert.Contains(t, args, "2")
}

func TestBuildArgs_NilCustomOptionsAddsNothing(t *testing.T) {
	p := params.AudioProcessingParams{}
	args := BuildArgs("/tmp/in.mp3", "/tmp/out.mp3", p)
	assert.NotContains(t, args, "-ar")
}

func TestBuildArgs_EmptyCustomOptionsAddsNothing(t *testing.T) {
	withEmpty := BuildArgs("/tmp/in.mp3", "/tmp/out.mp3", params.AudioProcessingParams{CustomOptions: ptr("")})
	withNil := BuildArgs("/tmp/in.mp3", "/tmp/out.mp3", params.AudioProcessingParams{})
	assert.Equal(t, withNil, withEmpty)
}
