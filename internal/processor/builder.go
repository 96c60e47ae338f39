package processor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/audiogated/audiogated/internal/params"
)

// defaultFormat is used when params.Format is absent (spec §3 "Artifact").
const defaultFormat = "mp3"

// mimeTypes maps output format to the response Content-Type (spec §6.4).
var mimeTypes = map[string]string{
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
	"opus": "audio/opus",
}

// MimeType derives the response Content-Type from the chosen output
// format, defaulting to audio/mpeg (spec §3).
func MimeType(p params.AudioProcessingParams) string {
	format := defaultFormat
	if p.Format != nil {
		format = *p.Format
	}
	if mt, ok := mimeTypes[format]; ok {
		return mt
	}
	return "audio/mpeg"
}

func outputFormat(p params.AudioProcessingParams) string {
	if p.Format != nil {
		return *p.Format
	}
	return defaultFormat
}

// BuildFilterGraph concatenates effect expressions in the fixed order
// mandated by spec §6.3, omitting absent fields. atempo is chained to
// cover speed factors outside ffmpeg's native [0.5, 2.0] single-filter
// range.
func BuildFilterGraph(p params.AudioProcessingParams) string {
	var parts []string

	if p.Reverse != nil && *p.Reverse {
		parts = append(parts, "areverse")
	}
	if p.Speed != nil {
		parts = append(parts, atempoChain(*p.Speed)...)
	}
	if p.Volume != nil {
		parts = append(parts, fmt.Sprintf("volume=%s", strconv.FormatFloat(*p.Volume, 'f', -1, 64)))
	}
	if p.Normalize != nil && *p.Normalize {
		target := -23.0
		if p.NormalizeLevel != nil {
			target = *p.NormalizeLevel
		}
		parts = append(parts, fmt.Sprintf("loudnorm=I=%s:TP=-1.5:LRA=11", strconv.FormatFloat(target, 'f', -1, 64)))
	}
	if p.Lowpass != nil {
		parts = append(parts, fmt.Sprintf("lowpass=f=%s", strconv.FormatFloat(*p.Lowpass, 'f', -1, 64)))
	}
	if p.Highpass != nil {
		parts = append(parts, fmt.Sprintf("highpass=f=%s", strconv.FormatFloat(*p.Highpass, 'f', -1, 64)))
	}
	if p.Bandpass != nil && *p.Bandpass != "" {
		parts = append(parts, fmt.Sprintf("bandpass=%s", *p.Bandpass))
	}
	if p.Bass != nil {
		parts = append(parts, fmt.Sprintf("bass=g=%s", strconv.FormatFloat(*p.Bass, 'f', -1, 64)))
	}
	if p.Treble != nil {
		parts = append(parts, fmt.Sprintf("treble=g=%s", strconv.FormatFloat(*p.Treble, 'f', -1, 64)))
	}
	if p.Echo != nil && *p.Echo != "" {
		parts = append(parts, fmt.Sprintf("aecho=%s", *p.Echo))
	}
	if p.Reverb != nil && *p.Reverb != "" {
		parts = append(parts, fmt.Sprintf("aecho=%s", *p.Reverb))
	}
	if p.Chorus != nil && *p.Chorus != "" {
		parts = append(parts, fmt.Sprintf("chorus=%s", *p.Chorus))
	}
	if p.Flanger != nil && *p.Flanger != "" {
		parts = append(parts, fmt.Sprintf("flanger=%s", *p.Flanger))
	}
	if p.Phaser != nil && *p.Phaser != "" {
		parts = append(parts, fmt.Sprintf("aphaser=%s", *p.Phaser))
	}
	if p.Tremolo != nil && *p.Tremolo != "" {
		parts = append(parts, fmt.Sprintf("tremolo=%s", *p.Tremolo))
	}
	if p.Compressor != nil && *p.Compressor != "" {
		parts = append(parts, fmt.Sprintf("acompressor=%s", *p.Compressor))
	}
	if p.NoiseReduction != nil && *p.NoiseReduction != "" {
		parts = append(parts, fmt.Sprintf("afftdn=%s", *p.NoiseReduction))
	}
	if p.FadeIn != nil {
		parts = append(parts, fmt.Sprintf("afade=t=in:ss=0:d=%s", strconv.FormatFloat(*p.FadeIn, 'f', -1, 64)))
	}
	if p.FadeOut != nil {
		parts = append(parts, fmt.Sprintf("afade=t=out:d=%s", strconv.FormatFloat(*p.FadeOut, 'f', -1, 64)))
	}
	if p.CrossFade != nil {
		parts = append(parts, fmt.Sprintf("acrossfade=d=%s", strconv.FormatFloat(*p.CrossFade, 'f', -1, 64)))
	}
	if p.CustomFilters != nil && *p.CustomFilters != "" {
		parts = append(parts, *p.CustomFilters)
	}

	return strings.Join(parts, ",")
}

// atempoChain decomposes a speed factor into a sequence of atempo stages
// each within ffmpeg's accepted [0.5, 2.0] range.
func atempoChain(speed float64) []string {
	var stages []string
	remaining := speed
	for remaining > 2.0 {
		stages = append(stages, "atempo=2.0")
		remaining /= 2.0
	}
	for remaining < 0.5 {
		stages = append(stages, "atempo=0.5")
		remaining /= 0.5
	}
	stages = append(stages, fmt.Sprintf("atempo=%s", strconv.FormatFloat(remaining, 'f', -1, 64)))
	return stages
}

// BuildArgs builds the ffmpeg argument vector for the given input/output
// paths and parameters (spec §6.3). No shell is involved; every argument
// is passed as a distinct vector element (spec §9 "Subprocess safety").
func BuildArgs(inputPath, outputPath string, p params.AudioProcessingParams) []string {
	args := []string{"-y", "-i", inputPath}

	if p.StartTime != nil {
		args = append(args, "-ss", strconv.FormatFloat(*p.StartTime, 'f', -1, 64))
	}
	if p.Duration != nil {
		args = append(args, "-t", strconv.FormatFloat(*p.Duration, 'f', -1, 64))
	}

	if graph := BuildFilterGraph(p); graph != "" {
		args = append(args, "-af", graph)
	}

	if p.SampleRate != nil {
		args = append(args, "-ar", strconv.Itoa(*p.SampleRate))
	}
	if p.Channels != nil {
		args = append(args, "-ac", strconv.Itoa(*p.Channels))
	}
	if p.BitRate != nil {
		args = append(args, "-b:a", fmt.Sprintf("%dk", *p.BitRate))
	}
	if p.Quality != nil {
		args = append(args, "-q:a", strconv.FormatFloat(*p.Quality, 'f', -1, 64))
	}
	if p.Codec != nil {
		args = append(args, "-c:a", *p.Codec)
	}
	if p.CompressionLevel != nil {
		args = append(args, "-compression_level", strconv.Itoa(*p.CompressionLevel))
	}

	for k, v := range p.Tags {
		args = append(args, "-metadata", fmt.Sprintf("%s=%s", k, v))
	}
	if p.CustomOptions != nil && len(*p.CustomOptions) > 0 {
		args = append(args, strings.Fields(*p.CustomOptions)...)
	}

	args = append(args, outputPath)
	return args
}
