// Package params implements the canonical AudioProcessingParams model and
// its parsing from raw URL query pairs (spec §3, §4.3).
package params

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/audiogated/audiogated/internal/apierr"
)

// AudioProcessingParams is a closed record of optional typed fields.
// A field is present only when its source query key appeared and parsed
// successfully; absent-vs-default is semantically distinct per spec §3.
type AudioProcessingParams struct {
	// Format/encoding
	Format           *string  `param:"format" json:"format,omitempty"`
	Codec            *string  `param:"codec" json:"codec,omitempty"`
	SampleRate       *int     `param:"sample_rate" json:"sample_rate,omitempty"`
	Channels         *int     `param:"channels" json:"channels,omitempty"`
	BitRate          *int     `param:"bit_rate" json:"bit_rate,omitempty"`
	BitDepth         *int     `param:"bit_depth" json:"bit_depth,omitempty"`
	Quality          *float64 `param:"quality" json:"quality,omitempty"`
	CompressionLevel *int     `param:"compression_level" json:"compression_level,omitempty"`

	// Time
	StartTime *float64 `param:"start_time" json:"start_time,omitempty"`
	Duration  *float64 `param:"duration" json:"duration,omitempty"`
	Speed     *float64 `param:"speed" json:"speed,omitempty"`
	Reverse   *bool    `param:"reverse" json:"reverse,omitempty"`

	// Volume
	Volume         *float64 `param:"volume" json:"volume,omitempty"`
	Normalize      *bool    `param:"normalize" json:"normalize,omitempty"`
	NormalizeLevel *float64 `param:"normalize_level" json:"normalize_level,omitempty"`

	// Filters
	Lowpass  *float64 `param:"lowpass" json:"lowpass,omitempty"`
	Highpass *float64 `param:"highpass" json:"highpass,omitempty"`
	Bass     *float64 `param:"bass" json:"bass,omitempty"`
	Treble   *float64 `param:"treble" json:"treble,omitempty"`
	Bandpass *string  `param:"bandpass" json:"bandpass,omitempty"`

	// Effects
	Echo           *string `param:"echo" json:"echo,omitempty"`
	Reverb         *string `param:"reverb" json:"reverb,omitempty"`
	Chorus         *string `param:"chorus" json:"chorus,omitempty"`
	Flanger        *string `param:"flanger" json:"flanger,omitempty"`
	Phaser         *string `param:"phaser" json:"phaser,omitempty"`
	Tremolo        *string `param:"tremolo" json:"tremolo,omitempty"`
	Compressor     *string `param:"compressor" json:"compressor,omitempty"`
	NoiseReduction *string `param:"noise_reduction" json:"noise_reduction,omitempty"`

	// Fades
	FadeIn    *float64 `param:"fade_in" json:"fade_in,omitempty"`
	FadeOut   *float64 `param:"fade_out" json:"fade_out,omitempty"`
	CrossFade *float64 `param:"cross_fade" json:"cross_fade,omitempty"`

	// Advanced
	CustomFilters *string           `param:"custom_filters" json:"custom_filters,omitempty"`
	CustomOptions *string           `param:"custom_options" json:"custom_options,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// effectFieldNames lists the keys counted against processor.max_filter_ops
// (spec §4.3): filters + effects (not format/time/volume/fade/advanced).
var effectFieldNames = []string{
	"lowpass", "highpass", "bass", "treble", "bandpass",
	"echo", "reverb", "chorus", "flanger", "phaser", "tremolo",
	"compressor", "noise_reduction",
}

// Options carries the operator configuration that affects parsing.
type Options struct {
	DisabledFilters map[string]bool
	MaxFilterOps    int
}

const tagKeyPrefix = "tag_"

// Parse converts raw query pairs into a validated AudioProcessingParams.
// Unknown keys are ignored for forward compatibility (spec §4.3).
func Parse(query map[string][]string, opts Options) (AudioProcessingParams, error) {
	var p AudioProcessingParams
	p.Tags = map[string]string{}

	get := func(key string) (string, bool) {
		vs, ok := query[key]
		if !ok || len(vs) == 0 {
			return "", false
		}
		return vs[0], true
	}

	parseFloat := func(key string) (*float64, error) {
		v, ok := get(key)
		if !ok {
			return nil, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, apierr.New(apierr.KindBadRequest, "malformed numeric parameter").WithField(key)
		}
		return &f, nil
	}
	parseInt := func(key string) (*int, error) {
		v, ok := get(key)
		if !ok {
			return nil, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, apierr.New(apierr.KindBadRequest, "malformed integer parameter").WithField(key)
		}
		return &n, nil
	}
	parseBool := func(key string) (*bool, error) {
		v, ok := get(key)
		if !ok {
			return nil, nil
		}
		switch v {
		case "true", "1":
			b := true
			return &b, nil
		case "false", "0":
			b := false
			return &b, nil
		default:
			return nil, apierr.New(apierr.KindBadRequest, "malformed boolean parameter").WithField(key)
		}
	}
	parseStr := func(key string) *string {
		v, ok := get(key)
		if !ok {
			return nil
		}
		return &v
	}

	var err error
	p.Format = parseStr("format")
	p.Codec = parseStr("codec")
	if p.SampleRate, err = parseInt("sample_rate"); err != nil {
		return p, err
	}
	if p.SampleRate != nil && *p.SampleRate <= 0 {
		return p, apierr.New(apierr.KindBadRequest, "sample_rate must be positive").WithField("sample_rate")
	}
	if p.Channels, err = parseInt("channels"); err != nil {
		return p, err
	}
	if p.Channels != nil && (*p.Channels < 1 || *p.Channels > 8) {
		return p, apierr.New(apierr.KindBadRequest, "channels must be in 1..8").WithField("channels")
	}
	if p.BitRate, err = parseInt("bit_rate"); err != nil {
		return p, err
	}
	if p.BitDepth, err = parseInt("bit_depth"); err != nil {
		return p, err
	}
	if p.Quality, err = parseFloat("quality"); err != nil {
		return p, err
	}
	if p.Quality != nil && (*p.Quality < 0.0 || *p.Quality > 1.0) {
		return p, apierr.New(apierr.KindBadRequest, "quality must be in 0.0..1.0").WithField("quality")
	}
	if p.CompressionLevel, err = parseInt("compression_level"); err != nil {
		return p, err
	}

	if p.StartTime, err = parseFloat("start_time"); err != nil {
		return p, err
	}
	if p.StartTime != nil && *p.StartTime < 0 {
		return p, apierr.New(apierr.KindBadRequest, "start_time must be >= 0").WithField("start_time")
	}
	if p.Duration, err = parseFloat("duration"); err != nil {
		return p, err
	}
	if p.Duration != nil && *p.Duration <= 0 {
		return p, apierr.New(apierr.KindBadRequest, "duration must be > 0").WithField("duration")
	}
	if p.Speed, err = parseFloat("speed"); err != nil {
		return p, err
	}
	if p.Speed != nil && *p.Speed <= 0 {
		return p, apierr.New(apierr.KindBadRequest, "speed must be > 0").WithField("speed")
	}
	if p.Reverse, err = parseBool("reverse"); err != nil {
		return p, err
	}

	if p.Volume, err = parseFloat("volume"); err != nil {
		return p, err
	}
	if p.Volume != nil && *p.Volume < 0 {
		return p, apierr.New(apierr.KindBadRequest, "volume must be >= 0").WithField("volume")
	}
	if p.Normalize, err = parseBool("normalize"); err != nil {
		return p, err
	}
	if p.NormalizeLevel, err = parseFloat("normalize_level"); err != nil {
		return p, err
	}

	if p.Lowpass, err = parseFloat("lowpass"); err != nil {
		return p, err
	}
	if p.Lowpass != nil && *p.Lowpass <= 0 {
		return p, apierr.New(apierr.KindBadRequest, "lowpass must be > 0").WithField("lowpass")
	}
	if p.Highpass, err = parseFloat("highpass"); err != nil {
		return p, err
	}
	if p.Highpass != nil && *p.Highpass <= 0 {
		return p, apierr.New(apierr.KindBadRequest, "highpass must be > 0").WithField("highpass")
	}
	if p.Bass, err = parseFloat("bass"); err != nil {
		return p, err
	}
	if p.Treble, err = parseFloat("treble"); err != nil {
		return p, err
	}
	p.Bandpass = parseStr("bandpass")

	p.Echo = parseStr("echo")
	p.Reverb = parseStr("reverb")
	p.Chorus = parseStr("chorus")
	p.Flanger = parseStr("flanger")
	p.Phaser = parseStr("phaser")
	p.Tremolo = parseStr("tremolo")
	p.Compressor = parseStr("compressor")
	p.NoiseReduction = parseStr("noise_reduction")

	if p.FadeIn, err = parseFloat("fade_in"); err != nil {
		return p, err
	}
	if p.FadeIn != nil && *p.FadeIn < 0 {
		return p, apierr.New(apierr.KindBadRequest, "fade_in must be >= 0").WithField("fade_in")
	}
	if p.FadeOut, err = parseFloat("fade_out"); err != nil {
		return p, err
	}
	if p.FadeOut != nil && *p.FadeOut < 0 {
		return p, apierr.New(apierr.KindBadRequest, "fade_out must be >= 0").WithField("fade_out")
	}
	if p.CrossFade, err = parseFloat("cross_fade"); err != nil {
		return p, err
	}
	if p.CrossFade != nil && *p.CrossFade < 0 {
		return p, apierr.New(apierr.KindBadRequest, "cross_fade must be >= 0").WithField("cross_fade")
	}

	p.CustomFilters = parseStr("custom_filters")
	if p.CustomFilters != nil {
		if err := validateCustomFilters(*p.CustomFilters); err != nil {
			return p, err
		}
	}
	p.CustomOptions = parseStr("custom_options")

	for key, vs := range query {
		if strings.HasPrefix(key, tagKeyPrefix) && len(vs) > 0 {
			p.Tags[strings.TrimPrefix(key, tagKeyPrefix)] = vs[0]
		}
	}

	if err := checkDisabledFilters(p, opts.DisabledFilters); err != nil {
		return p, err
	}
	if err := checkMaxFilterOps(p, opts.MaxFilterOps); err != nil {
		return p, err
	}

	return p, nil
}

// shellMetacharacters is the allow-list complement checked against
// custom_filters text (spec §6.3, §9 "Subprocess safety").
const shellMetacharacters = ";|&$`\\\"'<>\n"

func validateCustomFilters(s string) error {
	if strings.ContainsAny(s, shellMetacharacters) {
		return apierr.New(apierr.KindBadRequest, "custom_filters contains disallowed characters").WithField("custom_filters")
	}
	return nil
}

// namedEffectFields returns the set of effect/filter field names present on p.
func namedEffectFields(p AudioProcessingParams) []string {
	var present []string
	check := func(name string, has bool) {
		if has {
			present = append(present, name)
		}
	}
	check("lowpass", p.Lowpass != nil)
	check("highpass", p.Highpass != nil)
	check("bass", p.Bass != nil)
	check("treble", p.Treble != nil)
	check("bandpass", p.Bandpass != nil)
	check("echo", p.Echo != nil)
	check("reverb", p.Reverb != nil)
	check("chorus", p.Chorus != nil)
	check("flanger", p.Flanger != nil)
	check("phaser", p.Phaser != nil)
	check("tremolo", p.Tremolo != nil)
	check("compressor", p.Compressor != nil)
	check("noise_reduction", p.NoiseReduction != nil)
	return present
}

func checkDisabledFilters(p AudioProcessingParams, disabled map[string]bool) error {
	if len(disabled) == 0 {
		return nil
	}
	for _, name := range namedEffectFields(p) {
		if disabled[name] {
			return apierr.Newf(apierr.KindBadRequest, "filter disabled: %s", name).WithField(name)
		}
	}
	return nil
}

func checkMaxFilterOps(p AudioProcessingParams, max int) error {
	if max <= 0 {
		return nil
	}
	if n := len(namedEffectFields(p)); n > max {
		return apierr.Newf(apierr.KindBadRequest, "too many filter operations: %d > %d", n, max)
	}
	return nil
}

// SortedPairs renders the present fields as (name, value) pairs in
// lexicographic field-name order, with values in fixed textual form
// (spec §3 "Fingerprint", §4.4). Used for both signing and fingerprinting.
func SortedPairs(uri string, p AudioProcessingParams) []string {
	pairs := map[string]string{}

	addFloat := func(name string, v *float64) {
		if v != nil {
			pairs[name] = strconv.FormatFloat(*v, 'f', 6, 64)
		}
	}
	addInt := func(name string, v *int) {
		if v != nil {
			pairs[name] = strconv.Itoa(*v)
		}
	}
	addBool := func(name string, v *bool) {
		if v != nil {
			pairs[name] = strconv.FormatBool(*v)
		}
	}
	addStr := func(name string, v *string) {
		if v != nil {
			pairs[name] = *v
		}
	}

	addStr("format", p.Format)
	addStr("codec", p.Codec)
	addInt("sample_rate", p.SampleRate)
	addInt("channels", p.Channels)
	addInt("bit_rate", p.BitRate)
	addInt("bit_depth", p.BitDepth)
	addFloat("quality", p.Quality)
	addInt("compression_level", p.CompressionLevel)

	addFloat("start_time", p.StartTime)
	addFloat("duration", p.Duration)
	addFloat("speed", p.Speed)
	addBool("reverse", p.Reverse)

	addFloat("volume", p.Volume)
	addBool("normalize", p.Normalize)
	addFloat("normalize_level", p.NormalizeLevel)

	addFloat("lowpass", p.Lowpass)
	addFloat("highpass", p.Highpass)
	addFloat("bass", p.Bass)
	addFloat("treble", p.Treble)
	addStr("bandpass", p.Bandpass)

	addStr("echo", p.Echo)
	addStr("reverb", p.Reverb)
	addStr("chorus", p.Chorus)
	addStr("flanger", p.Flanger)
	addStr("phaser", p.Phaser)
	addStr("tremolo", p.Tremolo)
	addStr("compressor", p.Compressor)
	addStr("noise_reduction", p.NoiseReduction)

	addFloat("fade_in", p.FadeIn)
	addFloat("fade_out", p.FadeOut)
	addFloat("cross_fade", p.CrossFade)

	addStr("custom_filters", p.CustomFilters)
	addStr("custom_options", p.CustomOptions)

	if len(p.Tags) > 0 {
		keys := make([]string, 0, len(p.Tags))
		for k := range p.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(p.Tags[k])
		}
		pairs["tags"] = b.String()
	}

	names := make([]string, 0, len(pairs))
	for name := range pairs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, fmt.Sprintf("%s=%s", name, pairs[name]))
	}
	return out
}

// Canonical renders the canonical string used for signing and
// fingerprinting (spec §6.1): "<uri>?<sorted-param-pairs>".
func Canonical(uri string, p AudioProcessingParams) string {
	pairs := SortedPairs(uri, p)
	if len(pairs) == 0 {
		return uri
	}
	return uri + "?" + strings.Join(pairs, "&")
}
