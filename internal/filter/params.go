package filter

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
	"unicode/utf8"
)

// BlurParams configures BoxBlur.
type BlurParams struct {
	// Radius is the half-width of the square neighbourhood.
	Radius uint32 `json:"radius"`

	// Iterations is the number of sequential passes.
	Iterations uint32 `json:"iterations"`
}

// DefaultBlurParams is used whenever blur configuration cannot be decoded.
func DefaultBlurParams() BlurParams {
	return BlurParams{Radius: 1, Iterations: 1}
}

// MirrorParams configures Mirror.
type MirrorParams struct {
	Horizontal bool `json:"horizontal"`
	Vertical   bool `json:"vertical"`
}

// DefaultMirrorParams is used whenever mirror configuration cannot be decoded.
func DefaultMirrorParams() MirrorParams {
	return MirrorParams{}
}

// DecodeBlurParams decodes blur configuration text. Both fields are required;
// on any failure the whole default record is returned.
func DecodeBlurParams(text string) BlurParams {
	obj, ok := decodeObject(text, "radius", "iterations")
	if !ok {
		return DefaultBlurParams()
	}
	radius, ok := field[uint32](obj, "radius")
	if !ok {
		return DefaultBlurParams()
	}
	iterations, ok := field[uint32](obj, "iterations")
	if !ok {
		return DefaultBlurParams()
	}
	return BlurParams{Radius: radius, Iterations: iterations}
}

// DecodeMirrorParams decodes mirror configuration text. Both fields are
// required; on any failure the whole default record is returned.
func DecodeMirrorParams(text string) MirrorParams {
	obj, ok := decodeObject(text, "horizontal", "vertical")
	if !ok {
		return DefaultMirrorParams()
	}
	horizontal, ok := field[bool](obj, "horizontal")
	if !ok {
		return DefaultMirrorParams()
	}
	vertical, ok := field[bool](obj, "vertical")
	if !ok {
		return DefaultMirrorParams()
	}
	return MirrorParams{Horizontal: horizontal, Vertical: vertical}
}

// decodeObject parses text as a JSON object. Blank text is an empty object.
// Keys are kept verbatim so lookups are case-sensitive, unlike struct decoding
// in encoding/json. An object naming any of fields more than once is rejected;
// repeats of other keys are ignored along with the keys themselves.
func decodeObject(text string, fields ...string) (map[string]json.RawMessage, bool) {
	if strings.TrimSpace(text) == "" {
		return map[string]json.RawMessage{}, true
	}
	if !utf8.ValidString(text) {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, false
	}
	// A literal null decodes without error into a nil map.
	if obj == nil {
		return map[string]json.RawMessage{}, true
	}
	if repeatsField(text, fields) {
		return nil, false
	}
	return obj, true
}

// repeatsField walks the top-level keys of an object already known to be
// valid JSON and reports whether any of fields occurs twice. Unmarshalling
// into a map keeps only the last value, so this needs the token stream.
func repeatsField(text string, fields []string) bool {
	dec := json.NewDecoder(strings.NewReader(text))
	if _, err := dec.Token(); err != nil {
		return true
	}
	seen := make(map[string]bool, len(fields))
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return true
		}
		key, _ := tok.(string)
		if slices.Contains(fields, key) {
			if seen[key] {
				return true
			}
			seen[key] = true
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return true
		}
	}
	return false
}

// field decodes obj[key] into T. Absent keys, null values and type mismatches
// (including out-of-range numbers) all report false.
func field[T any](obj map[string]json.RawMessage, key string) (T, bool) {
	var v T
	raw, ok := obj[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return v, false
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, false
	}
	return v, true
}
