package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec. It has no third-party
// dependency, which makes it the safe fallback when goccy/go-json is
// unavailable (e.g. under a restricted build).
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the codec used when no explicit Codec is configured.
var Default Codec = GoJSON{}
