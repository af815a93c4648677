package codec

import (
	"encoding/json"
)

// JSON is the standard-library JSON codec.
//
// Float64 values round-trip exactly: encoding/json emits the shortest
// representation that parses back to the identical bit pattern, which the
// centre-file round-trip guarantees rely on.
type JSON struct{}

// Marshal encodes the value to JSON.
func (JSON) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes the JSON data into v.
func (JSON) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// Name returns the unique name of the codec ("json").
func (JSON) Name() string { return "json" }

// Default is the default codec used by the library.
//
// Persisted centre files are self-describing (they store the codec name in
// their header) and are opened by selecting the appropriate codec by name.
var Default Codec = JSON{}
