//go:build jsonv2

package jsoncompat

import json "encoding/json/v2"

// Marshal encodes cached values with encoding/json/v2, selected by the
// jsonv2 build tag.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes cached values with encoding/json/v2.
func Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
