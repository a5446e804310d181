//go:build !jsonv2

package jsoncompat

import "encoding/json"

// Marshal encodes cached values with encoding/json.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }

// Unmarshal decodes cached values with encoding/json.
func Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
