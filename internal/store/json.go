package store

import "encoding/json"

// marshalJSON encodes v for a TEXT column, falling back to the JSON empty
// array so columns stay queryable.
func marshalJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// unmarshalJSON decodes a TEXT column into out, tolerating empty columns.
func unmarshalJSON(raw string, out any) {
	if raw == "" {
		return
	}
	_ = json.Unmarshal([]byte(raw), out)
}
