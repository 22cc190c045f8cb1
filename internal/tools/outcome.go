package tools

import (
	"encoding/json"
	"fmt"
)

// Outcome is the result of one operation execution. It is always one
// of two shapes: success with a structured payload, or failure with a
// human-readable reason the model can relay or self-correct from.
// Nothing escapes the executor as a panic or raw error.
type Outcome struct {
	Success bool           `json:"success"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// JSON renders the outcome for delivery as a tool result. Encoding an
// Outcome cannot fail in practice; a marshal error degrades to a plain
// failure string rather than breaking the result-per-request contract.
func (o Outcome) JSON() string {
	data, err := json.Marshal(o)
	if err != nil {
		return `{"success":false,"error":"internal: unencodable outcome"}`
	}
	return string(data)
}

func success(result map[string]any) Outcome {
	return Outcome{Success: true, Result: result}
}

func failure(format string, args ...any) Outcome {
	return Outcome{Success: false, Error: fmt.Sprintf(format, args...)}
}
