package rerrors

import (
	"encoding/json"
)

// jsonError is the wire representation of a RouxError in an MCP tool
// error envelope.
type jsonError struct {
	Kind      string            `json:"kind"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
	Cause     string            `json:"cause,omitempty"`
	Retryable bool              `json:"retryable"`
}

// FormatJSON renders err as the JSON body of an MCP tool error envelope.
// Errors that are not a *RouxError are wrapped as Internal first so every
// tool response has a consistent shape.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	re, ok := err.(*RouxError)
	if !ok {
		re = InternalErr(err.Error(), err)
	}

	je := jsonError{
		Kind:      string(re.Kind),
		Message:   re.Message,
		Details:   re.Details,
		Retryable: re.Retryable(),
	}
	if re.Cause != nil {
		je.Cause = re.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog renders err as key/value attributes for slog, so a handler
// call site can do log.Error("sync failed", rerrors.FormatForLog(err)...)
// style attribute expansion without re-deriving the kind from the message.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	re, ok := err.(*RouxError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"kind":      string(re.Kind),
		"message":   re.Message,
		"retryable": re.Retryable(),
	}
	if re.Cause != nil {
		result["cause"] = re.Cause.Error()
	}
	for k, v := range re.Details {
		result["detail_"+k] = v
	}
	return result
}
