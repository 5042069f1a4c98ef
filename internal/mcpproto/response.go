package mcpproto

import "encoding/json"

// Result wraps a successful response, marshalling result to RawMessage the
// same way the teacher's response.go does for its tool results — a marshal
// failure here is a programmer error (a Go value our own handlers returned
// that isn't JSON-safe), not a client-facing one, so it collapses to an
// operation-failed response rather than panicking.
func Result(id any, result any) Response {
	raw, err := json.Marshal(result)
	if err != nil {
		return Response{
			JSONRPC: Version,
			ID:      id,
			Error:   NewError(CodeOperationFailed, "failed to encode result: "+err.Error()),
		}
	}
	return Response{JSONRPC: Version, ID: id, Result: raw}
}

// Err wraps a failed response.
func Err(id any, code, message string) Response {
	return Response{JSONRPC: Version, ID: id, Error: NewError(code, message)}
}

// Event builds a server-pushed notification envelope for eventType/data.
func Event(eventType string, data any) (Notification, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Notification{}, err
	}
	return Notification{
		JSONRPC: Version,
		Method:  "event",
		Params:  EventParams{Type: eventType, Data: raw},
	}, nil
}
