package internal

// Envelope is the uniform response shape shared by the REST layer and the
// realtime gateway: {success, data, message}. Message is omitted on success
// unless explicitly provided.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

// PageMeta describes the pagination window of a list response.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// PaginatedEnvelope is the uniform shape of paginated list responses.
type PaginatedEnvelope struct {
	Success bool     `json:"success"`
	Data    any      `json:"data"`
	Meta    PageMeta `json:"meta"`
	Message string   `json:"message,omitempty"`
}

// SuccessEnvelope wraps data in a successful envelope. An optional message
// may be supplied; only the first is used.
func SuccessEnvelope(data any, message ...string) Envelope {
	env := Envelope{Success: true, Data: data}
	if len(message) > 0 {
		env.Message = message[0]
	}
	return env
}

// ErrorEnvelope builds a failed envelope with a nil data field.
func ErrorEnvelope(message string) Envelope {
	return Envelope{Success: false, Data: nil, Message: message}
}

// SuccessPaginatedEnvelope wraps a list of items with pagination metadata.
func SuccessPaginatedEnvelope(data any, meta PageMeta, message ...string) PaginatedEnvelope {
	env := PaginatedEnvelope{Success: true, Data: data, Meta: meta}
	if len(message) > 0 {
		env.Message = message[0]
	}
	return env
}
