package errors

// ErrorEnvelope is the JSON error body returned by every synchronous
// endpoint. The streaming endpoint reuses the same shape in-band once
// headers have been sent.
type ErrorEnvelope struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Type    string `json:"type"`
}

// NewEnvelope builds an error envelope from any error, using the sentinel
// marks to derive the code and type.
func NewEnvelope(err error) ErrorEnvelope {
	return ErrorEnvelope{
		Message: err.Error(),
		Code:    CodeFromErr(err),
		Type:    typeFromStatus(HTTPStatusFromErr(err)),
	}
}

func typeFromStatus(status int) string {
	switch {
	case status == 429:
		return "rate_limit_error"
	case status >= 500:
		return "server_error"
	default:
		return "invalid_request_error"
	}
}
