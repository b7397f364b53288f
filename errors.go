package gochat

import (
	"errors"
	"fmt"
)

// ErrorType categorizes errors surfaced by the client. None of them are
// retried internally; they propagate to the caller and only the
// in-flight exchange is lost.
type ErrorType string

const (
	// ErrorTypeTransport covers network and HTTP-level failures.
	ErrorTypeTransport ErrorType = "transport_failure"
	// ErrorTypeAPIRejection means the API returned a non-success status.
	ErrorTypeAPIRejection ErrorType = "api_rejection"
	// ErrorTypeDecode means a response or event payload was malformed.
	ErrorTypeDecode ErrorType = "decode_failure"
	// ErrorTypeProtocol means a stream delta arrived in an invalid state.
	ErrorTypeProtocol ErrorType = "protocol_violation"
	// ErrorTypeRefusal means the model explicitly declined the request.
	ErrorTypeRefusal ErrorType = "refusal"
	// ErrorTypeMissingField means a structured response lacked required content.
	ErrorTypeMissingField ErrorType = "missing_field"
	// ErrorTypeTokenizer covers tokenizer initialization and encoding failures.
	ErrorTypeTokenizer ErrorType = "tokenizer_error"
	// ErrorTypeConfig covers invalid client configuration.
	ErrorTypeConfig ErrorType = "config_error"
)

// ChatError is the structured error returned by all client operations.
type ChatError struct {
	Type       ErrorType
	Message    string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	switch {
	case e.Type == ErrorTypeAPIRejection:
		return fmt.Sprintf("%s: status %d: %s", e.Type, e.StatusCode, e.Message)
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *ChatError) Unwrap() error {
	return e.Err
}

// NewTransportError wraps a network or HTTP-level failure.
func NewTransportError(err error) *ChatError {
	return &ChatError{Type: ErrorTypeTransport, Err: err}
}

// NewAPIRejectionError reports a non-success HTTP status. The message is
// extracted best-effort from the error body.
func NewAPIRejectionError(statusCode int, message string) *ChatError {
	return &ChatError{Type: ErrorTypeAPIRejection, StatusCode: statusCode, Message: message}
}

// NewDecodeError wraps a malformed payload failure.
func NewDecodeError(err error) *ChatError {
	return &ChatError{Type: ErrorTypeDecode, Err: err}
}

// NewProtocolError reports a stream delta that arrived in an invalid state.
func NewProtocolError(message string) *ChatError {
	return &ChatError{Type: ErrorTypeProtocol, Message: message}
}

// NewRefusalError reports an explicit refusal returned by the model.
func NewRefusalError(message string) *ChatError {
	return &ChatError{Type: ErrorTypeRefusal, Message: message}
}

// NewMissingFieldError reports a response missing a required field.
func NewMissingFieldError(field string) *ChatError {
	return &ChatError{Type: ErrorTypeMissingField, Message: fmt.Sprintf("missing field %q", field)}
}

// NewTokenizerError wraps a tokenizer failure.
func NewTokenizerError(err error) *ChatError {
	return &ChatError{Type: ErrorTypeTokenizer, Err: err}
}

// NewConfigError reports invalid client configuration.
func NewConfigError(message string) *ChatError {
	return &ChatError{Type: ErrorTypeConfig, Message: message}
}

// ErrorTypeOf extracts the ErrorType from err, or an empty string when
// err is not a ChatError.
func ErrorTypeOf(err error) ErrorType {
	var chatErr *ChatError
	if errors.As(err, &chatErr) {
		return chatErr.Type
	}
	return ""
}
