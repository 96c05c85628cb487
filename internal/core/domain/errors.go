package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrUnknownFilterKey indicates a filter references a metadata key the index has never seen.
	ErrUnknownFilterKey = errors.New("unknown filter key")

	// ErrNoDocuments indicates a source yielded nothing to index.
	ErrNoDocuments = errors.New("no documents to index")

	// ErrIndexClosed indicates the vector index has been closed.
	ErrIndexClosed = errors.New("index closed")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// External service failures. ServiceError.Is maps its Kind onto these.

	// ErrServiceUnavailable indicates an external service could not be reached.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrMalformedResponse indicates an external service replied with something unusable.
	ErrMalformedResponse = errors.New("malformed response")

	// ErrTimeout indicates an external call exceeded its deadline.
	ErrTimeout = errors.New("timeout")
)

// ConfigurationError reports an invalid setting such as a chunk size
// of zero or an overlap larger than the chunk.
type ConfigurationError struct {
	// Field is the setting that was rejected.
	Field string

	// Err is the underlying cause.
	Err error
}

// NewConfigurationError builds a ConfigurationError for field with a formatted reason.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{
		Field: field,
		Err:   fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...),
	}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ServiceKind classifies an external service failure.
type ServiceKind string

// Service failure kinds.
const (
	ServiceUnavailable ServiceKind = "unavailable"
	ServiceMalformed   ServiceKind = "malformed"
	ServiceTimeout     ServiceKind = "timeout"
)

// Stage names the pipeline step at which a failure occurred.
type Stage string

// Pipeline stages.
const (
	StageLoad        Stage = "load"
	StageChunk       Stage = "chunk"
	StageEmbed       Stage = "embed"
	StageInsert      Stage = "insert"
	StageRetrieve    Stage = "retrieve"
	StageReformulate Stage = "reformulate"
	StageGenerate    Stage = "generate"
)

// ServiceError is returned when the embedding or generation service fails.
type ServiceError struct {
	// Stage is the pipeline step that called the service.
	Stage Stage

	// Kind classifies the failure.
	Kind ServiceKind

	// StatusCode is the HTTP status when the service answered, else 0.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Retryable reports whether repeating the call could succeed: the service
// was unreachable, overloaded or failing internally.
func (e *ServiceError) Retryable() bool {
	if e.Kind != ServiceUnavailable {
		return false
	}
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}

// NewServiceError wraps err as a ServiceError. Context deadline errors are
// classified as timeouts regardless of kind.
func NewServiceError(stage Stage, kind ServiceKind, err error) *ServiceError {
	if errors.Is(err, context.DeadlineExceeded) {
		kind = ServiceTimeout
	}
	return &ServiceError{Stage: stage, Kind: kind, Err: err}
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: service %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel matching the error's kind.
func (e *ServiceError) Is(target error) bool {
	switch e.Kind {
	case ServiceUnavailable:
		return target == ErrServiceUnavailable
	case ServiceMalformed:
		return target == ErrMalformedResponse
	case ServiceTimeout:
		return target == ErrTimeout
	}
	return false
}

// ValidationError reports a request the index cannot accept.
type ValidationError struct {
	// Op is the rejected operation, e.g. "insert" or "search".
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
