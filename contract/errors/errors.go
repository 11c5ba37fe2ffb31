package errors

// Error codes for the job contracts. Keep stable; used across adapters, the
// dispatcher and the test harness.
const (
	ErrCodeHandlerExists       = "jobtest.handler_exists"
	ErrCodeHandlerNotFound     = "jobtest.handler_not_found"
	ErrCodeHandlerTypeMismatch = "jobtest.handler_type_mismatch"
	ErrCodeAsyncNotConfigured  = "jobtest.async_not_configured"
	ErrCodeEnqueueFailed       = "jobtest.enqueue_failed"
	ErrCodeSerializationFailed = "jobtest.serialization_failed"

	ErrCodeCountMismatch         = "jobtest.count_mismatch"
	ErrCodeNoMatchFound          = "jobtest.no_match_found"
	ErrCodeInvalidWindowState    = "jobtest.invalid_window_state"
	ErrCodeUnresolvableQueueName = "jobtest.unresolvable_queue_name"
)

// Code returns an error value that carries only a code string.
// It implements error by returning the code string in Error().
func Code(code string) error { return codedError(code) }

type codedError string

func (e codedError) Error() string { return string(e) }

var (
	ErrHandlerExists       = Code(ErrCodeHandlerExists)
	ErrHandlerNotFound     = Code(ErrCodeHandlerNotFound)
	ErrHandlerTypeMismatch = Code(ErrCodeHandlerTypeMismatch)
	ErrAsyncNotConfigured  = Code(ErrCodeAsyncNotConfigured)
	ErrEnqueueFailed       = Code(ErrCodeEnqueueFailed)
	ErrSerializationFailed = Code(ErrCodeSerializationFailed)

	ErrCountMismatch         = Code(ErrCodeCountMismatch)
	ErrNoMatchFound          = Code(ErrCodeNoMatchFound)
	ErrInvalidWindowState    = Code(ErrCodeInvalidWindowState)
	ErrUnresolvableQueueName = Code(ErrCodeUnresolvableQueueName)
)
