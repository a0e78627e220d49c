package chat

import "errors"

// Error kinds surfaced by the answer pipeline. Clients wrap them together with
// the underlying cause, so callers should match with errors.Is.
var (
	ErrRetrievalUnavailable = errors.New("retrieval service unavailable")
	ErrModelUnavailable     = errors.New("language model unavailable")
	ErrMalformedUpstream    = errors.New("malformed upstream response")
	ErrInvalidHistory       = errors.New("invalid chat history")
)
