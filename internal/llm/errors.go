package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrUnsupported is returned by providers that lack a capability, such as
// generation-only backends asked for embeddings.
var ErrUnsupported = errors.New("operation not supported by provider")

// APIError is a non-2xx response from a provider endpoint.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s: %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}

// Temporary reports whether the request may succeed when repeated.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}
