package dropbox

import (
	"errors"
	"fmt"
)

// ErrNotAuthenticated means no credential exists for the user; the caller
// must restart the authorization flow.
var ErrNotAuthenticated = errors.New("dropbox: user not authenticated")

// ExchangeError reports a failed authorization-code exchange, carrying the
// provider's raw error text.
type ExchangeError struct {
	Detail string
}

func (e *ExchangeError) Error() string {
	return fmt.Sprintf("dropbox: token exchange failed: %s", e.Detail)
}

// RefreshError reports a failed or unavailable refresh; the caller must
// re-authorize. Never retried internally.
type RefreshError struct {
	Detail string
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("dropbox: token refresh failed: %s", e.Detail)
}

// ProviderAPIError wraps a non-2xx response from the storage provider's
// API, carrying its error summary.
type ProviderAPIError struct {
	Status  int
	Summary string
}

func (e *ProviderAPIError) Error() string {
	return fmt.Sprintf("dropbox: api returned %d: %s", e.Status, e.Summary)
}
