package ports

import "errors"

// Capability failure classes. Adapters wrap their concrete failures into one
// of these so callers can apply the retry policy without knowing the
// transport: transient failures get a single bounded retry, permanent ones
// never do.
var (
	ErrFetchTimeout     = errors.New("fetch timed out")
	ErrNavigationFailed = errors.New("navigation failed")
	ErrConversionFailed = errors.New("document conversion failed")
	ErrRestricted       = errors.New("content restricted or unavailable")
	ErrBadInput         = errors.New("malformed capability input")
)

// Transient reports whether a capability failure is worth one retry.
func Transient(err error) bool {
	switch {
	case errors.Is(err, ErrFetchTimeout),
		errors.Is(err, ErrNavigationFailed),
		errors.Is(err, ErrConversionFailed):
		return true
	}
	return false
}
