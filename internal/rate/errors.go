package rate

import "errors"

// ErrRedisUnavailable wraps transport failures of the shared window.
var ErrRedisUnavailable = errors.New("rate: redis unavailable")
