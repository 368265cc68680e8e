package domain

import "errors"

// ErrConfig marks fatal configuration failures: missing source list,
// malformed subscription table, unusable mail settings. Per-source fetch
// and parse problems are recorded outcomes, never wrapped in ErrConfig.
var ErrConfig = errors.New("configuration error")
