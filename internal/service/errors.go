package service

import "errors"

// ErrNotOwned indicates a resource is owned by a different user than the one
// making the request. The API layer maps it to 403 Forbidden.
var ErrNotOwned = errors.New("resource is owned by another user")
