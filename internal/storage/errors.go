package storage

import "errors"

// ErrAlreadyExists is returned by AddNode when the public key or address
// is already present in the cluster table.
var ErrAlreadyExists = errors.New("storage: entry already exists")
