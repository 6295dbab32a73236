package worker

import "errors"

// errInvalidSignature is returned by answer when the inbound request's
// signature does not verify against its own claimed public key.
var errInvalidSignature = errors.New("worker: invalid request signature")
