package certstore

import "errors"

// ErrNotFound is returned by Current when no certificate has been
// installed yet.
var ErrNotFound = errors.New("certstore: no certificate installed")

// ErrInvalidCertificate is returned when a PKCS#12 blob fails to parse or
// the password is wrong.
var ErrInvalidCertificate = errors.New("certstore: invalid certificate")
