package transport

import "errors"

// ErrConnect is the *ConnectError* taxonomy entry from spec.md §7: the
// upstream could not be reached, the handshake failed, or the initial
// write of the client's prebuffered bytes failed.
var ErrConnect = errors.New("transport: connect error")
