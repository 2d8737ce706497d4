package proto

// Remote identifies the upstream selected for one accepted connection: its
// protocol, its dial target ("host:port"), and the host name used for TLS
// SNI / logging. It is built fresh per connection and discarded when the
// connection closes.
type Remote struct {
	Protocol Protocol
	Target   string
	Host     string
}

// IsZero reports whether r is the *NoRemote* sentinel: no selector matched.
func (r Remote) IsZero() bool {
	return r == Remote{}
}
