package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	dialer net.Dialer

	tlsConfigOnce sync.Once
	tlsConfig     *tls.Config
)

// defaultTLSConfig is the process-wide TLS client configuration: system
// root pool, minimum TLS 1.2, built once. The server-name is set per-dial
// via tls.Client since it varies with the selected Remote's host.
func defaultTLSConfig() *tls.Config {
	tlsConfigOnce.Do(func() {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	})
	return tlsConfig
}

// attempts turns a spec.md "send_count" into a try count: zero or one
// means a single attempt, n>1 means n attempts total (one plus n-1
// retries), matching Client::tcp_stream/tls_stream's `max(send_count, 1)`.
func attempts(sendCount int) int {
	if sendCount < 1 {
		return 1
	}
	return sendCount
}

// ConnectPlain opens a TCP connection to target, retrying up to
// sendCount-1 additional times on transient failure.
func ConnectPlain(ctx context.Context, target string, sendCount int) (net.Conn, error) {
	var lastErr error
	for i := 0; i < attempts(sendCount); i++ {
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err == nil {
			logrus.WithField("target", target).Debug("transport: connected")
			return conn, nil
		}
		lastErr = err
		logrus.WithError(err).WithField("target", target).Debug("transport: connect attempt failed")
	}
	return nil, fmt.Errorf("%w: dial %s: %v", ErrConnect, target, lastErr)
}

// ConnectTLS opens a TCP connection to target and performs a client-side
// TLS handshake using hostname as SNI, retrying as ConnectPlain does.
func ConnectTLS(ctx context.Context, target, hostname string, sendCount int) (*tls.Conn, error) {
	var lastErr error
	for i := 0; i < attempts(sendCount); i++ {
		conn, err := dialer.DialContext(ctx, "tcp", target)
		if err != nil {
			lastErr = err
			logrus.WithError(err).WithField("target", target).Debug("transport: connect attempt failed")
			continue
		}

		cfg := defaultTLSConfig().Clone()
		cfg.ServerName = hostname

		tlsConn := tls.Client(conn, cfg)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			lastErr = err
			logrus.WithError(err).WithField("target", target).WithField("sni", hostname).Debug("transport: tls handshake failed")
			continue
		}

		logrus.WithField("target", target).WithField("sni", hostname).Debug("transport: tls connected")
		return tlsConn, nil
	}
	return nil, fmt.Errorf("%w: tls dial %s (sni %s): %v", ErrConnect, target, hostname, lastErr)
}
