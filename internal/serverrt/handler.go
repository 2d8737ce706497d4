package serverrt

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"

	"github.com/sirupsen/logrus"

	"github.com/nprx/netproxy/internal/certstore"
)

// Handler is the narrow capability interface every connection handler
// implements: consume one accepted socket. It is the Go rendering of the
// original's FuncStream trait's single `consume` method.
type Handler interface {
	Consume(ctx context.Context, conn net.Conn)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, conn net.Conn)

// Consume calls f.
func (f HandlerFunc) Consume(ctx context.Context, conn net.Conn) { f(ctx, conn) }

// PlainHandler wraps each accepted socket in a *bufio.ReadWriter and
// forwards it to Routine unmodified.
type PlainHandler struct {
	Routine func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter)
}

// Consume implements Handler.
func (h PlainHandler) Consume(ctx context.Context, conn net.Conn) {
	rw := bufio.NewReadWriter(bufio.NewReader(conn), bufio.NewWriter(conn))
	h.Routine(ctx, conn, rw)
}

// TLSHandler performs the server-side TLS handshake using the installed
// certificate, then forwards to Routine exactly as PlainHandler does.
// Unlike the original's single cached TlsAcceptor, the *tls.Config is built
// fresh from certstore.Current() per connection, so a certificate
// installed after the server started takes effect on the very next
// connection without restarting the listener.
type TLSHandler struct {
	Routine func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter)
}

// Consume implements Handler.
func (h TLSHandler) Consume(ctx context.Context, conn net.Conn) {
	cert, err := certstore.Current()
	if err != nil {
		logrus.WithError(err).Warn("serverrt: tls accept: no certificate installed")
		conn.Close()
		return
	}

	tlsConn := tls.Server(conn, &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	})

	if err := tlsConn.HandshakeContext(ctx); err != nil {
		logrus.WithError(err).Debug("serverrt: tls handshake failed")
		conn.Close()
		return
	}

	rw := bufio.NewReadWriter(bufio.NewReader(tlsConn), bufio.NewWriter(tlsConn))
	h.Routine(ctx, tlsConn, rw)
}
