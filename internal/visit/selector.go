// Package visit implements the HTTP Host-derived selector: given the
// first buffered bytes of a client connection, it parses them as an
// HTTP/1 request and derives the upstream Remote from the Host header.
package visit

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nprx/netproxy/internal/proto"
)

// maxRequestLine caps how much of buf the HTTP parser will look at,
// matching the 64 KiB control-wire framing cap from spec.md §6 — an
// oversized header block is equally malformed here.
const maxRequestLine = 64 * 1024

// Select parses buf as an HTTP/1 request and, if a Host header is
// present, returns the Remote to forward to: host as given when it
// already carries ":port", otherwise host:443 for an HTTP (TLS) remote or
// host:80 for HTTP_PT (plain). Returns (Remote{}, false) — the spec's
// *NoRemote* — on any parse failure or missing Host, per spec.md §4.5.
func Select(buf []byte, remoteProtoc proto.Protocol) (proto.Remote, bool) {
	r := bufio.NewReader(io.LimitReader(bytes.NewReader(buf), maxRequestLine))

	req, err := http.ReadRequest(r)
	if err != nil {
		logrus.WithError(err).Debug("visit: failed to parse HTTP request")
		return proto.Remote{}, false
	}

	host := req.Host
	if host == "" {
		host = req.Header.Get("Host")
	}
	if host == "" {
		logrus.Debug("visit: request has no Host header")
		return proto.Remote{}, false
	}

	target := host
	if _, _, err := net.SplitHostPort(host); err != nil {
		if remoteProtoc == proto.HTTPPlain {
			target = net.JoinHostPort(host, "80")
		} else {
			target = net.JoinHostPort(host, "443")
		}
	}

	return proto.Remote{Protocol: remoteProtoc, Target: target, Host: host}, true
}
