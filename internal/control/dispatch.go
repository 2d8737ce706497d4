package control

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/nprx/netproxy/internal/certstore"
	"github.com/nprx/netproxy/internal/proto"
	"github.com/nprx/netproxy/internal/registry"
	"github.com/nprx/netproxy/internal/serverrt"
	"github.com/nprx/netproxy/internal/transport"
	"github.com/nprx/netproxy/internal/visit"
	"github.com/nprx/netproxy/internal/weighted"
)

// maxGatePeek bounds the read used to gate an HTTP-aware route and to
// derive a visit's Remote, matching the 64 KiB sentence framing cap from
// spec.md §6 — an oversized leading request is equally malformed here.
const maxGatePeek = 64 * 1024

// Dispatcher turns parsed Commands into effects against a Registry and a
// certstore.Store. It is the Go rendering of spec.md §4.7's "effect"
// half of the control-plane dispatcher.
type Dispatcher struct {
	registry *registry.Registry
	certs    *certstore.Store

	pendingTLS   atomic.Bool
	controlClose atomic.Value // chan<- serverrt.Control
}

// NewDispatcher builds a Dispatcher over reg and certs.
func NewDispatcher(reg *registry.Registry, certs *certstore.Store) *Dispatcher {
	return &Dispatcher{registry: reg, certs: certs}
}

// SetPendingTLS toggles TLS-safe mode: while set, every sentence other
// than a well-formed certificate sentence (including one that fails to
// parse) is rejected with CodeMustBeCertificate, per spec.md invariant R3.
func (d *Dispatcher) SetPendingTLS(pending bool) { d.pendingTLS.Store(pending) }

// PendingTLS reports the current TLS-safe mode.
func (d *Dispatcher) PendingTLS() bool { return d.pendingTLS.Load() }

// SetControlClose records the bootstrap control listener's own close
// channel, so a successful certificate install while pending can signal
// it to restart in TLS mode.
func (d *Dispatcher) SetControlClose(ch chan<- serverrt.Control) {
	d.controlClose.Store(ch)
}

// Handle parses sentence and performs its effect, returning the exact
// reply line the control listener writes back to the client.
func (d *Dispatcher) Handle(ctx context.Context, sentence string) string {
	cmd, code := Parse(sentence)

	if d.pendingTLS.Load() && (code != CodeOK || (cmd.Kind != KindCertificateFile && cmd.Kind != KindCertificateSocket)) {
		return CodeMustBeCertificate.String()
	}

	if code != CodeOK {
		return code.String()
	}

	switch cmd.Kind {
	case KindRoute, KindVisit:
		go d.runServer(ctx, cmd)
		return CodeStarting.String()

	case KindCertificateFile:
		if _, err := d.certs.InstallFromFile(cmd.CertLocation, cmd.CertPassword); err != nil {
			return CodeCertificateError.String()
		}
		d.onCertificateInstalled()
		return CodeOK.String()

	case KindCertificateSocket:
		if _, err := d.certs.InstallFromSocket(cmd.CertLocation, cmd.CertPassword); err != nil {
			return CodeCertificateError.String()
		}
		d.onCertificateInstalled()
		return CodeOK.String()

	case KindState:
		if cmd.QueryAddr == "" {
			return d.registry.List()
		}
		return d.registry.StateOf(cmd.QueryAddr)

	case KindShutdown:
		if d.registry.Shutdown(cmd.QueryAddr) {
			return CodeOK.String()
		}
		return CodeShutdownError.String()

	default:
		return CodeSentenceError.String()
	}
}

// onCertificateInstalled leaves pending-TLS mode and, if a control-close
// channel was registered, fires it so the bootstrap listener rebuilds
// itself in TLS mode.
func (d *Dispatcher) onCertificateInstalled() {
	if !d.pendingTLS.CompareAndSwap(true, false) {
		return
	}
	if ch, ok := d.controlClose.Load().(chan<- serverrt.Control); ok && ch != nil {
		select {
		case ch <- serverrt.CtlClose():
		default:
		}
	}
}

// runServer starts one forwarding server for cmd and blocks its own
// goroutine on Accept, matching the original's "dedicated worker thread
// with its own asynchronous runtime" — here a dedicated goroutine
// instead.
func (d *Dispatcher) runServer(ctx context.Context, cmd Command) {
	srv, err := serverrt.New(cmd.ListenAddr)
	if err != nil {
		logrus.WithError(err).WithField("addr", cmd.ListenAddr).Warn("control: failed to bind forwarding server")
		return
	}

	routine := buildRoutine(cmd)

	var handler serverrt.Handler
	if cmd.ServerProtoc.TLSListen() {
		handler = serverrt.TLSHandler{Routine: routine}
	} else {
		handler = serverrt.PlainHandler{Routine: routine}
	}

	d.registry.Hold(srv.Addr(), srv.Control(), srv.Samples())

	logrus.WithField("addr", srv.Addr()).WithField("kind", cmd.Kind).Info("control: forwarding server started")
	if err := srv.Accept(ctx, handler); err != nil {
		logrus.WithError(err).WithField("addr", srv.Addr()).Debug("control: forwarding server accept loop ended")
	}
}

// buildRoutine returns the per-connection routine for cmd: a weighted
// round-robin selection for a route, or an HTTP-Host-derived selection
// for a visit.
func buildRoutine(cmd Command) func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter) {
	switch cmd.Kind {
	case KindRoute:
		sched := weighted.NewSchedule(cmd.Targets, cmd.Weights)
		httpGate := cmd.ServerProtoc == proto.HTTP || cmd.ServerProtoc == proto.HTTPPlain

		return func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter) {
			var prebuf []byte
			if httpGate {
				buf, ok := peek(rw)
				if !ok {
					conn.Close()
					return
				}
				if _, ok := visit.Select(buf, cmd.RemoteProtoc); !ok {
					conn.Close()
					return
				}
				prebuf = buf
			}

			target, ok := sched.Next()
			if !ok {
				conn.Close()
				return
			}
			remote := proto.Remote{Protocol: cmd.RemoteProtoc, Target: target, Host: hostOf(target)}

			if err := transport.Start(ctx, conn, prebuf, remote, 1, transport.NopHook{}, transport.NopHook{}); err != nil {
				logrus.WithError(err).WithField("target", target).Debug("control: route transport failed")
			}
		}

	case KindVisit:
		return func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter) {
			buf, ok := peek(rw)
			if !ok {
				conn.Close()
				return
			}

			remote, ok := visit.Select(buf, cmd.RemoteProtoc)
			if !ok {
				conn.Close()
				return
			}

			if err := transport.Start(ctx, conn, buf, remote, 1, transport.NopHook{}, transport.NopHook{}); err != nil {
				logrus.WithError(err).WithField("target", remote.Target).Debug("control: visit transport failed")
			}
		}

	default:
		return func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter) { conn.Close() }
	}
}

// peek reads whatever is immediately available (up to maxGatePeek) off
// rw without discarding it from the logical stream — the caller forwards
// the same bytes on as prebuf.
func peek(rw *bufio.ReadWriter) ([]byte, bool) {
	buf := make([]byte, maxGatePeek)
	n, err := rw.Read(buf)
	if n == 0 {
		if err != nil {
			logrus.WithError(err).Debug("control: no bytes read before selection")
		}
		return nil, false
	}
	return buf[:n], true
}

func hostOf(target string) string {
	if host, _, err := net.SplitHostPort(target); err == nil {
		return host
	}
	return target
}
