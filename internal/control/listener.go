package control

import (
	"bufio"
	"context"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nprx/netproxy/internal/certstore"
	"github.com/nprx/netproxy/internal/config"
	"github.com/nprx/netproxy/internal/registry"
	"github.com/nprx/netproxy/internal/serverrt"
)

// maxSentenceSize bounds one control-plane line, per spec.md §6's 64 KiB
// framing cap.
const maxSentenceSize = 64 * 1024

// terminator is the client token that half-closes a control connection
// without waiting for EOF.
const terminator = ":!"

// Build constructs and runs the bootstrap control-plane listener: it
// binds cfg.Socket (via config.Listen, trying systemd activation first),
// applies cfg.IPScope, and serves newline-framed configuration sentences
// until ctx is cancelled. When cfg.Socsafe is set, it first runs in plain
// TCP and accepts only certificate sentences (spec.md invariant R3),
// then rebuilds itself in TLS mode the moment a certificate install
// succeeds.
func Build(ctx context.Context, cfg config.Args) error {
	disp := NewDispatcher(registry.Default, certstore.Default)

	ln, err := config.Listen(cfg.Socket)
	if err != nil {
		return err
	}

	if cfg.Cfgtool {
		config.SpawnTool(ln.Addr().String(), cfg.Socsafe)
	}

	if !cfg.Socsafe {
		srv := serverrt.NewWithListener(ln)
		applyIPScope(srv, cfg.IPScope)
		disp.SetControlClose(srv.Control())
		logrus.WithField("addr", srv.Addr()).Info("control: listening in plain mode")
		return srv.Accept(ctx, serverrt.PlainHandler{Routine: sentenceRoutine(disp)})
	}

	disp.SetPendingTLS(true)

	plain := serverrt.NewWithListener(ln)
	applyIPScope(plain, cfg.IPScope)
	disp.SetControlClose(plain.Control())

	logrus.WithField("addr", plain.Addr()).Info("control: listening in plain mode, pending TLS certificate")
	if err := plain.Accept(ctx, serverrt.PlainHandler{Routine: sentenceRoutine(disp)}); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	tlsLn, err := config.Listen(cfg.Socket)
	if err != nil {
		return err
	}
	tlsSrv := serverrt.NewWithListener(tlsLn)
	applyIPScope(tlsSrv, cfg.IPScope)
	disp.SetControlClose(tlsSrv.Control())

	logrus.WithField("addr", tlsSrv.Addr()).Info("control: certificate installed, restarting in TLS mode")
	return tlsSrv.Accept(ctx, serverrt.TLSHandler{Routine: sentenceRoutine(disp)})
}

func applyIPScope(srv *serverrt.Server, scope []string) {
	if len(scope) == 0 {
		return
	}
	ips := make([]net.IP, 0, len(scope))
	for _, s := range scope {
		if ip := net.ParseIP(s); ip != nil {
			ips = append(ips, ip)
		} else {
			logrus.WithField("entry", s).Warn("control: ignoring unparsable ipscope entry")
		}
	}
	srv.SetIPScope(ips)
}

// sentenceRoutine reads newline-delimited configuration sentences off
// conn, dispatches each through disp, and writes the outcome string back
// followed by a newline. A line containing only the terminator token
// half-closes the connection without a reply.
func sentenceRoutine(disp *Dispatcher) func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter) {
	return func(ctx context.Context, conn net.Conn, rw *bufio.ReadWriter) {
		scanner := bufio.NewScanner(rw)
		scanner.Buffer(make([]byte, 4096), maxSentenceSize)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			if line == terminator {
				halfCloseConn(conn)
				return
			}

			reply := disp.Handle(ctx, line)
			if _, err := rw.WriteString(reply + "\n"); err != nil {
				return
			}
			if err := rw.Flush(); err != nil {
				return
			}
		}
	}
}

type closeWriter interface {
	CloseWrite() error
}

func halfCloseConn(conn net.Conn) {
	if cw, ok := conn.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
}
