// Package transport is the bidirectional pump: given an already-accepted
// client stream and the first bytes read off it, it opens the selected
// upstream (plain or TLS), forwards the prebuffered bytes, then drives an
// independent read-and-forward loop in each direction until both sides
// are quiescent.
package transport

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nprx/netproxy/internal/proto"
)

// readBufferSize mirrors the original's per-direction buffer capacity
// (core/rw.rs / core/pd.rs use 8192 and 10240 respectively; one shared
// size suffices here since Go's io.Reader isn't split into separate
// framing tiers the way the Rust original's BufStream was).
const readBufferSize = 10240

type closeWriter interface {
	CloseWrite() error
}

// Start opens the upstream for remote, writes prebuf to it verbatim, and
// pumps bytes in both directions until both directions have ended (each
// ends on a read error or EOF from its source, or a failed write to its
// destination). It implements
// spec.md §4.1's start operation.
func Start(ctx context.Context, client net.Conn, prebuf []byte, remote proto.Remote, sendCount int, clientHook, upstreamHook Hook) error {
	upstream, err := dialRemote(ctx, remote, sendCount)
	if err != nil {
		client.Close()
		return err
	}

	if len(prebuf) > 0 {
		if _, err := upstream.Write(prebuf); err != nil {
			client.Close()
			upstream.Close()
			return fmt.Errorf("%w: initial write to %s: %v", ErrConnect, remote.Target, err)
		}
	}

	pump(client, upstream, clientHook, upstreamHook)
	return nil
}

// dialRemote opens a plain or TLS connection to remote depending on its
// protocol, per spec.md §4.2.
func dialRemote(ctx context.Context, remote proto.Remote, sendCount int) (net.Conn, error) {
	if remote.Protocol.TLSUpstream() {
		return ConnectTLS(ctx, remote.Target, remote.Host, sendCount)
	}
	return ConnectPlain(ctx, remote.Target, sendCount)
}

// pump runs the two independent per-direction loops and waits for both to
// become quiescent before closing both streams. Neither direction's
// closing cancels the other's in-flight write — each loop only observes
// its own stream.
func pump(client, upstream net.Conn, clientHook, upstreamHook Hook) {
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		copyDirection(client, upstream, clientHook, "client->upstream")
	}()
	go func() {
		defer wg.Done()
		copyDirection(upstream, client, upstreamHook, "upstream->client")
	}()

	wg.Wait()
	client.Close()
	upstream.Close()
}

// copyDirection repeatedly reads from src, runs hook.Data on the new
// bytes, and writes them to dst, until src reports EOF (read returns 0
// bytes) or a write to dst fails. On EOF it calls hook.EndData and
// half-closes dst's write side if supported, letting the opposite
// direction drain before the connection is fully torn down.
func copyDirection(src io.Reader, dst io.Writer, hook Hook, label string) {
	buf := make([]byte, readBufferSize)

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			hook.Data(chunk)
			if _, writeErr := dst.Write(chunk); writeErr != nil {
				logrus.WithError(writeErr).WithField("direction", label).Debug("transport: write failed, terminating direction")
				return
			}
		}

		if readErr != nil {
			if readErr != io.EOF {
				logrus.WithError(readErr).WithField("direction", label).Debug("transport: read error, terminating direction")
			}
			hook.EndData(nil)
			halfClose(dst)
			return
		}
	}
}

// halfClose signals "no more data coming" to dst when its underlying
// stream supports CloseWrite (net.TCPConn, crypto/tls.Conn), without
// closing the read side the opposite direction may still be using.
func halfClose(dst io.Writer) {
	if cw, ok := dst.(closeWriter); ok {
		_ = cw.CloseWrite()
	}
}
