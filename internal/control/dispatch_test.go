package control

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nprx/netproxy/internal/certstore"
	"github.com/nprx/netproxy/internal/registry"
)

func TestHandleRouteSentenceRepliesStarting(t *testing.T) {
	disp := NewDispatcher(registry.New(), &certstore.Store{})

	got := disp.Handle(context.Background(), "tcp 127.0.0.1:0 127.0.0.1:9001")
	if got != CodeStarting.String() {
		t.Fatalf("Handle() = %q, want %q", got, CodeStarting.String())
	}

	// Give the spawned server goroutine a moment to register before the
	// test process tears down; the registry entry proves it started.
	deadline := time.Now().Add(time.Second)
	found := false
	for time.Now().Before(deadline) {
		if strings.Contains(disp.registry.List(), "velocity:") {
			found = true
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !found {
		t.Fatal("runServer did not register a ServerState in time")
	}
}

func TestHandleRejectsMalformedSentence(t *testing.T) {
	disp := NewDispatcher(registry.New(), &certstore.Store{})

	got := disp.Handle(context.Background(), "quic 127.0.0.1:9000")
	if got != CodeProtocolError.String() {
		t.Fatalf("Handle() = %q, want %q", got, CodeProtocolError.String())
	}
}

func TestHandleStateDelegatesToRegistry(t *testing.T) {
	reg := registry.New()
	disp := NewDispatcher(reg, &certstore.Store{})

	if got, want := disp.Handle(context.Background(), "state"), "ok "; got != want {
		t.Fatalf("Handle(state) = %q, want %q", got, want)
	}
}

func TestHandleShutdownUnknownAddrReturnsError(t *testing.T) {
	disp := NewDispatcher(registry.New(), &certstore.Store{})

	got := disp.Handle(context.Background(), "shutdown 127.0.0.1:9999")
	if got != CodeShutdownError.String() {
		t.Fatalf("Handle() = %q, want %q", got, CodeShutdownError.String())
	}
}

func TestHandlePendingTLSRejectsNonCertificateSentences(t *testing.T) {
	disp := NewDispatcher(registry.New(), &certstore.Store{})
	disp.SetPendingTLS(true)

	got := disp.Handle(context.Background(), "state")
	if got != CodeMustBeCertificate.String() {
		t.Fatalf("Handle() = %q, want %q", got, CodeMustBeCertificate.String())
	}

	got = disp.Handle(context.Background(), "shutdown 127.0.0.1:9000")
	if got != CodeMustBeCertificate.String() {
		t.Fatalf("Handle() = %q, want %q", got, CodeMustBeCertificate.String())
	}
}

func TestHandlePendingTLSAllowsCertificateSentence(t *testing.T) {
	disp := NewDispatcher(registry.New(), &certstore.Store{})
	disp.SetPendingTLS(true)

	// Socket install is a documented stub that always succeeds once the
	// address parses, so this exercises the pending-TLS allow path
	// without needing a real PKCS#12 fixture.
	got := disp.Handle(context.Background(), "certificate s 127.0.0.1:9100 secret")
	if got != CodeOK.String() {
		t.Fatalf("Handle() = %q, want %q", got, CodeOK.String())
	}
	if disp.PendingTLS() {
		t.Fatal("PendingTLS() still true after a successful certificate install")
	}
}

func TestHandlePendingTLSMalformedSentenceIsMustBeCertificate(t *testing.T) {
	disp := NewDispatcher(registry.New(), &certstore.Store{})
	disp.SetPendingTLS(true)

	// While pending, a sentence that fails to parse is not a well-formed
	// certificate sentence either, so it gets CodeMustBeCertificate rather
	// than its own parse error.
	got := disp.Handle(context.Background(), "quic 127.0.0.1:9000")
	if got != CodeMustBeCertificate.String() {
		t.Fatalf("Handle() = %q, want %q", got, CodeMustBeCertificate.String())
	}
}
