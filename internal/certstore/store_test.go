package certstore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

func generatePFX(t *testing.T, password string) []byte {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "netproxy-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate: %v", err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate: %v", err)
	}

	pfx, err := pkcs12.Encode(rand.Reader, key, cert, nil, password)
	if err != nil {
		t.Fatalf("pkcs12.Encode: %v", err)
	}
	return pfx
}

func TestInstallFromFileAndCurrent(t *testing.T) {
	s := &Store{}

	if _, err := s.Current(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Current() before install = %v, want ErrNotFound", err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "cert.pfx")
	pfx := generatePFX(t, "secret")
	if err := os.WriteFile(path, pfx, 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	n, err := s.InstallFromFile(path, "secret")
	if err != nil {
		t.Fatalf("InstallFromFile: %v", err)
	}
	if n != len(pfx) {
		t.Fatalf("InstallFromFile returned %d bytes, want %d", n, len(pfx))
	}

	if !s.Installed() {
		t.Fatalf("Installed() = false after successful install")
	}

	cert, err := s.Current()
	if err != nil {
		t.Fatalf("Current() after install: %v", err)
	}
	if cert.Leaf == nil || cert.Leaf.Subject.CommonName != "netproxy-test" {
		t.Fatalf("Current() returned unexpected certificate: %+v", cert.Leaf)
	}
}

func TestInstallFromFileWrongPassword(t *testing.T) {
	s := &Store{}

	dir := t.TempDir()
	path := filepath.Join(dir, "cert.pfx")
	if err := os.WriteFile(path, generatePFX(t, "right"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := s.InstallFromFile(path, "wrong"); !errors.Is(err, ErrInvalidCertificate) {
		t.Fatalf("InstallFromFile wrong password = %v, want ErrInvalidCertificate", err)
	}
}

func TestInstallFromFilePicksFirstFileInDirectory(t *testing.T) {
	s := &Store{}

	dir := t.TempDir()
	pfx := generatePFX(t, "secret")
	// "a.pfx" sorts before "z.pfx"; only a.pfx is valid PKCS#12, proving
	// the directory branch picked the lexicographically first file.
	if err := os.WriteFile(filepath.Join(dir, "a.pfx"), pfx, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "z.pfx"), []byte("not pkcs12"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := s.InstallFromFile(dir, "secret"); err != nil {
		t.Fatalf("InstallFromFile(dir): %v", err)
	}
}

func TestInstallFromSocketStub(t *testing.T) {
	s := &Store{}

	n, err := s.InstallFromSocket("127.0.0.1:9443", "whatever")
	if err != nil {
		t.Fatalf("InstallFromSocket: %v", err)
	}
	if n != 0 {
		t.Fatalf("InstallFromSocket returned %d bytes, want 0", n)
	}
	if s.Installed() {
		t.Fatalf("InstallFromSocket must not install anything")
	}
}

func TestInstallFromSocketRejectsBadAddress(t *testing.T) {
	s := &Store{}
	if _, err := s.InstallFromSocket("not-an-addr", "x"); !errors.Is(err, ErrInvalidCertificate) {
		t.Fatalf("InstallFromSocket(bad addr) = %v, want ErrInvalidCertificate", err)
	}
}
