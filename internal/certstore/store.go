// Package certstore is the process-wide certificate store: at most one
// installed identity (a PKCS#12-derived tls.Certificate), mutated only by
// control-plane certificate sentences and read by anything that needs to
// build a TLS acceptor or a TLS-listening server.
package certstore

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"software.sslmate.com/src/go-pkcs12"
)

// Store is a mutex-guarded single-slot certificate holder. The zero value
// is ready to use; the package-level default instance is Default.
type Store struct {
	mu   sync.RWMutex
	cert tls.Certificate
	set  bool
}

// Default is the process-wide store every control sentence and every
// TLS-listening server reads and writes through the package-level
// functions below.
var Default = &Store{}

// InstallFromFile reads path (or, if path is a directory, the
// lexicographically first regular file in it), parses it as PKCS#12 with
// pwd, and replaces the stored identity. Returns the byte count read on
// success.
func (s *Store) InstallFromFile(path, pwd string) (int, error) {
	data, err := readCertFile(path)
	if err != nil {
		return 0, err
	}

	key, leaf, chain, err := pkcs12.DecodeChain(data, pwd)
	if err != nil {
		logrus.WithError(err).WithField("path", path).Warn("certstore: invalid PKCS#12 blob")
		return 0, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}

	raw := make([][]byte, 0, len(chain)+1)
	raw = append(raw, leaf.Raw)
	for _, c := range chain {
		raw = append(raw, c.Raw)
	}

	cert := tls.Certificate{
		Certificate: raw,
		PrivateKey:  key,
		Leaf:        leaf,
	}

	s.mu.Lock()
	s.cert = cert
	s.set = true
	s.mu.Unlock()

	logrus.WithField("path", path).WithField("bytes", len(data)).Info("certstore: installed certificate")
	return len(data), nil
}

// InstallFromSocket is the documented stub from spec.md §4.3/§9: it
// validates that addr parses, then returns success with zero bytes
// without performing certificate retrieval over a socket.
func (s *Store) InstallFromSocket(addr, pwd string) (int, error) {
	if _, err := net.ResolveTCPAddr("tcp", addr); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	logrus.WithField("addr", addr).Debug("certstore: certificate-over-socket is a stub, no-op")
	return 0, nil
}

// Current returns a copy of the stored identity, or ErrNotFound if none
// has been installed.
func (s *Store) Current() (tls.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return tls.Certificate{}, ErrNotFound
	}
	return s.cert, nil
}

// Installed reports whether an identity has been installed, without
// cloning it. Used by the control dispatcher to decide when to leave
// TLS-pending mode.
func (s *Store) Installed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

// InstallFromFile installs into the default store.
func InstallFromFile(path, pwd string) (int, error) { return Default.InstallFromFile(path, pwd) }

// InstallFromSocket installs into the default store.
func InstallFromSocket(addr, pwd string) (int, error) { return Default.InstallFromSocket(addr, pwd) }

// Current reads the default store.
func Current() (tls.Certificate, error) { return Default.Current() }

// Installed reads the default store.
func Installed() bool { return Default.Installed() }

// readCertFile implements "get file" from spec.md §4.3: a plain file is
// read whole; a directory yields its lexicographically first regular
// file's contents.
func readCertFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if info.Mode().IsRegular() {
		return os.ReadFile(path)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("certstore: %s is neither a regular file nor a directory", path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return []byte{}, nil
	}
	sort.Strings(names)

	return os.ReadFile(filepath.Join(path, names[0]))
}
