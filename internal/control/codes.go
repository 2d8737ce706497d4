// Package control implements the control-plane: parsing configuration
// sentences, dispatching the lifecycle effects they name (start a
// forwarding server, install a certificate, query or shut one down), and
// the bootstrap listener that accepts those sentences one connection at a
// time.
package control

// Code is one of the eight outcome codes a sentence can produce. The
// table is authoritative per spec.md §4.7's "use the table in §4.7"
// redesign flag: earlier iterations of the source disagree with each
// other, this one wins.
type Code uint8

const (
	CodeOK Code = iota
	CodeSentenceError
	CodeProtocolError
	CodeAddressError
	CodeMustBeCertificate
	CodeCertificateError
	CodeStarting
	CodeShutdownError
)

var codeText = [...]string{
	CodeOK:                "ok",
	CodeSentenceError:     "configuration sentences error",
	CodeProtocolError:     "protocol error",
	CodeAddressError:      "SocketAddr error",
	CodeMustBeCertificate: "must be certificate sentence",
	CodeCertificateError:  "certificate error",
	CodeStarting:          "server is starting up...",
	CodeShutdownError:     "shutdown error",
}

// String returns the exact outcome text for c.
func (c Code) String() string {
	if int(c) >= len(codeText) {
		return "unknown error"
	}
	return codeText[c]
}
