package control

import "github.com/nprx/netproxy/internal/proto"

// Kind discriminates which control-plane effect a parsed Command
// requests.
type Kind uint8

const (
	KindRoute Kind = iota
	KindVisit
	KindCertificateFile
	KindCertificateSocket
	KindState
	KindShutdown
)

// Command is the parsed, validated form of one configuration sentence.
// Only the fields relevant to Kind are populated.
type Command struct {
	Kind Kind

	ServerProtoc proto.Protocol
	RemoteProtoc proto.Protocol
	ListenAddr   string
	Targets      []string
	Weights      []int

	CertLocation string // path (KindCertificateFile) or addr (KindCertificateSocket)
	CertPassword string

	QueryAddr string // state: empty means "all"; shutdown: required
}
