package control

import (
	"net"
	"strconv"
	"strings"

	"github.com/nprx/netproxy/internal/proto"
)

// Parse turns one whitespace-delimited configuration sentence into a
// Command, per spec.md §4.7's grammar. On any rejection it returns the
// zero Command and the Code that the dispatcher should reply with
// verbatim.
func Parse(sentence string) (Command, Code) {
	tokens := strings.Fields(sentence)
	if len(tokens) == 0 {
		return Command{}, CodeSentenceError
	}

	switch tokens[0] {
	case "certificate":
		return parseCertificate(tokens)
	case "state":
		return parseState(tokens)
	case "shutdown":
		return parseShutdown(tokens)
	default:
		return parseRouteOrVisit(tokens)
	}
}

func parseCertificate(tokens []string) (Command, Code) {
	if len(tokens) != 4 {
		return Command{}, CodeSentenceError
	}

	cmd := Command{CertLocation: tokens[2], CertPassword: tokens[3]}
	switch tokens[1] {
	case "f":
		cmd.Kind = KindCertificateFile
	case "s":
		cmd.Kind = KindCertificateSocket
	default:
		return Command{}, CodeSentenceError
	}
	return cmd, CodeOK
}

func parseState(tokens []string) (Command, Code) {
	switch len(tokens) {
	case 1:
		return Command{Kind: KindState}, CodeOK
	case 2:
		return Command{Kind: KindState, QueryAddr: tokens[1]}, CodeOK
	default:
		return Command{}, CodeSentenceError
	}
}

func parseShutdown(tokens []string) (Command, Code) {
	if len(tokens) != 2 {
		return Command{}, CodeSentenceError
	}
	return Command{Kind: KindShutdown, QueryAddr: tokens[1]}, CodeOK
}

func parseRouteOrVisit(tokens []string) (Command, Code) {
	if len(tokens) < 2 || len(tokens) > 4 {
		return Command{}, CodeSentenceError
	}

	protoParts := strings.SplitN(tokens[0], "-", 2)
	serverProtoc, ok := proto.ParseProtocol(protoParts[0])
	if !ok {
		return Command{}, CodeProtocolError
	}
	remoteProtoc := serverProtoc
	if len(protoParts) == 2 {
		remoteProtoc, ok = proto.ParseProtocol(protoParts[1])
		if !ok {
			return Command{}, CodeProtocolError
		}
	}

	listenAddr := tokens[1]
	if !validSocketAddr(listenAddr) {
		return Command{}, CodeAddressError
	}

	if len(tokens) == 2 {
		return Command{
			Kind:         KindVisit,
			ServerProtoc: serverProtoc,
			RemoteProtoc: remoteProtoc,
			ListenAddr:   listenAddr,
		}, CodeOK
	}

	targets := strings.Split(tokens[2], ",")
	for _, target := range targets {
		if !validSocketAddr(target) {
			return Command{}, CodeAddressError
		}
	}

	var weightTokens []string
	if len(tokens) == 4 {
		weightTokens = strings.Split(tokens[3], ":")
	}
	weights := parseWeights(weightTokens, len(targets))

	return Command{
		Kind:         KindRoute,
		ServerProtoc: serverProtoc,
		RemoteProtoc: remoteProtoc,
		ListenAddr:   listenAddr,
		Targets:      targets,
		Weights:      weights,
	}, CodeOK
}

// parseWeights applies spec.md §4.7's target/weight padding rule: each
// colon-split token parses as an int or becomes 0; excess tokens beyond
// n are dropped; missing trailing tokens are padded with weight 1 so
// every target gets a schedule slot.
func parseWeights(tokens []string, n int) []int {
	weights := make([]int, n)
	for i := 0; i < n && i < len(tokens); i++ {
		v, err := strconv.Atoi(tokens[i])
		if err != nil {
			v = 0
		}
		weights[i] = v
	}
	for i := len(tokens); i < n; i++ {
		weights[i] = 1
	}
	return weights
}

func validSocketAddr(addr string) bool {
	_, err := net.ResolveTCPAddr("tcp", addr)
	return err == nil
}
