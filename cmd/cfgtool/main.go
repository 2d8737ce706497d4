// Command cfgtool is the interactive control-plane client: it connects to
// a running netproxy control socket, sends each line of stdin as a
// configuration sentence, and prints the reply. It is the Go rendering
// of the original's bin/cfgtool.rs.
package main

import (
	"bufio"
	"crypto/tls"
	"fmt"
	"net"
	"os"

	"github.com/spf13/pflag"
)

const terminator = ":!"

func main() {
	var target string
	var socsafe bool

	pflag.StringVarP(&target, "to", "t", "", "control-plane socket to connect to")
	pflag.BoolVar(&socsafe, "socsafe", false, "connect over TLS")
	pflag.Parse()

	if target == "" {
		fmt.Fprintln(os.Stderr, "cfgtool: -t/--to is required")
		os.Exit(1)
	}

	conn, err := dial(target, socsafe)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cfgtool: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	fmt.Println("Please input configuration.")

	in := bufio.NewScanner(os.Stdin)
	out := bufio.NewReader(conn)

	for in.Scan() {
		line := in.Text()
		if line == terminator {
			closeWrite(conn)
			fmt.Println("cfgtool closed.")
			return
		}

		if _, err := fmt.Fprintln(conn, line); err != nil {
			fmt.Fprintf(os.Stderr, "cfgtool: write failed: %v\n", err)
			return
		}

		reply, err := out.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "cfgtool: read failed: %v\n", err)
			return
		}
		fmt.Print(reply)
	}
}

func dial(target string, socsafe bool) (net.Conn, error) {
	if !socsafe {
		return net.Dial("tcp", target)
	}
	return tls.Dial("tcp", target, &tls.Config{MinVersion: tls.VersionTLS12, InsecureSkipVerify: true})
}

func closeWrite(conn net.Conn) {
	type closeWriter interface {
		CloseWrite() error
	}
	if cw, ok := conn.(closeWriter); ok {
		_ = cw.CloseWrite()
		return
	}
	conn.Close()
}
