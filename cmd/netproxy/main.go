// Command netproxy is the daemon entrypoint: it parses startup
// configuration, wires up logging, and runs the control-plane listener
// until a termination signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nprx/netproxy/internal/config"
	"github.com/nprx/netproxy/internal/control"
)

func main() {
	args, err := config.Parse(os.Args[1:])
	if err != nil {
		logrus.WithError(err).Fatal("netproxy: failed to parse startup configuration")
	}
	args = config.Environ(args)
	config.ApplyLogLevel(args)

	ctx, cancel := gracefulShutdown()
	defer cancel()

	if err := control.Build(ctx, args); err != nil && ctx.Err() == nil {
		logrus.WithError(err).Fatal("netproxy: control plane exited with error")
	}

	config.CloseTool()
	logrus.Info("netproxy: shutdown complete")
}

// gracefulShutdown returns a context cancelled on SIGINT/SIGTERM, the
// same signals the teacher's gracefulShutdown watches for, re-expressed
// as a context instead of a Server.Shutdown callback since this daemon
// has no single http.Server to hand a deadline to.
func gracefulShutdown() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-ch
		logrus.WithField("signal", sig).Info("netproxy: received signal, shutting down")
		cancel()
	}()

	return ctx, cancel
}
