// Package config builds the process's immutable startup configuration:
// CLI flags parsed with pflag, optionally layered over an HCL2
// bootstrap-defaults file, exactly as the teacher's config.go layers its
// HCL file under CLI overrides — re-themed from "upstream path map" to
// "control-plane bootstrap defaults".
package config

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

// Args is the fully-resolved, immutable startup configuration for
// cmd/netproxy. It corresponds to spec.md §3's Args entity.
type Args struct {
	Socket   string
	IPScope  []string
	Cfgtool  bool
	Socsafe  bool
	LogLevel string
	CfgFile  string
}

// defaultArgs mirrors spec.md §7's documented defaults.
var defaultArgs = Args{
	Socket:   "127.0.0.1:0",
	IPScope:  []string{"127.0.0.1", "::1"},
	Cfgtool:  false,
	Socsafe:  false,
	LogLevel: "info",
}

// Parse builds Args from argv: flags are parsed first so --config can be
// located, the named file (if any) supplies defaults, then every flag the
// caller actually set on the command line overrides the file — the same
// precedence the teacher's parseConfigOptions applies for its HCL config.
func Parse(argv []string) (Args, error) {
	var opt struct {
		Socket   string
		IPScope  string
		Cfgtool  bool
		Socsafe  bool
		LogLevel string
		CfgFile  string
	}

	flags := pflag.NewFlagSet("netproxy", pflag.ContinueOnError)
	flags.StringVarP(&opt.Socket, "socket", "s", defaultArgs.Socket, "control-plane listen address")
	flags.StringVar(&opt.IPScope, "ipscope", strings.Join(defaultArgs.IPScope, ","), "comma-separated IPs allowed to connect to the control plane")
	flags.BoolVar(&opt.Cfgtool, "cfgtool", defaultArgs.Cfgtool, "spawn the interactive control client after binding")
	flags.BoolVar(&opt.Socsafe, "socsafe", defaultArgs.Socsafe, "run the control plane over TLS")
	flags.StringVar(&opt.LogLevel, "log-level", defaultArgs.LogLevel, "trace|debug|info|warn|error")
	flags.StringVar(&opt.CfgFile, "config", "", "optional HCL2 file with bootstrap defaults")

	if err := flags.Parse(argv); err != nil {
		return Args{}, err
	}

	args := defaultArgs

	if opt.CfgFile != "" {
		file, err := ParseFile(opt.CfgFile)
		if err != nil {
			return Args{}, err
		}
		file.applyTo(&args)
	}

	if flags.Changed("socket") {
		args.Socket = opt.Socket
	}
	if flags.Changed("ipscope") {
		args.IPScope = splitNonEmpty(opt.IPScope)
	}
	if flags.Changed("cfgtool") {
		args.Cfgtool = opt.Cfgtool
	}
	if flags.Changed("socsafe") {
		args.Socsafe = opt.Socsafe
	}
	if flags.Changed("log-level") {
		args.LogLevel = opt.LogLevel
	}
	args.CfgFile = opt.CfgFile

	return args, nil
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ApplyLogLevel sets logrus's global level from args.LogLevel, falling
// back to info on an unrecognized value instead of failing startup.
func ApplyLogLevel(args Args) {
	level, err := logrus.ParseLevel(args.LogLevel)
	if err != nil {
		logrus.WithField("level", args.LogLevel).Warn("config: unrecognized log level, defaulting to info")
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// Environ reads LOG_LEVEL from the environment when the resolved log level
// equals the default ("info"), whether or not --log-level was passed, matching the RUST_LOG-style env var convention
// documented in SPEC_FULL.md.
func Environ(args Args) Args {
	if args.LogLevel == defaultArgs.LogLevel {
		if v := os.Getenv("LOG_LEVEL"); v != "" {
			args.LogLevel = v
		}
	}
	return args
}
