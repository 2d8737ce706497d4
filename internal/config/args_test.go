package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	args, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if args.Socket != defaultArgs.Socket {
		t.Fatalf("Socket = %q, want %q", args.Socket, defaultArgs.Socket)
	}
	if !reflect.DeepEqual(args.IPScope, defaultArgs.IPScope) {
		t.Fatalf("IPScope = %v, want %v", args.IPScope, defaultArgs.IPScope)
	}
	if args.Cfgtool || args.Socsafe {
		t.Fatalf("Cfgtool/Socsafe = %v/%v, want false/false", args.Cfgtool, args.Socsafe)
	}
}

func TestParseFlagsOverrideDefaults(t *testing.T) {
	args, err := Parse([]string{"--socket", "0.0.0.0:9000", "--ipscope", "10.0.0.1,10.0.0.2", "--cfgtool", "--socsafe"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if args.Socket != "0.0.0.0:9000" {
		t.Fatalf("Socket = %q, want 0.0.0.0:9000", args.Socket)
	}
	if !reflect.DeepEqual(args.IPScope, []string{"10.0.0.1", "10.0.0.2"}) {
		t.Fatalf("IPScope = %v, want [10.0.0.1 10.0.0.2]", args.IPScope)
	}
	if !args.Cfgtool || !args.Socsafe {
		t.Fatalf("Cfgtool/Socsafe = %v/%v, want true/true", args.Cfgtool, args.Socsafe)
	}
}

func TestParseFileProvidesDefaultsCLIOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "netproxy.conf")
	contents := "socket = \"127.0.0.1:9100\"\ncfgtool = true\n"
	if err := os.WriteFile(cfgPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	args, err := Parse([]string{"--config", cfgPath, "--cfgtool=false"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if args.Socket != "127.0.0.1:9100" {
		t.Fatalf("Socket = %q, want the file's value 127.0.0.1:9100", args.Socket)
	}
	if args.Cfgtool {
		t.Fatal("Cfgtool = true, want the explicit CLI override (false) to win over the file")
	}
}

func TestEnvironFallsBackToLogLevelEnvVar(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	args, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	args = Environ(args)
	if args.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q, want debug", args.LogLevel)
	}
}

func TestEnvironDoesNotOverrideExplicitFlag(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	args, err := Parse([]string{"--log-level", "warn"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	args = Environ(args)
	if args.LogLevel != "warn" {
		t.Fatalf("LogLevel = %q, want warn (explicit flag must win)", args.LogLevel)
	}
}
