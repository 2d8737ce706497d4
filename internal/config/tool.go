package config

import (
	"os/exec"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	toolMu   sync.Mutex
	toolProc *exec.Cmd
)

// SpawnTool execs the sibling cmd/cfgtool binary against addr, mirroring
// args.rs's spawn_tool/close_tool pair: a stored *exec.Cmd stands in for
// Rust's tracked Child, killed by CloseTool on shutdown.
func SpawnTool(addr string, safe bool) {
	socsafe := "false"
	if safe {
		socsafe = "true"
	}

	go func() {
		cmd := exec.Command("./cfgtool", "-t", addr, "--socsafe="+socsafe)
		if err := cmd.Start(); err != nil {
			logrus.WithError(err).Warn("config: failed to spawn cfgtool")
			return
		}

		toolMu.Lock()
		toolProc = cmd
		toolMu.Unlock()

		if err := cmd.Wait(); err != nil {
			logrus.WithError(err).Debug("config: cfgtool exited")
		}
	}()
}

// CloseTool kills a cfgtool process spawned by SpawnTool, if any is
// still running.
func CloseTool() {
	toolMu.Lock()
	defer toolMu.Unlock()

	if toolProc == nil || toolProc.Process == nil {
		return
	}
	if err := toolProc.Process.Kill(); err != nil {
		logrus.WithError(err).Debug("config: cfgtool already exited")
	}
	toolProc = nil
}
