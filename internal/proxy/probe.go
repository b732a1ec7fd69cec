package proxy

import (
	"context"
	"os/exec"
	"strings"
)

// seams for testing the exec probes
var (
	lookPath   = exec.LookPath
	runCommand = func(ctx context.Context, name string, args ...string) (string, error) {
		out, err := exec.CommandContext(ctx, name, args...).Output()
		return string(out), err
	}
)

// execProber checks daemon install state and the systemd unit locally, the
// way an operator would: which xray, xray -version, systemctl is-active.
type execProber struct {
	service string
}

// probeBinary reports whether the xray binary is installed and its version
// line if it can be read.
func (p *execProber) probeBinary(ctx context.Context) (installed bool, version string) {
	if _, err := lookPath("xray"); err != nil {
		return false, ""
	}

	out, err := runCommand(ctx, "xray", "-version")
	if err != nil {
		// binary present but not runnable; still counts as installed
		return true, ""
	}

	if i := strings.IndexByte(out, '\n'); i >= 0 {
		out = out[:i]
	}
	return true, strings.TrimSpace(out)
}

// probeService reports whether the daemon's systemd unit is active.
func (p *execProber) probeService(ctx context.Context) bool {
	out, err := runCommand(ctx, "systemctl", "is-active", p.service)
	return err == nil && strings.TrimSpace(out) == "active"
}
