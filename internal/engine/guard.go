package engine

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/debrief-io/debrief/internal/core"
)

// AcquirePidfile enforces the process-level singleton: it refuses to
// start when the pidfile names a live process, and otherwise claims the
// file. The returned release func removes the file on clean shutdown.
// A stale file left by a crashed process is taken over silently.
func AcquirePidfile(path string) (release func(), err error) {
	if path == "" {
		return func() {}, nil
	}

	if data, readErr := os.ReadFile(path); readErr == nil {
		pid, convErr := strconv.Atoi(strings.TrimSpace(string(data)))
		if convErr == nil && pid > 0 && processAlive(pid) {
			return nil, core.WrapError(core.ErrAlreadyRunning,
				fmt.Errorf("pidfile %s held by pid %d", path, pid))
		}
		// Stale pidfile, take it over
		os.Remove(path)
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, fmt.Errorf("writing pidfile: %w", err)
	}
	return func() { os.Remove(path) }, nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
