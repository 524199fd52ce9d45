// Package pidfile keeps two interactive processes from sharing one data
// directory, since both would overwrite the same history key.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/tiroq/subtitler/internal/fileutil"
)

// RunningError reports the process already holding the data dir.
type RunningError struct {
	PID  int
	Path string
}

func (e *RunningError) Error() string {
	return fmt.Sprintf("another subtitler instance is already running (PID %d, %s)", e.PID, e.Path)
}

// PIDFile is a held lock on a data directory.
type PIDFile struct {
	path string
	pid  int
}

// Path returns the pid file location for name inside dataDir.
func Path(dataDir, name string) string {
	return filepath.Join(dataDir, name+".pid")
}

// Acquire writes the current PID to Path(dataDir, name). It fails with a
// *RunningError when a live process already holds it; a stale file is
// replaced.
func Acquire(dataDir, name string) (*PIDFile, error) {
	path := Path(dataDir, name)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	if pid, ok := readPID(path); ok && pid != os.Getpid() && isProcessRunning(pid) {
		return nil, &RunningError{PID: pid, Path: path}
	}

	pid := os.Getpid()
	if err := fileutil.AtomicWrite(path, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &PIDFile{path: path, pid: pid}, nil
}

// Release deletes the file if it still holds our PID. Safe on nil.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	if pid, ok := readPID(p.path); ok && pid == p.pid {
		if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}

func readPID(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// isProcessRunning sends signal 0 to pid.
func isProcessRunning(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		// Exists, owned by someone else.
		return true
	default:
		return false
	}
}
