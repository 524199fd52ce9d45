package diaglog

import (
	"os"
	"sync"
)

// rollingWriter is an append-only writer that keeps at most two generations:
// when the next write would push the live file past maxSize, the live file is
// renamed to path+".1" (replacing any older generation) and a fresh file is
// started.
type rollingWriter struct {
	path    string
	maxSize int64
	f       *os.File
	size    int64
	mu      sync.Mutex
}

// newRollingWriter opens path (creating it if needed) and returns a writer
// capped at maxSize bytes per generation.
func newRollingWriter(path string, maxSize int64) (*rollingWriter, error) {
	f, size, err := openAppend(path)
	if err != nil {
		return nil, err
	}
	return &rollingWriter{path: path, maxSize: maxSize, f: f, size: size}, nil
}

func openAppend(path string) (*os.File, int64, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Write appends p to the live file, rotating first when p would not fit.
func (rw *rollingWriter) Write(p []byte) (int, error) {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	if rw.size > 0 && rw.size+int64(len(p)) > rw.maxSize {
		if err := rw.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := rw.f.Write(p)
	if err != nil {
		return n, err
	}
	rw.size += int64(n)
	_ = rw.f.Sync()
	return n, nil
}

func (rw *rollingWriter) rotate() error {
	if err := rw.f.Close(); err != nil {
		return err
	}
	if err := os.Rename(rw.path, BackupPath(rw.path)); err != nil {
		return err
	}
	f, size, err := openAppend(rw.path)
	if err != nil {
		return err
	}
	rw.f = f
	rw.size = size
	return nil
}

// close flushes and closes the file.
func (rw *rollingWriter) close() error {
	_ = rw.f.Sync()
	return rw.f.Close()
}

// BackupPath returns the location of the previous log generation.
func BackupPath(path string) string {
	return path + ".1"
}
