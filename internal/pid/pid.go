// Package pid guards against two controllers running at once.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/cyclectl/internal/errors"
)

const (
	fileName = "cyclectl.pid"
	filePerm = 0o600
)

// File is a PID file in a directory. The zero value uses os.TempDir.
type File struct {
	Dir string
}

func New(dir string) *File {
	return &File{Dir: dir}
}

func (f *File) Path() string {
	dir := f.Dir
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, fileName)
}

// Acquire writes the current process ID. It fails with ErrAlreadyRunning
// when the file names a live process. A stale or unreadable file is
// overwritten.
func (f *File) Acquire() error {
	errFactory := errors.New()
	path := f.Path()

	if pid, ok := readPID(path); ok && pid != os.Getpid() && alive(pid) {
		return errFactory.WithData(errors.ErrAlreadyRunning, struct {
			PID  int
			Path string
		}{
			PID:  pid,
			Path: path,
		})
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), filePerm); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Release removes the PID file if it still belongs to this process.
func (f *File) Release() error {
	path := f.Path()

	pid, ok := readPID(path)
	if !ok || pid != os.Getpid() {
		return nil
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
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

func alive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
