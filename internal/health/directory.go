package health

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// DirectoryChecker verifies that the library directories can be listed.
// Some unreadable directories degrade the service; all of them take it down.
type DirectoryChecker struct {
	dirs []string
}

func NewDirectoryChecker(dirs []string) *DirectoryChecker {
	return &DirectoryChecker{dirs: append([]string(nil), dirs...)}
}

func (d *DirectoryChecker) Name() string {
	return "library_directories"
}

func (d *DirectoryChecker) Check(ctx context.Context) error {
	if len(d.dirs) == 0 {
		return nil
	}

	var failed []string
	for _, dir := range d.dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := readable(dir); err != nil {
			failed = append(failed, err.Error())
		}
	}

	switch {
	case len(failed) == 0:
		return nil
	case len(failed) == len(d.dirs):
		return fmt.Errorf("no library directory is readable: %s", strings.Join(failed, "; "))
	default:
		return Degraded(fmt.Errorf("%d of %d library directories unreadable: %s",
			len(failed), len(d.dirs), strings.Join(failed, "; ")))
	}
}

func readable(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s: not a directory", dir)
	}

	// io.EOF means the directory is empty.
	if _, err := f.Readdirnames(1); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: %w", dir, err)
	}
	return nil
}
