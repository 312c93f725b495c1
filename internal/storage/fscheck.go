package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// remotePrefix marks a filesystem the platform reports as non-local even
// when its type name is not one we recognise.
const remotePrefix = "remote:"

var networkFilesystems = map[string]struct{}{
	"9p":     {},
	"afpfs":  {},
	"afs":    {},
	"ceph":   {},
	"cifs":   {},
	"lustre": {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

// NetworkFilesystemError is returned by OpenSQLite when the event store
// would live on a filesystem without reliable POSIX locking.
type NetworkFilesystemError struct {
	Path   string
	FSType string
}

func (e *NetworkFilesystemError) Error() string {
	return fmt.Sprintf("event store path %q is on network filesystem %q; "+
		"SQLite requires a local filesystem for reliable locking. Set events.path to a local file",
		e.Path, e.FSType)
}

type fsDetector func(path string) (string, error)

// validateSQLiteFilesystem rejects event store paths on network filesystems.
// In-memory databases are always accepted.
func validateSQLiteFilesystem(path string) error {
	if isMemoryPath(path) {
		return nil
	}
	return validateSQLiteFilesystemWithDetector(path, detectFilesystemType)
}

func validateSQLiteFilesystemWithDetector(path string, detect fsDetector) error {
	if path == "" {
		return fmt.Errorf("sqlite path is empty")
	}

	// The database file and its directory may not exist yet.
	dir, err := existingAncestor(path)
	if err != nil {
		return fmt.Errorf("resolve event store path %q: %w", path, err)
	}

	fsType, err := detect(dir)
	if err != nil {
		return fmt.Errorf("detect filesystem for %q: %w", dir, err)
	}
	if isNetworkFilesystem(fsType) {
		return &NetworkFilesystemError{Path: path, FSType: fsType}
	}
	return nil
}

func existingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	for p := abs; ; {
		_, err := os.Stat(p)
		switch {
		case err == nil:
			return p, nil
		case !errors.Is(err, os.ErrNotExist):
			return "", fmt.Errorf("stat %q: %w", p, err)
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing parent for %q", abs)
		}
		p = parent
	}
}

func isNetworkFilesystem(fsType string) bool {
	name := strings.ToLower(strings.TrimSpace(fsType))
	if strings.HasPrefix(name, remotePrefix) {
		return true
	}
	_, found := networkFilesystems[name]
	return found
}

func isMemoryPath(path string) bool {
	return path == ":memory:" || strings.HasPrefix(path, "file::memory:")
}
