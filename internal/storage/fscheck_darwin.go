//go:build darwin

package storage

import (
	"fmt"
	"syscall"
)

// mntLocal is MNT_LOCAL from sys/mount.h.
const mntLocal = 0x00001000

func detectFilesystemType(path string) (string, error) {
	var st syscall.Statfs_t
	if err := syscall.Statfs(path, &st); err != nil {
		return "", fmt.Errorf("statfs %q: %w", path, err)
	}

	name := fsTypeName(st.Fstypename[:])
	if st.Flags&mntLocal == 0 && !isNetworkFilesystem(name) {
		return remotePrefix + name, nil
	}
	return name, nil
}

func fsTypeName(raw []int8) string {
	var b []byte
	for _, c := range raw {
		if c == 0 {
			break
		}
		b = append(b, byte(c))
	}
	return string(b)
}
