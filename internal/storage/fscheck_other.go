//go:build !darwin && !linux

package storage

// Filesystem type detection is only implemented for linux and darwin;
// elsewhere the event store path is treated as local.
func detectFilesystemType(string) (string, error) {
	return "unknown", nil
}
