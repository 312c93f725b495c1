package lock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireWritesPID(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "data", "events.db.lock")
	l, err := Acquire(lockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Release() })

	pid, err := Holder(lockPath)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
	assert.Equal(t, lockPath, l.Path())
}

func TestAcquireHeld(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "events.db.lock")
	l1, err := Acquire(lockPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = l1.Release() })

	// flock locks belong to the open file description, so a second open
	// conflicts even within one process.
	_, err = Acquire(lockPath)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHeld))
	assert.Contains(t, err.Error(), "pid")
}

func TestReleaseAllowsReacquire(t *testing.T) {
	t.Parallel()

	lockPath := filepath.Join(t.TempDir(), "events.db.lock")
	l1, err := Acquire(lockPath)
	require.NoError(t, err)
	require.NoError(t, l1.Release())
	require.NoError(t, l1.Release())

	l2, err := Acquire(lockPath)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquireEmptyPath(t *testing.T) {
	_, err := Acquire("")
	assert.Error(t, err)
}

func TestPathFor(t *testing.T) {
	assert.Equal(t, "", PathFor(":memory:"))
	assert.Equal(t, "", PathFor("file::memory:?cache=shared"))
	assert.Equal(t, "", PathFor(""))
	assert.Equal(t, "/var/lib/gitevents/events.db.lock", PathFor("/var/lib/gitevents/events.db"))
}
