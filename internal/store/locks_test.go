package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	codex7err "github.com/codex7/codex7/internal/errors"
)

func TestLibraryLocks_TryLock_BlocksSecondCallerForSameLibrary(t *testing.T) {
	locks := NewLibraryLocks(t.TempDir())

	release, err := locks.TryLock("lib-1")
	require.NoError(t, err)

	_, err = locks.TryLock("lib-1")
	require.Error(t, err)
	assert.Equal(t, codex7err.KindLibraryBusy, codex7err.GetKind(err))

	release()

	release2, err := locks.TryLock("lib-1")
	require.NoError(t, err)
	release2()
}

func TestLibraryLocks_TryLock_DifferentLibrariesDoNotConflict(t *testing.T) {
	locks := NewLibraryLocks(t.TempDir())

	release1, err := locks.TryLock("lib-1")
	require.NoError(t, err)
	defer release1()

	release2, err := locks.TryLock("lib-2")
	require.NoError(t, err)
	defer release2()
}
