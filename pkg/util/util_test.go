package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_FirstNonEmptyString(t *testing.T) {
	require.Equal(t, "b", FirstNonEmptyString("", "b", "c"))
	require.Equal(t, "a", FirstNonEmptyString("a", "b"))
	require.Equal(t, "", FirstNonEmptyString("", ""))
	require.Equal(t, "", FirstNonEmptyString())
}

func Test_FileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shadow")

	exists, err := FileExists(path)
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, os.WriteFile(path, []byte("root:*:19000::::::\n"), 0600))

	exists, err = FileExists(path)
	require.NoError(t, err)
	require.True(t, exists)
}
