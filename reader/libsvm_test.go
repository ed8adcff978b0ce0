package reader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempLibSVM(t *testing.T, lines []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "data.libsvm")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	for _, line := range lines {
		_, err := f.WriteString(line + "\n")
		require.NoError(t, err)
	}
	return path
}

func TestLibSVMReaderBatchesAndPartitions(t *testing.T) {
	path := writeTempLibSVM(t, []string{
		"1 1:1.0 3:2.0",
		"-1 2:1.0",
		"1 1:1.0 2:1.0 5:3.0",
		"-1 3:1.0",
	})

	r, err := NewLibSVMReader(path, 0, 2, "libsvm", 10)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Next())
	mb := r.Value()
	require.Equal(t, 2, mb.Rows.Size())
	require.NoError(t, r.Err())
	require.False(t, r.Next())
}

func TestLibSVMReaderRejectsUnknownFormat(t *testing.T) {
	path := writeTempLibSVM(t, []string{"1 1:1.0"})
	_, err := NewLibSVMReader(path, 0, 1, "criteo", 10)
	require.Error(t, err)
}

func TestLibSVMReaderMinibatchBoundary(t *testing.T) {
	path := writeTempLibSVM(t, []string{
		"1 1:1.0",
		"1 2:1.0",
		"1 3:1.0",
	})

	r, err := NewLibSVMReader(path, 0, 1, "libsvm", 2)
	require.NoError(t, err)
	defer r.Close()

	require.True(t, r.Next())
	mb1 := r.Value()
	require.Equal(t, 2, mb1.Rows.Size())

	require.True(t, r.Next())
	mb2 := r.Value()
	require.Equal(t, 1, mb2.Rows.Size())

	require.False(t, r.Next())
}
