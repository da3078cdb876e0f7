package source

import (
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitNames(t *testing.T, it Iterator[*Unit]) []string {
	t.Helper()
	var names []string
	require.NoError(t, ForEach(it, func(u *Unit) error {
		names = append(names, u.Name())
		return nil
	}))
	return names
}

func TestNewPipeline(t *testing.T) {
	root := t.TempDir()
	small := writeFile(t, filepath.Join(root, "small.bin"), sequence(5))
	large := writeFile(t, filepath.Join(root, "large.bin"), sequence(25))
	empty := writeFile(t, filepath.Join(root, "empty.bin"), nil)
	dir := filepath.Join(root, "dir")
	writeFile(t, filepath.Join(dir, "nested.bin"), sequence(3))
	writeFile(t, filepath.Join(dir, "nested_empty.bin"), nil)
	missing := filepath.Join(root, "missing.bin")

	t.Run("recursive and split", func(t *testing.T) {
		logger := newRecordingLogger()
		it, err := NewPipeline([]string{small, missing, large, empty, dir}, PipelineOptions{
			Directories: DirectoryRecursive,
			LargeFiles:  LargeFileSplit,
			Unit:        UnitOptions{Limits: smallLimits(10), Logger: logger},
		})
		require.NoError(t, err)

		assert.Equal(t, []string{
			"small.bin",
			"large.bin.00", "large.bin.01", "large.bin.02",
			"nested.bin",
		}, unitNames(t, it))
		assert.Len(t, logger.warnings, 3)
	})

	t.Run("rejected directory fails before any unit", func(t *testing.T) {
		_, err := NewPipeline([]string{small, dir}, PipelineOptions{
			Directories: DirectoryReject,
			LargeFiles:  LargeFileSplit,
			Unit:        UnitOptions{Limits: smallLimits(10), Logger: newRecordingLogger()},
		})
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
	})

	t.Run("rejected large file fails before any unit", func(t *testing.T) {
		_, err := NewPipeline([]string{small, large}, PipelineOptions{
			Directories: DirectoryRecursive,
			LargeFiles:  LargeFileReject,
			Unit:        UnitOptions{Limits: smallLimits(10), Logger: newRecordingLogger()},
		})
		require.Error(t, err)
		assert.True(t, IsInvalidInput(err))
		assert.Contains(t, err.Error(), large)
	})

	t.Run("unsupported thumbnail selector", func(t *testing.T) {
		_, err := NewPipeline([]string{small}, PipelineOptions{
			Unit: UnitOptions{Thumbnail: Thumbnail{Mode: ThumbnailMode(9)}},
		})
		assert.True(t, IsUnsupportedValue(err))
	})
}

func TestNewPipeline_IsLazyWhenNothingIsRejected(t *testing.T) {
	root := t.TempDir()
	first := writeFile(t, filepath.Join(root, "first.bin"), sequence(5))
	removed := writeFile(t, filepath.Join(root, "removed.bin"), sequence(5))

	it, err := NewPipeline([]string{first, removed}, PipelineOptions{
		Directories: DirectoryRecursive,
		LargeFiles:  LargeFileSplit,
		Unit:        UnitOptions{Logger: newRecordingLogger()},
	})
	require.NoError(t, err)

	unit, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, "first.bin", unit.Name())

	// validated only when pulled, so emptying it now drops it
	writeFile(t, removed, nil)

	_, err = it.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestNewPipeline_KeepsOrderAndRepeatedPaths(t *testing.T) {
	root := t.TempDir()
	a := writeFile(t, filepath.Join(root, "a.bin"), sequence(4))
	dir := filepath.Join(root, "dir")
	writeFile(t, filepath.Join(dir, "b.bin"), sequence(2))
	writeFile(t, filepath.Join(dir, "sub", "c.bin"), sequence(3))
	writeFile(t, filepath.Join(dir, "d.bin"), sequence(1))
	big := writeFile(t, filepath.Join(root, "big.bin"), sequence(25))

	it, err := NewPipeline([]string{a, dir, a, big}, PipelineOptions{
		Directories: DirectoryRecursive,
		LargeFiles:  LargeFileSplit,
		Unit:        UnitOptions{Limits: smallLimits(10), Logger: newRecordingLogger()},
	})
	require.NoError(t, err)

	units, err := Collect(it)
	require.NoError(t, err)

	var names, paths []string
	for _, u := range units {
		names = append(names, u.Name())
		paths = append(paths, u.Path())
	}
	assert.Equal(t, []string{
		"a.bin",
		"b.bin", "d.bin", "c.bin",
		"a.bin",
		"big.bin.00", "big.bin.01", "big.bin.02",
	}, names)
	assert.Equal(t, a, paths[0])
	assert.Equal(t, a, paths[4])
}
