package vmtest

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/vmtest/internal/fs"
	"github.com/hupe1980/vmtest/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mappedSet(t *testing.T, cfg Config, fsys fs.FileSystem, rc *resource.Controller) *MappingSet {
	t.Helper()
	p := NewProvisioner(cfg, fsys, rc)
	mp, err := NewMapper(cfg, rc)
	require.NoError(t, err)

	s := newMappingSet(cfg.NumberOfFiles)
	for i := 0; i < cfg.NumberOfFiles; i++ {
		f, err := p.Provision(context.Background(), i)
		require.NoError(t, err)
		s.markOnDisk(i)
		h, err := mp.Map(i, cfg.Path(i), f)
		require.NoError(t, err)
		s.add(h)
	}
	return s
}

type stepRecord struct {
	index int
	op    Op
	err   error
}

func TestTeardown_UnmapsBeforeDeleteInIndexOrder(t *testing.T) {
	cfg := testConfig(t, 4, 1, 32)
	ffs := fs.NewFaultyFS(nil)
	rc := resource.NewController(resource.Config{})
	s := mappedSet(t, cfg, ffs, rc)
	require.Equal(t, int64(4*32), rc.MemoryUsage())

	var steps []stepRecord
	err := s.Teardown(ffs, rc, func(h *MappingHandle, op Op, _ time.Duration, err error) {
		if op == OpDelete {
			assert.True(t, h.Released(), "file %d removed while still mapped", h.Index())
		}
		steps = append(steps, stepRecord{h.Index(), op, err})
	})
	require.NoError(t, err)

	want := []stepRecord{
		{0, OpUnmap, nil}, {0, OpDelete, nil},
		{1, OpUnmap, nil}, {1, OpDelete, nil},
		{2, OpUnmap, nil}, {2, OpDelete, nil},
		{3, OpUnmap, nil}, {3, OpDelete, nil},
	}
	assert.Equal(t, want, steps)

	var removed []string
	for i := 0; i < cfg.NumberOfFiles; i++ {
		removed = append(removed, cfg.Path(i))
	}
	assert.Equal(t, removed, ffs.Removed())
	assert.Zero(t, rc.MemoryUsage())

	entries, err := os.ReadDir(cfg.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestTeardown_StopsAtFirstDeleteFailure(t *testing.T) {
	cfg := testConfig(t, 4, 1, 32)
	ffs := fs.NewFaultyFS(nil)
	s := mappedSet(t, cfg, ffs, nil)

	ffs.AddRule("file_1", fs.Fault{FailAfterBytes: -1, FailOnRemove: true})

	err := s.Teardown(ffs, nil, nil)
	assert.ErrorIs(t, err, ErrDelete)

	var ferr *FileError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 1, ferr.Index)
	assert.Equal(t, cfg.Path(1), ferr.Path)

	// file_0 is gone, file_1 failed, later ones were never reached.
	assert.Equal(t, []string{cfg.Path(0)}, ffs.Removed())
	assert.Equal(t, []int{1, 2, 3}, s.Remaining())

	assert.True(t, s.At(1).Released(), "unmap precedes the failed delete")
	assert.False(t, s.At(2).Released())
	assert.False(t, s.At(3).Released())
	assert.Len(t, s.At(3).Bytes(), 32)

	for i := 1; i < 4; i++ {
		_, err := os.Stat(cfg.Path(i))
		assert.NoError(t, err, "file %d must be left in place", i)
	}

	for i := 2; i < 4; i++ {
		require.NoError(t, s.At(i).m.Close())
	}
}

func TestTeardown_FileRemovedExternally(t *testing.T) {
	cfg := testConfig(t, 2, 1, 32)
	s := mappedSet(t, cfg, fs.Default, nil)

	require.NoError(t, os.Remove(cfg.Path(0)))

	err := s.Teardown(fs.Default, nil, nil)
	assert.ErrorIs(t, err, ErrDelete)
	assert.ErrorIs(t, err, os.ErrNotExist)

	// The mapping of a removed file is still released first.
	assert.True(t, s.At(0).Released())
	assert.False(t, s.At(1).Released())
	require.NoError(t, s.At(1).m.Close())
}

func TestTeardown_StopsAtUnmapFailure(t *testing.T) {
	cfg := testConfig(t, 4, 1, 32)
	ffs := fs.NewFaultyFS(nil)
	rc := resource.NewController(resource.Config{})
	s := mappedSet(t, cfg, ffs, rc)

	errBusy := errors.New("munmap: device busy")
	s.At(1).unmap = func() error { return errBusy }

	var steps []stepRecord
	err := s.Teardown(ffs, rc, func(h *MappingHandle, op Op, _ time.Duration, err error) {
		steps = append(steps, stepRecord{h.Index(), op, err})
	})
	assert.ErrorIs(t, err, ErrUnmap)
	assert.ErrorIs(t, err, errBusy)

	var ferr *FileError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, OpUnmap, ferr.Op)
	assert.Equal(t, 1, ferr.Index)

	want := []stepRecord{
		{0, OpUnmap, nil}, {0, OpDelete, nil},
		{1, OpUnmap, errBusy},
	}
	assert.Equal(t, want, steps)

	// file_1 was never removed and nothing after it was touched.
	assert.Equal(t, []string{cfg.Path(0)}, ffs.Removed())
	assert.Equal(t, []int{1, 2, 3}, s.Remaining())
	assert.False(t, s.At(1).Released())
	assert.False(t, s.At(2).Released())
	assert.Equal(t, int64(3*32), rc.MemoryUsage())

	for i := 1; i < 4; i++ {
		_, err := os.Stat(cfg.Path(i))
		assert.NoError(t, err, "file %d must be left in place", i)
		require.NoError(t, s.At(i).m.Close())
	}
}
