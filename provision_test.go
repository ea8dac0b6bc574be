package vmtest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/vmtest/internal/fs"
	"github.com/hupe1980/vmtest/internal/resource"
	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, files, pages, pageSize int) Config {
	t.Helper()
	cfg := DefaultConfig(t.TempDir())
	cfg.NumberOfFiles = files
	cfg.PagesPerFile = pages
	cfg.PageSize = pageSize
	cfg.Hold = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func provisionAll(t *testing.T, p *Provisioner, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		f, err := p.Provision(context.Background(), i)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
}

func TestProvisioner_CopiesFileZero(t *testing.T) {
	cfg := testConfig(t, 3, 2, 8)
	p := NewProvisioner(cfg, fs.Default, nil)

	provisionAll(t, p, cfg.NumberOfFiles)

	entries, err := os.ReadDir(cfg.Dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	want := bytes.Repeat([]byte{'a'}, 16)
	for i := 0; i < cfg.NumberOfFiles; i++ {
		got, err := os.ReadFile(cfg.Path(i))
		require.NoError(t, err)
		assert.Equal(t, want, got, "file %d", i)
	}

	// Copies are independent files, not links to file_0.
	fi0, err := os.Stat(cfg.Path(0))
	require.NoError(t, err)
	fi1, err := os.Stat(cfg.Path(1))
	require.NoError(t, err)
	assert.False(t, os.SameFile(fi0, fi1))
}

func TestProvisioner_ReturnsReadWriteHandle(t *testing.T) {
	cfg := testConfig(t, 2, 1, 4)
	p := NewProvisioner(cfg, fs.Default, nil)

	for i := 0; i < cfg.NumberOfFiles; i++ {
		f, err := p.Provision(context.Background(), i)
		require.NoError(t, err)

		fi, err := f.Stat()
		require.NoError(t, err)
		assert.Equal(t, int64(4), fi.Size())

		// The handle must be writable; a zero-length write probes that.
		_, err = f.Write(nil)
		assert.NoError(t, err)
		require.NoError(t, f.Close())
	}
}

func TestProvisioner_CreateErrorWhenFileExists(t *testing.T) {
	cfg := testConfig(t, 1, 1, 8)
	require.NoError(t, os.WriteFile(cfg.Path(0), []byte("foreign"), 0644))

	_, err := NewProvisioner(cfg, fs.Default, nil).Provision(context.Background(), 0)
	assert.ErrorIs(t, err, ErrCreate)
	assert.ErrorIs(t, err, os.ErrExist)

	// The foreign file is untouched.
	got, err := os.ReadFile(cfg.Path(0))
	require.NoError(t, err)
	assert.Equal(t, "foreign", string(got))
}

func TestProvisioner_WriteError(t *testing.T) {
	cfg := testConfig(t, 1, 4, 8)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("file_0", fs.Fault{FailAfterBytes: 16})

	_, err := NewProvisioner(cfg, ffs, nil).Provision(context.Background(), 0)
	assert.ErrorIs(t, err, ErrWrite)

	var ferr *FileError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 0, ferr.Index)
	assert.Equal(t, cfg.Path(0), ferr.Path)
}

func TestProvisioner_ShortWrite(t *testing.T) {
	cfg := testConfig(t, 1, 2, 8)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("file_0", fs.Fault{FailAfterBytes: -1, ShortWrite: true})

	_, err := NewProvisioner(cfg, ffs, nil).Provision(context.Background(), 0)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, io.ErrShortWrite)
}

func TestProvisioner_CopyError(t *testing.T) {
	cfg := testConfig(t, 3, 2, 8)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("file_2", fs.Fault{FailAfterBytes: 4})

	p := NewProvisioner(cfg, ffs, nil)
	provisionAll(t, p, 2)

	_, err := p.Provision(context.Background(), 2)
	assert.ErrorIs(t, err, ErrCopy)

	var ferr *FileError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, 2, ferr.Index)
}

func TestProvisioner_CopyErrorWithoutFileZero(t *testing.T) {
	cfg := testConfig(t, 2, 1, 8)

	_, err := NewProvisioner(cfg, fs.Default, nil).Provision(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCopy)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProvisioner_Verify(t *testing.T) {
	cfg := testConfig(t, 3, 3, 16)
	cfg.Verify = true

	p := NewProvisioner(cfg, fs.Default, nil)
	assert.Equal(t, digest.FromBytes(bytes.Repeat([]byte{'a'}, 48)), p.want)
	provisionAll(t, p, cfg.NumberOfFiles)
}

func TestProvisioner_VerifyMismatch(t *testing.T) {
	cfg := testConfig(t, 2, 1, 8)
	cfg.Verify = true

	p := NewProvisioner(cfg, fs.Default, nil)
	p.want = digest.FromString("something else")
	provisionAll(t, p, 1)

	_, err := p.Provision(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCopy)
	assert.ErrorIs(t, err, ErrContentMismatch)
}

func TestProvisioner_IOLimited(t *testing.T) {
	cfg := testConfig(t, 2, 4, 1024)
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})

	provisionAll(t, NewProvisioner(cfg, fs.Default, rc), cfg.NumberOfFiles)

	for i := 0; i < cfg.NumberOfFiles; i++ {
		fi, err := os.Stat(cfg.Path(i))
		require.NoError(t, err)
		assert.Equal(t, int64(4096), fi.Size())
	}
}

func TestProvisioner_IOLimitCancelled(t *testing.T) {
	cfg := testConfig(t, 1, 4, 8)
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 8})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewProvisioner(cfg, fs.Default, rc).Provision(ctx, 0)
	assert.ErrorIs(t, err, ErrWrite)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProvisioner_OnCreate(t *testing.T) {
	cfg := testConfig(t, 3, 2, 8)
	ffs := fs.NewFaultyFS(nil)
	ffs.AddRule("file_2", fs.Fault{FailAfterBytes: 4})

	p := NewProvisioner(cfg, ffs, nil)
	var created []int
	p.onCreate = func(i int) { created = append(created, i) }

	provisionAll(t, p, 2)
	_, err := p.Provision(context.Background(), 2)
	require.ErrorIs(t, err, ErrCopy)

	// The failed copy still created file_2.
	assert.Equal(t, []int{0, 1, 2}, created)
}

func TestProvisioner_OnCreateNotCalledWithoutFile(t *testing.T) {
	cfg := testConfig(t, 2, 1, 8)
	require.NoError(t, os.WriteFile(cfg.Path(0), []byte("foreign"), 0644))

	p := NewProvisioner(cfg, fs.Default, nil)
	called := false
	p.onCreate = func(int) { called = true }

	_, err := p.Provision(context.Background(), 0)
	assert.ErrorIs(t, err, ErrCreate)

	// Source missing for the copy: nothing is created either.
	require.NoError(t, os.Remove(cfg.Path(0)))
	_, err = p.Provision(context.Background(), 1)
	assert.ErrorIs(t, err, ErrCopy)

	assert.False(t, called)
}
