package vmtest

import (
	"bytes"
	"context"
	_ "crypto/sha256" // digest.Canonical
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/vmtest/internal/fs"
	"github.com/hupe1980/vmtest/internal/resource"
	"github.com/opencontainers/go-digest"
)

const filePerm = 0o644

// Provisioner creates the workload files.
//
// File 0 is written page by page from a single reused buffer; every other
// file is a full byte copy of file 0, never a link.
type Provisioner struct {
	cfg  Config
	fs   fs.FileSystem
	rc   *resource.Controller
	page []byte

	// want is the expected digest of every file when cfg.Verify is set.
	want digest.Digest

	// onCreate is called with the index of every file this Provisioner
	// created, before any content is written to it.
	onCreate func(i int)
}

// NewProvisioner returns a Provisioner for cfg. rc may be nil.
func NewProvisioner(cfg Config, fsys fs.FileSystem, rc *resource.Controller) *Provisioner {
	p := &Provisioner{
		cfg:  cfg,
		fs:   fsys,
		rc:   rc,
		page: bytes.Repeat([]byte{FillByte}, cfg.PageSize),
	}
	if cfg.Verify {
		d := digest.Canonical.Digester()
		for j := 0; j < cfg.PagesPerFile; j++ {
			d.Hash().Write(p.page)
		}
		p.want = d.Digest()
	}
	return p
}

// Provision creates file i and returns it open for read and write.
// File 0 must be provisioned before any other index.
func (p *Provisioner) Provision(ctx context.Context, i int) (fs.File, error) {
	if i == 0 {
		return p.writeFirst(ctx)
	}
	return p.copyFirst(ctx, i)
}

func (p *Provisioner) created(i int) {
	if p.onCreate != nil {
		p.onCreate(i)
	}
}

func (p *Provisioner) writer(ctx context.Context, w io.Writer) io.Writer {
	if p.rc.IOLimited() {
		return resource.NewRateLimitedWriter(ctx, w, p.rc)
	}
	return w
}

func (p *Provisioner) writeFirst(ctx context.Context) (fs.File, error) {
	path := p.cfg.Path(0)

	f, err := p.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return nil, fileError(OpCreate, 0, path, err)
	}
	p.created(0)

	w := p.writer(ctx, f)
	for j := 0; j < p.cfg.PagesPerFile; j++ {
		n, err := w.Write(p.page)
		if err == nil && n != len(p.page) {
			err = io.ErrShortWrite
		}
		if err != nil {
			_ = f.Close()
			return nil, fileError(OpWrite, 0, path, err)
		}
	}
	return f, nil
}

func (p *Provisioner) copyFirst(ctx context.Context, i int) (fs.File, error) {
	path := p.cfg.Path(i)

	if err := p.copyFile(ctx, i, p.cfg.Path(0), path); err != nil {
		return nil, fileError(OpCopy, i, path, err)
	}

	if p.cfg.Verify {
		if err := p.verify(path); err != nil {
			return nil, fileError(OpCopy, i, path, err)
		}
	}

	f, err := p.fs.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fileError(OpCopy, i, path, err)
	}
	return f, nil
}

func (p *Provisioner) copyFile(ctx context.Context, i int, src, dst string) error {
	in, err := p.fs.OpenFile(src, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := p.fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
	if err != nil {
		return err
	}
	p.created(i)

	// Unwrapped *os.File on both ends lets io.Copy use copy_file_range(2).
	n, err := io.Copy(p.writer(ctx, out), in)
	if err == nil && n != int64(p.cfg.FileSize()) {
		err = fmt.Errorf("copied %d of %d bytes: %w", n, p.cfg.FileSize(), io.ErrShortWrite)
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	return err
}

func (p *Provisioner) verify(path string) error {
	f, err := p.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	got, err := p.want.Algorithm().FromReader(f)
	if err != nil {
		return err
	}
	if got != p.want {
		return fmt.Errorf("%w: got %s, want %s", ErrContentMismatch, got, p.want)
	}
	return nil
}
