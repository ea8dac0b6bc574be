package vmtest

import (
	"time"

	"github.com/hupe1980/vmtest/internal/fs"
	"github.com/hupe1980/vmtest/internal/resource"
)

// TeardownStep is called after every unmap and every delete attempt.
type TeardownStep func(h *MappingHandle, op Op, d time.Duration, err error)

// Teardown releases each mapping and then removes its file, in index order.
//
// The first failure stops the sequence and is returned as a *FileError;
// mappings and files of later indices stay in place. step may be nil.
func (s *MappingSet) Teardown(fsys fs.FileSystem, rc *resource.Controller, step TeardownStep) error {
	if step == nil {
		step = func(*MappingHandle, Op, time.Duration, error) {}
	}

	for _, h := range s.handles {
		start := time.Now()
		err := h.unmap()
		step(h, OpUnmap, time.Since(start), err)
		if err != nil {
			return fileError(OpUnmap, h.index, h.path, err)
		}
		rc.ReleaseMemory(int64(h.Size()))

		start = time.Now()
		err = fsys.Remove(h.path)
		step(h, OpDelete, time.Since(start), err)
		if err != nil {
			return fileError(OpDelete, h.index, h.path, err)
		}
		s.markRemoved(h.index)
	}
	return nil
}
