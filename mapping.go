package vmtest

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/vmtest/internal/fs"
	"github.com/hupe1980/vmtest/internal/mmap"
	"github.com/hupe1980/vmtest/internal/resource"
)

// MappingHandle is a live mapping of the full content of one provisioned file.
// It does not keep the file open.
type MappingHandle struct {
	index int
	path  string
	m     *mmap.Mapping

	// unmap releases m; tests replace it to simulate munmap failures.
	unmap func() error
}

func newMappingHandle(i int, path string, m *mmap.Mapping) *MappingHandle {
	return &MappingHandle{index: i, path: path, m: m, unmap: m.Close}
}

// Index returns the file index the mapping belongs to.
func (h *MappingHandle) Index() int { return h.index }

// Path returns the path of the backing file.
func (h *MappingHandle) Path() string { return h.path }

// Bytes returns the mapped content. It is nil once the mapping is released.
func (h *MappingHandle) Bytes() []byte { return h.m.Bytes() }

// Size returns the mapped length in bytes.
func (h *MappingHandle) Size() int { return h.m.Size() }

// Released reports whether the mapping has been unmapped.
func (h *MappingHandle) Released() bool { return h.m.Closed() }

// MappingSet holds every mapping of a run in index order.
//
// It also tracks which indices still have a file on disk, so a run that
// stops early can report what it left behind.
type MappingSet struct {
	handles []*MappingHandle
	onDisk  *roaring.Bitmap
}

func newMappingSet(capacity int) *MappingSet {
	return &MappingSet{
		handles: make([]*MappingHandle, 0, capacity),
		onDisk:  roaring.New(),
	}
}

// Len returns the number of mappings in the set.
func (s *MappingSet) Len() int { return len(s.handles) }

// At returns the mapping for index i.
func (s *MappingSet) At(i int) *MappingHandle { return s.handles[i] }

// Handles returns the mappings in index order.
func (s *MappingSet) Handles() []*MappingHandle { return s.handles }

// TotalBytes returns the sum of all mapping sizes.
func (s *MappingSet) TotalBytes() int64 {
	var n int64
	for _, h := range s.handles {
		n += int64(h.Size())
	}
	return n
}

// Remaining returns, in ascending order, the indices whose file was
// provisioned by this run and has not been removed yet.
func (s *MappingSet) Remaining() []int {
	out := make([]int, 0, s.onDisk.GetCardinality())
	it := s.onDisk.Iterator()
	for it.HasNext() {
		out = append(out, int(it.Next()))
	}
	return out
}

func (s *MappingSet) markOnDisk(i int) { s.onDisk.Add(uint32(i)) }

func (s *MappingSet) markRemoved(i int) { s.onDisk.Remove(uint32(i)) }

func (s *MappingSet) add(h *MappingHandle) { s.handles = append(s.handles, h) }

// Mapper establishes one mapping per provisioned file.
type Mapper struct {
	size   int64
	advice mmap.AccessPattern
	rc     *resource.Controller
}

// NewMapper returns a Mapper for files of cfg.FileSize() bytes. rc may be nil.
func NewMapper(cfg Config, rc *resource.Controller) (*Mapper, error) {
	advice, err := mmap.ParseAccessPattern(cfg.Advice)
	if err != nil {
		return nil, &ConfigError{Field: "advise", Value: cfg.Advice, Err: err}
	}
	return &Mapper{
		size:   int64(cfg.FileSize()),
		advice: advice,
		rc:     rc,
	}, nil
}

// Map maps f in full and closes it. The returned handle stays valid until
// it is released by the teardown sequencer.
//
// If closing f fails the new mapping is released again and the close error
// is returned as a map error.
func (mp *Mapper) Map(i int, path string, f fs.File) (*MappingHandle, error) {
	if err := mp.rc.AcquireMemory(mp.size); err != nil {
		_ = f.Close()
		return nil, fileError(OpMap, i, path, err)
	}

	m, err := mmap.Map(f)
	closeErr := f.Close()
	if err == nil && closeErr != nil {
		_ = m.Close()
		err = fmt.Errorf("close after mmap: %w", closeErr)
	}
	if err == nil && mp.advice != mmap.AccessDefault {
		if err = m.Advise(mp.advice); err != nil {
			_ = m.Close()
		}
	}
	if err != nil {
		mp.rc.ReleaseMemory(mp.size)
		return nil, fileError(OpMap, i, path, err)
	}

	return newMappingHandle(i, path, m), nil
}
