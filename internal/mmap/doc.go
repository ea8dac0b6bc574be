// Package mmap provides read-only shared memory mappings of whole files.
//
// # Overview
//
// A [Mapping] is created from an open file handle and does not retain it:
// the caller may close the file as soon as [Map] returns and the mapping stays
// valid until [Mapping.Close] unmaps it.
//
// # Usage
//
//	f, _ := os.Open("file_0")
//	m, err := mmap.Map(f)
//	f.Close() // the mapping does not depend on f
//	if err != nil { ... }
//	defer m.Close()
//
//	data := m.Bytes()
//
//	// Provide kernel hints for access patterns
//	m.Advise(mmap.AccessSequential)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): Uses mmap(2) with madvise(2) for access hints
//   - Windows: Uses CreateFileMapping/MapViewOfFile (madvise is a no-op)
//
// # Thread Safety
//
// The Close() method is idempotent and protected by atomic operations.
// Callers must not touch slices returned by Bytes() after Close() returns.
package mmap
