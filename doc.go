// Package vmtest is a harness for reproducing memory-mapped file conditions.
//
// A run provisions a set of equally sized files in an empty directory, maps
// each one into the process address space, holds every mapping live for a
// fixed window, then unmaps and removes the files again. It is meant for
// inspecting kernel and allocator behavior (many mappings, many resident
// pages, mappings that outlive their file handles), not for serving data.
//
// # Quick Start
//
//	cfg, err := vmtest.ParseArgs(vmtest.Args{
//	    NumberOfFiles: "100",
//	    PageSize:      "4096",
//	    Sleep:         "30",
//	    Dir:           "/mnt/scratch",
//	})
//	if err != nil { ... }
//
//	err = vmtest.Run(ctx, cfg, vmtest.WithLogger(vmtest.NewTextLogger(slog.LevelInfo)))
//
// # Workload Shape
//
// file_0 is written directly, one page-sized buffer at a time, with the byte
// 'a'. Every other file is a full byte copy of file_0. Each file is mapped
// read-only and shared as soon as it is ready, and its handle is closed right
// after mapping.
//
// # Lifecycle
//
//	Configuring → Provisioning ⇄ Mapping → Holding → TearingDown → Done
//	                              (any failure) → Failed
//
// Teardown walks the files in index order, unmapping each mapping before
// removing its file. The first error of any phase aborts the run and nothing
// is cleaned up afterwards; [Harness.Remaining] lists the files left behind.
//
// # Errors
//
// Failures are reported as [*ConfigError], [*PreconditionError] or
// [*FileError]. Use errors.Is with [ErrInvalidConfig], [ErrDirectoryNotEmpty],
// [ErrCreate], [ErrWrite], [ErrCopy], [ErrMap], [ErrUnmap] or [ErrDelete] to
// classify them.
package vmtest
