// Package fs provides filesystem abstractions for testability and fault injection.
//
// The package defines two key interfaces:
//
//   - [File]: an open file that can be read, written, mapped (via Fd) and stat'ed
//   - [FileSystem]: the directory operations the harness needs (open, remove, list)
//
// # Implementations
//
//   - [LocalFS]: Production implementation using standard os package
//   - [FaultyFS]: Test utility for fault injection (simulate I/O errors)
//
// # Usage
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("file_1", fs.Fault{FailAfterBytes: 0})
//	// inject ffs into the provisioner under test
//
// # Design Notes
//
// This package intentionally does NOT include context.Context parameters.
// Local filesystem calls are non-interruptible at the syscall level.
package fs
