package vmtest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig matches every *ConfigError.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDirectoryNotEmpty matches every *PreconditionError.
	ErrDirectoryNotEmpty = errors.New("target directory is not empty")

	// ErrCreate matches a *FileError raised while creating file_0.
	ErrCreate = errors.New("create failed")
	// ErrWrite matches a *FileError raised while writing file_0.
	ErrWrite = errors.New("write failed")
	// ErrCopy matches a *FileError raised while duplicating file_0.
	ErrCopy = errors.New("copy failed")
	// ErrMap matches a *FileError raised while establishing a mapping.
	ErrMap = errors.New("map failed")
	// ErrUnmap matches a *FileError raised while releasing a mapping.
	ErrUnmap = errors.New("unmap failed")
	// ErrDelete matches a *FileError raised while removing a file.
	ErrDelete = errors.New("delete failed")

	// ErrContentMismatch is wrapped by a copy error when verification finds
	// a copy whose digest differs from file_0.
	ErrContentMismatch = errors.New("content differs from file_0")

	// ErrAlreadyRun is returned when Run is called on a harness that already ran.
	ErrAlreadyRun = errors.New("harness already ran")
)

// ConfigError indicates an invalid workload parameter.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigError struct {
	Field string
	Value string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("invalid %s %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %v", e.Field, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// PreconditionError indicates the target directory already has entries.
type PreconditionError struct {
	Dir     string
	Entries int
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("directory %s is not empty (%d entries)", e.Dir, e.Entries)
}

// Is reports whether target is ErrDirectoryNotEmpty.
func (e *PreconditionError) Is(target error) bool { return target == ErrDirectoryNotEmpty }

// Op identifies the per-file operation that failed.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpCopy
	OpMap
	OpUnmap
	OpDelete
)

var opNames = [...]string{
	OpCreate: "create",
	OpWrite:  "write",
	OpCopy:   "copy",
	OpMap:    "map",
	OpUnmap:  "unmap",
	OpDelete: "delete",
}

var opSentinels = [...]error{
	OpCreate: ErrCreate,
	OpWrite:  ErrWrite,
	OpCopy:   ErrCopy,
	OpMap:    ErrMap,
	OpUnmap:  ErrUnmap,
	OpDelete: ErrDelete,
}

func (o Op) String() string {
	if o >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// FileError records a failed operation on one provisioned file.
//
// errors.Is(err, ErrMap) etc. match on Op; errors.Unwrap returns the cause.
type FileError struct {
	Op    Op
	Index int
	Path  string
	Err   error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s file %d (%s): %v", e.Op, e.Index, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e.Op.
func (e *FileError) Is(target error) bool {
	if e.Op < 0 || int(e.Op) >= len(opSentinels) {
		return false
	}
	return target == opSentinels[e.Op]
}

func fileError(op Op, index int, path string, err error) *FileError {
	return &FileError{Op: op, Index: index, Path: path, Err: err}
}
