package vmtest

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"time"

	"github.com/hupe1980/vmtest/internal/fs"
	"github.com/hupe1980/vmtest/internal/mmap"
)

// Defaults applied by ParseArgs when an input is empty.
const (
	DefaultNumberOfFiles = 10
	DefaultPagesPerFile  = 10
	DefaultPageSize      = 1024
	DefaultHold          = 10 * time.Second
)

// FillByte is the content of every byte of every provisioned file.
const FillByte byte = 'a'

// Args holds the raw, unparsed workload inputs as they come from the command line.
type Args struct {
	NumberOfFiles string
	PagesPerFile  string
	PageSize      string
	Sleep         string // whole seconds
	Dir           string
}

// Config is a validated workload. It is immutable once a Harness owns it.
type Config struct {
	NumberOfFiles int
	PagesPerFile  int
	PageSize      int
	Hold          time.Duration
	Dir           string

	// Advice is the madvise hint applied to every mapping
	// ("", "normal", "sequential", "random", "willneed", "dontneed").
	Advice string

	// Verify digests every copy and compares it with file_0.
	Verify bool

	// IOLimitBytesPerSec caps provisioning throughput. 0 means unlimited.
	IOLimitBytesPerSec int64

	// MappedLimitBytes caps the total size of live mappings. 0 means unlimited.
	MappedLimitBytes int64
}

// DefaultConfig returns the default workload for dir.
func DefaultConfig(dir string) Config {
	return Config{
		NumberOfFiles: DefaultNumberOfFiles,
		PagesPerFile:  DefaultPagesPerFile,
		PageSize:      DefaultPageSize,
		Hold:          DefaultHold,
		Dir:           dir,
	}
}

// ParseArgs parses and validates raw inputs, applying defaults for empty ones.
func ParseArgs(a Args) (Config, error) {
	cfg := DefaultConfig(a.Dir)

	var err error
	if cfg.NumberOfFiles, err = parseCount("number-of-files", a.NumberOfFiles, DefaultNumberOfFiles); err != nil {
		return Config{}, err
	}
	if cfg.PagesPerFile, err = parseCount("pages-per-file", a.PagesPerFile, DefaultPagesPerFile); err != nil {
		return Config{}, err
	}
	if cfg.PageSize, err = parseCount("page-size", a.PageSize, DefaultPageSize); err != nil {
		return Config{}, err
	}

	secs, err := parseCount("sleep", a.Sleep, int(DefaultHold/time.Second))
	if err != nil {
		return Config{}, err
	}
	if int64(secs) > math.MaxInt64/int64(time.Second) {
		return Config{}, &ConfigError{Field: "sleep", Value: a.Sleep, Err: strconv.ErrRange}
	}
	cfg.Hold = time.Duration(secs) * time.Second

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func parseCount(field, value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.ParseUint(value, 10, strconv.IntSize-1)
	if err != nil {
		var numErr *strconv.NumError
		if errors.As(err, &numErr) {
			err = numErr.Err
		}
		return 0, &ConfigError{Field: field, Value: value, Err: err}
	}
	return int(n), nil
}

// Validate checks the numeric invariants of c. It does not touch the filesystem.
func (c Config) Validate() error {
	switch {
	case c.NumberOfFiles < 0:
		return &ConfigError{Field: "number-of-files", Value: strconv.Itoa(c.NumberOfFiles)}
	case c.PagesPerFile < 0:
		return &ConfigError{Field: "pages-per-file", Value: strconv.Itoa(c.PagesPerFile)}
	case c.PageSize < 0:
		return &ConfigError{Field: "page-size", Value: strconv.Itoa(c.PageSize)}
	case c.Hold < 0:
		return &ConfigError{Field: "sleep", Value: c.Hold.String()}
	case c.Dir == "":
		return &ConfigError{Field: "directory", Value: c.Dir, Err: errors.New("required")}
	case c.IOLimitBytesPerSec < 0:
		return &ConfigError{Field: "io-limit", Value: strconv.FormatInt(c.IOLimitBytesPerSec, 10)}
	case c.MappedLimitBytes < 0:
		return &ConfigError{Field: "max-mapped-bytes", Value: strconv.FormatInt(c.MappedLimitBytes, 10)}
	}

	if c.PageSize > 0 && c.PagesPerFile > math.MaxInt/c.PageSize {
		return &ConfigError{
			Field: "pages-per-file",
			Value: strconv.Itoa(c.PagesPerFile),
			Err:   fmt.Errorf("file size %d*%d overflows", c.PagesPerFile, c.PageSize),
		}
	}

	if _, err := mmap.ParseAccessPattern(c.Advice); err != nil {
		return &ConfigError{Field: "advise", Value: c.Advice, Err: err}
	}
	return nil
}

// FileSize is the size in bytes of every provisioned file.
func (c Config) FileSize() int {
	return c.PagesPerFile * c.PageSize
}

// TotalBytes is the size of all provisioned files together.
func (c Config) TotalBytes() int64 {
	return int64(c.NumberOfFiles) * int64(c.FileSize())
}

// Path returns the path of file i inside the target directory.
func (c Config) Path(i int) string {
	return filepath.Join(c.Dir, FileName(i))
}

// FileName returns the name of file i ("file_<i>").
func FileName(i int) string {
	return "file_" + strconv.Itoa(i)
}

// CheckPrecondition fails with a *PreconditionError if dir has any entries,
// or a *ConfigError if dir cannot be read.
func CheckPrecondition(dir string) error {
	return checkPrecondition(fs.Default, dir)
}

func checkPrecondition(fsys fs.FileSystem, dir string) error {
	entries, err := fsys.ReadDir(dir)
	if err != nil {
		return &ConfigError{Field: "directory", Value: dir, Err: err}
	}
	if len(entries) != 0 {
		return &PreconditionError{Dir: dir, Entries: len(entries)}
	}
	return nil
}
