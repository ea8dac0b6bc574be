// Command vmtest helps test mmap behaviour.
//
// It creates number-of-files files, each with pages-per-file * page-size
// bytes, in DIRECTORY and maps every one into the process address space.
// After holding all mappings for sleep seconds it unmaps and deletes them.
// DIRECTORY must exist and be empty.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/hupe1980/vmtest"
	"github.com/pkg/profile"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

type flags struct {
	args vmtest.Args

	advise         string
	ioLimit        int64
	maxMappedBytes int64
	verify         bool
	logLevel       string
	logFormat      string
	profileMode    string
}

func newFlagSet(f *flags, stderr io.Writer) *flag.FlagSet {
	fset := flag.NewFlagSet("vmtest", flag.ContinueOnError)
	fset.SetOutput(stderr)
	fset.Usage = func() {
		fmt.Fprintf(stderr, "Usage: vmtest [flags] DIRECTORY\n\n")
		fmt.Fprintf(stderr, "Creates files in the empty DIRECTORY, mmaps each of them, sleeps,\nthen unmaps and deletes them all.\n\nFlags:\n")
		fset.PrintDefaults()
	}

	fset.StringVar(&f.args.NumberOfFiles, "number-of-files", "10", "The number of files to create and mmap.")
	fset.StringVar(&f.args.PagesPerFile, "pages-per-file", "10", "The number of pages per file.")
	fset.StringVar(&f.args.PageSize, "page-size", "1024", "The number of bytes in a page.")
	fset.StringVar(&f.args.Sleep, "sleep", "10", "Seconds to hold all mappings before deleting the files.")

	fset.StringVar(&f.advise, "advise", "", "madvise hint for every mapping: normal, sequential, random, willneed, dontneed.")
	fset.Int64Var(&f.ioLimit, "io-limit", 0, "Cap provisioning IO at this many bytes per second (0 = unlimited).")
	fset.Int64Var(&f.maxMappedBytes, "max-mapped-bytes", 0, "Fail if live mappings would exceed this many bytes (0 = unlimited).")
	fset.BoolVar(&f.verify, "verify", false, "Digest every copy and compare it with file_0.")
	fset.StringVar(&f.logLevel, "log-level", "warn", "Log level: debug, info, warn, error.")
	fset.StringVar(&f.logFormat, "log-format", "text", "Log format: text or json.")
	fset.StringVar(&f.profileMode, "profile", "", "Enable profiling mode, one of [cpu, mem, mutex, block].")
	return fset
}

// parseArgs accepts flags both before and after the directory argument.
func parseArgs(args []string, stderr io.Writer) (*flags, error) {
	f := &flags{}
	fset := newFlagSet(f, stderr)

	err := fset.Parse(args)
	if err != nil {
		return nil, err
	}
	rest := fset.Args()
	if len(rest) > 0 {
		f.args.Dir = rest[0]
		if err = fset.Parse(rest[1:]); err != nil {
			return nil, err
		}
		rest = fset.Args()
	}

	switch {
	case f.args.Dir == "":
		err = errors.New("missing DIRECTORY argument")
	case len(rest) > 0:
		err = fmt.Errorf("unexpected arguments: %s", strings.Join(rest, " "))
	default:
		return f, nil
	}
	// Match the flag package, which reports its own parse errors this way.
	fmt.Fprintln(stderr, err)
	fset.Usage()
	return nil, err
}

func newLogger(level, format string) (*vmtest.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log-level %q", level)
	}
	switch format {
	case "text":
		return vmtest.NewTextLogger(lvl), nil
	case "json":
		return vmtest.NewJSONLogger(lvl), nil
	default:
		return nil, fmt.Errorf("invalid log-format %q", format)
	}
}

func startProfile(mode string) (interface{ Stop() }, error) {
	// NoShutdownHook: an interrupted run must die like an unprofiled one.
	opts := []func(*profile.Profile){profile.NoShutdownHook}
	switch mode {
	case "":
		return nil, nil
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfile)
	case "mutex":
		opts = append(opts, profile.MutexProfile)
	case "block":
		opts = append(opts, profile.BlockProfile)
	default:
		return nil, fmt.Errorf("invalid profile mode %q", mode)
	}
	return profile.Start(opts...), nil
}

func run(args []string, stderr io.Writer) int {
	f, err := parseArgs(args, stderr)
	if err != nil {
		// Already reported together with the usage text.
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger, err := newLogger(f.logLevel, f.logFormat)
	if err != nil {
		fmt.Fprintf(stderr, "vmtest: %v\n", err)
		return 2
	}

	runID, err := uuid.NewV7()
	if err != nil {
		fmt.Fprintf(stderr, "vmtest: could not create run id: %v\n", err)
		return 1
	}
	logger = logger.WithRunID(runID.String())

	cfg, err := vmtest.ParseArgs(f.args)
	if err != nil {
		fmt.Fprintf(stderr, "vmtest: %v\n", err)
		return 1
	}
	cfg.Advice = f.advise
	cfg.Verify = f.verify
	cfg.IOLimitBytesPerSec = f.ioLimit
	cfg.MappedLimitBytes = f.maxMappedBytes

	prof, err := startProfile(f.profileMode)
	if err != nil {
		fmt.Fprintf(stderr, "vmtest: %v\n", err)
		return 2
	}
	if prof != nil {
		defer prof.Stop()
	}

	metrics := &vmtest.BasicMetricsCollector{}
	h, err := vmtest.New(cfg,
		vmtest.WithLogger(logger),
		vmtest.WithMetricsCollector(metrics),
	)
	if err != nil {
		fmt.Fprintf(stderr, "vmtest: %v\n", err)
		return 1
	}

	ctx := context.Background()
	err = h.Run(ctx)
	logger.InfoContext(ctx, "run stats", "stats", metrics.GetStats())
	if err != nil {
		fmt.Fprintf(stderr, "vmtest: %v\n", err)
		if left := h.Remaining(); len(left) > 0 {
			names := make([]string, len(left))
			for i, idx := range left {
				names[i] = vmtest.FileName(idx)
			}
			fmt.Fprintf(stderr, "vmtest: files left in %s: %s\n", cfg.Dir, strings.Join(names, ", "))
		}
		return 1
	}
	return 0
}
