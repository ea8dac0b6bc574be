package vmtest

import (
	"context"
	"time"

	"github.com/hupe1980/vmtest/internal/resource"
)

// Harness runs one workload: provision and map every file, hold, tear down.
//
// A Harness is single-use and not safe for concurrent use.
type Harness struct {
	cfg    Config
	opts   options
	logger *Logger

	rc     *resource.Controller
	prov   *Provisioner
	mapper *Mapper
	set    *MappingSet

	state State
}

// New validates cfg and returns a Harness in StateConfiguring.
// It does not touch the filesystem.
func New(cfg Config, optFns ...Option) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	rc := resource.NewController(resource.Config{
		MemoryLimitBytes:   cfg.MappedLimitBytes,
		IOLimitBytesPerSec: cfg.IOLimitBytesPerSec,
	})

	mapper, err := NewMapper(cfg, rc)
	if err != nil {
		return nil, err
	}

	set := newMappingSet(cfg.NumberOfFiles)
	prov := NewProvisioner(cfg, opts.fs, rc)
	// A file counts as left behind from the moment it exists, even if
	// writing or copying it fails afterwards.
	prov.onCreate = set.markOnDisk

	return &Harness{
		cfg:    cfg,
		opts:   opts,
		logger: opts.logger.WithDir(cfg.Dir),
		rc:     rc,
		prov:   prov,
		mapper: mapper,
		set:    set,
		state:  StateConfiguring,
	}, nil
}

// Run validates cfg, then executes a full run with a new Harness.
func Run(ctx context.Context, cfg Config, optFns ...Option) error {
	h, err := New(cfg, optFns...)
	if err != nil {
		return err
	}
	return h.Run(ctx)
}

// Run checks that the target directory is empty, then for every index
// provisions the file and maps it, holds all mappings for Config.Hold,
// and finally unmaps and removes every file in index order.
//
// The first error of any phase aborts the run; nothing is cleaned up.
// ctx only bounds waits on the IO limiter; the hold itself is not cancellable.
func (h *Harness) Run(ctx context.Context) (err error) {
	if h.state != StateConfiguring {
		return ErrAlreadyRun
	}

	start := time.Now()
	defer func() {
		if err != nil {
			h.transition(ctx, StateFailed)
		}
		h.logger.LogRun(ctx, h.cfg.NumberOfFiles, time.Since(start), err)
	}()

	if err := checkPrecondition(h.opts.fs, h.cfg.Dir); err != nil {
		return err
	}

	for i := 0; i < h.cfg.NumberOfFiles; i++ {
		if err := h.setup(ctx, i); err != nil {
			return err
		}
	}

	h.hold(ctx)

	h.transition(ctx, StateTearingDown)
	if err := h.set.Teardown(h.opts.fs, h.rc, h.teardownStep(ctx)); err != nil {
		return err
	}

	h.transition(ctx, StateDone)
	return nil
}

func (h *Harness) setup(ctx context.Context, i int) error {
	path := h.cfg.Path(i)
	size := h.cfg.FileSize()

	h.transition(ctx, StateProvisioning)
	start := time.Now()
	f, err := h.prov.Provision(ctx, i)
	h.opts.metricsCollector.RecordProvision(i, int64(size), time.Since(start), err)
	h.logger.LogProvision(ctx, i, path, size, err)
	if err != nil {
		return err
	}

	h.transition(ctx, StateMapping)
	start = time.Now()
	mh, err := h.mapper.Map(i, path, f)
	h.opts.metricsCollector.RecordMap(i, int64(size), time.Since(start), err)
	h.logger.LogMap(ctx, i, size, err)
	if err != nil {
		return err
	}
	h.set.add(mh)
	return nil
}

func (h *Harness) hold(ctx context.Context) {
	h.transition(ctx, StateHolding)
	h.logger.LogHold(ctx, h.set.Len(), h.rc.MemoryUsage(), h.cfg.Hold)

	start := time.Now()
	h.opts.sleep(h.cfg.Hold)
	h.opts.metricsCollector.RecordHold(time.Since(start))
}

func (h *Harness) teardownStep(ctx context.Context) TeardownStep {
	return func(mh *MappingHandle, op Op, d time.Duration, err error) {
		switch op {
		case OpUnmap:
			h.opts.metricsCollector.RecordUnmap(mh.Index(), d, err)
			if err != nil {
				h.logger.LogTeardown(ctx, mh.Index(), mh.Path(), err)
			}
		case OpDelete:
			h.opts.metricsCollector.RecordDelete(mh.Index(), d, err)
			h.logger.LogTeardown(ctx, mh.Index(), mh.Path(), err)
		}
	}
}

func (h *Harness) transition(ctx context.Context, to State) {
	if h.state == to {
		return
	}
	h.logger.LogTransition(ctx, h.state, to)
	h.state = to
}

// State returns the current phase.
func (h *Harness) State() State { return h.state }

// Config returns the workload the harness runs.
func (h *Harness) Config() Config { return h.cfg }

// Mappings returns the mappings established so far.
func (h *Harness) Mappings() *MappingSet { return h.set }

// MappedBytes returns the bytes currently held in live mappings.
func (h *Harness) MappedBytes() int64 { return h.rc.MemoryUsage() }

// Remaining returns the indices whose files this run created and has not removed.
func (h *Harness) Remaining() []int { return h.set.Remaining() }
