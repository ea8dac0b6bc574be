package vmtest

import (
	"time"

	"github.com/hupe1980/vmtest/internal/fs"
)

type options struct {
	fs               fs.FileSystem
	logger           *Logger
	metricsCollector MetricsCollector
	sleep            func(time.Duration)
}

// Option configures a Harness.
type Option func(*options)

// WithLogger configures structured logging for the run.
//
// If nil is passed, logging is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetricsCollector configures the collector notified after every
// per-file operation.
//
// If nil is passed, NoopMetricsCollector is used.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithFileSystem replaces the filesystem used for every file operation.
// Tests use it to inject an fs.FaultyFS.
func WithFileSystem(fsys fs.FileSystem) Option {
	return func(o *options) {
		if fsys == nil {
			fsys = fs.Default
		}
		o.fs = fsys
	}
}

// WithSleeper replaces time.Sleep for the observation window.
// The function is called exactly once per run, with Config.Hold.
func WithSleeper(sleep func(time.Duration)) Option {
	return func(o *options) {
		if sleep == nil {
			sleep = time.Sleep
		}
		o.sleep = sleep
	}
}

func defaultOptions() options {
	return options{
		fs:               fs.Default,
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		sleep:            time.Sleep,
	}
}
