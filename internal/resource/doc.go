// Package resource bounds what a harness run may consume.
//
// The Controller manages two resource types:
//
//   - Mapped memory: Track and optionally cap the bytes held in live mappings (non-blocking, fail-fast)
//   - IO: Rate-limit provisioning writes and copies (token bucket)
//
// # Mapped memory
//
// Tracking uses a weighted semaphore for hard limits and an atomic counter
// for usage. AcquireMemory returns ErrMemoryLimitExceeded immediately if the
// limit would be exceeded:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 1 << 30, // 1GB of mappings
//	})
//
//	if err := rc.AcquireMemory(size); err != nil {
//	    // ErrMemoryLimitExceeded
//	}
//	defer rc.ReleaseMemory(size)
//
// # IO Rate Limiting
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 100 * 1024 * 1024, // 100MB/s
//	})
//
//	writer := resource.NewRateLimitedWriter(ctx, file, rc)
//
// Requests larger than the bucket are split into bucket-sized waits.
//
// # Nil Safety
//
// All methods handle nil Controller gracefully - they become no-ops.
package resource
