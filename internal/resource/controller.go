package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the build memory limit.
var ErrMemoryLimitExceeded = errors.New("resource: build memory limit exceeded")

// Config holds resource limits. Zero values mean unlimited, except
// MaxConcurrentTransfers which defaults to 8.
type Config struct {
	MaxConcurrentTransfers int64 `yaml:"max_concurrent_transfers"`
	TransferBytesPerSec    int64 `yaml:"transfer_bytes_per_sec"`
	BuildMemoryBytes       int64 `yaml:"build_memory_bytes"`
}

// Controller enforces a Config.
type Controller struct {
	cfg Config

	transferSem *semaphore.Weighted
	ioLimiter   *rate.Limiter

	memSem  *semaphore.Weighted
	memUsed atomic.Int64
}

// NewController creates a controller for cfg.
func NewController(cfg Config) *Controller {
	if cfg.MaxConcurrentTransfers <= 0 {
		cfg.MaxConcurrentTransfers = 8
	}
	c := &Controller{
		cfg:         cfg,
		transferSem: semaphore.NewWeighted(cfg.MaxConcurrentTransfers),
	}
	if cfg.TransferBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.TransferBytesPerSec), int(cfg.TransferBytesPerSec))
	}
	if cfg.BuildMemoryBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.BuildMemoryBytes)
	}
	return c
}

// Config returns the effective configuration.
func (c *Controller) Config() Config {
	if c == nil {
		return Config{}
	}
	return c.cfg
}

// AcquireTransfer blocks until a transfer slot is free and size bytes of
// throughput budget are available. Every successful call must be paired with
// ReleaseTransfer.
func (c *Controller) AcquireTransfer(ctx context.Context, size int) error {
	if c == nil {
		return nil
	}
	if err := c.transferSem.Acquire(ctx, 1); err != nil {
		return err
	}
	if err := c.waitIO(ctx, size); err != nil {
		c.transferSem.Release(1)
		return err
	}
	return nil
}

// ReleaseTransfer frees a slot taken by AcquireTransfer.
func (c *Controller) ReleaseTransfer() {
	if c == nil {
		return
	}
	c.transferSem.Release(1)
}

// waitIO consumes size tokens in burst-sized steps; WaitN rejects n > burst.
func (c *Controller) waitIO(ctx context.Context, size int) error {
	if c.ioLimiter == nil || size <= 0 {
		return nil
	}
	burst := c.ioLimiter.Burst()
	for size > 0 {
		n := min(size, burst)
		if err := c.ioLimiter.WaitN(ctx, n); err != nil {
			return err
		}
		size -= n
	}
	return nil
}

// ReserveMemory accounts bytes against the build memory limit without blocking.
func (c *Controller) ReserveMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}
	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}
	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns bytes reserved with ReserveMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}
	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}
