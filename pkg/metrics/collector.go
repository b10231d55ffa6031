package metrics

import (
	"context"
	"time"
)

// MemoryCounter is satisfied by the memory store; it is the minimal surface
// the collector needs and is defined here to avoid an import cycle with
// pkg/memory.
type MemoryCounter interface {
	Count(ctx context.Context) (int64, error)
}

// SecretCounter is satisfied by the secrets store.
type SecretCounter interface {
	Count(ctx context.Context) (int64, error)
}

// DeviceCounter is satisfied by the sync engine's device registry.
type DeviceCounter interface {
	DeviceCount(ctx context.Context) (int64, error)
}

// Collector periodically samples store sizes into the gauge metrics.
// Any of its three sources may be nil (e.g. before the vault is unlocked),
// in which case that gauge is simply not updated on that tick.
type Collector struct {
	memories MemoryCounter
	secrets  SecretCounter
	devices  DeviceCounter
	stopCh   chan struct{}
}

// NewCollector creates a new metrics collector.
func NewCollector(memories MemoryCounter, secrets SecretCounter, devices DeviceCounter) *Collector {
	return &Collector{
		memories: memories,
		secrets:  secrets,
		devices:  devices,
		stopCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.memories != nil {
		if n, err := c.memories.Count(ctx); err == nil {
			MemoriesTotal.Set(float64(n))
		}
	}

	if c.secrets != nil {
		if n, err := c.secrets.Count(ctx); err == nil {
			SecretsTotal.Set(float64(n))
		}
	}

	if c.devices != nil {
		if n, err := c.devices.DeviceCount(ctx); err == nil {
			DevicesTotal.Set(float64(n))
		}
	}
}
