package broker

import (
	"context"
	"time"

	"github.com/lookatitude/hey-raven/o11y"
)

// ProcessFunc handles one entry. ack reports whether the entry should be
// acknowledged: true for both success and permanent failure (per spec.md
// §4.5/§7, a permanent failure is logged and acknowledged with no output),
// false to leave it pending for redelivery after a transient failure.
type ProcessFunc func(ctx context.Context, entry Entry) (ack bool, err error)

// LoopConfig configures Run's standard per-stage processing loop.
type LoopConfig struct {
	Stream        string
	Group         string
	Consumer      string
	StageName     string
	BatchSize     int64
	BlockDuration time.Duration
	ClaimInterval time.Duration
	StaleIdle     time.Duration
	MaxDeliveries int64
}

func (cfg LoopConfig) normalize() LoopConfig {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockDuration <= 0 {
		cfg.BlockDuration = 2 * time.Second
	}
	if cfg.ClaimInterval <= 0 {
		cfg.ClaimInterval = 30 * time.Second
	}
	if cfg.StaleIdle <= 0 {
		cfg.StaleIdle = 60 * time.Second
	}
	if cfg.MaxDeliveries <= 0 {
		cfg.MaxDeliveries = 5
	}
	return cfg
}

// Run implements the standard per-stage loop from spec.md §4.5: ensure the
// consumer group exists, periodically claim stale pending entries, read new
// entries in batches with a blocking timeout, and process each one. It
// blocks until ctx is cancelled.
func (c *Client) Run(ctx context.Context, cfg LoopConfig, process ProcessFunc) error {
	cfg = cfg.normalize()
	log := o11y.FromContext(ctx).With("stage", cfg.StageName, "stream", cfg.Stream)

	if err := c.EnsureGroup(ctx, cfg.Stream, cfg.Group); err != nil {
		return err
	}

	nextClaim := time.Now()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !time.Now().Before(nextClaim) {
			c.claimAndProcess(ctx, cfg, process, log)
			nextClaim = time.Now().Add(cfg.ClaimInterval)
		}

		entries, err := c.ReadGroup(ctx, cfg.Stream, cfg.Group, cfg.Consumer, cfg.BatchSize, cfg.BlockDuration)
		if err != nil {
			log.Error(ctx, "read_group failed", "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
			continue
		}

		for _, e := range entries {
			c.processEntry(ctx, cfg, process, e, log)
		}
	}
}

func (c *Client) claimAndProcess(ctx context.Context, cfg LoopConfig, process ProcessFunc, log *o11y.Logger) {
	claimed, err := c.Claim(ctx, cfg.Stream, cfg.Group, cfg.Consumer, cfg.StaleIdle)
	if err != nil {
		log.Error(ctx, "claim failed", "error", err)
		return
	}
	if len(claimed) == 0 {
		return
	}

	pending, err := c.Pending(ctx, cfg.Stream, cfg.Group)
	deliveries := make(map[string]int64, len(pending))
	if err == nil {
		for _, p := range pending {
			deliveries[p.ID] = p.Deliveries
		}
	}

	for _, e := range claimed {
		d := deliveries[e.ID]
		if cfg.MaxDeliveries > 0 && d >= cfg.MaxDeliveries {
			if err := c.DeadLetter(ctx, cfg.Stream, cfg.Group, e, cfg.StageName, "max_deliveries_exceeded", d); err != nil {
				log.Error(ctx, "dead letter failed", "error", err, "id", e.ID)
			}
			continue
		}
		c.processEntry(ctx, cfg, process, e, log)
	}
}

func (c *Client) processEntry(ctx context.Context, cfg LoopConfig, process ProcessFunc, e Entry, log *o11y.Logger) {
	ack, err := process(ctx, e)
	if err != nil {
		log.Error(ctx, "processing failed", "error", err, "id", e.ID, "acked", ack)
	}
	if ack {
		if err := c.Ack(ctx, cfg.Stream, cfg.Group, e.ID); err != nil {
			log.Error(ctx, "ack failed", "error", err, "id", e.ID)
		}
	}
}
