// Package optimize shrinks a batch's AI events losslessly-where-possible
// before it leaves the process, matching the "reduce before the
// expensive downstream consumer sees it" shape of veille's dedup and
// normalize passes (veille/dedup.go, veille/migrate_dedup.go,
// veille/normalize.go), retargeted from URL/source dedup to the AI-event
// reductions in spec.md §4.5. The raw events list is never touched.
package optimize

import (
	"encoding/json"
	"time"

	"github.com/tempoflow/tempo/events"
)

// Config toggles each reduction independently and tunes its thresholds,
// per spec.md §4.5 ("each independently toggleable").
type Config struct {
	CoalesceTextInputs     bool
	CoalesceSnapshots      bool
	ThrottleScroll         bool
	DropUseless            bool
	EnforceSnapshotSpacing bool

	TextCoalesceWindow    time.Duration // default 2s
	SnapshotSimilarityPct float64       // default 5.0 (%)
	MaxScrollPerMinute    int           // default 3
	MinSnapshotSpacing    time.Duration // default 30s
}

func (c *Config) defaults() {
	if c.TextCoalesceWindow <= 0 {
		c.TextCoalesceWindow = 2 * time.Second
	}
	if c.SnapshotSimilarityPct <= 0 {
		c.SnapshotSimilarityPct = 5.0
	}
	if c.MaxScrollPerMinute <= 0 {
		c.MaxScrollPerMinute = 3
	}
	if c.MinSnapshotSpacing <= 0 {
		c.MinSnapshotSpacing = 30 * time.Second
	}
}

// DefaultConfig returns a Config with every reduction enabled and default
// thresholds.
func DefaultConfig() Config {
	cfg := Config{
		CoalesceTextInputs:     true,
		CoalesceSnapshots:      true,
		ThrottleScroll:         true,
		DropUseless:            true,
		EnforceSnapshotSpacing: true,
	}
	cfg.defaults()
	return cfg
}

// Optimize applies the enabled reductions to batch.AIEvents in this fixed
// order: drop useless events, coalesce text inputs, coalesce snapshots,
// enforce snapshot spacing, throttle scrolls,
// preserving relative order and exact timestamps of retained events
// (§4.5's ordering contract, §8 property 5). It returns a new Batch with
// AIEvents replaced and OptimizationSummary populated; RawEvents is
// copied through unchanged.
func Optimize(cfg Config, batch events.Batch) events.Batch {
	cfg.defaults()

	before := batch.AIEvents
	bytesBefore := approxBytes(before)

	out := before
	if cfg.DropUseless {
		out = dropUseless(out)
	}
	if cfg.CoalesceTextInputs {
		out = coalesceTextInputs(out, cfg.TextCoalesceWindow)
	}
	if cfg.CoalesceSnapshots {
		out = coalesceSnapshots(out, cfg.SnapshotSimilarityPct)
	}
	if cfg.EnforceSnapshotSpacing {
		out = enforceSnapshotSpacing(out, cfg.MinSnapshotSpacing)
	}
	if cfg.ThrottleScroll {
		out = throttleScroll(out, cfg.MaxScrollPerMinute)
	}

	bytesAfter := approxBytes(out)
	inputCount := len(before)
	outputCount := len(out)
	reduction := 0.0
	if inputCount > 0 {
		reduction = 100.0 * float64(inputCount-outputCount) / float64(inputCount)
	}

	result := batch
	result.AIEvents = out
	result.OptimizationSummary = events.OptimizationSummary{
		InputCount:       inputCount,
		OutputCount:      outputCount,
		ReductionPercent: reduction,
		BytesBefore:      bytesBefore,
		BytesAfter:       bytesAfter,
	}
	return result
}

func approxBytes(ai []events.AIEvent) int {
	b, err := json.Marshal(ai)
	if err != nil {
		return 0
	}
	return len(b)
}
