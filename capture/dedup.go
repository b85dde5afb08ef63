package capture

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"sync"
	"time"

	"github.com/tempoflow/tempo/events"
)

// dedup removes duplicate RawEvents produced when two sources race each
// other for the same observation — e.g. an OS-level input hook and an
// accessibility polling fallback both firing for the same click. Key:
// (layer, kind, timestamp ± tolerance, payload digest), generalized
// directly from domwatch/internal/observer/dedup.go's
// (xpath, op, timestamp ± tolerance) scheme, with the same 50ms window.
// The first registration is kept and any equivalent event registered
// after it inside the window is reported as seen. Session.rawOut passes
// events through in arrival order, so which source's copy survives
// depends only on which arrived first, not on source fidelity.
//
// Session.rawOut spawns one fan-in goroutine per configured source, so
// with the normal multi-source case (OS input, app focus, clipboard,
// browser all enabled at once) Seen is called concurrently from
// several goroutines against the same dedup instance; mu serializes
// access to recent instead of relying on the single-writer discipline
// that holds for the Raw Event Buffer further downstream (spec.md §5),
// which only ever has one designated writer task.
type dedup struct {
	mu        sync.Mutex
	tolerance time.Duration
	maxRecent int
	recent    []dedupEntry
}

type dedupEntry struct {
	layer  events.Layer
	kind   events.Kind
	digest uint64
	at     time.Time
}

func newDedup() *dedup {
	return &dedup{tolerance: 50 * time.Millisecond, maxRecent: 500}
}

// Seen registers e and reports whether an equivalent event was already
// seen within the tolerance window. Safe for concurrent use.
func (d *dedup) Seen(e events.RawEvent) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := dedupEntry{layer: e.Layer, kind: e.Kind, digest: payloadDigest(e.Payload), at: e.Timestamp}

	cutoff := e.Timestamp.Add(-2 * d.tolerance)
	fresh := d.recent[:0]
	for _, entry := range d.recent {
		if entry.at.After(cutoff) {
			fresh = append(fresh, entry)
		}
	}
	d.recent = fresh

	for _, entry := range d.recent {
		if entry.layer == key.layer && entry.kind == key.kind && entry.digest == key.digest &&
			absDuration(entry.at.Sub(key.at)) <= d.tolerance {
			return true
		}
	}

	d.recent = append(d.recent, key)
	if len(d.recent) > d.maxRecent {
		d.recent = d.recent[len(d.recent)-d.maxRecent:]
	}
	return false
}

func payloadDigest(payload any) uint64 {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	sum := sha256.Sum256(b)
	return binary.BigEndian.Uint64(sum[:8])
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
