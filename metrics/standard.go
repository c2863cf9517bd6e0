// Package metrics declares the block engine's metrics. All of them live in
// go-ethereum's default registry, so any exporter wired to that registry
// (or Snapshot below) sees them.
package metrics

import (
	"sort"

	gethmetrics "github.com/ethereum/go-ethereum/metrics"
)

var (
	// ---- Construction ----

	// BlocksFromData counts blocks built from structured data.
	BlocksFromData = gethmetrics.NewRegisteredCounter("block/construct/data", nil)
	// BlocksFromRLP counts blocks built from RLP bytes.
	BlocksFromRLP = gethmetrics.NewRegisteredCounter("block/construct/rlp", nil)
	// BlocksFromValues counts blocks built from decoded value arrays.
	BlocksFromValues = gethmetrics.NewRegisteredCounter("block/construct/values", nil)
	// BlocksFromPayload counts blocks built from execution payloads.
	BlocksFromPayload = gethmetrics.NewRegisteredCounter("block/construct/payload", nil)
	// ConstructFailures counts builder calls rejected by an invariant.
	ConstructFailures = gethmetrics.NewRegisteredCounter("block/construct/failed", nil)

	// ---- Validation ----

	// ValidateFailures counts fatal validation failures.
	ValidateFailures = gethmetrics.NewRegisteredCounter("block/validate/failed", nil)
	// TrieRootTimer times list-commitment root derivation.
	TrieRootTimer = gethmetrics.NewRegisteredTimer("block/trieroot", nil)

	// ---- Engine ----

	// PayloadHashMismatch counts payloads whose declared hash was wrong.
	PayloadHashMismatch = gethmetrics.NewRegisteredCounter("engine/payload/hashmismatch", nil)
	// BlobBundlesVerified counts successfully verified blob bundles.
	BlobBundlesVerified = gethmetrics.NewRegisteredCounter("engine/blobs/verified", nil)
)

// Enable switches on metric collection process-wide.
func Enable() { gethmetrics.Enable() }

// Snapshot returns the current counter values by name, in name order.
func Snapshot() []Sample {
	var out []Sample
	gethmetrics.DefaultRegistry.Each(func(name string, m interface{}) {
		switch m := m.(type) {
		case *gethmetrics.Counter:
			out = append(out, Sample{Name: name, Value: m.Snapshot().Count()})
		case *gethmetrics.Timer:
			out = append(out, Sample{Name: name, Value: m.Snapshot().Count()})
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Sample is one named metric value.
type Sample struct {
	Name  string
	Value int64
}
