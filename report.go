package delit

import (
	"github.com/google/uuid"
	"github.com/zeebo/xxh3"
	"golang.org/x/exp/slices"
)

// Report aggregates every counter the pipeline produces into one value, so
// the CLI's human-readable summary and any future machine-readable output
// share a single source of truth.
type Report struct {
	RunID uuid.UUID

	DecoderFound    bool
	DecoderTypeName string

	PayloadLength      int
	PayloadFingerprint uint64

	AccessorsRecovered  int
	AccessorsSkipped    int
	UsedLookupTable     bool
	TableRecordsSkipped int

	MethodsPatched int
	CallsReplaced  int
	ResidualCalls  int

	Written bool
}

// NewReport returns a Report stamped with a fresh run ID. The ID is carried
// only on the Report; the pipeline's log lines do not include it.
func NewReport() *Report {
	return &Report{RunID: uuid.New()}
}

// fingerprintPayload hashes the decrypted payload so two runs that decrypt
// to identical bytes are visibly identical in the report without diffing
// the binaries.
func fingerprintPayload(payload []byte) uint64 {
	return xxh3.Hash(payload)
}

// SortedAccessorNames returns am's accessor names sorted lexically, for
// deterministic report rendering independent of insertion order.
func (r *Report) SortedAccessorNames(am *AccessorMap) []string {
	names := am.Names()
	sorted := make([]string, len(names))
	copy(sorted, names)
	slices.Sort(sorted)
	return sorted
}
