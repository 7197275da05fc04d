package delit

import (
	"hash/maphash"

	"github.com/aristanetworks/gomap"
)

// AccessorMap maps an accessor method's exact name, as it appears in
// metadata, to the literal text recovered for it. Keys are unique; there is
// no ordering requirement on lookup, but Names returns insertion order so
// reports read back deterministically regardless of how gomap iterates.
type AccessorMap struct {
	m     *gomap.Map[string, string]
	order []string
}

func accessorKeyEqual(a, b string) bool { return a == b }

func accessorKeyHash(seed maphash.Seed, s string) uint64 { return maphash.String(seed, s) }

// NewAccessorMap returns an empty AccessorMap.
func NewAccessorMap() *AccessorMap {
	return &AccessorMap{m: gomap.NewHint[string, string](0, accessorKeyEqual, accessorKeyHash)}
}

// Set records that accessorName decodes to text. A second Set for the same
// name overwrites the text but does not change its position in Names.
func (a *AccessorMap) Set(accessorName, text string) {
	if _, exists := a.m.Get(accessorName); !exists {
		a.order = append(a.order, accessorName)
	}
	a.m.Set(accessorName, text)
}

// Get looks up the literal text recovered for accessorName.
func (a *AccessorMap) Get(accessorName string) (string, bool) {
	return a.m.Get(accessorName)
}

// Len returns the number of accessors recovered.
func (a *AccessorMap) Len() int {
	return a.m.Len()
}

// Names returns every recovered accessor name in the order it was first
// inserted.
func (a *AccessorMap) Names() []string {
	out := make([]string, len(a.order))
	copy(out, a.order)
	return out
}
