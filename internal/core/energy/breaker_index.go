package energy

// BreakerIndex is the bidirectional outlet-to-breaker assignment map.
// Both directions are maintained together so an outlet belongs to at most
// one breaker line by construction.
type BreakerIndex struct {
	outletBreaker  map[string]string
	breakerOutlets map[string][]string
}

// NewBreakerIndex returns an empty index.
func NewBreakerIndex() *BreakerIndex {
	return &BreakerIndex{
		outletBreaker:  make(map[string]string),
		breakerOutlets: make(map[string][]string),
	}
}

// BuildBreakerIndex constructs the index from configured breaker lines.
// Later lines win when an outlet id appears twice; validation rejects that
// case before a document is applied.
func BuildBreakerIndex(lines []BreakerLine) *BreakerIndex {
	idx := NewBreakerIndex()
	for _, line := range lines {
		for _, outletID := range line.OutletIDs {
			idx.Assign(outletID, line.ID)
		}
	}
	return idx
}

// Assign places an outlet on a breaker, removing any prior assignment first.
func (ix *BreakerIndex) Assign(outletID, breakerID string) {
	ix.Remove(outletID)
	ix.outletBreaker[outletID] = breakerID
	ix.breakerOutlets[breakerID] = append(ix.breakerOutlets[breakerID], outletID)
}

// Remove clears the assignment of an outlet, if any.
func (ix *BreakerIndex) Remove(outletID string) {
	prev, ok := ix.outletBreaker[outletID]
	if !ok {
		return
	}
	delete(ix.outletBreaker, outletID)
	ids := ix.breakerOutlets[prev]
	for i, id := range ids {
		if id == outletID {
			ix.breakerOutlets[prev] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
}

// BreakerFor returns the breaker an outlet is assigned to.
func (ix *BreakerIndex) BreakerFor(outletID string) (string, bool) {
	id, ok := ix.outletBreaker[outletID]
	return id, ok
}

// Outlets returns the ordered outlet ids assigned to a breaker.
func (ix *BreakerIndex) Outlets(breakerID string) []string {
	return ix.breakerOutlets[breakerID]
}
