package engine

// EvalEntry stores a cached static evaluation.
type EvalEntry struct {
	Key  uint64
	Eval int16
}

// EvalCache is a per-worker hash table of static evaluations keyed by the
// full position hash.
type EvalCache struct {
	entries []EvalEntry
	mask    uint64
}

// NewEvalCache creates an eval cache with the given size in MB.
func NewEvalCache(sizeMB int) *EvalCache {
	// 16 bytes per entry after padding, round to power of 2
	entrySize := 16
	numEntries := (sizeMB * 1024 * 1024) / entrySize

	size := 1
	for size*2 <= numEntries {
		size *= 2
	}

	return &EvalCache{
		entries: make([]EvalEntry, size),
		mask:    uint64(size - 1),
	}
}

// Probe looks up the evaluation of the position with hash key.
func (ec *EvalCache) Probe(key uint64) (int, bool) {
	entry := &ec.entries[key&ec.mask]
	if entry.Key == key && key != 0 {
		return int(entry.Eval), true
	}
	return 0, false
}

// Store saves an evaluation.
func (ec *EvalCache) Store(key uint64, eval int) {
	entry := &ec.entries[key&ec.mask]
	entry.Key = key
	entry.Eval = int16(eval)
}

// Clear empties the cache.
func (ec *EvalCache) Clear() {
	clear(ec.entries)
}
