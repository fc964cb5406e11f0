package engine

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dylhunn/dragontoothmg"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
)

// EntryFlag tells how a cached value relates to the window it was searched with.
type EntryFlag int8

const (
	ExactFlag      EntryFlag = iota
	LowerBoundFlag           // value failed high: true score >= value
	UpperBoundFlag           // value failed low: true score <= value
)

func (f EntryFlag) String() string {
	switch f {
	case ExactFlag:
		return "exact"
	case LowerBoundFlag:
		return "lower"
	case UpperBoundFlag:
		return "upper"
	}
	return "unknown"
}

type TTEntry struct {
	Move  dragontoothmg.Move
	Depth int8
	Flag  EntryFlag
	Value Score
}

// rough per-entry footprint of one Go map slot holding a TTEntry
const approxEntryBytes = 48

type ttOp struct {
	key   uint64
	entry TTEntry
}

/*
TransTable is an unbounded cache keyed by position hash, shared by every
search worker.

It keeps two copies of the map. Readers use the live copy and never block;
the writer mutates the other copy under mu and only makes its writes visible
on Refresh, by swapping the copies and replaying the pending writes into the
copy readers just left. Readers may therefore see a stale entry but never a
torn one. Entries are only ever added or overwritten.
*/
type TransTable struct {
	mu      sync.Mutex
	maps    [2]map[uint64]TTEntry
	readers [2]atomic.Int64
	live    atomic.Uint32
	pending []ttOp

	lookups   atomic.Uint64
	hits      atomic.Uint64
	inserts   atomic.Uint64
	skipped   atomic.Uint64
	refreshes atomic.Uint64
}

func NewTransTable() *TransTable {
	return &TransTable{
		maps: [2]map[uint64]TTEntry{
			make(map[uint64]TTEntry),
			make(map[uint64]TTEntry),
		},
	}
}

// acquire pins the live copy for reading and returns its index.
func (tt *TransTable) acquire() uint32 {
	for {
		idx := tt.live.Load()
		tt.readers[idx].Add(1)
		if tt.live.Load() == idx {
			return idx
		}
		// swapped under us; the writer may already be mutating idx
		tt.readers[idx].Add(-1)
	}
}

func (tt *TransTable) release(idx uint32) {
	tt.readers[idx].Add(-1)
}

// Get returns the published entry for key.
func (tt *TransTable) Get(key uint64) (TTEntry, bool) {
	tt.lookups.Add(1)
	idx := tt.acquire()
	entry, ok := tt.maps[idx][key]
	tt.release(idx)
	if ok {
		tt.hits.Add(1)
	}
	return entry, ok
}

// Insert stores entry under key and publishes it. Nothing is written when the
// published value is already equal.
func (tt *TransTable) Insert(key uint64, entry TTEntry) {
	idx := tt.acquire()
	current, ok := tt.maps[idx][key]
	tt.release(idx)
	if ok && current == entry {
		tt.skipped.Add(1)
		return
	}

	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.write(key, entry)
	tt.publish()
}

// InsertNoRefresh stores entry without publishing it. Used for bulk seeding,
// followed by one Refresh.
func (tt *TransTable) InsertNoRefresh(key uint64, entry TTEntry) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.write(key, entry)
}

// Refresh publishes every write made since the previous publish.
func (tt *TransTable) Refresh() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	tt.publish()
}

// Len counts the published entries.
func (tt *TransTable) Len() int {
	idx := tt.acquire()
	defer tt.release(idx)
	return len(tt.maps[idx])
}

// write must be called with mu held.
func (tt *TransTable) write(key uint64, entry TTEntry) {
	standby := 1 - tt.live.Load()
	tt.maps[standby][key] = entry
	tt.pending = append(tt.pending, ttOp{key: key, entry: entry})
	tt.inserts.Add(1)
}

// publish must be called with mu held.
func (tt *TransTable) publish() {
	if len(tt.pending) == 0 {
		return
	}
	old := tt.live.Load()
	tt.live.Store(1 - old)

	// Wait for readers still inside the old copy before touching it.
	for tt.readers[old].Load() != 0 {
		runtime.Gosched()
	}
	for _, op := range tt.pending {
		tt.maps[old][op.key] = op.entry
	}
	tt.pending = tt.pending[:0]
	tt.refreshes.Add(1)
}

// TTStats is a snapshot of the table counters.
type TTStats struct {
	Entries   int
	Lookups   uint64
	Hits      uint64
	Inserts   uint64
	Skipped   uint64
	Refreshes uint64
}

func (tt *TransTable) Stats() TTStats {
	return TTStats{
		Entries:   tt.Len(),
		Lookups:   tt.lookups.Load(),
		Hits:      tt.hits.Load(),
		Inserts:   tt.inserts.Load(),
		Skipped:   tt.skipped.Load(),
		Refreshes: tt.refreshes.Load(),
	}
}

// LogStats reports the counters together with the table's share of memory.
// The table has no capacity bound, so this is the only place its growth shows.
func (tt *TransTable) LogStats() {
	st := tt.Stats()
	totalMem := memory.TotalMemory()
	estimated := uint64(st.Entries) * 2 * approxEntryBytes
	evt := log.Debug()
	if totalMem > 0 && estimated > totalMem/4 {
		evt = log.Warn()
	}
	evt.Int("entries", st.Entries).
		Uint64("lookups", st.Lookups).
		Uint64("hits", st.Hits).
		Uint64("inserts", st.Inserts).
		Uint64("skipped-unchanged", st.Skipped).
		Uint64("refreshes", st.Refreshes).
		Uint64("estimated-bytes", estimated).
		Uint64("total-system-memory-bytes", totalMem).
		Msg("transposition-table-stats")
}
