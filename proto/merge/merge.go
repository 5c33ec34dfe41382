// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SPRAPTOR Merge Engine - Hardware Reference Model
// ───────────────────────────────────────────────────────────────────────────────────────────────
//
// DESIGN PHILOSOPHY:
// ─────────────────
// 1. Bank-major scan: ascending bank index, ascending address within bank
// 2. Cursor crosses cycles: state lives in the Scanner, not on the stack
// 3. Emit-then-clear: a slot is only cleared once the consumer has it
// 4. No arithmetic here: merge only reads and clears, never sums
//
// ORDERING GUARANTEE:
// ───────────────────
// Because banks are scanned ascending and addr = col mod D is the low
// bits while bank = col >> log2(D) is the high bits, bank-major /
// addr-minor scan order is exactly ascending col order. This requires D
// to be a power of two (spec.md §4.3) -- the store enforces that.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package merge

import "github.com/AbhishekMusku/spraptor/proto/bank"

// Entry is one drained slot: its column and accumulated value.
type Entry struct {
	Col   uint16
	Value int32
}

// Scanner walks a Store bank-by-bank, address-ascending, yielding one
// occupied slot at a time and clearing it only when the caller confirms
// it has been consumed (ClearCurrent). This lets the Row
// Controller FSM pace emission one Tick() at a time without the scanner
// losing its place between calls.
type Scanner struct {
	store *bank.Store
	b     int // current bank
	addr  int // address of the slot last found, valid iff found
	found bool
	held  bool // true while the slot at (b,addr) is presented but not yet cleared
}

// NewScanner starts a scan at bank 0. Reset must be called again before
// reusing a Scanner for a second row.
func NewScanner(s *bank.Store) *Scanner {
	return &Scanner{store: s}
}

// Reset rewinds the scanner to bank 0 for a fresh row.
func (sc *Scanner) Reset() {
	sc.b = 0
	sc.found = false
	sc.held = false
}

// Next returns the current entry to emit, in ascending col order. Per
// spec.md §4.3, the engine "holds its current record until ready is
// asserted" -- so repeated calls to Next before ClearCurrent return the
// same entry rather than advancing. It returns (Entry{}, false) once
// every bank has been exhausted.
//
// HOW: per spec.md step 2, for each bank in turn, query
// find_next_occupied(b, 0) on entering the bank, or from one past the
// last found address when resuming within it; advance the bank index
// whenever a bank is exhausted; present the first occupied (bank,addr)
// found.
func (sc *Scanner) Next() (Entry, bool) {
	if sc.held {
		col := uint16(sc.b*sc.store.Depth() + sc.addr)
		return Entry{Col: col, Value: sc.store.Value(sc.b, sc.addr)}, true
	}

	for sc.b < sc.store.Banks() {
		start := 0
		if sc.found {
			start = sc.addr + 1
		}
		addr, ok := sc.store.FindNextOccupied(sc.b, start)
		if !ok {
			sc.b++
			sc.found = false
			continue
		}
		sc.addr = addr
		sc.found = true
		sc.held = true
		col := uint16(sc.b*sc.store.Depth() + addr)
		return Entry{Col: col, Value: sc.store.Value(sc.b, addr)}, true
	}
	return Entry{}, false
}

// ClearCurrent clears the slot last returned by Next, once the consumer
// has accepted it (out_ready asserted in spec.md's FSM table). Calling
// this without a preceding successful Next is a no-op.
func (sc *Scanner) ClearCurrent() {
	if sc.found && sc.held {
		sc.store.Clear(sc.b, sc.addr)
		sc.held = false
	}
}
