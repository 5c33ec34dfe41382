// ═══════════════════════════════════════════════════════════════════════════
// SPRAPTOR Row Controller - Hardware Reference Model
// ═══════════════════════════════════════════════════════════════════════════
//
// Inspired by the MatRaptor row-wise SpGEMM accumulation architecture
//
// Key specifications:
// - Storage: B banks x D slots, bitmap occupancy (proto/bank)
// - Fill: accumulate-on-contact, O(1) per triple
// - Merge: ascending-column drain, one bank at a time (proto/merge)
// - Control: 7-state FSM, one transition per Tick()
// - Concurrency: single-threaded, cooperative, step-driven -- never two
//   phases active at once, so no locks guard the store (spec.md §5)
//
// This Go code serves as both:
// 1. Executable reference model for the accumulation engine
// 2. The only surface external callers (transport, cmd/spraptor) touch
//
// ═══════════════════════════════════════════════════════════════════════════

package engine

import (
	"fmt"
	"math/bits"

	"github.com/AbhishekMusku/spraptor/proto/bank"
	"github.com/AbhishekMusku/spraptor/proto/diag"
	"github.com/AbhishekMusku/spraptor/proto/merge"
)

// Triple is a partial product (row, col, value) plus the end-of-stream
// hint, as produced by expanding A[i,k]*B[k,:] upstream (spec.md §3).
type Triple struct {
	Value int32
	Row   uint16
	Col   uint16
	Last  bool
}

// OutputRecord is one accumulated nonzero of a completed row.
type OutputRecord struct {
	Row   uint16
	Col   uint16
	Value int32
}

// SubmitResult is the outcome of one Submit call.
type SubmitResult uint8

const (
	// Accepted: triple was placed into the store (written or accumulated).
	Accepted SubmitResult = iota
	// Refused: col was out of range; the triple was discarded, not an error.
	Refused
	// RowBoundary: triple's row differs from the in-progress row; it is
	// held pending and the engine begins draining the current row.
	RowBoundary
	// NotReady: the engine is mid-merge (in_ready deasserted per
	// spec.md §4.4); the caller must drain via Tick/PollOutput/AckOutput
	// before submitting again. spec.md's three-outcome enum implicitly
	// assumes Submit is only called while Ready() -- see DESIGN.md.
	NotReady
)

func (r SubmitResult) String() string {
	switch r {
	case Accepted:
		return "Accepted"
	case Refused:
		return "Refused"
	case RowBoundary:
		return "RowBoundary"
	case NotReady:
		return "NotReady"
	default:
		return "Unknown"
	}
}

// state is the Row Controller's FSM state (spec.md §4.4).
type state uint8

const (
	stateReset state = iota
	stateFill
	stateFlush
	stateMergeStart
	stateMergeFind
	stateMergeOutput
	stateMergeDone
)

// Config mirrors the four compile-time constants spec.md §6 recognizes.
// ValueBits and IndexBits are recorded for documentation/validation only;
// the Go types (int32, uint16) already fix their widths at 32 and 16.
type Config struct {
	BankCount int
	BankDepth int
	ValueBits int
	IndexBits int
}

// DefaultConfig returns the spec's documented defaults: B=8, D=256,
// 32-bit values, 16-bit indices.
func DefaultConfig() Config {
	return Config{BankCount: 8, BankDepth: 256, ValueBits: 32, IndexBits: 16}
}

// Engine is the Row Controller: it owns the store exclusively (spec.md
// §5 -- "no other component may alias it"), sequences fill and merge,
// and exposes the public streaming API.
type Engine struct {
	cfg     Config
	store   *bank.Store
	scanner *merge.Scanner
	log     *diag.Log

	state state

	currentRow   uint16
	firstElement bool

	hasPending    bool
	pendingTriple Triple
	pendingRow    uint16

	outValid  bool
	outRecord OutputRecord
	outAcked  bool

	cycles uint64
}

// New constructs an Engine with the given configuration. BankCount and
// BankDepth must both be powers of two (spec.md §3's bit-slice mapping
// requires it); New panics otherwise, since this is a construction-time
// programming error, not a runtime data error.
func New(cfg Config) *Engine {
	if !isPowerOfTwo(cfg.BankCount) || !isPowerOfTwo(cfg.BankDepth) {
		panic(fmt.Sprintf("engine: bank_count=%d and bank_depth=%d must both be powers of two", cfg.BankCount, cfg.BankDepth))
	}
	e := &Engine{
		cfg:   cfg,
		store: bank.New(cfg.BankCount, cfg.BankDepth),
		log:   diag.New(),
	}
	e.scanner = merge.NewScanner(e.store)
	e.reset()
	return e
}

func isPowerOfTwo(n int) bool {
	return n > 0 && bits.OnesCount(uint(n)) == 1
}

// reset implements the RESET state's unconditional action: clear the
// store and start a fresh row.
func (e *Engine) reset() {
	for b := 0; b < e.cfg.BankCount; b++ {
		e.store.ClearBank(b)
	}
	e.firstElement = true
	e.hasPending = false
	e.outValid = false
	e.outAcked = false
	e.state = stateFill
}

// Log exposes the diagnostic event sink for external subscribers. It is
// never consulted by the engine itself (spec.md §9).
func (e *Engine) Log() *diag.Log { return e.log }

// Ready reports whether the engine can accept a Submit this step (the
// in_ready signal of spec.md §4.4). It is false throughout FLUSH and
// every MERGE_* state.
func (e *Engine) Ready() bool { return e.state == stateFill }

// Submit offers one triple to the engine (the in_valid/in_ready
// handshake of spec.md §6, collapsed into one synchronous call since
// the FILL state's transition happens entirely within one step).
func (e *Engine) Submit(t Triple) SubmitResult {
	if e.state != stateFill {
		return NotReady
	}
	return e.fill(t)
}

// fill implements the FILL state's transition table (spec.md §4.4/§4.2).
func (e *Engine) fill(t Triple) SubmitResult {
	if !e.store.InRange(t.Col) {
		e.log.Push(diag.KindOutOfRange, t.Row, t.Col, "column out of range, triple dropped")
		return Refused
	}

	if !e.firstElement && t.Row != e.currentRow {
		e.pendingTriple = t
		e.pendingRow = t.Row
		e.hasPending = true
		e.state = stateFlush
		e.log.Push(diag.KindRowBoundary, e.currentRow, t.Col, fmt.Sprintf("row changed to %d, flushing", t.Row))
		return RowBoundary
	}

	e.accept(t)

	if t.Last {
		e.state = stateFlush
	}
	return Accepted
}

// accept places a triple into the store: write on first touch,
// accumulate (with wrapping 32-bit signed arithmetic) otherwise.
func (e *Engine) accept(t Triple) {
	b, a := e.store.Bank(t.Col), e.store.Addr(t.Col)
	if e.store.Occupied(b, a) {
		before := e.store.Value(b, a)
		e.store.Accumulate(b, a, t.Value)
		after := e.store.Value(b, a)
		if wraps(before, t.Value, after) {
			e.log.Push(diag.KindAccumulateWrap, t.Row, t.Col, "accumulation wrapped mod 2^32")
		}
	} else {
		e.store.Write(b, a, t.Value)
	}
	e.currentRow = t.Row
	e.firstElement = false
}

// wraps detects whether before+delta overflowed the int32 range,
// purely for diagnostics -- the stored result is correct either way
// since Go's int32 addition already wraps modulo 2^32 (spec.md §4.1).
func wraps(before, delta, after int32) bool {
	sum := int64(before) + int64(delta)
	return sum != int64(after)
}

// Tick advances the FSM by exactly one state transition (spec.md §5).
// It is a no-op (idle) when the FSM is holding for a consumer ready
// signal (MERGE_OUTPUT with no ack yet) or is in FILL waiting for the
// next Submit.
func (e *Engine) Tick() {
	e.cycles++
	switch e.state {
	case stateReset:
		e.reset()
	case stateFill:
		// idle: FILL's triple-driven transitions happen in Submit.
	case stateFlush:
		e.state = stateMergeStart
	case stateMergeStart:
		e.scanner.Reset()
		e.log.Push(diag.KindMergeStart, e.currentRow, 0, "")
		e.state = stateMergeFind
	case stateMergeFind:
		entry, ok := e.scanner.Next()
		if !ok {
			e.state = stateMergeDone
			return
		}
		e.outRecord = OutputRecord{Row: e.currentRow, Col: entry.Col, Value: entry.Value}
		e.outValid = true
		e.outAcked = false
		e.state = stateMergeOutput
	case stateMergeOutput:
		if !e.outAcked {
			return // hold: waiting for out_ready
		}
		e.scanner.ClearCurrent()
		e.outValid = false
		e.state = stateMergeFind
	case stateMergeDone:
		e.log.Push(diag.KindMergeDone, e.currentRow, 0, "")
		e.firstElement = true
		e.state = stateFill
		if e.hasPending {
			t := e.pendingTriple
			e.hasPending = false
			e.fill(t)
		}
	}
}

// PollOutput returns the currently held output record, if any (out_valid
// in spec.md §4.4). The caller must call AckOutput to consume it before
// the next one becomes available.
func (e *Engine) PollOutput() (OutputRecord, bool) {
	if !e.outValid {
		return OutputRecord{}, false
	}
	return e.outRecord, true
}

// AckOutput asserts out_ready for the currently held record, letting the
// next Tick clear its slot and advance the scan.
func (e *Engine) AckOutput() {
	if e.outValid {
		e.outAcked = true
	}
}

// Drain runs Tick/PollOutput/AckOutput until the FSM returns to FILL,
// collecting every output record of the row currently draining. If the
// held row-boundary triple carries Last, MERGE_DONE accepts it and
// schedules another flush, so the same call also drains that next row.
// It is
// the convenience loop both Finish and cmd/spraptor use; it never
// blocks since the engine never suspends on anything but I/O
// handshakes it resolves itself here.
func (e *Engine) Drain() []OutputRecord {
	var out []OutputRecord
	for e.state != stateFill && e.state != stateReset {
		if rec, ok := e.PollOutput(); ok {
			out = append(out, rec)
			e.AckOutput()
		}
		e.Tick()
	}
	return out
}

// Finish signals end of stream: if a row is mid-accumulation in FILL
// state, it forces the flush that a Last-flagged triple would have
// triggered, then drains until the FSM is idle (spec.md §6). A single
// force-then-drain pass is not enough: draining a pending row-boundary
// triple that itself lacks Last leaves the FSM back in FILL with fresh,
// still-unflushed data resident (MERGE_DONE re-accepts the pending
// triple via fill, which only reschedules a flush when that triple's
// own Last is set). So Finish loops force-flush-then-drain until the
// FSM is idle with nothing resident, instead of checking once.
func (e *Engine) Finish() []OutputRecord {
	var out []OutputRecord
	for {
		if e.state == stateFill && !e.firstElement {
			e.state = stateFlush
		}
		out = append(out, e.Drain()...)
		if e.state == stateFill && e.firstElement {
			break
		}
	}
	return out
}

// Cycles returns the number of Tick calls processed, for diagnostics.
func (e *Engine) Cycles() uint64 { return e.cycles }
