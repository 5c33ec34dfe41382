// ═══════════════════════════════════════════════════════════════════════════════════════════════
// SPRAPTOR Diagnostic Log - Hardware Reference Model
// ───────────────────────────────────────────────────────────────────────────────────────────────
//
// DESIGN PHILOSOPHY:
// ─────────────────
// 1. Bounded capacity: fixed-size entry table, no unbounded growth
// 2. Tagged, hashed placement: O(1) average insert via a home bucket
// 3. 4-way LRU eviction: when a bucket is full, evict the oldest entry
// 4. Not part of the semantic contract: dropping an event never changes
//    engine behavior (spec.md §9's design note on $display statements)
//
// Adapted from the teacher's TAGEPredictor tagged-entry tables: each
// TAGETable there held EntriesPerTable tagged branch-history slots with
// a ValidBits occupancy bitmap and a 4-way findLRUVictim eviction scan.
// Here the same shape holds engine events instead of branch history:
// tag = hash(kind, row), slot = event, eviction policy unchanged.
//
// ═══════════════════════════════════════════════════════════════════════════════════════════════

package diag

import (
	"fmt"

	"github.com/google/uuid"
)

// Kind identifies the category of a logged event. These mirror the
// control points spec.md calls out for "at least debug mode" logging:
// out-of-range rejection, row boundaries, merge phase transitions, and
// wrapping accumulation.
type Kind uint8

const (
	KindOutOfRange Kind = iota
	KindRowBoundary
	KindMergeStart
	KindMergeDone
	KindAccumulateWrap
)

func (k Kind) String() string {
	switch k {
	case KindOutOfRange:
		return "out_of_range"
	case KindRowBoundary:
		return "row_boundary"
	case KindMergeStart:
		return "merge_start"
	case KindMergeDone:
		return "merge_done"
	case KindAccumulateWrap:
		return "accumulate_wrap"
	default:
		return "unknown"
	}
}

// Event is one diagnostic record. It carries enough context to explain
// itself in a log line without needing to replay engine state.
type Event struct {
	Seq    uint64
	Kind   Kind
	Row    uint16
	Col    uint16
	Detail string
}

func (e Event) String() string {
	return fmt.Sprintf("#%d %s row=%d col=%d %s", e.Seq, e.Kind, e.Row, e.Col, e.Detail)
}

const (
	// capacity is the entry table size: EntriesPerTable in the teacher's
	// TAGETable was 1024; a diagnostic log has no timing budget forcing a
	// power-of-two SRAM size, but the table keeps that shape for the
	// bitmap-word math below.
	capacity = 256
	// lruSearchWidth mirrors the teacher's 4-way associative search.
	lruSearchWidth = 4
	validBitmapWords = capacity / 32
)

type slot struct {
	valid bool
	age   uint8
	event Event
}

// Log is a bounded, tag-indexed event sink. Engines push into it;
// external observers (tests, the CLI driver) drain it. It is never read
// by the engine itself.
type Log struct {
	runID   uuid.UUID
	slots   [capacity]slot
	valid   [validBitmapWords]uint32
	seq     uint64
	evicted uint64
}

// New creates an empty Log tagged with a fresh run identifier, used to
// distinguish concurrent engine instances in a shared diagnostic sink.
func New() *Log {
	return &Log{runID: uuid.New()}
}

// RunID returns the log's run identifier.
func (l *Log) RunID() uuid.UUID { return l.runID }

// hash picks a home bucket for (kind, row), the same role hashIndex/
// hashTag played for (pc, history) in the teacher's predictor: spread
// entries across the table so the 4-way scan rarely collides.
func hash(k Kind, row uint16) uint32 {
	h := uint32(k)*2654435761 + uint32(row)*40503
	return h & (capacity - 1)
}

// Push records an event, evicting the oldest occupant of its home
// 4-way set if the table is full there.
//
// HOW: 4 candidate slots starting at hash(kind,row); prefer a free slot,
// else evict the one with the highest age (oldest), exactly as
// findLRUVictim does for TAGE entries.
func (l *Log) Push(kind Kind, row, col uint16, detail string) {
	l.seq++
	ev := Event{Seq: l.seq, Kind: kind, Row: row, Col: col, Detail: detail}

	preferred := hash(kind, row)
	victim := preferred
	foundFree := false
	maxAge := uint8(0)

	for offset := uint32(0); offset < lruSearchWidth; offset++ {
		idx := (preferred + offset) & (capacity - 1)
		wordIdx := idx / 32
		bitIdx := idx % 32

		if l.valid[wordIdx]>>bitIdx&1 == 0 {
			if !foundFree {
				victim = idx
				foundFree = true
			}
			continue
		}
		if foundFree {
			continue
		}
		if age := l.slots[idx].age; age >= maxAge {
			maxAge = age
			victim = idx
		}
	}

	if l.slots[victim].valid {
		l.evicted++
	}
	l.bumpAges(preferred)
	l.slots[victim] = slot{valid: true, age: 0, event: ev}
	l.valid[victim/32] |= 1 << (victim % 32)
}

// bumpAges ages every occupied entry in a 4-way set, so the next
// eviction within that set prefers the entry that has sat longest.
func (l *Log) bumpAges(preferred uint32) {
	for offset := uint32(0); offset < lruSearchWidth; offset++ {
		idx := (preferred + offset) & (capacity - 1)
		if l.slots[idx].valid && l.slots[idx].age < 255 {
			l.slots[idx].age++
		}
	}
}

// Drain returns every currently valid event, in slot order, and clears
// the log. This is the subscription surface spec.md §9 describes: a
// structured event stream a test harness can read, not a control input.
func (l *Log) Drain() []Event {
	var out []Event
	for i := 0; i < capacity; i++ {
		if l.slots[i].valid {
			out = append(out, l.slots[i].event)
			l.slots[i] = slot{}
			l.valid[i/32] &^= 1 << (i % 32)
		}
	}
	return out
}

// Stats summarizes log activity for monitoring.
type Stats struct {
	RunID      uuid.UUID
	Pushed     uint64
	Evicted    uint64
	Resident   int
}

// Stats reports counters without draining the log.
func (l *Log) Stats() Stats {
	resident := 0
	for i := 0; i < capacity; i++ {
		if l.slots[i].valid {
			resident++
		}
	}
	return Stats{RunID: l.runID, Pushed: l.seq, Evicted: l.evicted, Resident: resident}
}
