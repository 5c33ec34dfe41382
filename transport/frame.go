// ═══════════════════════════════════════════════════════════════════════════
// SPRAPTOR Framed Transport - Hardware Reference Model
// ═══════════════════════════════════════════════════════════════════════════
//
// Replaces the original bit-level SPI shift-register path with an
// ordinary byte-oriented frame reader. The CDC toggle-synchronizer that
// crossed clock domains in the source hardware has no equivalent here:
// a buffered io.Reader already serializes access (spec.md §9).
//
// Input frame layout (9 bytes, big-endian):
//
//	byte 0..3 : value   (signed 32-bit)
//	byte 4..5 : row     (unsigned 16-bit)
//	byte 6..7 : col     (unsigned 16-bit)
//	byte 8    : flags   (bit 0 = last; bits 1..7 reserved, must be 0)
//
// ═══════════════════════════════════════════════════════════════════════════

package transport

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/AbhishekMusku/spraptor/engine"
)

// FrameSize is the fixed byte length of one input frame.
const FrameSize = 9

// MalformedFrameError is returned when a frame is short or has a
// reserved flag bit set. It never reaches the engine (spec.md §7):
// transport errors are surfaced to the caller of FrameReader directly.
type MalformedFrameError struct {
	Reason string
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("transport: malformed frame: %s", e.Reason)
}

// DecodeFrame parses exactly FrameSize bytes into a Triple. It validates
// frame length and the reserved flag bits, per spec.md §4.5/§7.
func DecodeFrame(buf []byte) (engine.Triple, error) {
	if len(buf) != FrameSize {
		return engine.Triple{}, &MalformedFrameError{Reason: fmt.Sprintf("want %d bytes, got %d", FrameSize, len(buf))}
	}
	flags := buf[8]
	if flags&^0x1 != 0 {
		return engine.Triple{}, &MalformedFrameError{Reason: "reserved flag bits set"}
	}
	return engine.Triple{
		Value: int32(binary.BigEndian.Uint32(buf[0:4])),
		Row:   binary.BigEndian.Uint16(buf[4:6]),
		Col:   binary.BigEndian.Uint16(buf[6:8]),
		Last:  flags&0x1 != 0,
	}, nil
}

// EncodeFrame writes a Triple's 9-byte wire representation into buf,
// which must be at least FrameSize long. A conforming encoder refuses
// columns outside the engine's configured range, matching spec.md §6's
// note that "a conforming transport may refuse to encode them as well."
func EncodeFrame(buf []byte, t engine.Triple, maxCol int) error {
	if len(buf) < FrameSize {
		return &MalformedFrameError{Reason: "destination buffer too small"}
	}
	if int(t.Col) >= maxCol {
		return &MalformedFrameError{Reason: fmt.Sprintf("col %d exceeds configured range %d", t.Col, maxCol)}
	}
	binary.BigEndian.PutUint32(buf[0:4], uint32(t.Value))
	binary.BigEndian.PutUint16(buf[4:6], t.Row)
	binary.BigEndian.PutUint16(buf[6:8], t.Col)
	var flags byte
	if t.Last {
		flags = 1
	}
	buf[8] = flags
	return nil
}

// FrameReader decodes a stream of fixed-width frames from an io.Reader,
// the generalization of the teacher's Memory.Load fixed-word assembly
// from a 64-bit word to a 9-byte frame.
type FrameReader struct {
	r   io.Reader
	buf [FrameSize]byte
}

// NewFrameReader wraps r for frame-at-a-time decoding.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// Next reads and decodes one frame. It returns io.EOF (unwrapped) once
// the underlying reader is exhausted cleanly at a frame boundary, or a
// MalformedFrameError if a partial frame is left dangling.
func (fr *FrameReader) Next() (engine.Triple, error) {
	n, err := io.ReadFull(fr.r, fr.buf[:])
	if err == io.EOF && n == 0 {
		return engine.Triple{}, io.EOF
	}
	if err != nil {
		return engine.Triple{}, &MalformedFrameError{Reason: fmt.Sprintf("short frame: read %d of %d bytes: %v", n, FrameSize, err)}
	}
	return DecodeFrame(fr.buf[:])
}
