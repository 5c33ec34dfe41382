// Bulk frame intake: a producer expanding A[i,k]*B[k,:] can generate a
// great many partial products per nonzero of A, so batching them into
// one s2-compressed block before they reach the engine is a realistic
// mid-stream optimization for a real SpGEMM pipeline. This mirrors the
// Compressor/Decompressor split in the example pack's compr package,
// narrowed to the one codec this transport actually needs.

package transport

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/s2"
)

// BulkDecoder decompresses a single s2-encoded block of back-to-back
// FrameSize-byte frames and hands back a FrameReader over the result.
type BulkDecoder struct{}

// NewBulkDecoder returns a decoder for s2-compressed frame batches.
func NewBulkDecoder() *BulkDecoder {
	return &BulkDecoder{}
}

// Decode decompresses block and returns a FrameReader over the
// resulting frame bytes. It rejects a decompressed length that isn't a
// whole number of frames, since a partial trailing frame can only be
// the result of a corrupt or truncated batch.
func (d *BulkDecoder) Decode(block []byte) (*FrameReader, error) {
	plain, err := s2.Decode(nil, block)
	if err != nil {
		return nil, fmt.Errorf("transport: s2 decompress: %w", err)
	}
	if len(plain)%FrameSize != 0 {
		return nil, &MalformedFrameError{Reason: fmt.Sprintf("decompressed batch length %d is not a multiple of frame size %d", len(plain), FrameSize)}
	}
	return NewFrameReader(bytes.NewReader(plain)), nil
}

// EncodeBulk compresses a run of back-to-back frames into one s2 block,
// the producer-side counterpart of Decode.
func EncodeBulk(frames []byte) []byte {
	return s2.Encode(nil, frames)
}
