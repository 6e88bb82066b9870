package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// P7: JoinFileReference/SplitFileReference round-trip for representative
// record indices and sequence numbers, including the maximum 48-bit
// index and a zero sequence number.
func TestFileReferenceRoundTrip(t *testing.T) {
	cases := []FileReference{
		{RecordIndex: 0, Sequence: 0},
		{RecordIndex: 5, Sequence: 5},
		{RecordIndex: 1234, Sequence: 1},
		{RecordIndex: 0xFFFFFFFFFFFF, Sequence: 0xFFFF},
	}

	for _, c := range cases {
		joined := JoinFileReference(c.RecordIndex, c.Sequence)
		assert.Equal(t, c, SplitFileReference(joined))
	}
}

func TestSplitFileReferenceIgnoresHighBits(t *testing.T) {
	// RecordIndex is only 48 bits wide; any bits above that belong to
	// the sequence number and must not leak into RecordIndex.
	ref := SplitFileReference(0xFFFF000000000005)
	assert.Equal(t, uint64(5), ref.RecordIndex)
	assert.Equal(t, uint16(0xFFFF), ref.Sequence)
}
