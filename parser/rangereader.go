package parser

import "io"

// RangeReaderAt is a ReaderAt that can also describe its own logical
// layout as a sequence of Ranges - used by DebugRuns and by callers
// that need to know how much data a stream actually covers (§6
// Attribute.content).
type RangeReaderAt interface {
	io.ReaderAt
	Ranges() []Range
}

// Range is one contiguous span of a RangeReaderAt's logical address
// space, reported without the underlying physical mapping.
type Range struct {
	Offset   int64
	Length   int64
	IsSparse bool
}

// NullReader reads as all-zeroes forever - the Reader behind a sparse
// MappedReader, and the root of any reader chain that has nothing to
// read from.
type NullReader struct{}

func (self *NullReader) ReadAt(buf []byte, offset int64) (int, error) {
	for i := range buf {
		buf[i] = 0
	}
	return len(buf), nil
}

// LimitedReader truncates an underlying reader's ReadAt to N bytes.
type LimitedReader struct {
	R io.ReaderAt
	N int64
}

func (self LimitedReader) ReadAt(buf []byte, offset int64) (int, error) {
	if offset >= self.N {
		return 0, io.EOF
	}
	if offset+int64(len(buf)) > self.N {
		buf = buf[:self.N-offset]
	}
	return self.R.ReadAt(buf, offset)
}

// MappedReader maps one contiguous logical span, starting at
// FileOffset for Length bytes, onto a physical reader: either a disk
// reader seeked through TargetOffset (in ClusterSize units), or a
// NullReader when IsSparse is set. Grounded on the field shape implied
// by the pack's own DebugRuns/getVCNReader/OpenStream call sites and
// the literal fixtures in the run-mapping tests.
type MappedReader struct {
	FileOffset   int64
	TargetOffset int64
	Length       int64
	ClusterSize  int64
	IsSparse     bool
	Reader       io.ReaderAt
}

func (self *MappedReader) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 || offset >= self.Length {
		return 0, io.EOF
	}

	to_read := int64(len(buf))
	if offset+to_read > self.Length {
		to_read = self.Length - offset
	}

	if self.IsSparse {
		for i := int64(0); i < to_read; i++ {
			buf[i] = 0
		}
		return int(to_read), nil
	}

	physical_offset := self.TargetOffset*self.ClusterSize + offset
	return self.Reader.ReadAt(buf[:to_read], physical_offset)
}

func (self *MappedReader) Ranges() []Range {
	return []Range{{
		Offset:   self.FileOffset,
		Length:   self.Length,
		IsSparse: self.IsSparse,
	}}
}

// RangeReader stitches several MappedReaders, each covering a
// disjoint logical span, into one continuous logical address space.
// Grounded on runs.go's DebugRuns (which pattern-matches on
// *RangeReader's runs field) and easy.go's OpenStream/getVCNReader,
// which build exactly this shape.
type RangeReader struct {
	runs []*MappedReader
}

func (self *RangeReader) find(offset int64) (*MappedReader, int) {
	for idx, run := range self.runs {
		if run.FileOffset <= offset && offset < run.FileOffset+run.Length {
			return run, idx
		}
	}
	return nil, -1
}

func (self *RangeReader) ReadAt(buf []byte, offset int64) (int, error) {
	buf_idx := 0

	for buf_idx < len(buf) {
		run, _ := self.find(offset)
		if run == nil {
			if buf_idx == 0 {
				return 0, io.EOF
			}
			return buf_idx, nil
		}

		n, err := run.ReadAt(buf[buf_idx:], offset-run.FileOffset)
		if err != nil && err != io.EOF {
			return buf_idx, err
		}
		if n == 0 {
			return buf_idx, io.EOF
		}

		buf_idx += n
		offset += int64(n)
	}

	return buf_idx, nil
}

func (self *RangeReader) Ranges() []Range {
	result := make([]Range, 0, len(self.runs))
	for _, run := range self.runs {
		result = append(result, run.Ranges()...)
	}
	return result
}

// NewRangeReader converts a decoded run list into a MappedReader chain
// over disk_reader, addressed in cluster_size byte units.
func NewRangeReader(runs []RunListEntry, disk_reader io.ReaderAt, cluster_size int64) *RangeReader {
	result := &RangeReader{}

	file_offset := int64(0)
	for _, run := range runs {
		length_bytes := run.Length * cluster_size

		mapped := &MappedReader{
			FileOffset:  file_offset,
			Length:      length_bytes,
			ClusterSize: cluster_size,
			IsSparse:    run.IsSparse,
		}

		if run.IsSparse {
			mapped.Reader = &NullReader{}
		} else {
			mapped.TargetOffset = int64(run.AbsoluteLcn)
			mapped.Reader = disk_reader
		}

		result.runs = append(result.runs, mapped)
		file_offset += length_bytes
	}

	return result
}
