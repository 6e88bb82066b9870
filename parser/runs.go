package parser

import (
	"fmt"
	"math/big"
)

// RunListEntry is one decoded (absolute LCN, cluster count) pair from a
// non-resident attribute's run list (§3, §4.5). IsSparse is true when
// the run carries no physical clusters; AbsoluteLcn is meaningless in
// that case.
type RunListEntry struct {
	AbsoluteLcn uint64
	Length      int64
	IsSparse    bool
}

// DecodeRunList decodes a non-resident attribute's run list per §4.5.
// The signed delta accumulator runs in arbitrary precision (math/big)
// so that adversarial 8-byte deltas can never wrap silently; each run's
// absolute LCN is range-checked back into int64 at the run boundary.
func DecodeRunList(buffer []byte) ([]RunListEntry, error) {
	relative, err := decodeRelativeRunsWithSparse(buffer)
	if err != nil {
		return nil, err
	}

	result := make([]RunListEntry, 0, len(relative))
	running_lcn := new(big.Int)

	for _, run := range relative {
		if run.is_sparse {
			result = append(result, RunListEntry{
				Length:   run.length,
				IsSparse: true,
			})
			continue
		}

		running_lcn.Add(running_lcn, big.NewInt(run.offset_delta))
		if !running_lcn.IsInt64() {
			return nil, NewNtfsError(ErrOffsetOverflow,
				"run list LCN accumulator overflowed int64")
		}

		lcn := running_lcn.Int64()
		if lcn < 0 {
			return nil, NewNtfsError(ErrOffsetOverflow,
				"run list LCN accumulator went negative")
		}

		result = append(result, RunListEntry{
			AbsoluteLcn: uint64(lcn),
			Length:      run.length,
		})
	}

	return result, nil
}

type relativeRun struct {
	length       int64
	offset_delta int64
	is_sparse    bool
}

func decodeRelativeRunsWithSparse(buffer []byte) ([]relativeRun, error) {
	result := []relativeRun{}

	length_buffer := make([]byte, 8)
	offset_buffer := make([]byte, 8)

	offset := 0
	for offset < len(buffer) {
		header := buffer[offset]
		if header == 0 {
			break
		}

		ll := int(header & 0x0F)
		lo := int(header>>4) & 0x0F
		if ll < 1 || ll > 8 || lo > 8 {
			return nil, NewNtfsError(ErrRunListHeaderInvalid,
				fmt.Sprintf("invalid run list header byte %#x", header)).
				WithFieldOffset(int64(offset))
		}
		offset++

		if offset+ll > len(buffer) {
			return nil, NewNtfsError(ErrRunListHeaderInvalid,
				"run list length field truncated").WithFieldOffset(int64(offset))
		}

		for i := 0; i < 8; i++ {
			if i < ll {
				length_buffer[i] = buffer[offset+i]
			} else {
				length_buffer[i] = 0
			}
		}
		offset += ll

		run := relativeRun{length: int64(leUint64(length_buffer))}

		if lo == 0 {
			run.is_sparse = true
			result = append(result, run)
			continue
		}

		if offset+lo > len(buffer) {
			return nil, NewNtfsError(ErrRunListHeaderInvalid,
				"run list offset field truncated").WithFieldOffset(int64(offset))
		}

		var sign byte
		if buffer[offset+lo-1]&0x80 != 0 {
			sign = 0xFF
		}

		for i := 0; i < 8; i++ {
			if i < lo {
				offset_buffer[i] = buffer[offset+i]
			} else {
				offset_buffer[i] = sign
			}
		}
		offset += lo

		run.offset_delta = int64(leUint64(offset_buffer))
		result = append(result, run)
	}

	return result, nil
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// SumRunLengths totals the decoded run lengths in clusters. RunList
// uses it for the §8 P3 check that this total equals
// endVcn - startVcn + 1.
func SumRunLengths(runs []RunListEntry) int64 {
	var total int64
	for _, r := range runs {
		total += r.Length
	}
	return total
}

// RunInfo is a debug-only flattened view of a reader chain, used by
// DebugRuns to print the physical mapping behind a RangeReaderAt.
type RunInfo struct {
	Type        string
	Level       int
	FromOffset  int64
	ToOffset    int64
	Length      int64
	IsSparse    bool
	ClusterSize int64
	Reader      string
}

func (self RunInfo) String() string {
	prefix := ""
	for i := 0; i < self.Level; i++ {
		prefix += " "
	}

	properties := ""
	if self.IsSparse {
		properties += "Sparse "
	}

	return fmt.Sprintf("%s %d %v: FileOffset %v -> DiskOffset %v (Length %v, %v Cluster %v) Delegate %v",
		prefix, self.Level,
		self.Type, self.FromOffset, self.ToOffset, self.Length,
		properties, self.ClusterSize, self.Reader)
}

func DebugRuns(stream RangeReaderAt, level int) []*RunInfo {
	result := make([]*RunInfo, 0)

	switch t := stream.(type) {
	case *MappedReader:
		result = append(result, &RunInfo{
			Type:        "MappedReader",
			Level:       level,
			FromOffset:  t.FileOffset,
			ToOffset:    t.TargetOffset,
			Length:      t.Length,
			IsSparse:    t.IsSparse,
			ClusterSize: t.ClusterSize,
			Reader:      fmt.Sprintf("%T", t.Reader),
		})

		reader_t, ok := t.Reader.(RangeReaderAt)
		if ok {
			result = append(result, DebugRuns(reader_t, level+1)...)
		}

	case *RangeReader:
		for _, r := range t.runs {
			result = append(result, DebugRuns(r, level)...)
		}
	}

	return result
}
