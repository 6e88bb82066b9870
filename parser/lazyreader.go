package parser

import "io"

// LoadStatus reports how an EnsureLoaded request was satisfied (§4.6).
type LoadStatus int

const (
	// LoadFull: loadedBytes ended up exactly at the requested upTo.
	LoadFull LoadStatus = iota
	// LoadPartial: runs were exhausted before upTo was reached.
	LoadPartial
	// LoadOverSatisfied: the last read extended past upTo because
	// reads are cluster-aligned.
	LoadOverSatisfied
)

// LazyClusterReader services bounded reads against a non-resident
// attribute's logical byte range by walking its decoded run list and
// issuing cluster-aligned physical reads only as far as a caller has
// asked for (§4.6). loadedBytes is the resumable cursor: calling
// EnsureLoaded twice with a non-decreasing argument never re-reads
// bytes already in buffer (§8 P5).
type LazyClusterReader struct {
	runs         *RangeReader
	cluster_size int64

	buffer      []byte
	loadedBytes int64

	// totalLength bounds how far EnsureLoaded will ever grow the
	// buffer - the attribute's logical size.
	totalLength int64
}

func NewLazyClusterReader(runs []RunListEntry, disk_reader io.ReaderAt,
	cluster_size int64, total_length int64) *LazyClusterReader {
	return &LazyClusterReader{
		runs:         NewRangeReader(runs, disk_reader, cluster_size),
		cluster_size: cluster_size,
		totalLength:  total_length,
	}
}

// EnsureLoaded grows the internal buffer, in cluster-sized chunks,
// until loadedBytes >= upTo or the attribute's logical range is
// exhausted. Returns the resulting status and the number of bytes
// short (LoadPartial) or beyond (LoadOverSatisfied) upTo.
func (self *LazyClusterReader) EnsureLoaded(upTo int64) (LoadStatus, int64) {
	target := upTo
	if target > self.totalLength {
		target = self.totalLength
	}

	if self.loadedBytes >= upTo {
		if self.loadedBytes > upTo {
			return LoadOverSatisfied, self.loadedBytes - upTo
		}
		return LoadFull, 0
	}

	for self.loadedBytes < target {
		chunk_start := self.loadedBytes
		chunk_end := chunk_start + self.cluster_size
		if chunk_end > self.totalLength {
			chunk_end = self.totalLength
		}
		chunk_len := chunk_end - chunk_start
		if chunk_len <= 0 {
			break
		}

		chunk := make([]byte, chunk_len)
		n, err := self.runs.ReadAt(chunk, chunk_start)
		if n > 0 {
			self.buffer = append(self.buffer, chunk[:n]...)
			self.loadedBytes += int64(n)
		}

		if err != nil || int64(n) < chunk_len {
			break
		}
	}

	switch {
	case self.loadedBytes < upTo:
		return LoadPartial, upTo - self.loadedBytes
	case self.loadedBytes > upTo:
		return LoadOverSatisfied, self.loadedBytes - upTo
	default:
		return LoadFull, 0
	}
}

// ReadAt serves a read entirely out of the already-loaded prefix,
// calling EnsureLoaded first to grow it if necessary.
func (self *LazyClusterReader) ReadAt(buf []byte, offset int64) (int, error) {
	if offset < 0 {
		return 0, io.EOF
	}

	self.EnsureLoaded(offset + int64(len(buf)))

	if offset >= self.loadedBytes {
		return 0, io.EOF
	}

	n := copy(buf, self.buffer[offset:self.loadedBytes])
	if int64(n) < int64(len(buf)) {
		return n, io.EOF
	}
	return n, nil
}

func (self *LazyClusterReader) Ranges() []Range {
	return self.runs.Ranges()
}

func (self *LazyClusterReader) LoadedBytes() int64 {
	return self.loadedBytes
}
