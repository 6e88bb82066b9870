package parser

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

// S3: a run list decodes two runs, the second relative to the first.
func TestDecodeRunList(t *testing.T) {
	buffer := []byte{0x21, 0x18, 0x34, 0x56, 0x21, 0x10, 0x00, 0x01, 0x00}

	runs, err := DecodeRunList(buffer)
	assert.NoError(t, err)
	assert.Equal(t, []RunListEntry{
		{AbsoluteLcn: 0x5634, Length: 0x18},
		{AbsoluteLcn: 0x5734, Length: 0x10},
	}, runs)
}

// S4: a sparse run carries no LCN and is materialised as zeroes.
func TestDecodeRunListSparse(t *testing.T) {
	buffer := []byte{0x01, 0x20}

	runs, err := DecodeRunList(buffer)
	assert.NoError(t, err)
	assert.Equal(t, []RunListEntry{
		{IsSparse: true, Length: 0x20},
	}, runs)
}

// P3: a run list's decoded lengths must sum to exactly
// Runlist_vcn_end()-Runlist_vcn_start()+1 clusters. The self-referential
// fixture's $DATA run covers VCNs [0,1] (2 clusters) with a single run
// of length 2, which is consistent.
func TestRunListConsistent(t *testing.T) {
	disk := bytes.NewReader(makeSelfReferentialMFT())

	ntfs, err := GetNTFSContext(disk, 0)
	assert.NoError(t, err)

	entry0, err := ntfs.GetMFT(0)
	assert.NoError(t, err)

	attrs, err := entry0.EnumerateAttributes(ntfs)
	assert.NoError(t, err)

	var data *NTFS_ATTRIBUTE
	for _, attr := range attrs {
		if attr.Type().Value == ATTR_TYPE_DATA {
			data = attr
		}
	}
	assert.NotNil(t, data)

	runs, err := data.RunList()
	assert.NoError(t, err)
	assert.Equal(t, int64(2), SumRunLengths(runs))
}

// Shrinking the $DATA run's length below what Runlist_vcn_start/end
// claim is a P3 violation: RunList must refuse to return it silently.
func TestRunListInconsistencyDetected(t *testing.T) {
	disk := makeSelfReferentialMFT()

	// The $DATA attribute's run list starts at local record offset
	// 160 (attribute start) + 64 (Runlist_offset) = 224. Header byte
	// 0x11 is (ll=1, ss=1); shrink the length nibble's value from 2 to
	// 1 cluster while Runlist_vcn_end() still claims 2.
	mftCluster, clusterSize, recordSize := 2, 512, 512
	rec0 := disk[mftCluster*clusterSize : mftCluster*clusterSize+recordSize]
	assert.Equal(t, byte(0x02), rec0[224+1]) // sanity: the length byte

	// GetNTFSContext already decodes and checks record 0's run list
	// while bootstrapping, so the volume is opened intact and the
	// length byte is corrupted afterwards. The $MFT stream is read
	// lazily, so GetMFT(0) below reads the corrupted bytes.
	ntfs, err := GetNTFSContext(bytes.NewReader(disk), 0)
	assert.NoError(t, err)

	rec0[224+1] = 0x01

	entry0, err := ntfs.GetMFT(0)
	assert.NoError(t, err)

	attrs, err := entry0.EnumerateAttributes(ntfs)
	assert.NoError(t, err)

	var data *NTFS_ATTRIBUTE
	for _, attr := range attrs {
		if attr.Type().Value == ATTR_TYPE_DATA {
			data = attr
		}
	}
	assert.NotNil(t, data)

	_, err = data.RunList()
	ntfs_err, ok := err.(*NtfsError)
	assert.True(t, ok)
	assert.Equal(t, ErrRunListInconsistency, ntfs_err.Kind)
}

// A resident attribute whose declared Content_offset+Content_size runs
// past its own Length() is corrupt, not silently truncatable data.
func TestResidentContentOutOfBounds(t *testing.T) {
	disk := makeSelfReferentialMFT()

	// The fixture's $FILE_NAME attribute lives at local record offset
	// 56, length 104 (see makeSelfReferentialMFT), with content_size at
	// local attribute offset 16 (record offset 72). Inflate it so
	// content_offset(24)+content_size overruns length(104).
	mftCluster, clusterSize := 2, 512
	rec0 := disk[mftCluster*clusterSize:]
	binary.LittleEndian.PutUint32(rec0[56+16:], 200) // content_size

	ntfs, err := GetNTFSContext(bytes.NewReader(disk), 0)
	assert.NoError(t, err)

	entry0, err := ntfs.GetMFT(0)
	assert.NoError(t, err)

	attrs, err := entry0.EnumerateAttributes(ntfs)
	assert.NoError(t, err)

	var fileName *NTFS_ATTRIBUTE
	for _, attr := range attrs {
		if attr.Type().Value == ATTR_TYPE_FILE_NAME {
			fileName = attr
		}
	}
	assert.NotNil(t, fileName)

	buf := make([]byte, 1)
	_, err = fileName.Data(ntfs).ReadAt(buf, 0)
	ntfs_err, ok := err.(*NtfsError)
	assert.True(t, ok)
	assert.Equal(t, ErrResidentContentOutOfBounds, ntfs_err.Kind)
}

func TestDecodeRunListInvalidHeader(t *testing.T) {
	// ll field of 9 is out of the valid [1,8] range.
	buffer := []byte{0x19, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09}

	_, err := DecodeRunList(buffer)
	assert.Error(t, err)

	ntfs_err, ok := err.(*NtfsError)
	assert.True(t, ok)
	assert.Equal(t, ErrRunListHeaderInvalid, ntfs_err.Kind)
}

func TestRangeReaderSparseAndMapped(t *testing.T) {
	disk := bytes.NewReader(bytes.Repeat([]byte{0xAB}, 4096))

	runs := []RunListEntry{
		{AbsoluteLcn: 2, Length: 1},
		{IsSparse: true, Length: 1},
	}

	reader := NewRangeReader(runs, disk, 512)

	buf := make([]byte, 512)
	n, err := reader.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, bytes.Repeat([]byte{0xAB}, 512), buf)

	n, err = reader.ReadAt(buf, 512)
	assert.NoError(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, make([]byte, 512), buf)
}

func TestLazyClusterReaderEnsureLoaded(t *testing.T) {
	disk := bytes.NewReader(bytes.Repeat([]byte{0x42}, 4096))

	runs := []RunListEntry{
		{AbsoluteLcn: 0, Length: 2},
	}

	lazy := NewLazyClusterReader(runs, disk, 512, 1024)

	status, remaining := lazy.EnsureLoaded(300)
	assert.Equal(t, LoadOverSatisfied, status)
	assert.Equal(t, int64(212), remaining)
	assert.Equal(t, int64(512), lazy.LoadedBytes())

	// Calling again with a smaller value must not shrink or re-read.
	status, _ = lazy.EnsureLoaded(100)
	assert.Equal(t, LoadOverSatisfied, status)
	assert.Equal(t, int64(512), lazy.LoadedBytes())

	status, remaining = lazy.EnsureLoaded(2048)
	assert.Equal(t, LoadPartial, status)
	assert.Equal(t, int64(1024), remaining)
	assert.Equal(t, int64(1024), lazy.LoadedBytes())
}

func TestLazyClusterReaderSparse(t *testing.T) {
	runs := []RunListEntry{
		{IsSparse: true, Length: 4},
	}

	lazy := NewLazyClusterReader(runs, &NullReader{}, 512, 2048)

	buf := make([]byte, 2048)
	n, err := lazy.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, 2048, n)
	assert.Equal(t, make([]byte, 2048), buf)
}

func TestLimitedReader(t *testing.T) {
	reader := LimitedReader{R: bytes.NewReader([]byte("hello world")), N: 5}

	buf := make([]byte, 5)
	n, err := reader.ReadAt(buf, 0)
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", string(buf))

	_, err = reader.ReadAt(buf, 5)
	assert.Equal(t, io.EOF, err)
}
