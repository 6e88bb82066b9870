package parser

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func putUTF16(buf []byte, offset int, s string) {
	for i, r := range s {
		binary.LittleEndian.PutUint16(buf[offset+i*2:], uint16(r))
	}
}

// makeSelfReferentialMFT builds a volume where $MFT record 0 carries a
// "$MFT" FILE_NAME and a non-resident, unnamed $DATA run covering the
// two clusters that hold record 0 and record 1 themselves (§4.7: the
// MFT describes its own storage).
func makeSelfReferentialMFT() []byte {
	const (
		sectorSize  = 512
		clusterSize = 512
		mftCluster  = 2
		recordSize  = 512
	)

	disk := make([]byte, mftCluster*clusterSize+2*recordSize)

	// Boot sector.
	copy(disk[3:11], "NTFS    ")
	binary.LittleEndian.PutUint16(disk[0x0B:], sectorSize)
	disk[0x0D] = 1 // sectors per cluster
	binary.LittleEndian.PutUint64(disk[0x28:], 1000000)
	binary.LittleEndian.PutUint64(disk[0x30:], mftCluster)
	disk[0x40] = 1 // clusters per MFT record
	binary.LittleEndian.PutUint16(disk[0x1FE:], 0xAA55)

	rec0 := disk[mftCluster*clusterSize:]

	copy(rec0[0:4], "FILE")
	binary.LittleEndian.PutUint16(rec0[4:], 48) // fixup_offset
	binary.LittleEndian.PutUint16(rec0[6:], 0)  // fixup_count: none, keep this fixture simple
	binary.LittleEndian.PutUint16(rec0[16:], 1) // sequence_value
	binary.LittleEndian.PutUint16(rec0[18:], 1) // link_count
	binary.LittleEndian.PutUint16(rec0[20:], 56) // attribute_offset
	binary.LittleEndian.PutUint16(rec0[22:], 1)  // flags: ALLOCATED
	binary.LittleEndian.PutUint16(rec0[28:], recordSize) // mft_entry_allocated
	binary.LittleEndian.PutUint32(rec0[44:], 0)          // record_number

	// $FILE_NAME, resident, at local offset 56.
	fn := rec0[56:]
	binary.LittleEndian.PutUint32(fn[0:], 48)  // type
	binary.LittleEndian.PutUint32(fn[4:], 104) // length
	fn[8] = 0                                  // RESIDENT
	binary.LittleEndian.PutUint32(fn[16:], 74) // content_size
	binary.LittleEndian.PutUint16(fn[20:], 24) // content_offset

	content := fn[24:]
	binary.LittleEndian.PutUint64(content[0:], JoinFileReference(5, 5)) // mft_reference (parent)
	content[64] = 4                                                    // name_length (chars)
	content[65] = 1                                                    // name_type: Win32
	putUTF16(content[66:], 0, "$MFT")

	// $DATA, non-resident, unnamed, at local offset 160.
	data := rec0[160:]
	binary.LittleEndian.PutUint32(data[0:], 128) // type
	binary.LittleEndian.PutUint32(data[4:], 72)  // length
	data[8] = 1                                  // NON-RESIDENT
	binary.LittleEndian.PutUint16(data[14:], 1)  // attribute_id
	binary.LittleEndian.PutUint64(data[16:], 0)  // runlist_vcn_start
	binary.LittleEndian.PutUint64(data[24:], 1)  // runlist_vcn_end
	binary.LittleEndian.PutUint16(data[32:], 64) // runlist_offset
	binary.LittleEndian.PutUint64(data[40:], 2*recordSize) // allocated_size
	binary.LittleEndian.PutUint64(data[48:], 2*recordSize) // actual_size
	binary.LittleEndian.PutUint64(data[56:], 2*recordSize) // initialized_size

	// Run list: one run, length 2 clusters, absolute LCN 2 (this
	// record's own cluster).
	runlist := data[64:]
	runlist[0] = 0x11
	runlist[1] = 0x02
	runlist[2] = 0x02
	runlist[3] = 0x00

	// Terminator attribute header: type 0xFFFFFFFF stops enumeration.
	binary.LittleEndian.PutUint32(rec0[232:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(rec0[236:], 0)

	binary.LittleEndian.PutUint16(rec0[24:], 240) // mft_entry_size

	// Record 1: a minimal second FILE record with no attributes.
	rec1 := disk[mftCluster*clusterSize+recordSize:]
	copy(rec1[0:4], "FILE")
	binary.LittleEndian.PutUint16(rec1[4:], 48)
	binary.LittleEndian.PutUint16(rec1[6:], 0)
	binary.LittleEndian.PutUint16(rec1[20:], 56)
	binary.LittleEndian.PutUint16(rec1[22:], 1)
	binary.LittleEndian.PutUint16(rec1[24:], 64)
	binary.LittleEndian.PutUint16(rec1[28:], recordSize)
	binary.LittleEndian.PutUint32(rec1[44:], 1)
	binary.LittleEndian.PutUint32(rec1[56:], 0xFFFFFFFF)
	binary.LittleEndian.PutUint32(rec1[60:], 0)

	return disk
}

// S5: walking a two-record $MFT yields record 0 (bearing the "$MFT"
// name), then record 1 at the next record-sized offset, then io.EOF.
func TestMftWalkerSelfReferential(t *testing.T) {
	disk := bytes.NewReader(makeSelfReferentialMFT())

	ntfs, err := GetNTFSContext(disk, 0)
	assert.NoError(t, err)

	names := ntfs.RootMFT.FileName(ntfs)
	assert.Equal(t, 1, len(names))
	assert.Equal(t, "$MFT", names[0].Name())

	walker, err := ntfs.MftWalker()
	assert.NoError(t, err)

	entry0, err := walker.Next()
	assert.NoError(t, err)
	assert.Equal(t, uint32(0), entry0.Record_number())

	entry1, err := walker.Next()
	assert.NoError(t, err)
	assert.Equal(t, uint32(1), entry1.Record_number())

	_, err = walker.Next()
	assert.Equal(t, io.EOF, err)
}

// S6: a record whose first attribute header is the 0xFFFFFFFF
// terminator yields zero attributes and sets EmptyAttributeList,
// without error - as opposed to a stream that overruns Mft_entry_size
// without ever reaching a terminator, which is a MalformedAttributeList.
func TestEnumerateAttributesEmptyList(t *testing.T) {
	disk := bytes.NewReader(makeSelfReferentialMFT())

	ntfs, err := GetNTFSContext(disk, 0)
	assert.NoError(t, err)

	walker, err := ntfs.MftWalker()
	assert.NoError(t, err)

	_, err = walker.Next() // record 0
	assert.NoError(t, err)

	entry1, err := walker.Next() // record 1: no attributes
	assert.NoError(t, err)

	attrs, err := entry1.EnumerateAttributes(ntfs)
	assert.NoError(t, err)
	assert.Equal(t, 0, len(attrs))
	assert.True(t, entry1.EmptyAttributeList)
}

// An attribute stream that runs past Mft_entry_size without ever
// reaching the 0xFFFFFFFF terminator is a MalformedAttributeList, not
// a silent truncation.
func TestEnumerateAttributesOverrunIsMalformed(t *testing.T) {
	disk := makeSelfReferentialMFT()

	// Overwrite record 1's terminator with a bogus non-terminator
	// header whose length runs past Mft_entry_size.
	rec1 := disk[2*512+512:]
	binary.LittleEndian.PutUint32(rec1[56:], 0x80) // $DATA, not a terminator
	binary.LittleEndian.PutUint32(rec1[60:], 500)  // length overruns mft_entry_size

	ntfs, err := GetNTFSContext(bytes.NewReader(disk), 0)
	assert.NoError(t, err)

	walker, err := ntfs.MftWalker()
	assert.NoError(t, err)

	_, err = walker.Next() // record 0
	assert.NoError(t, err)

	entry1, err := walker.Next() // record 1: malformed attribute stream
	assert.NoError(t, err)

	_, err = entry1.EnumerateAttributes(ntfs)
	ntfs_err, ok := err.(*NtfsError)
	assert.True(t, ok)
	assert.Equal(t, ErrMalformedAttributeList, ntfs_err.Kind)
}
