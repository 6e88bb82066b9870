package parser

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// S2: updateSequenceOffset=48, updateSequenceCount=3, sentinel=0x1234,
// replacements [0xAABB, 0xCCDD]; sector-end bytes at 510/1022 carry the
// sentinel before fixup and the corresponding replacement after.
func makeFixupRecord() []byte {
	buf := make([]byte, 1024)
	copy(buf[0:4], "FILE")
	binary.LittleEndian.PutUint16(buf[4:], 48) // fixup_offset
	binary.LittleEndian.PutUint16(buf[6:], 3)  // fixup_count
	binary.LittleEndian.PutUint16(buf[28:], 1024)

	binary.LittleEndian.PutUint16(buf[48:], 0x1234)
	binary.LittleEndian.PutUint16(buf[50:], 0xAABB)
	binary.LittleEndian.PutUint16(buf[52:], 0xCCDD)

	binary.LittleEndian.PutUint16(buf[510:], 0x1234)
	binary.LittleEndian.PutUint16(buf[1022:], 0x1234)

	return buf
}

func TestFixUpDiskMFTEntry(t *testing.T) {
	buf := makeFixupRecord()
	before_509 := buf[509]
	before_1021 := buf[1021]

	profile := NewNTFSProfile()
	raw := profile.MFT_ENTRY(bytes.NewReader(buf), 0)

	fixed_reader, err := FixUpDiskMFTEntry(raw, 512)
	assert.NoError(t, err)

	fixed := make([]byte, 1024)
	_, err = fixed_reader.ReadAt(fixed, 0)
	assert.NoError(t, err)

	assert.Equal(t, uint16(0xAABB), binary.LittleEndian.Uint16(fixed[510:]))
	assert.Equal(t, uint16(0xCCDD), binary.LittleEndian.Uint16(fixed[1022:]))
	assert.Equal(t, before_509, fixed[509])
	assert.Equal(t, before_1021, fixed[1021])
}

// On a volume with a non-512 sector size, fixup must use the boot
// sector's own Sector_size(), not an assumed 512.
func TestFixUpDiskMFTEntryNonDefaultSectorSize(t *testing.T) {
	const sectorSize = 4096

	buf := make([]byte, sectorSize*2)
	copy(buf[0:4], "FILE")
	binary.LittleEndian.PutUint16(buf[4:], 48) // fixup_offset
	binary.LittleEndian.PutUint16(buf[6:], 3)  // fixup_count
	binary.LittleEndian.PutUint16(buf[28:], uint16(len(buf)))

	binary.LittleEndian.PutUint16(buf[48:], 0x1234)
	binary.LittleEndian.PutUint16(buf[50:], 0xAABB)
	binary.LittleEndian.PutUint16(buf[52:], 0xCCDD)

	// Sector boundaries live at sectorSize-2 and 2*sectorSize-2, not at
	// 510/1022 as the 512-byte fixture above uses.
	binary.LittleEndian.PutUint16(buf[sectorSize-2:], 0x1234)
	binary.LittleEndian.PutUint16(buf[2*sectorSize-2:], 0x1234)

	profile := NewNTFSProfile()
	raw := profile.MFT_ENTRY(bytes.NewReader(buf), 0)

	fixed_reader, err := FixUpDiskMFTEntry(raw, sectorSize)
	assert.NoError(t, err)

	fixed := make([]byte, len(buf))
	_, err = fixed_reader.ReadAt(fixed, 0)
	assert.NoError(t, err)

	assert.Equal(t, uint16(0xAABB), binary.LittleEndian.Uint16(fixed[sectorSize-2:]))
	assert.Equal(t, uint16(0xCCDD), binary.LittleEndian.Uint16(fixed[2*sectorSize-2:]))

	// Applying the wrong (512-byte) sector size against this same
	// buffer would hit a sentinel mismatch at the 512-byte boundary,
	// which never carries the 0x1234 sentinel here.
	raw2 := profile.MFT_ENTRY(bytes.NewReader(buf), 0)
	_, err = FixUpDiskMFTEntry(raw2, 512)
	assert.Error(t, err)
	ntfs_err, ok := err.(*NtfsError)
	assert.True(t, ok)
	assert.Equal(t, ErrBadSentinel, ntfs_err.Kind)
}

func TestFixUpDiskMFTEntryBadSentinel(t *testing.T) {
	buf := makeFixupRecord()
	buf[510] = 0x00 // corrupt the sentinel at the first sector boundary

	profile := NewNTFSProfile()
	raw := profile.MFT_ENTRY(bytes.NewReader(buf), 0)

	_, err := FixUpDiskMFTEntry(raw, 512)
	assert.Error(t, err)

	ntfs_err, ok := err.(*NtfsError)
	assert.True(t, ok)
	assert.Equal(t, ErrBadSentinel, ntfs_err.Kind)
}
