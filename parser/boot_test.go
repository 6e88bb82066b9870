package parser

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

// S1: bytesPerSector=512, sectorsPerCluster=8, mftLcn=4,
// clustersPerMftRecord=-10 => bytesPerCluster=4096, mftRecordSize=1024,
// mftByteOffset=16384.
func makeBootSector() []byte {
	buf := make([]byte, 512)
	copy(buf[3:11], "NTFS    ")
	binary.LittleEndian.PutUint16(buf[0x0B:], 512)
	buf[0x0D] = 8
	binary.LittleEndian.PutUint64(buf[0x28:], 1000000)
	binary.LittleEndian.PutUint64(buf[0x30:], 4)
	binary.LittleEndian.PutUint64(buf[0x38:], 8)
	buf[0x40] = 0xF6 // -10 as int8
	buf[0x44] = 0x01
	binary.LittleEndian.PutUint16(buf[0x1FE:], 0xAA55)
	return buf
}

func TestBootSectorDecode(t *testing.T) {
	profile := NewNTFSProfile()
	boot := profile.NTFS_BOOT_SECTOR(bytes.NewReader(makeBootSector()), 0)

	assert.NoError(t, boot.IsValid())
	assert.Equal(t, "NTFS    ", boot.OEMId())
	assert.Equal(t, int64(4096), boot.ClusterSize())
	assert.Equal(t, int64(1024), boot.RecordSize())
	assert.Equal(t, int64(16384), boot.MftByteOffset())
}

func TestBootSectorInvalidMagic(t *testing.T) {
	buf := makeBootSector()
	buf[0x1FE] = 0
	buf[0x1FF] = 0

	profile := NewNTFSProfile()
	boot := profile.NTFS_BOOT_SECTOR(bytes.NewReader(buf), 0)

	err := boot.IsValid()
	assert.Error(t, err)

	ntfs_err, ok := err.(*NtfsError)
	assert.True(t, ok)
	assert.Equal(t, ErrBadBootSector, ntfs_err.Kind)
}
