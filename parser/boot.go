package parser

import (
	"fmt"
	"io"
)

// NTFS_BOOT_SECTOR is a view over the first sector of the volume - the
// BIOS Parameter Block plus the NTFS-specific extension fields.
type NTFS_BOOT_SECTOR struct {
	Reader  io.ReaderAt
	Offset  int64
	Profile *NTFSProfile
}

func (self *NTFS_BOOT_SECTOR) OEMId() string {
	return ParseSignature(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_oem_id, 8)
}

func (self *NTFS_BOOT_SECTOR) Sector_size() uint16 {
	return ParseUint16(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_sector_size)
}

func (self *NTFS_BOOT_SECTOR) _cluster_size() uint8 {
	return ParseUint8(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_cluster_size)
}

func (self *NTFS_BOOT_SECTOR) _volume_size() uint64 {
	return ParseUint64(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_volume_size)
}

func (self *NTFS_BOOT_SECTOR) _mft_cluster() uint64 {
	return ParseUint64(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_mft_cluster)
}

func (self *NTFS_BOOT_SECTOR) _mirror_mft_cluster() uint64 {
	return ParseUint64(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_mirror_mft_cluster)
}

// Signed-exponent encoding, §3 BootSector.clustersPerMftRecord: in
// [1,127] it is a cluster count, <= -1 means a record is 2^(-n) bytes.
func (self *NTFS_BOOT_SECTOR) _mft_record_size() int8 {
	return ParseInt8(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_mft_record_size)
}

func (self *NTFS_BOOT_SECTOR) _index_record_size() int8 {
	return ParseInt8(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_index_record_size)
}

func (self *NTFS_BOOT_SECTOR) VolumeSerial() uint64 {
	return ParseUint64(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_volume_serial)
}

func (self *NTFS_BOOT_SECTOR) Magic() uint16 {
	return ParseUint16(self.Reader,
		self.Offset+self.Profile.Off_NTFS_BOOT_SECTOR_magic)
}

func (self *NTFS_BOOT_SECTOR) ClusterSize() int64 {
	return int64(self._cluster_size()) * int64(self.Sector_size())
}

func (self *NTFS_BOOT_SECTOR) BlockCount() int64 {
	size := self.ClusterSize()
	if size == 0 {
		return 0
	}
	return int64(self._volume_size()) / size
}

func (self *NTFS_BOOT_SECTOR) RecordSize() int64 {
	record_size := int64(self._mft_record_size())
	if record_size > 0 {
		return record_size * self.ClusterSize()
	}
	return 1 << uint32(-record_size)
}

func (self *NTFS_BOOT_SECTOR) IndexRecordSize() int64 {
	record_size := int64(self._index_record_size())
	if record_size > 0 {
		return record_size * self.ClusterSize()
	}
	return 1 << uint32(-record_size)
}

func (self *NTFS_BOOT_SECTOR) MftByteOffset() int64 {
	return int64(self._mft_cluster()) * self.ClusterSize()
}

// IsValid validates the boot sector per §4.2: the "NTFS    " OEM id,
// the 0xAA55 sector signature, and the power-of-two/sane-size
// invariants from §3. Any violation is a BadBootSector.
func (self *NTFS_BOOT_SECTOR) IsValid() error {
	if self.OEMId() != "NTFS    " {
		return NewNtfsError(ErrBadBootSector,
			fmt.Sprintf("invalid OEM id %q", self.OEMId())).
			WithFieldOffset(self.Profile.Off_NTFS_BOOT_SECTOR_oem_id)
	}

	if self.Magic() != 0xAA55 {
		return NewNtfsError(ErrBadBootSector,
			fmt.Sprintf("invalid boot sector signature %#x", self.Magic())).
			WithFieldOffset(self.Profile.Off_NTFS_BOOT_SECTOR_magic)
	}

	sector_size := self.Sector_size()
	if sector_size < 256 || sector_size > 4096 || !isPowerOfTwo(uint64(sector_size)) {
		return NewNtfsError(ErrBadBootSector,
			fmt.Sprintf("invalid sector size %v", sector_size)).
			WithFieldOffset(self.Profile.Off_NTFS_BOOT_SECTOR_sector_size)
	}

	sectors_per_cluster := self._cluster_size()
	if sectors_per_cluster == 0 || sectors_per_cluster > 128 ||
		!isPowerOfTwo(uint64(sectors_per_cluster)) {
		return NewNtfsError(ErrBadBootSector,
			fmt.Sprintf("invalid sectors per cluster %v", sectors_per_cluster)).
			WithFieldOffset(self.Profile.Off_NTFS_BOOT_SECTOR_cluster_size)
	}

	if self.BlockCount() == 0 {
		return NewNtfsError(ErrBadBootSector, "volume size is 0").
			WithFieldOffset(self.Profile.Off_NTFS_BOOT_SECTOR_volume_size)
	}

	return nil
}

func isPowerOfTwo(v uint64) bool {
	return v != 0 && v&(v-1) == 0
}
