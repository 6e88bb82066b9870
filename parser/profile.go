package parser

// Typed little-endian field readers and the fixed-offset layout
// constants used by the handwritten struct-overlay accessors in
// handwritten.go and boot.go. This replaces a runtime JSON-profile
// interpreter with a handful of Go constants read with
// encoding/binary directly off the borrowed record buffer - the same
// tradeoff handwritten.go already documents for MFT_ENTRY/NTFS_ATTRIBUTE.

import (
	"encoding/binary"
	"io"
	"unsafe"

	"golang.org/x/text/encoding/unicode"
)

func init() {
	var x uint16 = 1
	b := (*[2]byte)(unsafe.Pointer(&x))
	if b[0] != 1 {
		panic("ntfscore: this package only supports little-endian hosts")
	}
}

// Attribute type codes, §3 AttributeHeader.typeId.
const (
	ATTR_TYPE_STANDARD_INFORMATION = 0x10
	ATTR_TYPE_ATTRIBUTE_LIST       = 0x20
	ATTR_TYPE_FILE_NAME            = 0x30
	ATTR_TYPE_OBJECT_ID            = 0x40
	ATTR_TYPE_SECURITY_DESCRIPTOR  = 0x50
	ATTR_TYPE_VOLUME_NAME          = 0x60
	ATTR_TYPE_VOLUME_INFORMATION   = 0x70
	ATTR_TYPE_DATA                 = 0x80
	ATTR_TYPE_INDEX_ROOT           = 0x90
	ATTR_TYPE_INDEX_ALLOCATION     = 0xA0
	ATTR_TYPE_BITMAP               = 0xB0
	ATTR_TYPE_REPARSE_POINT        = 0xC0
	ATTR_TYPE_EA_INFORMATION       = 0xD0
	ATTR_TYPE_EA                   = 0xE0
	ATTR_TYPE_LOGGED_UTILITY       = 0x100
	ATTR_TYPE_END_OF_LIST          = 0xFFFFFFFF
)

// Record magics, §3 MftRecord.magic.
var (
	MAGIC_FILE = [4]byte{'F', 'I', 'L', 'E'}
	MAGIC_BAAD = [4]byte{'B', 'A', 'A', 'D'}
	MAGIC_INDX = [4]byte{'I', 'N', 'D', 'X'}
)

// MFT entries are never trusted to declare themselves bigger than this
// without corroborating evidence from the boot sector - caps the fixup
// buffer allocation against a corrupt Mft_entry_allocated() value.
const MAX_MFT_ENTRY_SIZE = 64 * 1024

// MIN_ATTRIBUTE_HEADER_LENGTH is the smallest Length() a well-formed
// attribute header can declare (§4.4 step 1): through Content_offset,
// the last fixed field every attribute record carries, resident or
// not. A shorter declared length can't even hold that much.
const MIN_ATTRIBUTE_HEADER_LENGTH = 24

func ParseUint8(reader io.ReaderAt, offset int64) uint8 {
	buf := make([]byte, 1)
	reader.ReadAt(buf, offset)
	return buf[0]
}

func ParseInt8(reader io.ReaderAt, offset int64) int8 {
	return int8(ParseUint8(reader, offset))
}

func ParseUint16(reader io.ReaderAt, offset int64) uint16 {
	buf := make([]byte, 2)
	reader.ReadAt(buf, offset)
	return binary.LittleEndian.Uint16(buf)
}

func ParseUint32(reader io.ReaderAt, offset int64) uint32 {
	buf := make([]byte, 4)
	reader.ReadAt(buf, offset)
	return binary.LittleEndian.Uint32(buf)
}

func ParseUint64(reader io.ReaderAt, offset int64) uint64 {
	buf := make([]byte, 8)
	reader.ReadAt(buf, offset)
	return binary.LittleEndian.Uint64(buf)
}

func ParseSignature(reader io.ReaderAt, offset int64, length int) string {
	buf := make([]byte, length)
	n, _ := reader.ReadAt(buf, offset)
	return string(buf[:n])
}

// ParseUTF16String decodes length_bytes of UTF-16LE starting at
// offset - the on-disk encoding of every NTFS name field (§3
// FileName.name, AttributeHeader.name).
func ParseUTF16String(reader io.ReaderAt, offset int64, length_bytes int64) string {
	if length_bytes <= 0 {
		return ""
	}

	buf := make([]byte, length_bytes)
	n, _ := reader.ReadAt(buf, offset)

	decoder := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	decoded, err := decoder.Bytes(buf[:n])
	if err != nil {
		return ""
	}
	return string(decoded)
}

// Enumeration names a field whose on-disk value is one of a closed set
// of codes (e.g. attribute type, resident flag).
type Enumeration struct {
	Value uint64
	Name  string
}

func (self Enumeration) DebugString() string {
	return self.Name
}

// Flags names a bitmask field by the set of bit names that are set.
type Flags struct {
	Value uint64
	Names map[string]bool
}

func (self *Flags) IsSet(name string) bool {
	return self.Names[name]
}

func (self *Flags) DebugString() string {
	names := []string{}
	for name := range self.Names {
		names = append(names, name)
	}
	return joinNames(names)
}

func joinNames(names []string) string {
	result := ""
	for idx, n := range names {
		if idx > 0 {
			result += ","
		}
		result += n
	}
	return result
}

// Signature is a 4 byte magic field compared against an expected value.
type Signature struct {
	value     string
	signature string
}

func (self *Signature) String() string {
	return self.value
}

func (self *Signature) DebugString() string {
	return self.value
}

func (self *Signature) Is(expected string) bool {
	return self.value == expected
}

// NTFSProfile holds the fixed byte offsets used by the struct-overlay
// accessors in boot.go and handwritten.go. The offsets below follow the
// on-disk layout given in §3 of the NTFS record formats this module
// decodes (the same layout the legacy JSON vtype profile described,
// expressed as constants instead of a runtime-parsed schema).
type NTFSProfile struct {
	// NTFS_BOOT_SECTOR
	Off_NTFS_BOOT_SECTOR_oem_id                  int64
	Off_NTFS_BOOT_SECTOR_sector_size             int64
	Off_NTFS_BOOT_SECTOR_cluster_size            int64
	Off_NTFS_BOOT_SECTOR_volume_size             int64
	Off_NTFS_BOOT_SECTOR_mft_cluster             int64
	Off_NTFS_BOOT_SECTOR_mirror_mft_cluster      int64
	Off_NTFS_BOOT_SECTOR_mft_record_size         int64
	Off_NTFS_BOOT_SECTOR_index_record_size       int64
	Off_NTFS_BOOT_SECTOR_volume_serial           int64
	Off_NTFS_BOOT_SECTOR_magic                   int64

	// MFT_ENTRY
	Off_MFT_ENTRY_Magic                      int64
	Off_MFT_ENTRY_Fixup_offset               int64
	Off_MFT_ENTRY_Fixup_count                int64
	Off_MFT_ENTRY_Logfile_sequence_number    int64
	Off_MFT_ENTRY_Sequence_value             int64
	Off_MFT_ENTRY_Link_count                 int64
	Off_MFT_ENTRY_Attribute_offset           int64
	Off_MFT_ENTRY_Flags                      int64
	Off_MFT_ENTRY_Mft_entry_size              int64
	Off_MFT_ENTRY_Mft_entry_allocated        int64
	Off_MFT_ENTRY_Base_record_reference      int64
	Off_MFT_ENTRY_Next_attribute_id          int64
	Off_MFT_ENTRY_Record_number              int64

	// FILE_NAME
	Off_FILE_NAME_mft_reference      int64
	Off_FILE_NAME_created            int64
	Off_FILE_NAME_file_modified      int64
	Off_FILE_NAME_mft_modified       int64
	Off_FILE_NAME_file_accessed      int64
	Off_FILE_NAME_allocated_size     int64
	Off_FILE_NAME_size               int64
	Off_FILE_NAME_flags              int64
	Off_FILE_NAME_reparse_point_tag  int64
	Off_FILE_NAME_name_length        int64
	Off_FILE_NAME_name_type          int64
	Off_FILE_NAME_name               int64

	// STANDARD_INFORMATION
	Off_STANDARD_INFORMATION_create_time       int64
	Off_STANDARD_INFORMATION_file_altered_time int64
	Off_STANDARD_INFORMATION_mft_altered_time  int64
	Off_STANDARD_INFORMATION_file_accessed_time int64
	Off_STANDARD_INFORMATION_flags             int64

	// ATTRIBUTE_LIST_ENTRY
	Off_ATTRIBUTE_LIST_ENTRY_type           int64
	Off_ATTRIBUTE_LIST_ENTRY_length         int64
	Off_ATTRIBUTE_LIST_ENTRY_name_length    int64
	Off_ATTRIBUTE_LIST_ENTRY_name_offset    int64
	Off_ATTRIBUTE_LIST_ENTRY_vcn            int64
	Off_ATTRIBUTE_LIST_ENTRY_mft_reference  int64
	Off_ATTRIBUTE_LIST_ENTRY_attribute_id   int64
}

func NewNTFSProfile() *NTFSProfile {
	return &NTFSProfile{
		Off_NTFS_BOOT_SECTOR_oem_id:             3,
		Off_NTFS_BOOT_SECTOR_sector_size:        0x0B,
		Off_NTFS_BOOT_SECTOR_cluster_size:       0x0D,
		Off_NTFS_BOOT_SECTOR_volume_size:        0x28,
		Off_NTFS_BOOT_SECTOR_mft_cluster:        0x30,
		Off_NTFS_BOOT_SECTOR_mirror_mft_cluster: 0x38,
		Off_NTFS_BOOT_SECTOR_mft_record_size:    0x40,
		Off_NTFS_BOOT_SECTOR_index_record_size:  0x44,
		Off_NTFS_BOOT_SECTOR_volume_serial:      0x48,
		Off_NTFS_BOOT_SECTOR_magic:              0x1FE,

		Off_MFT_ENTRY_Magic:                   0,
		Off_MFT_ENTRY_Fixup_offset:             4,
		Off_MFT_ENTRY_Fixup_count:              6,
		Off_MFT_ENTRY_Logfile_sequence_number:  8,
		Off_MFT_ENTRY_Sequence_value:           16,
		Off_MFT_ENTRY_Link_count:               18,
		Off_MFT_ENTRY_Attribute_offset:         20,
		Off_MFT_ENTRY_Flags:                    22,
		Off_MFT_ENTRY_Mft_entry_size:           24,
		Off_MFT_ENTRY_Mft_entry_allocated:      28,
		Off_MFT_ENTRY_Base_record_reference:    32,
		Off_MFT_ENTRY_Next_attribute_id:        40,
		Off_MFT_ENTRY_Record_number:            44,

		Off_FILE_NAME_mft_reference:     0,
		Off_FILE_NAME_created:           8,
		Off_FILE_NAME_file_modified:     16,
		Off_FILE_NAME_mft_modified:      24,
		Off_FILE_NAME_file_accessed:     32,
		Off_FILE_NAME_allocated_size:    40,
		Off_FILE_NAME_size:              48,
		Off_FILE_NAME_flags:             56,
		Off_FILE_NAME_reparse_point_tag: 60,
		Off_FILE_NAME_name_length:       64,
		Off_FILE_NAME_name_type:         65,
		Off_FILE_NAME_name:              66,

		Off_STANDARD_INFORMATION_create_time:        0,
		Off_STANDARD_INFORMATION_file_altered_time:  8,
		Off_STANDARD_INFORMATION_mft_altered_time:   16,
		Off_STANDARD_INFORMATION_file_accessed_time: 24,
		Off_STANDARD_INFORMATION_flags:               32,

		Off_ATTRIBUTE_LIST_ENTRY_type:          0,
		Off_ATTRIBUTE_LIST_ENTRY_length:        4,
		Off_ATTRIBUTE_LIST_ENTRY_name_length:   6,
		Off_ATTRIBUTE_LIST_ENTRY_name_offset:   7,
		Off_ATTRIBUTE_LIST_ENTRY_vcn:           8,
		Off_ATTRIBUTE_LIST_ENTRY_mft_reference: 16,
		Off_ATTRIBUTE_LIST_ENTRY_attribute_id:  24,
	}
}

func (self *NTFSProfile) NTFS_BOOT_SECTOR(reader io.ReaderAt, offset int64) *NTFS_BOOT_SECTOR {
	return &NTFS_BOOT_SECTOR{Reader: reader, Offset: offset, Profile: self}
}

func (self *NTFSProfile) MFT_ENTRY(reader io.ReaderAt, offset int64) *MFT_ENTRY {
	STATS.Inc_MFT_ENTRY()
	return &MFT_ENTRY{Reader: reader, Offset: offset, Profile: self}
}

func (self *NTFSProfile) NTFS_ATTRIBUTE(reader io.ReaderAt, offset int64) *NTFS_ATTRIBUTE {
	STATS.Inc_NTFS_ATTRIBUTE()
	return NewNTFS_ATTRIBUTE(reader, offset, self)
}

func (self *NTFSProfile) FILE_NAME(reader io.ReaderAt, offset int64) *FILE_NAME {
	STATS.Inc_FILE_NAME()
	return &FILE_NAME{Reader: reader, Offset: offset, Profile: self}
}

func (self *NTFSProfile) STANDARD_INFORMATION(reader io.ReaderAt, offset int64) *STANDARD_INFORMATION {
	STATS.Inc_STANDARD_INFORMATION()
	return &STANDARD_INFORMATION{Reader: reader, Offset: offset, Profile: self}
}

func (self *NTFSProfile) ATTRIBUTE_LIST_ENTRY(reader io.ReaderAt, offset int64) *ATTRIBUTE_LIST_ENTRY {
	STATS.Inc_ATTRIBUTE_LIST_ENTRY()
	return &ATTRIBUTE_LIST_ENTRY{Reader: reader, Offset: offset, Profile: self}
}
