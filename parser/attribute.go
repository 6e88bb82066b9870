package parser

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// ErrorReaderAt always fails reads with a fixed error - used to make
// an unsupported attribute content stream (compressed, encrypted)
// fail lazily at read time rather than at attribute-enumeration time,
// matching the rest of this package's struct-overlay style of
// deferring I/O to the first access.
type ErrorReaderAt struct {
	Err error
}

func (self ErrorReaderAt) ReadAt(buf []byte, offset int64) (int, error) {
	return 0, self.Err
}

// Data returns a reader over the attribute's content bytes: an
// in-record slice for resident attributes, or a cluster-run-backed
// stream bounded to Actual_size() for non-resident ones (§4.4, §6
// Attribute.content). Compressed and encrypted streams are out of
// scope (§7 Unsupported) and yield a reader that fails on first read.
func (self *NTFS_ATTRIBUTE) Data(ntfs *NTFSContext) io.ReaderAt {
	if self.Resident().Name == "RESIDENT" {
		content_offset := int64(self.Content_offset())
		content_size := int64(self.Content_size())
		if content_offset+content_size > int64(self.Length()) {
			return ErrorReaderAt{Err: NewNtfsError(ErrResidentContentOutOfBounds,
				fmt.Sprintf(
					"resident content [%d,%d) falls outside attribute record of length %d",
					content_offset, content_offset+content_size, self.Length())).
				WithAttributeId(int64(self.Attribute_id()))}
		}

		buf := make([]byte, content_size)
		n, _ := self.Reader.ReadAt(
			buf,
			self.Offset+content_offset)
		buf = buf[:n]

		return bytes.NewReader(buf)
	}

	if self.Flags().IsSet("COMPRESSED") || self.Flags().IsSet("ENCRYPTED") {
		return ErrorReaderAt{Err: NewNtfsError(ErrUnsupported,
			"compressed or encrypted attribute content is not supported").
			WithAttributeId(int64(self.Attribute_id()))}
	}

	runs, err := self.RunList()
	if err != nil {
		return ErrorReaderAt{Err: err}
	}

	return LimitedReader{
		R: NewRangeReader(runs, ntfs.DiskReader, ntfs.ClusterSize),
		N: int64(self.Actual_size()),
	}
}

// Content mirrors Data() but surfaces run-list decoding errors
// eagerly, and bounds the returned reader to at most limit bytes -
// the §6 Attribute.content(limit, reader) entrypoint.
func (self *NTFS_ATTRIBUTE) Content(ntfs *NTFSContext, limit int64) (io.ReaderAt, error) {
	if self.Resident().Name != "RESIDENT" {
		if self.Flags().IsSet("COMPRESSED") || self.Flags().IsSet("ENCRYPTED") {
			return nil, NewNtfsError(ErrUnsupported,
				"compressed or encrypted attribute content is not supported").
				WithAttributeId(int64(self.Attribute_id()))
		}

		if _, err := self.RunList(); err != nil {
			return nil, err
		}
	}

	size := self.DataSize()
	if limit > 0 && limit < size {
		size = limit
	}

	return LimitedReader{R: self.Data(ntfs), N: size}, nil
}

func (self *NTFS_ATTRIBUTE) IsResident() bool {
	return self.Resident().Value == 0
}

func (self *NTFS_ATTRIBUTE) DataSize() int64 {
	if self.Resident().Name == "RESIDENT" {
		return int64(self.Content_size())
	}

	return int64(self.Actual_size())
}

func (self *NTFS_ATTRIBUTE) PrintStats(ntfs *NTFSContext) string {
	result := []string{self.DebugString()}

	length := self.Actual_size()
	if length > 100 {
		length = 100
	}

	b := make([]byte, length)
	reader := self.Data(ntfs)
	n, _ := reader.ReadAt(b, 0)
	b = b[:n]

	name := self.Name()
	if name != "" {
		result = append(result, "Name: "+name)
	}

	if self.Resident().Name != "RESIDENT" {
		runs, err := self.RunList()
		if err == nil {
			result = append(result, fmt.Sprintf("Runlist: %v", runs))
		}
	}

	result = append(result, fmt.Sprintf("Data: \n%s", hex.Dump(b)))
	return strings.Join(result, "\n")
}

// RunList decodes this non-resident attribute's run list (§4.5) from
// the bytes starting at Runlist_offset, bounded by this attribute
// record's own Length(), then checks the §8 P3 invariant: the decoded
// runs must cover exactly Runlist_vcn_end()-Runlist_vcn_start()+1
// clusters, no more and no less.
func (self *NTFS_ATTRIBUTE) RunList() ([]RunListEntry, error) {
	attr_length := self.Length()
	runlist_offset := self.Offset + int64(self.Runlist_offset())

	buffer := make([]byte, attr_length)
	n, _ := self.Reader.ReadAt(buffer, runlist_offset)
	buffer = buffer[:n]

	runs, err := DecodeRunList(buffer)
	if err != nil {
		return nil, err
	}

	expected := int64(self.Runlist_vcn_end()-self.Runlist_vcn_start()) + 1
	if SumRunLengths(runs) != expected {
		return nil, NewNtfsError(ErrRunListInconsistency,
			fmt.Sprintf("run list sums to %v clusters, expected %v",
				SumRunLengths(runs), expected)).
			WithAttributeId(int64(self.Attribute_id()))
	}

	return runs, nil
}

// FILE_NAME is the $FILE_NAME attribute content (§3 FileName).
type FILE_NAME struct {
	Reader  io.ReaderAt
	Offset  int64
	Profile *NTFSProfile
}

func (self *FILE_NAME) MftReference() uint64 {
	return ParseUint64(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_mft_reference)
}

func (self *FILE_NAME) Seq_num() uint16 {
	return SplitFileReference(self.MftReference()).Sequence
}

func (self *FILE_NAME) Created() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_created)
}

func (self *FILE_NAME) File_modified() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_file_modified)
}

func (self *FILE_NAME) Mft_modified() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_mft_modified)
}

func (self *FILE_NAME) File_accessed() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_file_accessed)
}

func (self *FILE_NAME) Allocated_size() uint64 {
	return ParseUint64(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_allocated_size)
}

func (self *FILE_NAME) Size() uint64 {
	return ParseUint64(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_size)
}

func (self *FILE_NAME) Flags() *Flags {
	value := ParseUint32(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_flags)
	names := make(map[string]bool)
	if value&0x01 != 0 {
		names["READ_ONLY"] = true
	}
	if value&0x02 != 0 {
		names["HIDDEN"] = true
	}
	if value&0x10000000 != 0 {
		names["DIRECTORY"] = true
	}
	return &Flags{Value: uint64(value), Names: names}
}

func (self *FILE_NAME) ReparsePointTag() uint32 {
	return ParseUint32(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_reparse_point_tag)
}

func (self *FILE_NAME) _length_of_name() byte {
	return uint8(ParseUint8(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_name_length))
}

func (self *FILE_NAME) NameType() *Enumeration {
	value := uint64(ParseUint8(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_name_type))
	name := "Unknown"
	switch value {
	case 0:
		name = "POSIX"
	case 1:
		name = "Win32"
	case 2:
		name = "DOS"
	case 3:
		name = "DOS+Win32"
	}
	return &Enumeration{Value: value, Name: name}
}

func (self *FILE_NAME) Name() string {
	return ParseUTF16String(self.Reader, self.Offset+self.Profile.Off_FILE_NAME_name,
		int64(self._length_of_name())*2)
}

func (self *FILE_NAME) DebugString() string {
	return fmt.Sprintf("struct FILE_NAME @ %#x: Name: %v MftReference: %#x",
		self.Offset, self.Name(), self.MftReference())
}

// STANDARD_INFORMATION is the $STANDARD_INFORMATION attribute content
// (§3 StandardInformation).
type STANDARD_INFORMATION struct {
	Reader  io.ReaderAt
	Offset  int64
	Profile *NTFSProfile
}

func (self *STANDARD_INFORMATION) Create_time() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader,
		self.Offset+self.Profile.Off_STANDARD_INFORMATION_create_time)
}

func (self *STANDARD_INFORMATION) File_altered_time() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader,
		self.Offset+self.Profile.Off_STANDARD_INFORMATION_file_altered_time)
}

func (self *STANDARD_INFORMATION) Mft_altered_time() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader,
		self.Offset+self.Profile.Off_STANDARD_INFORMATION_mft_altered_time)
}

func (self *STANDARD_INFORMATION) File_accessed_time() *WinFileTime {
	return self.Profile.WinFileTime(self.Reader,
		self.Offset+self.Profile.Off_STANDARD_INFORMATION_file_accessed_time)
}

func (self *STANDARD_INFORMATION) Flags() *Flags {
	value := ParseUint32(self.Reader, self.Offset+self.Profile.Off_STANDARD_INFORMATION_flags)
	names := make(map[string]bool)
	if value&0x01 != 0 {
		names["READ_ONLY"] = true
	}
	if value&0x02 != 0 {
		names["HIDDEN"] = true
	}
	if value&0x04 != 0 {
		names["SYSTEM"] = true
	}
	if value&0x20 != 0 {
		names["ARCHIVE"] = true
	}
	return &Flags{Value: uint64(value), Names: names}
}

func (self *STANDARD_INFORMATION) DebugString() string {
	return fmt.Sprintf("struct STANDARD_INFORMATION @ %#x: Flags %v",
		self.Offset, self.Flags().DebugString())
}

// ATTRIBUTE_LIST_ENTRY is one entry in the $ATTRIBUTE_LIST attribute,
// used to expand a record's attributes across extension MFT entries
// (§4.4, §4.7 extension records).
type ATTRIBUTE_LIST_ENTRY struct {
	Reader  io.ReaderAt
	Offset  int64
	Profile *NTFSProfile
}

func (self *ATTRIBUTE_LIST_ENTRY) Type() uint32 {
	return ParseUint32(self.Reader, self.Offset+self.Profile.Off_ATTRIBUTE_LIST_ENTRY_type)
}

func (self *ATTRIBUTE_LIST_ENTRY) Length() uint16 {
	return ParseUint16(self.Reader, self.Offset+self.Profile.Off_ATTRIBUTE_LIST_ENTRY_length)
}

func (self *ATTRIBUTE_LIST_ENTRY) NameLength() byte {
	return uint8(ParseUint8(self.Reader, self.Offset+self.Profile.Off_ATTRIBUTE_LIST_ENTRY_name_length))
}

func (self *ATTRIBUTE_LIST_ENTRY) Vcn() uint64 {
	return ParseUint64(self.Reader, self.Offset+self.Profile.Off_ATTRIBUTE_LIST_ENTRY_vcn)
}

func (self *ATTRIBUTE_LIST_ENTRY) MftReference() uint64 {
	return SplitFileReference(ParseUint64(self.Reader,
		self.Offset+self.Profile.Off_ATTRIBUTE_LIST_ENTRY_mft_reference)).RecordIndex
}

func (self *ATTRIBUTE_LIST_ENTRY) Attribute_id() uint16 {
	return ParseUint16(self.Reader, self.Offset+self.Profile.Off_ATTRIBUTE_LIST_ENTRY_attribute_id)
}

// Attributes expands every entry of this $ATTRIBUTE_LIST that refers
// to a different MFT record than the one it lives in, resolving each
// via GetAttribute. Same-record entries are skipped because
// EnumerateAttributes already walks this record directly - expanding
// them here would duplicate them.
//
// A cross-record entry that fails to resolve - the referenced MFT
// record is gone, or no longer carries the attribute the list entry
// names - is a corrupt $ATTRIBUTE_LIST, not a normal empty list; the
// core never swallows that distinction, so the error is returned
// rather than the entry being dropped.
func (self *ATTRIBUTE_LIST_ENTRY) Attributes(
	ntfs *NTFSContext,
	mft_entry *MFT_ENTRY,
	attr *NTFS_ATTRIBUTE) ([]*NTFS_ATTRIBUTE, error) {
	result := []*NTFS_ATTRIBUTE{}

	attribute_size := attr.DataSize()
	offset := int64(0)
	for offset < attribute_size {
		attr_list_entry := self.Profile.ATTRIBUTE_LIST_ENTRY(
			self.Reader, self.Offset+offset)

		length := int64(attr_list_entry.Length())
		if length <= 0 {
			break
		}

		if attr_list_entry.MftReference() != uint64(mft_entry.Record_number()) {
			resolved, err := attr_list_entry.GetAttribute(ntfs)
			if err != nil {
				return nil, err
			}
			result = append(result, resolved)
		}

		offset += length
	}

	return result, nil
}

func (self *ATTRIBUTE_LIST_ENTRY) GetAttribute(
	ntfs *NTFSContext) (*NTFS_ATTRIBUTE, error) {
	my_type := self.Type()
	my_id := self.Attribute_id()

	mft, err := ntfs.GetMFT(int64(self.MftReference()))
	if err != nil {
		return nil, err
	}

	return mft.GetDirectAttribute(ntfs, uint64(my_type), my_id)
}
