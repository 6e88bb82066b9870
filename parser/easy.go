// Implements some higher level stream access conveniences on top of
// the core attribute/run-list machinery.
package parser

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// GetNTFSContext opens a volume (§6 openVolume): reads and validates
// the boot sector, bootstraps the root MFT record, and returns a
// context ready for MftWalker or direct GetMFT lookups.
func GetNTFSContext(image io.ReaderAt, offset int64) (*NTFSContext, error) {
	ntfs := newNTFSContext(image, "GetNTFSContext")

	ntfs.Boot = &NTFS_BOOT_SECTOR{Reader: image,
		Profile: ntfs.Profile, Offset: offset}

	err := ntfs.Boot.IsValid()
	if err != nil {
		return nil, err
	}

	ntfs.ClusterSize = ntfs.Boot.ClusterSize()

	mft_reader, err := BootstrapMFT(ntfs)
	if err != nil {
		return nil, err
	}

	ntfs.MFTReader = mft_reader
	ntfs.RootMFT = ntfs.Profile.MFT_ENTRY(mft_reader, 0)

	return ntfs, nil
}

// ParseMFTId parses the "5-144-1" (entry-attrtype-attrid) addressing
// convention used by the collaborator CLI.
func ParseMFTId(mft_id string) (mft_idx int64, attr int64, id int64, err error) {
	components := []int64{}
	components_str := strings.Split(mft_id, "-")
	for _, component_str := range components_str {
		x, err := strconv.Atoi(component_str)
		if err != nil {
			return 0, 0, 0, errors.New("Incorrect format for MFTId: e.g. 5-144-1")
		}

		components = append(components, int64(x))
	}

	switch len(components) {
	case 1:
		return components[0], ATR_TYPE_DATA_DEFAULT, 0, nil
	case 2:
		return components[0], components[1], 0, nil
	case 3:
		return components[0], components[1], components[2], nil
	default:
		return 0, 0, 0, errors.New("Incorrect format for MFTId: e.g. 5-144-1")
	}
}

const ATR_TYPE_DATA_DEFAULT = ATTR_TYPE_DATA

func RangeSize(rng RangeReaderAt) int64 {
	runs := rng.Ranges()
	if len(runs) == 0 {
		return 0
	}

	last_run := runs[len(runs)-1]
	return last_run.Offset + last_run.Length
}

// getAllVCNs collects every attribute sharing the same type and id -
// a non-resident stream may be split across several such attributes,
// each covering a different VCN range.
func getAllVCNs(ntfs *NTFSContext,
	mft_entry *MFT_ENTRY, attr_type uint64, attr_id uint16) []*NTFS_ATTRIBUTE {
	result := []*NTFS_ATTRIBUTE{}
	attrs, err := mft_entry.EnumerateAttributes(ntfs)
	if err != nil {
		return result
	}

	for _, attr := range attrs {
		if attr.Type().Value == attr_type &&
			attr.Attribute_id() == attr_id {
			result = append(result, attr)
		}
	}
	return result
}

// getVCNReader returns a reader over this attribute's own VCN range
// (§4.6). actual_size/initialized_size are the whole stream's
// remaining sizes, only meaningful on the first VCN attribute of a
// multi-attribute stream.
func (self *NTFS_ATTRIBUTE) getVCNReader(ntfs *NTFSContext,
	actual_size, initialized_size int64) ([]*MappedReader, int64, error) {

	if self.Resident().Name == "RESIDENT" {
		buf := make([]byte, CapUint32(self.Content_size(), MAX_MFT_ENTRY_SIZE))
		n, _ := self.Reader.ReadAt(
			buf,
			self.Offset+int64(self.Content_offset()))
		buf = buf[:n]

		return []*MappedReader{
			{
				FileOffset:  0,
				Length:      int64(n),
				ClusterSize: 1,
				Reader:      bytes.NewReader(buf),
			}}, int64(n), nil
	}

	if self.Flags().IsSet("COMPRESSED") || self.Flags().IsSet("ENCRYPTED") {
		return nil, 0, NewNtfsError(ErrUnsupported,
			"compressed or encrypted attribute content is not supported").
			WithAttributeId(int64(self.Attribute_id()))
	}

	start := int64(self.Runlist_vcn_start()) * ntfs.ClusterSize
	end := int64(self.Runlist_vcn_end()+1) * ntfs.ClusterSize

	length := end - start
	if length > actual_size {
		length = actual_size
	}

	runs, err := self.RunList()
	if err != nil {
		return nil, 0, err
	}

	// If the attribute is not fully initialized, trim the mapping to
	// the initialized range and pad the remainder with a sparse run.
	if length > initialized_size {
		return []*MappedReader{
			{
				FileOffset:  start,
				Length:      initialized_size,
				ClusterSize: 1,
				Reader:      NewRangeReader(runs, ntfs.DiskReader, ntfs.ClusterSize),
			},
			{
				ClusterSize: 1,
				FileOffset:  start + initialized_size,
				Length:      length - initialized_size,
				IsSparse:    true,
				Reader:      &NullReader{},
			}}, length, nil
	}

	return []*MappedReader{
		{
			FileOffset:  start,
			Length:      length,
			ClusterSize: 1,
			Reader:      NewRangeReader(runs, ntfs.DiskReader, ntfs.ClusterSize),
		}}, length, nil
}

// OpenStream opens the full logical stream for an attribute type/id
// pair (§6 Attribute.content for non-resident data): it finds every
// VCN-range attribute sharing that type and id and stitches their
// readers into one continuous RangeReader.
func OpenStream(ntfs *NTFSContext,
	mft_entry *MFT_ENTRY, attr_type uint64, attr_id uint16) (RangeReaderAt, error) {

	attr_id_found := false

	result := &RangeReader{}

	actual_size := int64(0)
	initialized_size := int64(0)

	attrs, err := mft_entry.EnumerateAttributes(ntfs)
	if err != nil {
		return nil, err
	}

	for _, attr := range attrs {
		if attr.Type().Value != attr_type {
			continue
		}

		if attr_id == 0 && !attr_id_found {
			attr_id = attr.Attribute_id()
			attr_id_found = true
		}

		if attr.Attribute_id() != attr_id {
			continue
		}

		if actual_size == 0 {
			actual_size = int64(attr.Actual_size())
		}

		if initialized_size == 0 {
			initialized_size = int64(attr.Initialized_size())
		}

		reader, consumed_length, err := attr.getVCNReader(ntfs, actual_size, initialized_size)
		if err != nil {
			return nil, err
		}
		result.runs = append(result.runs, reader...)

		actual_size -= consumed_length
		initialized_size -= consumed_length
	}

	return result, nil
}
