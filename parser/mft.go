package parser

import (
	"errors"
	"fmt"
	"strings"
)

// EnumerateAttributes walks this record's attribute stream (§4.4):
// fixed-size headers starting at Attribute_offset, each carrying its
// own Length, until the 0xFFFFFFFF terminator type. $ATTRIBUTE_LIST
// members belonging to other MFT records are spliced in alongside the
// list attribute itself.
//
// If the terminator is the very first header, EmptyAttributeList is
// set and the (empty) result is returned without error - a validly
// formed record simply carrying no attributes. If the stream instead
// runs past Mft_entry_size without ever reaching the terminator, that
// is a MalformedAttributeList.
func (self *MFT_ENTRY) EnumerateAttributes(ntfs *NTFSContext) ([]*NTFS_ATTRIBUTE, error) {
	offset := int64(self.Attribute_offset())
	mft_size := int64(self.Mft_entry_size())
	result := make([]*NTFS_ATTRIBUTE, 0, 16)

	for {
		attribute := self.Profile.NTFS_ATTRIBUTE(
			self.Reader, offset)

		if attribute.Type().Value == ATTR_TYPE_END_OF_LIST {
			if len(result) == 0 {
				self.EmptyAttributeList = true
			}
			return result, nil
		}

		attribute_size := int64(attribute.Length())
		if attribute_size < MIN_ATTRIBUTE_HEADER_LENGTH ||
			attribute_size+offset > mft_size {
			return result, NewNtfsError(ErrMalformedAttributeList,
				"attribute header too short or overran Mft_entry_size without a terminator").
				WithRecordIndex(int64(self.Record_number())).
				WithFieldOffset(offset)
		}

		if attribute.Type().Name == "$ATTRIBUTE_LIST" {
			attr_list := self.Profile.ATTRIBUTE_LIST_ENTRY(
				attribute.Data(ntfs), 0)

			attr_list_members, err := attr_list.Attributes(
				ntfs, self, attribute)
			if err != nil {
				return result, err
			}

			result = append(result, attr_list_members...)
		}

		result = append(result, attribute)

		offset += attribute_size
	}
}

// GetDirectAttribute searches only this record's own attribute
// stream - it never expands $ATTRIBUTE_LIST entries, which is what
// makes it safe to call while resolving one (breaks the cycle
// described in https://github.com/CCXLabs/CCXDigger/issues/13: an
// attribute list entry pointing back into a record that itself
// contains an attribute list must not recurse).
func (self *MFT_ENTRY) GetDirectAttribute(
	ntfs *NTFSContext, attr_type uint64, attr_id uint16) (*NTFS_ATTRIBUTE, error) {
	offset := int64(self.Attribute_offset())
	mft_size := int64(self.Mft_entry_size())

	for {
		attribute := self.Profile.NTFS_ATTRIBUTE(self.Reader, offset)

		if attribute.Type().Value == ATTR_TYPE_END_OF_LIST {
			return nil, errors.New("No attribute found.")
		}

		attribute_size := int64(attribute.Length())
		if attribute_size < MIN_ATTRIBUTE_HEADER_LENGTH ||
			attribute_size+offset > mft_size {
			return nil, NewNtfsError(ErrMalformedAttributeList,
				"attribute header too short or overran Mft_entry_size without a terminator").
				WithRecordIndex(int64(self.Record_number())).
				WithFieldOffset(offset)
		}

		if attribute.Type().Value == attr_type &&
			attribute.Attribute_id() == attr_id {
			return attribute, nil
		}

		offset += attribute_size
	}
}

func (self *MFT_ENTRY) Display(ntfs *NTFSContext) string {
	result := []string{self.DebugString()}

	result = append(result, "Attribute:")
	attrs, err := self.EnumerateAttributes(ntfs)
	if err != nil {
		result = append(result, err.Error())
	}
	for _, attr := range attrs {
		result = append(result, attr.PrintStats(ntfs))
	}

	return fmt.Sprintf("[MFT_ENTRY] @ %#0x\n", self.Offset) +
		strings.Join(result, "\n")
}

// StandardInformation extracts the $STANDARD_INFORMATION attribute.
func (self *MFT_ENTRY) StandardInformation(ntfs *NTFSContext) (
	*STANDARD_INFORMATION, error) {
	attrs, err := self.EnumerateAttributes(ntfs)
	if err != nil {
		return nil, err
	}

	for _, attr := range attrs {
		if attr.Type().Value == ATTR_TYPE_STANDARD_INFORMATION {
			return self.Profile.STANDARD_INFORMATION(
				attr.Data(ntfs), 0), nil
		}
	}

	return nil, errors.New("$STANDARD_INFORMATION not found!")
}

// FileName extracts every $FILE_NAME attribute on this record - a
// record usually carries more than one (Win32, DOS, POSIX variants).
func (self *MFT_ENTRY) FileName(ntfs *NTFSContext) []*FILE_NAME {
	result := []*FILE_NAME{}
	attrs, err := self.EnumerateAttributes(ntfs)
	if err != nil {
		return result
	}

	for _, attr := range attrs {
		if attr.Type().Value == ATTR_TYPE_FILE_NAME {
			res := self.Profile.FILE_NAME(attr.Data(ntfs), 0)
			result = append(result, res)
		}
	}
	return result
}

// GetAttribute retrieves the content of the attribute stream
// specified by type and id. If id is 0 it returns the first
// attribute of this type. An optional stream name filters named
// streams (alternate data streams).
func (self *MFT_ENTRY) GetAttribute(
	ntfs *NTFSContext, attr_type,
	id int64, stream string) (*NTFS_ATTRIBUTE, error) {
	attrs, err := self.EnumerateAttributes(ntfs)
	if err != nil {
		return nil, err
	}

	for _, attr := range attrs {
		if attr.Type().Value == uint64(attr_type) {
			if id <= 0 || int64(attr.Attribute_id()) == id {
				if stream != "" && stream != attr.Name() {
					continue
				}
				return attr, nil
			}
		}
	}

	return nil, errors.New("Attribute not found!")
}

// IsExtensionRecord reports whether this record's base file reference
// (§4.7) names a non-zero record index - i.e. whether it exists only
// to carry overflow attributes for another record. A base record
// stores zero there.
func (self *MFT_ENTRY) IsExtensionRecord() bool {
	base := SplitFileReference(self.Base_record_reference())
	return base.RecordIndex != 0
}
