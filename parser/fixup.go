package parser

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// FixedUpReader wraps a buffer that has already had the update
// sequence transform applied, tracking the record's original disk
// offset for error messages.
type FixedUpReader struct {
	Reader          io.ReaderAt
	original_offset int64
}

func (self *FixedUpReader) ReadAt(buf []byte, offset int64) (int, error) {
	return self.Reader.ReadAt(buf, offset)
}

// FixUpDiskMFTEntry reads one MFT record into memory and applies the
// fixup transform (§4.3): the update-sequence array's first word is
// read once as the sentinel; every sector's last two bytes must equal
// it and are replaced with the corresponding fixup-array entry. The
// sentinel is re-derived fresh from this record's own buffer on every
// call - never reused across records - which is the behaviour §9
// contrasts with the source's single cached accessor. bytesPerSector
// comes from the volume's boot sector (§4.3 requires it explicitly,
// rather than assuming the common 512-byte case).
func FixUpDiskMFTEntry(mft *MFT_ENTRY, bytesPerSector int64) (io.ReaderAt, error) {
	STATS.Inc_FixUpDiskMFTEntry()

	// MAX_MFT_ENTRY_SIZE (65536) overflows uint16; since allocated_len's
	// type already bounds it to 0xFFFF, that is the equivalent cap here.
	allocated_len := CapUint16(mft.Mft_entry_allocated(), 0xFFFF)
	if allocated_len < 0x100 {
		return nil, NewNtfsError(ErrRecordSizeMisaligned,
			fmt.Sprintf("MFT entry allocated size %v too small", allocated_len)).
			WithRecordIndex(int64(mft.Record_number()))
	}

	buffer := make([]byte, allocated_len)
	n, err := mft.Reader.ReadAt(buffer, mft.Offset)
	if err != nil && err != io.EOF {
		return nil, NewNtfsError(ErrIoError, "reading MFT entry").WithErr(err).
			WithRecordIndex(int64(mft.Record_number()))
	}
	if n < int(allocated_len) {
		return nil, NewNtfsError(ErrTruncatedRead,
			fmt.Sprintf("short read of MFT entry: got %d want %d", n, allocated_len)).
			WithRecordIndex(int64(mft.Record_number()))
	}

	magic := mft.Magic()
	if !magic.Is("FILE") && !magic.Is("INDX") {
		return nil, NewNtfsError(ErrBadMagic,
			fmt.Sprintf("unexpected record magic %q", magic.String())).
			WithRecordIndex(int64(mft.Record_number())).
			WithFieldOffset(mft.Profile.Off_MFT_ENTRY_Magic)
	}

	fixup_offset := mft.Offset + int64(mft.Fixup_offset())
	fixup_count := int64(mft.Fixup_count())
	if fixup_count == 0 {
		return bytes.NewReader(buffer), nil
	}

	if int64(mft.Fixup_offset())+2*fixup_count > int64(allocated_len) {
		return nil, NewNtfsError(ErrFixupArrayTruncated,
			"update sequence array extends past the record").
			WithRecordIndex(int64(mft.Record_number())).
			WithFieldOffset(mft.Profile.Off_MFT_ENTRY_Fixup_offset)
	}

	fixup_table_len := CapInt64(fixup_count*2, int64(allocated_len))
	fixup_table := make([]byte, fixup_table_len)
	n, err = mft.Reader.ReadAt(fixup_table, fixup_offset)
	if err != nil && err != io.EOF {
		return nil, NewNtfsError(ErrIoError, "reading fixup array").WithErr(err).
			WithRecordIndex(int64(mft.Record_number()))
	}
	if n < int(fixup_table_len) {
		return nil, NewNtfsError(ErrFixupArrayTruncated,
			"short read of fixup array").
			WithRecordIndex(int64(mft.Record_number()))
	}

	sentinel := binary.LittleEndian.Uint16(fixup_table[0:2])

	sector_idx := int64(0)
	for idx := 2; idx < len(fixup_table); idx += 2 {
		sector_offset := (sector_idx+1)*bytesPerSector - 2
		if sector_offset+1 >= int64(len(buffer)) {
			break
		}

		word := binary.LittleEndian.Uint16(buffer[sector_offset : sector_offset+2])
		if word != sentinel {
			return nil, NewNtfsError(ErrBadSentinel,
				fmt.Sprintf("sector %d sentinel mismatch: got %#x want %#x",
					sector_idx, word, sentinel)).
				WithRecordIndex(int64(mft.Record_number())).
				WithFieldOffset(sector_offset)
		}

		buffer[sector_offset] = fixup_table[idx]
		buffer[sector_offset+1] = fixup_table[idx+1]
		sector_idx++
	}

	return &FixedUpReader{
		Reader:          bytes.NewReader(buffer),
		original_offset: mft.Offset,
	}, nil
}

// GetFixedUpMFTEntry reads and fixes up the record at offset, returning
// an MFT_ENTRY view over the fixed-up buffer (offset 0 in that buffer).
func GetFixedUpMFTEntry(
	ntfs *NTFSContext, reader io.ReaderAt, offset int64) (*MFT_ENTRY, error) {
	raw_mft := ntfs.Profile.MFT_ENTRY(reader, offset)
	fixed_up_reader, err := FixUpDiskMFTEntry(raw_mft, int64(ntfs.Boot.Sector_size()))
	if err != nil {
		return nil, err
	}

	return ntfs.Profile.MFT_ENTRY(fixed_up_reader, 0), nil
}
