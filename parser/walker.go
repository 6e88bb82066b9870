package parser

import (
	"io"
)

// BootstrapMFT reads MFT record 0 directly off the disk reader at
// mftLcn*clusterSize, fixes it up, and locates its unnamed $DATA
// attribute (§4.7). That attribute becomes the reader every
// subsequent MFT record - including record 0 itself - is read
// through: non-resident $DATA is wrapped in a LazyClusterReader so
// the self-referential $MFT stream is only ever read as far as a
// caller actually walks.
func BootstrapMFT(ntfs *NTFSContext) (io.ReaderAt, error) {
	mft_offset := ntfs.Boot.MftByteOffset()
	raw_mft := ntfs.Profile.MFT_ENTRY(ntfs.DiskReader, mft_offset)

	fixed_reader, err := FixUpDiskMFTEntry(raw_mft, int64(ntfs.Boot.Sector_size()))
	if err != nil {
		return nil, err
	}

	mft0 := ntfs.Profile.MFT_ENTRY(fixed_reader, 0)
	if !mft0.Magic().Is("FILE") {
		return nil, NewNtfsError(ErrBadMagic,
			"$MFT record 0 does not carry the FILE magic").
			WithRecordIndex(0)
	}

	attrs, err := mft0.EnumerateAttributes(ntfs)
	if err != nil {
		return nil, err
	}

	var data_attr *NTFS_ATTRIBUTE
	for _, attr := range attrs {
		if attr.Type().Value == ATTR_TYPE_DATA && attr.Name() == "" {
			data_attr = attr
			break
		}
	}

	if data_attr == nil {
		return nil, NewNtfsError(ErrMalformedAttributeList,
			"$MFT record 0 has no unnamed $DATA attribute").
			WithRecordIndex(0)
	}

	if data_attr.IsResident() {
		return data_attr.Data(ntfs), nil
	}

	runs, err := data_attr.RunList()
	if err != nil {
		return nil, err
	}

	return NewLazyClusterReader(runs, ntfs.DiskReader,
		ntfs.ClusterSize, int64(data_attr.Actual_size())), nil
}

// MftWalker produces MFT records in ascending index order from a
// single $MFT $DATA stream (§4.7, §6 MftWalker.next). It owns the
// context's MFTReader for its lifetime - a walker is single-pass and
// is never retried past the first error.
type MftWalker struct {
	ntfs *NTFSContext

	nextIndex int64

	SkippedBaad   int64
	SkippedUnused int64
}

// MftWalker constructs a walker for the primary MFT (§6
// Volume.mftWalker).
func (self *NTFSContext) MftWalker() (*MftWalker, error) {
	if self.MFTReader == nil {
		return nil, NewNtfsError(ErrIoError, "volume has no $MFT stream bound")
	}

	return &MftWalker{ntfs: self}, nil
}

// Next advances by one record (§6 MftWalker.next), applying fixup and
// skipping (but counting) BAAD and unallocated records. It returns
// io.EOF once the underlying $MFT $DATA stream is exhausted.
func (self *MftWalker) Next() (*MFT_ENTRY, error) {
	for {
		record_size := self.ntfs.GetRecordSize()
		offset := record_size * self.nextIndex

		raw := self.ntfs.Profile.MFT_ENTRY(self.ntfs.MFTReader, offset)

		// Nothing left at this offset: the $MFT stream is exhausted.
		raw_magic := raw.Magic()
		if raw_magic.String() == "" {
			return nil, io.EOF
		}

		// BAAD records fail fixup's magic check, so skip them first.
		if raw_magic.Is("BAAD") {
			self.nextIndex++
			self.SkippedBaad++
			continue
		}

		fixed_reader, err := FixUpDiskMFTEntry(raw, int64(self.ntfs.Boot.Sector_size()))
		if err != nil {
			if ntfs_err, ok := err.(*NtfsError); ok && ntfs_err.Kind == ErrTruncatedRead {
				return nil, io.EOF
			}
			return nil, err
		}

		entry := self.ntfs.Profile.MFT_ENTRY(fixed_reader, 0)
		self.nextIndex++

		magic := entry.Magic()
		switch {
		case magic.Is("BAAD"):
			self.SkippedBaad++
			continue

		case !magic.Is("FILE"):
			return nil, io.EOF

		case !entry.Flags().IsSet("ALLOCATED"):
			self.SkippedUnused++
			continue
		}

		return entry, nil
	}
}
