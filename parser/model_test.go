package parser

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ModelMFTEntry has no call site of its own in parser/ - it is consumed
// by the CLI's --json output (bin/walk.go). Covered here directly
// against the same self-referential fixture walker_test.go exercises,
// rather than a byte-exact golden file: the shape is small enough that
// asserting on individual fields is both safe and cheap to maintain.
func TestModelMFTEntry(t *testing.T) {
	disk := bytes.NewReader(makeSelfReferentialMFT())

	ntfs, err := GetNTFSContext(disk, 0)
	assert.NoError(t, err)

	entry0, err := ntfs.GetMFT(0)
	assert.NoError(t, err)

	model, err := ModelMFTEntry(ntfs, entry0)
	assert.NoError(t, err)

	// The fixture's $FILE_NAME parent reference points at a record the
	// tiny disk doesn't contain, so path resolution stops after the
	// entry's own name.
	assert.Equal(t, "$MFT", model.FullPath)
	assert.Equal(t, int64(0), model.MFTID)
	assert.True(t, model.Allocated)
	assert.False(t, model.IsDir)

	assert.Equal(t, 1, len(model.Filenames))
	assert.Equal(t, "$MFT", model.Filenames[0].Name)

	assert.Equal(t, 2, len(model.Attributes))

	var fileName, data *Attribute
	for _, attr := range model.Attributes {
		switch attr.Type {
		case "$FILE_NAME":
			fileName = attr
		case "$DATA":
			data = attr
		}
	}

	assert.NotNil(t, fileName)
	assert.Equal(t, uint64(0x30), fileName.TypeId)

	assert.NotNil(t, data)
	assert.Equal(t, uint64(0x80), data.TypeId)
	assert.Equal(t, int64(1024), data.Size)
	assert.Equal(t, int64(1024), model.Size)
}
